package usercontext

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

// Tier is one layer of the context cache. Tiers are probed in order by the
// resolver; a hit on a later tier is promoted into the earlier ones. Get
// returns whatever the tier holds, valid or not; the resolver decides what
// counts as a hit.
type Tier interface {
	Name() string
	Get(ctx context.Context) *UserContext
	Set(ctx context.Context, uc *UserContext)
	Invalidate(ctx context.Context)
}

type scopeContextKey struct{}
type workerContextKey struct{}

// Scope is a zero-contention context slot pinned to one logical caller. A
// goroutine that carries its Scope in the context.Context it passes around
// gets the fast path on every resolution.
type Scope struct {
	id      string
	current atomic.Pointer[UserContext]
}

// NewScope creates a caller-affine scope with a unique id.
func NewScope() *Scope {
	return &Scope{id: uuid.NewString()}
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() string {
	return s.id
}

// WithScope attaches a caller-affine scope to ctx.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFrom returns the scope attached to ctx, or nil.
func ScopeFrom(ctx context.Context) *Scope {
	scope, _ := ctx.Value(scopeContextKey{}).(*Scope)
	return scope
}

// WithWorkerID tags ctx with the identifier of the pool worker executing the
// caller, enabling the worker-table tier.
func WithWorkerID(ctx context.Context, workerID string) context.Context {
	return context.WithValue(ctx, workerContextKey{}, workerID)
}

func workerIDFrom(ctx context.Context) (string, bool) {
	workerID, ok := ctx.Value(workerContextKey{}).(string)
	return workerID, ok && workerID != ""
}

// affinityTier stores the context in the caller's Scope. Without a Scope in
// the context it is a permanent miss.
type affinityTier struct{}

func (t *affinityTier) Name() string { return "affinity" }

func (t *affinityTier) Get(ctx context.Context) *UserContext {
	scope := ScopeFrom(ctx)
	if scope == nil {
		return nil
	}
	return scope.current.Load()
}

func (t *affinityTier) Set(ctx context.Context, uc *UserContext) {
	if scope := ScopeFrom(ctx); scope != nil {
		scope.current.Store(uc)
	}
}

func (t *affinityTier) Invalidate(ctx context.Context) {
	if scope := ScopeFrom(ctx); scope != nil {
		scope.current.Store(nil)
	}
}

// workerTableTier mirrors the affinity slot across a worker pool, keyed by the
// worker id carried in the context.
type workerTableTier struct {
	table sync.Map // worker id -> *UserContext
}

func (t *workerTableTier) Name() string { return "worker-table" }

func (t *workerTableTier) Get(ctx context.Context) *UserContext {
	workerID, ok := workerIDFrom(ctx)
	if !ok {
		return nil
	}
	value, ok := t.table.Load(workerID)
	if !ok {
		return nil
	}
	uc, _ := value.(*UserContext)
	return uc
}

func (t *workerTableTier) Set(ctx context.Context, uc *UserContext) {
	if workerID, ok := workerIDFrom(ctx); ok {
		t.table.Store(workerID, uc)
	}
}

// Invalidate drops every worker's entry: a context teardown applies to the
// whole process, not just the calling worker.
func (t *workerTableTier) Invalidate(context.Context) {
	t.table.Range(func(key, _ any) bool {
		t.table.Delete(key)
		return true
	})
}

// globalTier is the single process-wide slot. The lock guards nothing but the
// pointer swap; callers must finish all I/O before touching it.
type globalTier struct {
	mu      sync.RWMutex
	current *UserContext
}

func (t *globalTier) Name() string { return "global" }

func (t *globalTier) Get(context.Context) *UserContext {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

func (t *globalTier) Set(_ context.Context, uc *UserContext) {
	t.mu.Lock()
	t.current = uc
	t.mu.Unlock()
}

func (t *globalTier) Invalidate(context.Context) {
	t.mu.Lock()
	t.current = nil
	t.mu.Unlock()
}

// ContextTTLStore is the external last-resort tier boundary. The in-process
// default below suits a single desktop process; a multi-process deployment
// can plug in something shared.
type ContextTTLStore interface {
	Load(ctx context.Context) (*UserContext, bool)
	Store(ctx context.Context, uc *UserContext, ttl time.Duration)
	Remove(ctx context.Context)
}

const ttlStoreKey = "current_user_context"

type memoryTTLStore struct {
	inner *ttlcache.Cache[string, *UserContext]
}

func newMemoryTTLStore() *memoryTTLStore {
	inner := ttlcache.New[string, *UserContext]()
	go inner.Start()
	return &memoryTTLStore{inner: inner}
}

func (s *memoryTTLStore) Load(context.Context) (*UserContext, bool) {
	item := s.inner.Get(ttlStoreKey)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (s *memoryTTLStore) Store(_ context.Context, uc *UserContext, ttl time.Duration) {
	s.inner.Set(ttlStoreKey, uc, ttl)
}

func (s *memoryTTLStore) Remove(context.Context) {
	s.inner.Delete(ttlStoreKey)
}

func (s *memoryTTLStore) Close() error {
	s.inner.Stop()
	s.inner.DeleteAll()
	return nil
}

// ttlTier adapts a ContextTTLStore into the tier chain with a fixed write TTL.
type ttlTier struct {
	store ContextTTLStore
	ttl   time.Duration
}

func (t *ttlTier) Name() string { return "ttl" }

func (t *ttlTier) Get(ctx context.Context) *UserContext {
	uc, ok := t.store.Load(ctx)
	if !ok {
		return nil
	}
	return uc
}

func (t *ttlTier) Set(ctx context.Context, uc *UserContext) {
	t.store.Store(ctx, uc, t.ttl)
}

func (t *ttlTier) Invalidate(ctx context.Context) {
	t.store.Remove(ctx)
}
