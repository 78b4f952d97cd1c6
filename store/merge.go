package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// mergeUserParallelism bounds how many users' groups are applied concurrently
// within one batch.
const mergeUserParallelism = 4

// PreferenceWrite is a single write intent within a batch. A blank Value is a
// deletion tombstone for the (Category, Key) it names.
type PreferenceWrite struct {
	UserID      int32
	Category    string
	Key         string
	Value       string
	ValueType   ValueType
	Description string
}

// ApplyPreferenceBatch applies a sequence of write intents as one logical
// batch and returns the number of affected rows.
//
// Conflict resolution is last-occurrence-wins: when a batch contains several
// intents for the same (user, category, key), only the final one by sequence
// position is applied; earlier duplicates are discarded, not applied then
// overwritten. Tombstones on absent entries are no-ops and are not counted.
// Upserts always count, whether or not the stored value changed.
//
// Entries with a blank category or key are malformed; they are skipped with a
// per-entry diagnostic and do not fail the batch. Groups for distinct users
// are applied concurrently; ordering across batches is the caller's concern —
// last-write-wins is only guaranteed within a single call.
func (s *Store) ApplyPreferenceBatch(ctx context.Context, writes []PreferenceWrite) (int64, error) {
	// Step 1+2: group by user, keeping only the last intent per (category, key).
	type survivor struct {
		write PreferenceWrite
		pos   int
	}
	perUser := make(map[int32]map[string]*survivor)
	for i, write := range writes {
		category := strings.TrimSpace(write.Category)
		key := strings.TrimSpace(write.Key)
		if write.UserID <= 0 || category == "" || key == "" {
			slog.Warn("skipping malformed preference write",
				slog.Int64("user_id", int64(write.UserID)),
				slog.String("category", write.Category),
				slog.String("key", write.Key),
				slog.Int("position", i))
			continue
		}
		write.Category = category
		write.Key = key

		keyed, ok := perUser[write.UserID]
		if !ok {
			keyed = make(map[string]*survivor)
			perUser[write.UserID] = keyed
		}
		keyed[fmt.Sprintf("%s\x00%s", category, key)] = &survivor{write: write, pos: i}
	}

	var affected atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mergeUserParallelism)

	for userID, keyed := range perUser {
		survivors := make([]*survivor, 0, len(keyed))
		for _, sv := range keyed {
			survivors = append(survivors, sv)
		}
		sort.Slice(survivors, func(i, j int) bool {
			return survivors[i].pos < survivors[j].pos
		})

		userID := userID
		g.Go(func() error {
			for _, sv := range survivors {
				if err := gctx.Err(); err != nil {
					return err
				}

				write := sv.write
				if strings.TrimSpace(write.Value) == "" {
					// Step 3: tombstone. Deleting an absent entry has no
					// effect and is not counted.
					deleted, err := s.DeletePreference(gctx, &DeletePreference{
						UserID:   userID,
						Category: write.Category,
						Key:      write.Key,
					})
					if err != nil {
						return errors.Wrapf(err, "failed to delete preference %s/%s for user %d", write.Category, write.Key, userID)
					}
					if deleted {
						affected.Add(1)
					}
					continue
				}

				// Step 4: upsert, counted unconditionally.
				if _, err := s.UpsertPreference(gctx, &UpsertPreference{
					UserID:      userID,
					Category:    write.Category,
					Key:         write.Key,
					Value:       write.Value,
					ValueType:   write.ValueType,
					Description: write.Description,
				}); err != nil {
					return errors.Wrapf(err, "failed to upsert preference %s/%s for user %d", write.Category, write.Key, userID)
				}
				affected.Add(1)
			}
			return nil
		})
	}

	err := g.Wait()
	return affected.Load(), err
}
