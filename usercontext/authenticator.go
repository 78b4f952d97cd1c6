package usercontext

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	errs "github.com/hrygo/userctx/internal/errors"
)

const sessionIssuer = "userctx"

// DefaultSessionTTL is the lifetime of locally issued sessions.
const DefaultSessionTTL = 8 * time.Hour

// LocalAuthenticator issues HMAC-signed session tokens for a single machine.
// It stands in for a remote authentication service in desktop deployments.
type LocalAuthenticator struct {
	secret     []byte
	sessionTTL time.Duration
}

// NewLocalAuthenticator creates an authenticator signing with secret. A
// non-positive ttl means DefaultSessionTTL.
func NewLocalAuthenticator(secret string, ttl time.Duration) *LocalAuthenticator {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &LocalAuthenticator{secret: []byte(secret), sessionTTL: ttl}
}

func (a *LocalAuthenticator) signSession(userID int32, sessionID, machineID string, expiresAt time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{
		Issuer:    sessionIssuer,
		Subject:   strconv.FormatInt(int64(userID), 10),
		ID:        sessionID,
		Audience:  jwt.ClaimStrings{machineID},
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign session token")
	}
	return signed, nil
}

// SwitchUser issues a fresh session for userID on machineID.
func (a *LocalAuthenticator) SwitchUser(ctx context.Context, userID int32, machineID string) (*SwitchUserResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if userID <= 0 {
		return &SwitchUserResult{
			ErrorCode:    string(errs.ErrCodeInvalidArgument),
			ErrorMessage: "user id must be positive",
		}, nil
	}

	sessionID := uuid.NewString()
	expiresAt := time.Now().Add(a.sessionTTL)
	signed, err := a.signSession(userID, sessionID, machineID, expiresAt)
	if err != nil {
		return nil, err
	}

	return &SwitchUserResult{
		Success:   true,
		Token:     signed,
		SessionID: sessionID,
		ExpiresAt: &expiresAt,
	}, nil
}

// RefreshSession validates token and issues a replacement with a fresh
// expiry, preserving the session id. Expired or malformed tokens are an
// expected failure, not a Go error.
func (a *LocalAuthenticator) RefreshSession(ctx context.Context, token, machineID string) (*RefreshSessionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(sessionIssuer))
	if err != nil || !parsed.Valid {
		return &RefreshSessionResult{
			ErrorCode:    string(errs.ErrCodeSessionExpired),
			ErrorMessage: "session token invalid or expired",
		}, nil
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 32)
	if err != nil {
		return &RefreshSessionResult{
			ErrorCode:    string(errs.ErrCodeSessionExpired),
			ErrorMessage: "session token carries no user",
		}, nil
	}

	expiresAt := time.Now().Add(a.sessionTTL)
	signed, err := a.signSession(int32(userID), claims.ID, machineID, expiresAt)
	if err != nil {
		return nil, err
	}

	return &RefreshSessionResult{
		Success:   true,
		Token:     signed,
		ExpiresAt: &expiresAt,
	}, nil
}

var _ Authenticator = (*LocalAuthenticator)(nil)
