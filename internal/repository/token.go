package repository

import (
	"context"
	"errors"
	"storefront-downloads/internal/model"
	"time"
)

var (
	ErrTokenNotFound = errors.New("download token not found")
	ErrTokenUsed     = errors.New("download token already used")
	ErrTokenExpired  = errors.New("download token expired")
)

// TokenRepository holds outstanding download tokens. Implementations must
// make Claim and Release atomic with respect to each other.
type TokenRepository interface {
	Put(ctx context.Context, token *model.DownloadToken) error
	// Get returns a copy of the stored token or ErrTokenNotFound.
	Get(ctx context.Context, token string) (*model.DownloadToken, error)
	Delete(ctx context.Context, token string) error

	// Claim marks the token used only if it is currently unused and not
	// expired at now. An expired token is removed and ErrTokenExpired returned.
	Claim(ctx context.Context, token string, now time.Time) (*model.DownloadToken, error)
	// Release clears the used flag after a failed transfer as long as the
	// token has been released fewer than maxRetries times.
	Release(ctx context.Context, token string, maxRetries int) (bool, error)

	// DeleteExpired evicts every token that expired before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
