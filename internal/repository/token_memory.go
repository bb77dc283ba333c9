package repository

import (
	"context"
	"storefront-downloads/internal/model"
	"sync"
	"time"
)

// ExpiredTokenRetention is how long an expired token stays addressable, so
// a late request still learns the link expired rather than never existed.
const ExpiredTokenRetention = time.Hour

type memoryTokenRepoImpl struct {
	mu     sync.Mutex
	tokens map[string]*model.DownloadToken
}

func NewMemoryTokenRepository() TokenRepository {
	return &memoryTokenRepoImpl{
		tokens: make(map[string]*model.DownloadToken),
	}
}

func (r *memoryTokenRepoImpl) Put(_ context.Context, token *model.DownloadToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *token
	r.tokens[token.Token] = &stored
	return nil
}

func (r *memoryTokenRepoImpl) Get(_ context.Context, token string) (*model.DownloadToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tokens[token]
	if !ok {
		return nil, ErrTokenNotFound
	}
	out := *stored
	return &out, nil
}

func (r *memoryTokenRepoImpl) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, token)
	return nil
}

func (r *memoryTokenRepoImpl) Claim(_ context.Context, token string, now time.Time) (*model.DownloadToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tokens[token]
	if !ok {
		return nil, ErrTokenNotFound
	}
	if stored.Used {
		return nil, ErrTokenUsed
	}
	if stored.IsExpired(now) {
		delete(r.tokens, token)
		return nil, ErrTokenExpired
	}

	stored.Used = true
	out := *stored
	return &out, nil
}

func (r *memoryTokenRepoImpl) Release(_ context.Context, token string, maxRetries int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tokens[token]
	if !ok || !stored.Used || stored.Retries >= maxRetries {
		return false, nil
	}

	stored.Used = false
	stored.Retries++
	return true, nil
}

func (r *memoryTokenRepoImpl) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, stored := range r.tokens {
		if stored.IsExpired(before) {
			delete(r.tokens, key)
			removed++
		}
	}
	return removed, nil
}
