package repository

import (
	"context"
	"fmt"
	"storefront-downloads/internal/model"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	claimNotFound = iota
	claimUsed
	claimExpired
	claimOK
)

// KEYS[1] token hash, ARGV[1] now in unix millis
var claimScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
if redis.call('HGET', KEYS[1], 'used') == '1' then
	return 1
end
local expires = tonumber(redis.call('HGET', KEYS[1], 'expires_at'))
if tonumber(ARGV[1]) >= expires then
	redis.call('DEL', KEYS[1])
	return 2
end
redis.call('HSET', KEYS[1], 'used', '1')
return 3
`)

// KEYS[1] token hash, ARGV[1] max retries
var releaseScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'used') ~= '1' then
	return 0
end
local retries = tonumber(redis.call('HGET', KEYS[1], 'retries') or '0')
if retries >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'used', '0', 'retries', tostring(retries + 1))
return 1
`)

type redisTokenRepoImpl struct {
	client *redis.Client
}

func NewRedisTokenRepository(client *redis.Client) TokenRepository {
	return &redisTokenRepoImpl{client: client}
}

func tokenKey(token string) string {
	return fmt.Sprintf("download:token:%s", token)
}

func (r *redisTokenRepoImpl) Put(ctx context.Context, token *model.DownloadToken) error {
	key := tokenKey(token.Token)
	used := "0"
	if token.Used {
		used = "1"
	}

	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"product_id", token.ProductID,
			"email", token.Email,
			"session_id", token.SessionID,
			"expires_at", token.ExpiresAt.UnixMilli(),
			"used", used,
			"retries", token.Retries,
		)
		p.PExpireAt(ctx, key, token.ExpiresAt.Add(ExpiredTokenRetention))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put token: %w", err)
	}
	return nil
}

func (r *redisTokenRepoImpl) Get(ctx context.Context, token string) (*model.DownloadToken, error) {
	data, err := r.client.HGetAll(ctx, tokenKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get token: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrTokenNotFound
	}

	return decodeToken(token, data)
}

func (r *redisTokenRepoImpl) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, tokenKey(token)).Err(); err != nil {
		return fmt.Errorf("redis delete token: %w", err)
	}
	return nil
}

func (r *redisTokenRepoImpl) Claim(ctx context.Context, token string, now time.Time) (*model.DownloadToken, error) {
	code, err := claimScript.Run(ctx, r.client, []string{tokenKey(token)}, now.UnixMilli()).Int()
	if err != nil {
		return nil, fmt.Errorf("redis claim token: %w", err)
	}

	switch code {
	case claimNotFound:
		return nil, ErrTokenNotFound
	case claimUsed:
		return nil, ErrTokenUsed
	case claimExpired:
		return nil, ErrTokenExpired
	}

	return r.Get(ctx, token)
}

func (r *redisTokenRepoImpl) Release(ctx context.Context, token string, maxRetries int) (bool, error) {
	released, err := releaseScript.Run(ctx, r.client, []string{tokenKey(token)}, maxRetries).Int()
	if err != nil {
		return false, fmt.Errorf("redis release token: %w", err)
	}
	return released == 1, nil
}

// DeleteExpired is a no-op: keys carry their own expiry.
func (r *redisTokenRepoImpl) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func decodeToken(token string, data map[string]string) (*model.DownloadToken, error) {
	expiresAt, err := strconv.ParseInt(data["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode token expiry: %w", err)
	}
	retries, _ := strconv.Atoi(data["retries"])

	return &model.DownloadToken{
		Token:     token,
		ProductID: data["product_id"],
		Email:     data["email"],
		SessionID: data["session_id"],
		ExpiresAt: time.UnixMilli(expiresAt),
		Used:      data["used"] == "1",
		Retries:   retries,
	}, nil
}
