package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
	}
}

// Session returns the live session behind the token.
func (lc *LoginChecker) Session(ctx context.Context, token string) (*Session, error) {
	session, err := readSession(ctx, lc.redisClient, token)
	if err != nil {
		return nil, err
	}

	if time.Since(session.CreatedAt) > lc.ttl {
		return nil, ErrSessionExpired
	}

	return session, nil
}

func readSession(ctx context.Context, rdb *redis.Client, token string) (*Session, error) {
	cmd := rdb.Get(ctx, sessionKeyPrefix+token)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var stored storedSession
	if err := json.Unmarshal([]byte(cmd.Val()), &stored); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	return &Session{
		Token:     token,
		Username:  stored.Username,
		Role:      stored.Role,
		CreatedAt: time.Unix(stored.CreatedAt, 0),
	}, nil
}
