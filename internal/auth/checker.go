package auth

import "context"

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*MemoryChecker)(nil)

type Checker interface {
	Session(ctx context.Context, token string) (*Session, error)
}

// MemoryChecker keeps sessions in a map, used in dev setups and tests.
type MemoryChecker struct {
	Sessions map[string]*Session
}

func NewMemoryChecker() *MemoryChecker {
	return &MemoryChecker{
		Sessions: map[string]*Session{},
	}
}

func (c *MemoryChecker) Session(_ context.Context, token string) (*Session, error) {
	session, ok := c.Sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}
