package auth

import (
	"errors"
	"fmt"
	"time"
)

// TokenHeader carries the session token on authenticated requests.
const TokenHeader = "X-TB-TOKEN"

var (
	ErrWrongCredentials = errors.New("wrong credentials")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExpired   = errors.New("session expired")
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleClient:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %s", s)
	}
}

// Admin is the coach account configured through the environment.
type Admin struct {
	Username     string
	PasswordHash string
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// storedSession is the redis value of a session.
type storedSession struct {
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	CreatedAt int64  `json:"createdAt"`
}
