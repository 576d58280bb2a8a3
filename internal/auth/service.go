package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/trainingboard/pkg"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTTL       = 24 * 7 * time.Hour
	sessionKeyPrefix = "trainingboard-session||"
	tokensSetKey     = "trainingboard-sessions"
	tokenLength      = 35
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=auth

type usersGetter interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
}

type Service struct {
	admin       *Admin
	users       usersGetter
	redisClient *redis.Client
	ttl         time.Duration
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

// NewAuthService creates the session service. admin and users may be nil,
// in which case only the other source is used to check credentials.
func NewAuthService(
	admin *Admin,
	users usersGetter,
	ttl time.Duration,
	redisClient *redis.Client,
) *Service {
	return &Service{
		admin:          admin,
		users:          users,
		ttl:            ttl,
		redisClient:    redisClient,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

func (as *Service) Login(ctx context.Context, creds Credentials, createdAt time.Time) (*Session, error) {
	role, err := as.checkCredentials(ctx, creds)
	if err != nil {
		return nil, err
	}

	token, err := as.RandStringFunc(tokenLength)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	stored, err := json.Marshal(storedSession{
		Username:  creds.Username,
		Role:      role,
		CreatedAt: createdAt.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	sessionKey := sessionKeyPrefix + token
	if err := as.redisClient.Set(ctx, sessionKey, string(stored), 0).Err(); err != nil {
		return nil, err
	}

	// add token to list of sessions
	if err := as.redisClient.SAdd(ctx, tokensSetKey, token).Err(); err != nil {
		return nil, err
	}

	return &Session{
		Token:     token,
		Username:  creds.Username,
		Role:      role,
		CreatedAt: time.Unix(createdAt.Unix(), 0),
	}, nil
}

func (as *Service) checkCredentials(ctx context.Context, creds Credentials) (Role, error) {
	if as.admin != nil && as.admin.Username != "" && creds.Username == as.admin.Username {
		if !pkg.CheckPasswordHash(creds.Password, as.admin.PasswordHash) {
			log.Tracef("[password] failed login attempt for admin: %s", creds.Username)
			return "", ErrWrongCredentials
		}
		return RoleAdmin, nil
	}

	if as.users == nil {
		return "", ErrWrongCredentials
	}

	user, err := as.users.GetByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Tracef("[username] failed login attempt for user: %s", creds.Username)
			return "", ErrWrongCredentials
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	if !pkg.CheckPasswordHash(creds.Password, user.PasswordHash) {
		log.Tracef("[password] failed login attempt for user: %s", creds.Username)
		return "", ErrWrongCredentials
	}

	return user.Role, nil
}

// Logout removes the session, reporting whether it existed.
func (as *Service) Logout(ctx context.Context, token string) (bool, error) {
	sessionKey := sessionKeyPrefix + token
	cmdDel := as.redisClient.Del(ctx, sessionKey)
	if err := cmdDel.Err(); err != nil {
		return false, err
	}

	// remove token from the list of sessions
	if err := as.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
		return false, err
	}

	return cmdDel.Val() > 0, nil
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old
func (as *Service) ScanAndClean(ctx context.Context) {
	cmd := as.redisClient.SMembers(ctx, tokensSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("!!! auth service, scan and clean, get sessions: %s", err)
		return
	}

	sessionTokens := cmd.Val()
	if len(sessionTokens) == 0 {
		log.Debugln("=> auth service, scan and clean abort, no sessions")
		return
	}

	log.Debugf("=> auth service, scan and clean [%d sessions] start ...", len(sessionTokens))
	var toRemove []string
	for _, token := range sessionTokens {
		session, err := readSession(ctx, as.redisClient, token)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				// dangling token in the set
				toRemove = append(toRemove, token)
				continue
			}
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			continue
		}

		if time.Since(session.CreatedAt) > as.ttl {
			log.Debugf("=>\twill clean the session of user: %s", session.Username)
			toRemove = append(toRemove, token)
		}
	}

	for _, token := range toRemove {
		if err := as.redisClient.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", token, err)
			continue
		}

		// remove token from the list of sessions
		if err := as.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", token, err)
			continue
		}
	}
}
