package jwt

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	novackauth "github.com/Novack-secure/novack-auth"
)

const (
	defaultRefreshTTL  = 30 * 24 * time.Hour
	defaultRedisPrefix = "nrt"
	refreshSecretSize  = 32
)

// IssuerConfig holds the issuer's token parameters.
type IssuerConfig struct {
	JWT        Config
	RefreshTTL time.Duration
	// RedisPrefix namespaces session keys. Defaults to "nrt".
	RedisPrefix string
}

// Issuer is the stock [novackauth.TokenIssuer]. Access tokens are signed
// JWTs; refresh tokens are opaque rotating secrets backed by Redis.
type Issuer struct {
	config  IssuerConfig
	manager *Manager
	redis   *redis.Client
}

// sessionRecord is the value stored under each session key, encoded as
// "<account_id>\n<base64 secret hash>".
type sessionRecord struct {
	accountID  string
	secretHash [32]byte
}

// NewIssuer validates the configuration and returns an issuer backed by the
// given Redis client.
func NewIssuer(cfg IssuerConfig, redisClient *redis.Client) (*Issuer, error) {
	if redisClient == nil {
		return nil, errors.New("redis client required")
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	if cfg.RefreshTTL < time.Minute {
		return nil, errors.New("refresh ttl too short")
	}
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = defaultRedisPrefix
	}

	manager, err := NewManager(cfg.JWT)
	if err != nil {
		return nil, err
	}

	return &Issuer{
		config:  cfg,
		manager: manager,
		redis:   redisClient,
	}, nil
}

func (i *Issuer) key(sessionID string) string {
	return i.config.RedisPrefix + ":" + sessionID
}

// Issue mints a token pair for a verified account and registers the refresh
// session in Redis.
func (i *Issuer) Issue(ctx context.Context, account *novackauth.Account, _ novackauth.RequestContext) (*novackauth.TokenSet, error) {
	if account == nil || account.ID == "" {
		return nil, errors.New("account required")
	}

	sessionID := uuid.NewString()
	return i.mintPair(ctx, sessionID, account.ID)
}

// Refresh validates and rotates a refresh token, returning a new pair. A
// token whose secret no longer matches the stored digest is a replayed
// pre-rotation token and revokes the whole session.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string, _ novackauth.RequestContext) (*novackauth.TokenSet, error) {
	sessionID, secret, err := decodeRefreshToken(refreshToken)
	if err != nil {
		return nil, novackauth.ErrRefreshInvalid
	}

	record, err := i.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	submitted := sha256.Sum256(secret)
	if subtle.ConstantTimeCompare(submitted[:], record.secretHash[:]) != 1 {
		_, _ = i.redis.Del(ctx, i.key(sessionID)).Result()
		return nil, novackauth.ErrRefreshInvalid
	}

	return i.mintPair(ctx, sessionID, record.accountID)
}

// Revoke deletes the refresh session. It reports whether a session existed.
func (i *Issuer) Revoke(ctx context.Context, refreshToken string) (bool, error) {
	sessionID, _, err := decodeRefreshToken(refreshToken)
	if err != nil {
		return false, novackauth.ErrRefreshInvalid
	}

	n, err := i.redis.Del(ctx, i.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("refresh store: %w", err)
	}
	return n > 0, nil
}

func (i *Issuer) mintPair(ctx context.Context, sessionID, accountID string) (*novackauth.TokenSet, error) {
	var secret [refreshSecretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return nil, err
	}
	hash := sha256.Sum256(secret[:])

	value := accountID + "\n" + base64.RawStdEncoding.EncodeToString(hash[:])
	if err := i.redis.Set(ctx, i.key(sessionID), value, i.config.RefreshTTL).Err(); err != nil {
		return nil, fmt.Errorf("refresh store: %w", err)
	}

	access, err := i.manager.CreateAccess(accountID, sessionID)
	if err != nil {
		return nil, err
	}

	return &novackauth.TokenSet{
		AccessToken:  access,
		RefreshToken: encodeRefreshToken(sessionID, secret),
		ExpiresIn:    int64(i.config.JWT.AccessTTL.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

func (i *Issuer) getSession(ctx context.Context, sessionID string) (*sessionRecord, error) {
	value, err := i.redis.Get(ctx, i.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, novackauth.ErrRefreshInvalid
		}
		return nil, fmt.Errorf("refresh store: %w", err)
	}

	accountID, encodedHash, ok := strings.Cut(value, "\n")
	if !ok {
		return nil, novackauth.ErrRefreshInvalid
	}
	hash, err := base64.RawStdEncoding.DecodeString(encodedHash)
	if err != nil || len(hash) != sha256.Size {
		return nil, novackauth.ErrRefreshInvalid
	}

	record := &sessionRecord{accountID: accountID}
	copy(record.secretHash[:], hash)
	return record, nil
}

func encodeRefreshToken(sessionID string, secret [refreshSecretSize]byte) string {
	return sessionID + "." + base64.RawURLEncoding.EncodeToString(secret[:])
}

func decodeRefreshToken(token string) (string, []byte, error) {
	sessionID, encodedSecret, ok := strings.Cut(token, ".")
	if !ok || sessionID == "" {
		return "", nil, errors.New("malformed refresh token")
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", nil, errors.New("malformed refresh token")
	}

	secret, err := base64.RawURLEncoding.DecodeString(encodedSecret)
	if err != nil || len(secret) != refreshSecretSize {
		return "", nil, errors.New("malformed refresh token")
	}
	return sessionID, secret, nil
}
