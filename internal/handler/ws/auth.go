package ws

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrTokenInvalid  = errors.New("ws: token invalid")
	ErrTokenMismatch = errors.New("ws: token subject mismatch")
)

// tokenCacheSize bounds the memo of recently validated tokens. Reconnect
// storms re-present the same bearer over and over; skipping the HMAC parse
// for those is the whole point of the cache.
const tokenCacheSize = 4096

type cachedToken struct {
	subject string
	expires time.Time
}

// Authenticator validates the HMAC-signed bearer carried in the connect URL.
type Authenticator struct {
	secret []byte
	cache  *lru.Cache[string, cachedToken]
	now    func() time.Time
}

func NewAuthenticator(secret string) (*Authenticator, error) {
	cache, err := lru.New[string, cachedToken](tokenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("ws: token cache: %w", err)
	}
	return &Authenticator{
		secret: []byte(secret),
		cache:  cache,
		now:    time.Now,
	}, nil
}

// Validate checks the token signature and expiry, and that its subject is the
// user id from the connect path.
func (a *Authenticator) Validate(token, userID string) error {
	if hit, ok := a.cache.Get(token); ok && a.now().Before(hit.expires) {
		if hit.subject != userID {
			return ErrTokenMismatch
		}
		return nil
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now))
	if err != nil || !parsed.Valid {
		return ErrTokenInvalid
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return ErrTokenInvalid
	}
	if sub != userID {
		return ErrTokenMismatch
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return ErrTokenInvalid
	}
	a.cache.Add(token, cachedToken{subject: sub, expires: exp.Time})
	return nil
}
