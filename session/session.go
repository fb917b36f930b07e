package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

// Session holds the credentials and profile of the signed-in user.
type Session struct {
	AccessToken  string      `json:"access"`
	RefreshToken string      `json:"refresh"`
	User         domain.User `json:"user"`
}

// Empty reports whether no user is signed in.
func (s Session) Empty() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}

// Provider stores the session of the current user. It is populated at login
// and cleared at logout. Get returns an empty Session when nobody is signed in.
type Provider interface {
	Get(ctx context.Context) (Session, error)
	Set(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu sync.RWMutex
	s  Session
}

// NewMemoryStore returns an empty in-memory provider.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s, nil
}

func (m *MemoryStore) Set(_ context.Context, s Session) error {
	m.mu.Lock()
	m.s = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.s = Session{}
	m.mu.Unlock()
	return nil
}

var errNoExpiry = errors.New("token has no exp claim")

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// Verification is the server's job; the client only needs to know when to
// refresh.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0), nil
	case int64:
		return time.Unix(exp, 0), nil
	}
	return time.Time{}, errNoExpiry
}

// ExpiresWithin reports whether token expires before now+skew. Tokens
// without a readable expiry are treated as not expiring.
func ExpiresWithin(token string, skew time.Duration, now time.Time) bool {
	exp, err := TokenExpiry(token)
	if err != nil {
		return false
	}
	return !exp.After(now.Add(skew))
}
