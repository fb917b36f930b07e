package mockapi

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestTokensPairVerify(t *testing.T) {
	tokens := NewTokens([]byte("secret"), "", 0, 0)

	access, refresh, err := tokens.Pair("user-1")
	if err != nil {
		t.Fatalf("pair: %v", err)
	}
	claims, err := tokens.Verify(access, tokenAccess)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.UserID != "user-1" || claims.ID == "" || claims.Type != tokenAccess {
		t.Fatalf("unexpected claims: %#v", claims)
	}
	if ttl := time.Until(claims.Expiry); ttl <= 0 || ttl > defaultAccessTTL {
		t.Fatalf("unexpected access ttl %v", ttl)
	}
	if _, err := tokens.Verify(refresh, tokenAccess); !errors.Is(err, errTokenType) {
		t.Fatalf("expected errTokenType, got %v", err)
	}
	if _, err := tokens.Verify(access, tokenRefresh); !errors.Is(err, errTokenType) {
		t.Fatalf("expected errTokenType, got %v", err)
	}
}

func TestTokensRejectExpired(t *testing.T) {
	tokens := NewTokens([]byte("secret"), "k1", time.Minute, time.Hour)
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }

	access, err := tokens.Access("user-1")
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	tokens.now = func() time.Time { return issued.Add(30 * time.Second) }
	if _, err := tokens.Verify(access, tokenAccess); err != nil {
		t.Fatalf("expected token valid before expiry: %v", err)
	}
	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := tokens.Verify(access, tokenAccess); !errors.Is(err, errTokenInvalid) {
		t.Fatalf("expected errTokenInvalid, got %v", err)
	}
}

func TestTokensRequireKnownKeyID(t *testing.T) {
	secret := []byte("secret")
	tokens := NewTokens(secret, "k1", 0, 0)
	claims := jwt.MapClaims{
		"sub":        "user-1",
		"token_type": tokenAccess,
		"exp":        time.Now().Add(time.Minute).Unix(),
	}

	for name, kid := range map[string]any{"missing": nil, "unknown": "k2"} {
		t.Run(name, func(t *testing.T) {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
			if kid != nil {
				token.Header["kid"] = kid
			}
			raw, err := token.SignedString(secret)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			if _, err := tokens.Verify(raw, tokenAccess); !errors.Is(err, errTokenInvalid) {
				t.Fatalf("expected errTokenInvalid, got %v", err)
			}
		})
	}
}

func TestTokensRejectForeignSignature(t *testing.T) {
	ours := NewTokens([]byte("secret"), "k1", 0, 0)
	theirs := NewTokens([]byte("other-secret"), "k1", 0, 0)

	access, err := theirs.Access("user-1")
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	if _, err := ours.Verify(access, tokenAccess); !errors.Is(err, errTokenInvalid) {
		t.Fatalf("expected errTokenInvalid, got %v", err)
	}
}

func TestNewTokensPanicsWithoutSecret(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewTokens(nil, "", 0, 0)
}
