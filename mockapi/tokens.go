package mockapi

import (
	"errors"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"

	defaultKeyID      = "dev"
	defaultAccessTTL  = 5 * time.Minute
	defaultRefreshTTL = 24 * time.Hour
)

var (
	errTokenInvalid = errors.New("token is invalid or expired")
	errTokenType    = errors.New("token has wrong type")
)

// tokenClaims are the claims the mock API reads back from a token.
type tokenClaims struct {
	UserID string
	ID     string
	Type   string
	Expiry time.Time
}

// Tokens issues and verifies HS256 JWTs. Verification resolves the signing
// key through a keyfunc key set so tokens must carry the key id in their
// header.
type Tokens struct {
	keyID      string
	secret     []byte
	jwks       *keyfunc.JWKS
	parser     *jwt.Parser
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokens creates a token service. Zero TTLs fall back to five minutes
// for access tokens and a day for refresh tokens.
func NewTokens(secret []byte, keyID string, accessTTL, refreshTTL time.Duration) *Tokens {
	if len(secret) == 0 {
		panic("mockapi: token secret must not be empty")
	}
	if keyID == "" {
		keyID = defaultKeyID
	}
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	given := map[string]keyfunc.GivenKey{
		keyID: keyfunc.NewGivenHMACCustomWithOptions(secret, keyfunc.GivenKeyOptions{
			Algorithm: jwt.SigningMethodHS256.Alg(),
		}),
	}
	return &Tokens{
		keyID:      keyID,
		secret:     secret,
		jwks:       keyfunc.NewGiven(given),
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation()),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Pair issues an access and a refresh token for userID.
func (t *Tokens) Pair(userID string) (access, refresh string, err error) {
	access, err = t.sign(userID, tokenAccess, t.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = t.sign(userID, tokenRefresh, t.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Access issues an access token only.
func (t *Tokens) Access(userID string) (string, error) {
	return t.sign(userID, tokenAccess, t.accessTTL)
}

func (t *Tokens) sign(userID, kind string, ttl time.Duration) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        userID,
		"jti":        uuid.NewString(),
		"token_type": kind,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	})
	token.Header["kid"] = t.keyID
	return token.SignedString(t.secret)
}

// Verify checks the signature, expiry and type of a token.
func (t *Tokens) Verify(raw, kind string) (tokenClaims, error) {
	parsed, err := t.parser.Parse(raw, t.jwks.Keyfunc)
	if err != nil {
		return tokenClaims{}, errTokenInvalid
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return tokenClaims{}, errTokenInvalid
	}
	if !claims.VerifyExpiresAt(t.now().Unix(), true) {
		return tokenClaims{}, errTokenInvalid
	}
	if typ, _ := claims["token_type"].(string); typ != kind {
		return tokenClaims{}, errTokenType
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return tokenClaims{}, errTokenInvalid
	}
	jti, _ := claims["jti"].(string)
	out := tokenClaims{UserID: sub, ID: jti, Type: kind}
	if exp, ok := claims["exp"].(float64); ok {
		out.Expiry = time.Unix(int64(exp), 0)
	}
	return out, nil
}
