package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"

	"github.com/m16khb/liar-game-sub001/internal"
)

// =============================================================================
// AUTHENTICATION
// =============================================================================

var (
	ErrMissingToken = errors.New("auth: token is required")
	ErrInvalidToken = errors.New("auth: token is invalid")
)

// Claims is the JWT payload carried by authenticated clients.
type Claims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	jwt.StandardClaims
}

// Authenticator resolves an incoming request to a player identity.
type Authenticator interface {
	Identify(r *http.Request) (internal.Identity, error)
}

// JWT validates HS256 bearer tokens. Tokens may arrive in the Authorization
// header or, for browser WebSocket clients that cannot set headers, in the
// token query parameter.
type JWT struct {
	secret []byte
	ttl    time.Duration
}

func NewJWT(secret string, ttl time.Duration) *JWT {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &JWT{secret: []byte(secret), ttl: ttl}
}

func (j *JWT) Identify(r *http.Request) (internal.Identity, error) {
	tokenString := r.Header.Get("Authorization")
	if strings.HasPrefix(tokenString, "Bearer ") {
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	}
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	if tokenString == "" {
		return internal.Identity{}, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return j.secret, nil
	})
	if err != nil {
		return internal.Identity{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return internal.Identity{}, ErrInvalidToken
	}
	name := claims.DisplayName
	if name == "" {
		name = "player-" + claims.UserID
	}
	return internal.Identity{UserID: claims.UserID, DisplayName: name}, nil
}

// Issue signs a token for the given identity. Exposed for the token endpoint
// and for tests.
func (j *JWT) Issue(id internal.Identity) (string, error) {
	claims := &Claims{
		UserID:      id.UserID,
		DisplayName: id.DisplayName,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(j.ttl).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// Guest mints a fresh anonymous identity per connection. Used when no auth
// secret is configured.
type Guest struct{}

func (Guest) Identify(r *http.Request) (internal.Identity, error) {
	name := r.URL.Query().Get("name")
	id := uuid.New().String()
	if name == "" {
		name = "guest-" + id[:8]
	}
	return internal.Identity{UserID: id, DisplayName: name}, nil
}
