package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/codr1/marketplace/internal/api/authz"
)

const (
	tokenTTL    = 24 * time.Hour
	tokenIssuer = "marketplace"
)

var (
	errAuthConfigMissing = errors.New("auth configuration missing")
	ErrInvalidToken      = errors.New("invalid token")
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// nowFunc is replaced in tests.
var nowFunc = time.Now

func signingKey() ([]byte, error) {
	if appConfig == nil || appConfig.App.SecretKey == "" {
		return nil, errAuthConfigMissing
	}
	return []byte(appConfig.App.SecretKey), nil
}

// IssueToken signs an HS256 token for user and returns it with its expiry.
func IssueToken(user *authz.AuthUser) (string, time.Time, error) {
	if user == nil {
		return "", time.Time{}, errors.New("token requires user")
	}
	key, err := signingKey()
	if err != nil {
		return "", time.Time{}, err
	}

	now := nowFunc()
	expiresAt := now.Add(tokenTTL)
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken validates a token and returns the user it names.
func ParseToken(token string) (*authz.AuthUser, error) {
	key, err := signingKey()
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(nowFunc),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	if !authz.ValidRole(claims.Role) {
		return nil, fmt.Errorf("%w: bad role", ErrInvalidToken)
	}

	return &authz.AuthUser{ID: userID, Role: claims.Role}, nil
}

// UserFromRequest reads the bearer token. A request without an Authorization
// header is anonymous and yields nil, nil.
func UserFromRequest(r *http.Request) (*authz.AuthUser, error) {
	if r == nil {
		return nil, nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return nil, nil
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: malformed authorization header", ErrInvalidToken)
	}

	return ParseToken(strings.TrimSpace(token))
}
