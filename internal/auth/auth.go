package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"activity-notes/internal/db"
	"activity-notes/internal/logger"
	"activity-notes/internal/models"
)

const (
	CookieName = "notes_token"
	Issuer     = "activity-notes"

	LoginLinkTTL = 24 * time.Hour
	SessionTTL   = 90 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")
var ErrTokenExpired = errors.New("token expired")
var ErrTokenUsed = errors.New("token already used")

// ErrStorage wraps database failures met while consuming a login token.
var ErrStorage = errors.New("auth storage failure")

type Auth struct {
	db        *db.DB
	jwtSecret []byte
	now       func() time.Time
	log       *logger.Logger
}

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func New(database *db.DB, secret string, log *logger.Logger) *Auth {
	if log == nil {
		log = logger.Nop()
	}
	return &Auth{
		db:        database,
		jwtSecret: []byte(secret),
		now:       time.Now,
		log:       log.With("service", "Auth"),
	}
}

// GenerateLoginLink creates the user for email if needed and returns a
// single-use sign-in link.
func (a *Auth) GenerateLoginLink(ctx context.Context, baseURL, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", errors.New("a valid email is required")
	}

	user, err := a.db.EnsureUser(ctx, email)
	if err != nil {
		return "", err
	}

	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		return "", err
	}
	tokenStr := hex.EncodeToString(token)

	if err := a.db.CreateAuthToken(ctx, user.ID, tokenStr, a.now().Add(LoginLinkTTL)); err != nil {
		return "", err
	}

	a.log.Info("Login link generated", "user_id", user.ID)
	return strings.TrimRight(baseURL, "/") + "/auth/login?token=" + tokenStr, nil
}

// ValidateLoginToken consumes a login token and returns a session JWT.
func (a *Auth) ValidateLoginToken(ctx context.Context, token string) (string, error) {
	authToken, err := a.db.GetAuthToken(ctx, token)
	if errors.Is(err, db.ErrNotFound) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("%w: get token: %w", ErrStorage, err)
	}

	if authToken.Used {
		return "", ErrTokenUsed
	}

	if a.now().After(authToken.ExpiresAt) {
		return "", ErrTokenExpired
	}

	marked, err := a.db.MarkTokenUsed(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: mark token used: %w", ErrStorage, err)
	}
	if !marked {
		return "", ErrTokenUsed
	}

	user, err := a.db.GetUser(ctx, authToken.UserID)
	if errors.Is(err, db.ErrNotFound) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("%w: get user: %w", ErrStorage, err)
	}

	return a.GenerateJWT(models.Identity{UserID: user.ID, Email: user.Email})
}

func (a *Auth) GenerateJWT(id models.Identity) (string, error) {
	now := a.now()
	claims := &Claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *Auth) ValidateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.jwtSecret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithTimeFunc(a.now))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.Subject != "" {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// Middleware resolves the session from the Authorization header or the
// session cookie and stores the identity in the request context. With
// requireAuth set, requests without a valid session get 401.
func (a *Auth) Middleware(next http.HandlerFunc, requireAuth bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			if cookie, err := r.Cookie(CookieName); err == nil {
				tokenString = cookie.Value
			}
		}

		if tokenString != "" {
			claims, err := a.ValidateJWT(tokenString)
			if err == nil {
				id := models.Identity{UserID: claims.Subject, Email: claims.Email}
				next(w, r.WithContext(WithIdentity(r.Context(), id)))
				return
			}
			a.log.Debug("Rejected session token", "error", err)
		}

		if requireAuth {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity resolved by Middleware, if any.
func FromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(models.Identity)
	return id, ok && id.UserID != ""
}
