package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tenacious60/aquahealthmonitor/pkg/metrics"
	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// Sentinel errors for authentication.
var (
	ErrInvalidCredentials = errors.New("invalid phone or password")
	ErrPhoneTaken         = errors.New("phone number is already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// tokenTTL bounds how long an issued token stays valid.
const tokenTTL = 24 * time.Hour

// Authenticator issues and verifies gateway access tokens and provisions
// the 1:1 profile and settings rows at signup.
type Authenticator struct {
	db      *gorm.DB
	logger  *slog.Logger
	secret  []byte
	metrics *metrics.GatewayMetrics // optional
}

// NewAuthenticator creates an authenticator with the given signing secret.
func NewAuthenticator(db *gorm.DB, logger *slog.Logger, secret string, m *metrics.GatewayMetrics) (*Authenticator, error) {
	if db == nil {
		return nil, errors.New("database cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if secret == "" {
		return nil, errors.New("signing secret cannot be empty")
	}
	return &Authenticator{db: db, logger: logger, secret: []byte(secret), metrics: m}, nil
}

// Signup registers a new worker account and provisions its profile and
// settings rows in the same transaction.
func (a *Authenticator) Signup(ctx context.Context, phone, password, fullName string) (*waterhealth.User, error) {
	if phone == "" || password == "" {
		a.attempt("signup", "error")
		return nil, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		a.attempt("signup", "error")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Phone:        phone,
		PasswordHash: string(hash),
	}

	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&User{}).Where("phone = ?", phone).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrPhoneTaken
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile := &Profile{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			FullName:    fullName,
			Language:    "en",
			Theme:       waterhealth.ThemeSystem,
			LastLoginAt: time.Now().UTC(),
		}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		settings := &UserSettings{
			ID:                   uuid.NewString(),
			UserID:               user.ID,
			PrivacyLocation:      true,
			PrivacyCamera:        true,
			NotificationsEnabled: true,
			AutoSync:             true,
		}
		return tx.Create(settings).Error
	})
	if err != nil {
		a.attempt("signup", "error")
		if errors.Is(err, ErrPhoneTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("signup failed: %w", err)
	}

	a.attempt("signup", "success")
	a.logger.Info("worker registered", "user_id", user.ID)
	return &waterhealth.User{ID: user.ID, Phone: user.Phone}, nil
}

// Login verifies credentials, stamps last_login_at on the profile, and
// returns the user with a fresh token.
func (a *Authenticator) Login(ctx context.Context, phone, password string) (*waterhealth.User, string, error) {
	var user User
	err := a.db.WithContext(ctx).Where("phone = ?", phone).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		a.attempt("login", "error")
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		a.attempt("login", "error")
		return nil, "", fmt.Errorf("login lookup failed: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		a.attempt("login", "error")
		return nil, "", ErrInvalidCredentials
	}

	token, err := a.issueToken(user.ID, user.Phone)
	if err != nil {
		a.attempt("login", "error")
		return nil, "", err
	}

	// Best effort: a failed stamp should not block the login.
	if err := a.db.WithContext(ctx).Model(&Profile{}).
		Where("user_id = ?", user.ID).
		Update("last_login_at", time.Now().UTC()).Error; err != nil {
		a.logger.Warn("failed to stamp last login", "user_id", user.ID, "error", err)
	}

	a.attempt("login", "success")
	return &waterhealth.User{ID: user.ID, Phone: user.Phone, Email: user.Email}, token, nil
}

// issueToken signs an HS256 token for the user.
func (a *Authenticator) issueToken(userID, phone string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"phone": phone,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses a token and resolves the user it identifies.
func (a *Authenticator) VerifyToken(ctx context.Context, tokenString string) (*waterhealth.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		a.attempt("token", "error")
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		a.attempt("token", "error")
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		a.attempt("token", "error")
		return nil, ErrInvalidToken
	}

	var user User
	err = a.db.WithContext(ctx).Where("id = ?", sub).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		a.attempt("token", "error")
		return nil, ErrInvalidToken
	}
	if err != nil {
		a.attempt("token", "error")
		return nil, fmt.Errorf("token user lookup failed: %w", err)
	}

	a.attempt("token", "success")
	return &waterhealth.User{ID: user.ID, Phone: user.Phone, Email: user.Email}, nil
}

type contextKey string

const userContextKey contextKey = "gateway.user"

// UserFromContext returns the authenticated user attached by Middleware, or
// nil when the request is anonymous.
func UserFromContext(ctx context.Context) *waterhealth.User {
	user, _ := ctx.Value(userContextKey).(*waterhealth.User)
	return user
}

// Middleware resolves a Bearer token into a request-scoped user. Requests
// without a valid token are rejected with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		user, err := a.VerifyToken(r.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) attempt(kind, status string) {
	if a.metrics != nil {
		a.metrics.AuthAttemptsTotal.WithLabelValues(kind, status).Inc()
	}
}
