package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dynexia/portal/internal/gate"
	"github.com/dynexia/portal/internal/httpx"
)

type ctxKey string

const (
	sessionCookieName = "session"
	subjectCtxKey     = ctxKey("subject")

	sessionTTL = 14 * 24 * time.Hour
	tokenTTL   = 24 * time.Hour
)

// SubjectResolver turns a raw user id from a session or token into a full
// subject (role included), verifying the user still exists. Set it during app
// bootstrap via SetSubjectResolver.
type SubjectResolver func(ctx context.Context, uid uint) (gate.Subject, bool)

var resolver SubjectResolver

// SetSubjectResolver configures the global resolver used by Middleware.
func SetSubjectResolver(r SubjectResolver) { resolver = r }

// Secret returns SESSION_SECRET or default dev value.
func Secret() string {
	if s := os.Getenv("SESSION_SECRET"); s != "" {
		return s
	}
	return "devsessionsecret"
}

// JWTSecret returns JWT_SECRET or default dev value.
func JWTSecret() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("devjwtsecret")
}

// CreateSession sets a signed cookie with the user id.
func CreateSession(w http.ResponseWriter, userID uint) {
	uidStr := strconv.FormatUint(uint64(userID), 10)
	mac := hmac.New(sha256.New, []byte(Secret()))
	mac.Write([]byte(uidStr))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    uidStr + "." + sig,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionTTL),
	})
}

// ClearSession deletes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// ParseSession validates the cookie and returns the user id.
func ParseSession(r *http.Request) (uint, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	parts := strings.Split(c.Value, ".")
	if len(parts) != 2 {
		return 0, false
	}
	uidStr, sig := parts[0], parts[1]
	mac := hmac.New(sha256.New, []byte(Secret()))
	mac.Write([]byte(uidStr))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return 0, false
	}
	id64, err := strconv.ParseUint(uidStr, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id64), true
}

// IssueToken signs a short-lived HS256 bearer token for API clients.
func IssueToken(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(JWTSecret())
}

// ParseToken validates a bearer token and returns the user id.
func ParseToken(tokenString string) (uint, bool) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return JWTSecret(), nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return 0, false
	}
	id64, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id64), true
}

// WithSubject stores the subject in context.
func WithSubject(ctx context.Context, s gate.Subject) context.Context {
	return context.WithValue(ctx, subjectCtxKey, s)
}

// SubjectFromContext extracts the subject.
func SubjectFromContext(ctx context.Context) (gate.Subject, bool) {
	v := ctx.Value(subjectCtxKey)
	if v == nil {
		return gate.Subject{}, false
	}
	s, ok := v.(gate.Subject)
	return s, ok && s.Valid()
}

// identityFrom extracts a raw user id from either the session cookie or a
// Bearer token. The cookie wins when both are present.
func identityFrom(r *http.Request) (uint, bool) {
	if uid, ok := ParseSession(r); ok {
		return uid, true
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return ParseToken(strings.TrimPrefix(h, "Bearer "))
	}
	return 0, false
}

// Middleware attaches the resolved subject to the request context if present.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid, ok := identityFrom(r); ok && resolver != nil {
			if sub, ok := resolver(r.Context(), uid); ok {
				r = r.WithContext(WithSubject(r.Context(), sub))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth returns 401 when no subject was resolved for the request.
// A session referring to a deleted user never reaches here with a subject, so
// it is also rejected.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SubjectFromContext(r.Context()); !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
