// Package auth keeps the session cookie: the cookie carries the id of the
// signed-in user, either verbatim or wrapped into an HS256 JWT when a
// signing key is configured.
//
// The unsigned mode trusts the cookie payload as is. It has no expiry, no
// signature and no CSRF protection; deployments facing the internet should
// set a signing key.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidTokenOrJwtParsing is returned when a signed session value cannot be verified.
var ErrInvalidTokenOrJwtParsing = errors.New("invalid session token")

// Claims represents the JWT claims used by the signed session cookie.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key of the session user id. The key is present only
// when the request carried a session cookie; the value is empty when the
// cookie could not be decoded.
const UserIDKey ContextKey = "userID"

// Auth reads and writes the session cookie.
type Auth struct {
	cookieName string
	signingKey []byte
}

// New creates an Auth for cookieName. An empty signingKey keeps raw user ids in the cookie.
func New(cookieName string, signingKey []byte) *Auth {
	return &Auth{
		cookieName: cookieName,
		signingKey: signingKey,
	}
}

// CookieName returns the session cookie name.
func (a *Auth) CookieName() string {
	return a.cookieName
}

// Signed reports whether session values are JWTs.
func (a *Auth) Signed() bool {
	return len(a.signingKey) > 0
}

// SetSession writes the session cookie for userID: HttpOnly, no expiry.
func (a *Auth) SetSession(response http.ResponseWriter, userID string) error {
	value, err := a.BuildSessionValue(userID)
	if err != nil {
		return err
	}

	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.cookieName,
			Value:    value,
			Path:     "/",
			HttpOnly: true,
		},
	)

	return nil
}

// ClearSession expires the session cookie. It is safe to call without a session.
func (a *Auth) ClearSession(response http.ResponseWriter) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
		},
	)
}

// BuildSessionValue encodes userID the way it is stored in the cookie.
func (a *Auth) BuildSessionValue(userID string) (string, error) {
	if !a.Signed() {
		return userID, nil
	}

	return a.BuildJWTString(&Claims{UserID: userID})
}

// GetUserIDFromToken decodes a session value back to a user id.
func (a *Auth) GetUserIDFromToken(tokenString string) (string, error) {
	if !a.Signed() {
		return tokenString, nil
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingKey, nil
		},
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidTokenOrJwtParsing
	}

	return claims.UserID, nil
}

// BuildJWTString signs claims with HS256.
func (a *Auth) BuildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	return token.SignedString(a.signingKey)
}

// AuthenticateUser is an HTTP middleware that decodes the session cookie, if
// any, and stores the user id in the request context under UserIDKey. It never
// rejects a request; guards decide what a missing or broken session means.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		cookie, err := request.Cookie(a.cookieName)
		if err != nil || cookie.Value == "" {
			h.ServeHTTP(response, request)
			return
		}

		userID, err := a.GetUserIDFromToken(cookie.Value)
		if err != nil {
			userID = ""
		}

		ctx := context.WithValue(request.Context(), UserIDKey, userID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// UserIDFromContext returns the session user id and whether a session cookie was sent.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)

	return userID, ok
}
