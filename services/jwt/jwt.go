package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

// AccessTokenValidity bounds how long a session token is honored before a
// fresh login is required.
const AccessTokenValidity = 24 * time.Hour

// GenerateToken mints a session access token carrying the identity provider's
// uid and email.
func GenerateToken(uid, email, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}

	claims := jwt.MapClaims{
		"id":    uid,
		"email": email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(AccessTokenValidity).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateAndGetClaims parses an access token and returns its claims.
func ValidateAndGetClaims(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
