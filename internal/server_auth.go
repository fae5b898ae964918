package internal

import (
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// verifyToken checks the handshake token's signature and expiry against the
// relay's HMAC secret and returns the subject claim. Tokens without a
// subject are rejected even when the signature is valid.
func verifyToken(tokenString string, secret []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errUnauthorized
	}
	return claims.Subject, nil
}

// SubjectFromToken decodes the subject claim without verifying the
// signature. The result is a local convenience filter ("is this event about
// me") and must never be treated as an authenticated identity; the relay
// binds each connection to the identity it verified itself.
func SubjectFromToken(tokenString string) string {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return ""
	}
	return claims.Subject
}
