package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// The identity service signs staff tokens with this shared secret.
// We only validate them here; issuance is not this API's job.
func jwtSecretKey() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("A_VERY_SECURE_SECRET_KEY_REPLACE_LATER")
}

// Identity is the authenticated staff identity carried by a token.
// Every staff read/write is filtered by TenantID.
type Identity struct {
	UserID   int64
	TenantID int64
}

// GenerateToken creates a signed JWT for a staff user. Used by local
// tooling and tests; production tokens come from the identity service
// using the same claims.
func GenerateToken(userID, tenantID int64) (string, error) {
	claims := jwt.MapClaims{
		"sub":       userID,
		"tenant_id": tenantID,
		"exp":       time.Now().Add(time.Hour * 72).Unix(),
		"iat":       time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(jwtSecretKey())
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateToken parses and validates a JWT token string.
// It returns the staff identity (user + tenant) if the token is valid.
func ValidateToken(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Reject tokens signed with a different algorithm.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecretKey(), nil
	})
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, errors.New("invalid token")
	}

	userID, ok := claims["sub"].(float64)
	if !ok {
		return Identity{}, errors.New("invalid subject claim")
	}
	tenantID, ok := claims["tenant_id"].(float64)
	if !ok {
		return Identity{}, errors.New("invalid tenant claim")
	}

	return Identity{UserID: int64(userID), TenantID: int64(tenantID)}, nil
}
