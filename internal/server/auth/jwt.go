package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries only registered claims: the subject is the user name and
// the ID (jti) makes every issued token distinct.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for userName. A validity of zero or
// less produces a token without an expiry.
func GenerateToken(userName string, secretKey []byte, issuedAt time.Time, validity time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Subject:  userName,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	if validity > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(validity))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// GetUserNameFromToken checks the signature and expiry and returns the
// subject.
func GetUserNameFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
