package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken     = errors.New("token is not valid")
	ErrEmptyOperator    = errors.New("operator is empty")
	ErrUnexpectedMethod = errors.New("unexpected signing method")
)

// Claims - утверждения токена оператора.
type Claims struct {
	jwt.RegisteredClaims
	Operator string `json:"operator"`
}

// BuildJWTString создаёт токен оператора и возвращает его в виде строки.
func BuildJWTString(operator, secret string, ttl time.Duration) (string, error) {
	if operator == "" {
		return "", ErrEmptyOperator
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Operator: operator,
	})

	return token.SignedString([]byte(secret))
}

// GetOperator проверяет подпись и срок действия токена.
func GetOperator(tokenString, secret string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnexpectedMethod
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Operator == "" {
		return "", ErrEmptyOperator
	}

	return claims.Operator, nil
}
