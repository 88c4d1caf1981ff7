package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	// ErrNotInternal 令牌有效但不是内部 worker 令牌
	ErrNotInternal = errors.New("not an internal token")
)

const (
	internalIssuer    = "contract_api"
	internalTokenType = "internal"
	internalSubject   = "internal_worker"
)

// Claims 用户令牌载荷
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// InternalClaims 内部 worker 令牌载荷。
// 携带独立的 iss/type 声明，与用户令牌不可混用。
type InternalClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateToken 生成用户访问令牌
func GenerateToken(userID int64, secret string, expireHours int) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken 解析并校验用户令牌
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	// 内部令牌不携带 user_id，不能当用户令牌用
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GenerateInternalToken 生成内部 worker 回调令牌。
// 每次触发流水线都会签发一个新令牌，worker 只能用它访问内部回调端点。
func GenerateInternalToken(secret string, expireHours int) (string, error) {
	now := time.Now()
	claims := InternalClaims{
		TokenType: internalTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    internalIssuer,
			Subject:   internalSubject,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseInternalToken 解析内部令牌，校验 type 和 iss 声明。
// 用户令牌会返回 ErrNotInternal。
func ParseInternalToken(tokenString, secret string) (*InternalClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &InternalClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*InternalClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != internalTokenType || claims.Issuer != internalIssuer {
		return nil, ErrNotInternal
	}

	return claims, nil
}
