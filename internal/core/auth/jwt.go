package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 会话 Cookie 中携带的内容；sid 指向服务端会话
type Claims struct {
	SID     string `json:"sid"`
	AdminID uint   `json:"aid"`
	jwt.RegisteredClaims
}

// JWTer 对会话 id 做 HS256 签名，防止客户端伪造/篡改 Cookie
type JWTer struct {
	Secret []byte
	Issuer string
	Now    func() time.Time // 测试可注入
}

func (j *JWTer) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *JWTer) Issue(sid string, adminID uint, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		SID:     sid,
		AdminID: adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sid,
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer), jwt.WithTimeFunc(j.now), jwt.WithExpirationRequired())

	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid && c.SID != "" {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

// IsExpired 区分“过期”与“无效签名”
func IsExpired(err error) bool { return errors.Is(err, jwt.ErrTokenExpired) }

// PeekSID 只校验签名不校验时间，用于注销/清理已过期的会话
func (j *JWTer) PeekSID(tokenStr string) (string, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(tokenStr, &c, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return j.Secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return "", err
	}
	if c.SID == "" {
		return "", errors.New("invalid token")
	}
	return c.SID, nil
}
