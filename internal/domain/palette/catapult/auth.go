package catapult

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator 为出站请求附加鉴权信息。宿主通常注入自己的 fetch 包装器；
// 没有宿主时用 JWTAuthenticator 兜底。
type Authenticator interface {
	Apply(req *http.Request) error
}

// NopAuthenticator 不做鉴权（测试用）
type NopAuthenticator struct{}

func (NopAuthenticator) Apply(*http.Request) error { return nil }

// JWTAuthenticator 每次请求签发一枚短时 HS256 token
type JWTAuthenticator struct {
	Secret  string
	Issuer  string
	Subject string
	TTL     time.Duration
}

// Apply 实现 Authenticator
func (a *JWTAuthenticator) Apply(req *http.Request) error {
	ttl := a.TTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": a.subjectOrDefault(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if a.Issuer != "" {
		claims["iss"] = a.Issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.Secret))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+signed)
	return nil
}

func (a *JWTAuthenticator) subjectOrDefault() string {
	if a.Subject != "" {
		return a.Subject
	}
	return "node_palette"
}
