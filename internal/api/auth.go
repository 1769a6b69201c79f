package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const subjectContextKey contextKey = "auth_subject"

// authMiddleware 校验 Bearer JWT（HS 系列签名），通过后把 sub 放入请求上下文
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeErrorCode(w, http.StatusUnauthorized, "missing_token", "Authorization header is required")
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == header || raw == "" {
			writeErrorCode(w, http.StatusUnauthorized, "invalid_token", "Authorization header must be a Bearer token")
			return
		}

		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
		if s.config.JWTIssuer != "" {
			opts = append(opts, jwt.WithIssuer(s.config.JWTIssuer))
		}
		token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
			return []byte(s.config.JWTSecret), nil
		}, opts...)
		if err != nil || !token.Valid {
			s.logger.Warn("token rejected", "error", err)
			writeErrorCode(w, http.StatusUnauthorized, "invalid_token", "token validation failed")
			return
		}

		subject := ""
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			subject, _ = claims.GetSubject()
		}
		ctx := context.WithValue(r.Context(), subjectContextKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// subjectFrom 取出鉴权主体；未鉴权的请求返回空串
func subjectFrom(ctx context.Context) string {
	subject, _ := ctx.Value(subjectContextKey).(string)
	return subject
}
