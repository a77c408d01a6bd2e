package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"

	"github.com/fatflowers/fastspring-cashier/pkg/logctx"
	"github.com/fatflowers/fastspring-cashier/pkg/response"
)

var (
	ErrAdminAuthDisabled = errors.New("admin api is disabled: no jwt secret configured")
	ErrMissingBearer     = errors.New("authorization bearer token required")
)

// AdminClaims identifies the operator calling the admin API.
type AdminClaims struct {
	jwt.StandardClaims
}

// ParseAdminToken validates an HS256 token signed with secret.
func ParseAdminToken(secret []byte, token string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// AdminAuthMiddleware guards the admin routes with a bearer JWT. With an
// empty secret every request is refused.
func AdminAuthMiddleware(secret string, base *zap.SugaredLogger) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		lg := logctx.FromGin(c, base)
		if len(key) == 0 {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, response.ErrorT[any](response.APIResponseCodeUnavailable, ErrAdminAuthDisabled.Error()))
			return
		}
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, ErrMissingBearer.Error()))
			return
		}
		claims, err := ParseAdminToken(key, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			lg.Warnw("admin_auth_rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "invalid token"))
			return
		}
		c.Set("adminSubject", claims.Subject)
		c.Next()
	}
}
