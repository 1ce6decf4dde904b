package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/pkg/gamedto"
)

const (
	ctxUserID   = "user_id"
	ctxUserName = "user_name"
)

// Auth resolves the Authorization: Bearer token to a user identity. The
// token's "sub" claim is the user id; a missing or invalid token aborts
// with 401 and a stable error code.
func Auth(secret string) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(30 * time.Second),
	)
	key := []byte(secret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			abortUnauthenticated(c)
			return
		}

		token, err := parser.Parse(parts[1], func(*jwt.Token) (any, error) { return key, nil })
		if err != nil || !token.Valid {
			abortUnauthenticated(c)
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthenticated(c)
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			abortUnauthenticated(c)
			return
		}
		name, _ := claims["name"].(string)

		c.Set(ctxUserID, sub)
		c.Set(ctxUserName, name)
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gamedto.DomainError{
			Code:    gamedto.CodeUnauthenticated,
			Message: "missing or invalid token",
		},
	})
}

// SignToken mints an HS256 token for userID. Used by operational tooling
// and tests; production tokens come from the identity service.
func SignToken(secret, userID, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if name != "" {
		claims["name"] = name
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
