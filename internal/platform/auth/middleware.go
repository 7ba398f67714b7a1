package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"AMS-backend/internal/platform/httpx"
)

const (
	CtxUserIDKey     = "user_id"
	CtxRoleKey       = "role"
	CtxEmployeeIDKey = "employee_id"
)

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, httpx.Envelope{
		Error: &httpx.ErrorBody{Code: "UNAUTHORIZED", Message: msg},
	})
}

// RequireAuth: Authorization: Bearer <token> を検証して context に sub/role/emp を詰める
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			unauthorized(c, "missing Authorization header")
			return
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(c, "invalid Authorization header")
			return
		}

		tokenStr := strings.TrimSpace(parts[1])
		if tokenStr == "" {
			unauthorized(c, "empty token")
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || token == nil || !token.Valid {
			unauthorized(c, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "invalid claims")
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			unauthorized(c, "invalid sub")
			return
		}
		role, _ := claims["role"].(string)

		c.Set(CtxUserIDKey, sub)
		c.Set(CtxRoleKey, role)
		// JSON の数値は float64 で戻ってくる
		if emp, ok := claims["emp"].(float64); ok && emp > 0 {
			c.Set(CtxEmployeeIDKey, int64(emp))
		}
		c.Next()
	}
}

// RequireRole: 例) admin のみ許可したい時に追加
func RequireRole(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{})
	for _, r := range roles {
		if r == "" {
			continue
		}
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(CtxRoleKey)
		if _, allowed := roleSet[role]; !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, httpx.Envelope{
				Error: &httpx.ErrorBody{Code: "FORBIDDEN", Message: "forbidden"},
			})
			return
		}
		c.Next()
	}
}

// ActorEmployeeID はトークンに紐づく従業員IDを返す。認証なし構成では false。
func ActorEmployeeID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(CtxEmployeeIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
