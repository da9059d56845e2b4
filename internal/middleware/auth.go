package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/flicky/bakery-api/internal/model"
)

const (
	ctxAccountID = "accountID"
	ctxRole      = "accountRole"
)

// AccountStatus reports whether the account behind a token may still act.
// Unknown accounts are reported as inactive.
type AccountStatus interface {
	IsActive(ctx context.Context, id uuid.UUID) (bool, error)
}

// UserAuth accepts only tokens issued to customers whose account is active.
func UserAuth(secret string, accounts AccountStatus) gin.HandlerFunc {
	return authenticate(secret, model.AccountKindUser, accounts)
}

// AdminAuth accepts only tokens issued to active back-office admins.
func AdminAuth(secret string, accounts AccountStatus) gin.HandlerFunc {
	return authenticate(secret, model.AccountKindAdmin, accounts)
}

// authenticate checks the token and then, when accounts is set, the account's
// active flag so a deactivated account is locked out before its token expires.
func authenticate(secret, kind string, accounts AccountStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No autorizado"})
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token inválido o expirado"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token inválido o expirado"})
			return
		}

		if k, _ := claims["kind"].(string); k != kind {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Acceso denegado"})
			return
		}

		sub, _ := claims["sub"].(string)
		id, err := uuid.Parse(sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token inválido o expirado"})
			return
		}

		if accounts != nil {
			active, err := accounts.IsActive(c.Request.Context(), id)
			if err != nil {
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
			if !active {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Cuenta desactivada"})
				return
			}
		}

		role, _ := claims["role"].(string)
		c.Set(ctxAccountID, id)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// RequireRole must run after AdminAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Acceso denegado"})
			return
		}
		c.Next()
	}
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket upgrades, so those may pass the token as ?token=.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if c.IsWebsocket() {
		return c.Query("token")
	}
	return ""
}

func GetAccountID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(ctxAccountID)
	uid, _ := id.(uuid.UUID)
	return uid
}

func GetRole(c *gin.Context) string {
	role, _ := c.Get(ctxRole)
	r, _ := role.(string)
	return r
}
