package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Parvesbd02/doctor-backend/internal/domain"
	"github.com/Parvesbd02/doctor-backend/pkg/auth"
)

const (
	ctxKeyClaims    = "claims"
	ctxKeyRequestID = "request_id"

	CodeMissingToken = "MISSING_TOKEN"
	CodeInvalidToken = "INVALID_TOKEN"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeForbidden    = "FORBIDDEN"
)

// TokenValidator is the part of auth.JWTManager the gate needs.
type TokenValidator interface {
	ValidateAccessToken(token string) (*domain.Claims, error)
}

// RequireUser admits only bearer tokens issued to a registered user.
func RequireUser(v TokenValidator, log *zap.Logger) gin.HandlerFunc {
	return requireRole(v, domain.RoleUser, log)
}

// RequireAdmin admits only tokens issued by admin login.
func RequireAdmin(v TokenValidator, log *zap.Logger) gin.HandlerFunc {
	return requireRole(v, domain.RoleAdmin, log)
}

func requireRole(v TokenValidator, role domain.Role, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, http.StatusUnauthorized, CodeMissingToken, "authentication required")
			return
		}

		claims, err := v.ValidateAccessToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				abortWithError(c, http.StatusUnauthorized, CodeTokenExpired, "token has expired, login again")
				return
			}
			abortWithError(c, http.StatusUnauthorized, CodeInvalidToken, "invalid token, login again")
			return
		}

		if claims.Role != role {
			log.Warn("role rejected",
				zap.String("subject", claims.Subject),
				zap.String("role", string(claims.Role)),
				zap.String("required", string(role)),
				zap.String("path", c.FullPath()),
			)
			abortWithError(c, http.StatusForbidden, CodeForbidden, "access denied")
			return
		}
		if role == domain.RoleUser {
			if _, ok := claims.UserID(); !ok {
				abortWithError(c, http.StatusUnauthorized, CodeInvalidToken, "invalid token, login again")
				return
			}
		}

		c.Set(ctxKeyClaims, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by RequireUser or RequireAdmin.
func ClaimsFrom(c *gin.Context) (*domain.Claims, bool) {
	v, ok := c.Get(ctxKeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*domain.Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		// A bare token without scheme is accepted.
		if !found {
			return header, true
		}
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
		"code":    code,
	})
}
