package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/lexbridge-backend/internal/http/response"
	"github.com/yungbote/lexbridge-backend/internal/platform/apierr"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
	"github.com/yungbote/lexbridge-backend/internal/platform/requestdata"
)

type authClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Auth validates the bearer token and stashes the principal in the request
// context. Handlers read it back through requestdata.GetRequestData.
func Auth(secret string, log *logger.Logger) gin.HandlerFunc {
	authLog := log.With("middleware", "Auth")
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abort(c, errors.New("missing bearer token"))
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := &authClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			authLog.Debug("Token rejected", "error", err)
			abort(c, errors.New("invalid token"))
			return
		}
		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			abort(c, errors.New("invalid token subject"))
			return
		}

		ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{
			UserID: userID,
			Email:  claims.Email,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	response.Err(c, apierr.New(http.StatusUnauthorized, "unauthorized", err))
	c.Abort()
}
