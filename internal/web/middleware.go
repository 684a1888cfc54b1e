package web

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"provizor/internal/models"
	apperrors "provizor/pkg/errors"
	"provizor/pkg/response"
)

const (
	// SessionCookie is the cookie carrying the access token.
	SessionCookie = "provizor_session"

	ctxClaimsKey = "authClaims"
	ctxUserKey   = "authUser"
)

// RequestLogger writes a concise structured access log for each request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info("request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// Recovery converts panics into a 500 response and logs the error.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", r),
				)
				if !c.Writer.Written() {
					response.Error(c, apperrors.ErrInternalServer)
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}

// Metrics records request latency for each HTTP request.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := strconv.Itoa(c.Writer.Status())
		httpLatency.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Auth enforces JWT authentication. The token is read from the session
// cookie or an Authorization bearer header, and the matching user record is
// attached to the request context.
func Auth(jwt *JWTService, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			unauthorized(c)
			return
		}

		claims, err := jwt.Validate(token)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			unauthorized(c)
			return
		}

		var user models.User
		if err := db.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
			unauthorized(c)
			return
		}

		c.Set(ctxClaimsKey, claims)
		c.Set(ctxUserKey, &user)
		c.Next()
	}
}

// AdminOnly rejects requests from non-admin users. It must run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			response.Error(c, apperrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil outside Auth.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	authz := c.GetHeader("Authorization")
	if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}

func unauthorized(c *gin.Context) {
	response.Error(c, apperrors.ErrUnauthorized)
	c.Abort()
}
