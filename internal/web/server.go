// Package web is the profiled HTTP API: authentication, profile CRUD over
// the branch-per-user repository, and the admin tenant overview.
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"provizor/internal/profiles"
	"provizor/pkg/response"
)

// Server wires the API handlers to their dependencies.
type Server struct {
	db      *gorm.DB
	store   *profiles.Store
	catalog *profiles.Catalog
	admin   *AdminStore
	jwt     *JWTService
	log     *zap.Logger

	// CookieSecure marks the session cookie Secure, for TLS deployments.
	CookieSecure bool
}

// NewServer assembles a Server from its dependencies.
func NewServer(db *gorm.DB, store *profiles.Store, catalog *profiles.Catalog, admin *AdminStore, jwt *JWTService, log *zap.Logger) *Server {
	return &Server{db: db, store: store, catalog: catalog, admin: admin, jwt: jwt, log: log}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	registerBindingRules()

	r := gin.New()
	r.Use(Recovery(s.log), RequestLogger(s.log), Metrics())

	r.GET("/healthz", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)
	api.POST("/auth/logout", s.handleLogout)
	api.GET("/services", s.handleServices)

	authed := api.Group("", Auth(s.jwt, s.db))
	authed.GET("/dashboard", s.handleDashboard)
	authed.POST("/profiles", s.handleCreateProfile)
	authed.GET("/profiles/:config", s.handleGetProfile)
	authed.PUT("/profiles/:config", s.handleUpdateProfile)

	admin := authed.Group("/admin", AdminOnly())
	admin.GET("/overview", s.handleAdminOverview)
	admin.POST("/link", s.handleAdminLink)
	admin.PUT("/tenants/:name", s.handleAdminSaveTenant)

	return r
}
