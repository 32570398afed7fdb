package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"trafficportal/internal/config"
	"trafficportal/internal/middleware"
	"trafficportal/internal/portal"
	"trafficportal/internal/session"
)

type HandlerSet struct {
	log    zerolog.Logger
	cfg    *config.AppConfig
	portal *portal.Portal
	db     *pgxpool.Pool
	cache  *redis.Client
}

// NewHandlerSet serves p. backend may be nil when the store needs no
// connections, as with the memory backend in tests.
func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, p *portal.Portal, backend *portal.Backend) HandlerSet {
	h := HandlerSet{
		log:    log,
		cfg:    cfg,
		portal: p,
	}
	if backend != nil {
		h.db = backend.DB
		h.cache = backend.Redis
	}
	return h
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	authed := middleware.Auth(h.cfg, h.portal.Sessions)
	superAdmin := middleware.Require(session.IsSuperAdmin)
	admins := middleware.Require(session.IsAdmin)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/login", h.Login)
		auth.GET("/redirect", h.Redirect)
		auth.POST("/logout", authed, h.Logout)
		auth.GET("/session", authed, h.Session)
	}

	cities := v1.Group("/cities")
	{
		cities.GET("", h.ListCities)
		cities.GET("/resolve/:slug", h.ResolveCity)
		cities.POST("", authed, superAdmin, h.CreateCity)
		cities.GET("/:id", authed, superAdmin, h.GetCity)
		cities.DELETE("/:id", authed, superAdmin, h.DeleteCity)
		cities.GET("/:id/credentials.xlsx", authed, superAdmin, h.CityCredentials)
	}

	perms := v1.Group("/permissions")
	{
		perms.GET("/catalog", h.PermissionCatalog)
		perms.GET("", authed, admins, h.GetPermissions)
		perms.POST("/:role/all", authed, admins, h.ToggleAllPermissions)
		perms.POST("/:role/:section/toggle", authed, admins, h.TogglePermission)
	}

	v1.GET("/dashboard/sections/:section", authed, h.DashboardSection)
	v1.GET("/dashboards/:name/access", authed, h.DashboardAccess)
	v1.GET("/events/ws", h.Events)
}
