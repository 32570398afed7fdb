package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trafficportal/internal/middleware"
	"trafficportal/internal/permissions"
	"trafficportal/internal/routing"
	"trafficportal/internal/session"
)

func (h HandlerSet) PermissionCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sections": permissions.Catalog})
}

// permissionScope is the city whose matrix an admin edits: a city admin's
// own city, or the ?city= code for a super admin.
func permissionScope(c *gin.Context) (string, bool) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}

	if sess.HasCity() {
		return sess.CityCode, true
	}
	if session.IsSuperAdmin(&sess) {
		if code := strings.ToUpper(strings.TrimSpace(c.Query("city"))); code != "" {
			return code, true
		}
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "missing_scope"})
	return "", false
}

func (h HandlerSet) GetPermissions(c *gin.Context) {
	code, ok := permissionScope(c)
	if !ok {
		return
	}

	m, err := h.portal.Permissions.Load(c.Request.Context(), code)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cityCode": code, "permissions": m})
}

func (h HandlerSet) TogglePermission(c *gin.Context) {
	code, ok := permissionScope(c)
	if !ok {
		return
	}

	m, err := h.portal.Permissions.Toggle(c.Request.Context(), code, c.Param("role"), c.Param("section"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cityCode": code, "permissions": m})
}

type toggleAllRequest struct {
	Enable *bool `json:"enable" binding:"required"`
}

func (h HandlerSet) ToggleAllPermissions(c *gin.Context) {
	var req toggleAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code, ok := permissionScope(c)
	if !ok {
		return
	}

	m, err := h.portal.Permissions.ToggleAll(c.Request.Context(), code, c.Param("role"), *req.Enable)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cityCode": code, "permissions": m})
}

// DashboardSection answers whether the caller may open one dashboard
// section. Admins always may; everyone else needs the section enabled for
// their role in their city's matrix.
func (h HandlerSet) DashboardSection(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sectionID := c.Param("section")
	section, found := findSection(sectionID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_section"})
		return
	}

	var m permissions.Matrix
	if sess.HasCity() && !session.IsAdmin(&sess) {
		loaded, err := h.portal.Permissions.Load(c.Request.Context(), sess.CityCode)
		if err != nil {
			h.respondError(c, err)
			return
		}
		m = loaded
	}

	if !permissions.Effective(&sess, m, sectionID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "section_forbidden", "section": section})
		return
	}

	c.JSON(http.StatusOK, gin.H{"section": section, "role": session.RoleDisplayName(&sess)})
}

// DashboardAccess applies the dashboard guard for the caller. A refusal
// carries the caller's own dashboard so clients can send them there.
func (h HandlerSet) DashboardAccess(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	path, found := routing.Dashboard(c.Param("name"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_dashboard"})
		return
	}

	if !routing.Allowed(path, &sess) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":    "dashboard_forbidden",
			"path":     path,
			"redirect": routing.RedirectPath(&sess),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": path, "role": session.RoleDisplayName(&sess)})
}

func findSection(id string) (permissions.Section, bool) {
	for _, s := range permissions.Catalog {
		if s.ID == id {
			return s, true
		}
	}
	return permissions.Section{}, false
}
