package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"trafficportal/internal/export"
	"trafficportal/internal/models"
	"trafficportal/internal/registry"
	"trafficportal/internal/routing"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// cityResponse is the public view of a city; generated credentials are only
// returned to super admins through the full city record.
type cityResponse struct {
	ID        string            `json:"id"`
	CityName  string            `json:"cityName"`
	CityCode  string            `json:"cityCode"`
	Slug      string            `json:"slug"`
	Path      string            `json:"path"`
	Status    models.CityStatus `json:"status"`
	Users     int               `json:"users"`
	CreatedAt time.Time         `json:"createdAt"`
}

func newCityResponse(city models.City) cityResponse {
	return cityResponse{
		ID:        city.ID,
		CityName:  city.CityName,
		CityCode:  city.CityCode,
		Slug:      registry.Slugify(city.CityName),
		Path:      routing.CityPath(city.CityName),
		Status:    city.Status,
		Users:     len(city.Users),
		CreatedAt: city.CreatedAt,
	}
}

func newCityResponses(cities []models.City) []cityResponse {
	resp := make([]cityResponse, 0, len(cities))
	for _, city := range cities {
		resp = append(resp, newCityResponse(city))
	}
	return resp
}

func (h HandlerSet) ListCities(c *gin.Context) {
	cities, err := h.portal.Registry.ListCities(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cities": newCityResponses(cities)})
}

type createCityRequest struct {
	CityName string `json:"cityName"`
	CityCode string `json:"cityCode"`
}

func (h HandlerSet) CreateCity(c *gin.Context) {
	var req createCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	city, err := h.portal.Registry.CreateCity(c.Request.Context(), req.CityName, req.CityCode)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"city": city})
}

func (h HandlerSet) GetCity(c *gin.Context) {
	city, err := h.portal.Registry.GetCity(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"city": city})
}

func (h HandlerSet) DeleteCity(c *gin.Context) {
	city, err := h.portal.Registry.DeleteCity(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": newCityResponse(city)})
}

func (h HandlerSet) CityCredentials(c *gin.Context) {
	city, err := h.portal.Registry.GetCity(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	buf, err := export.CredentialsSheet(h.cfg.Portal.EmailDomain, city)
	if err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("%s-credentials.xlsx", strings.ToLower(city.CityCode))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ResolveCity maps a /city/{slug} page to its city. A miss answers 404 with
// the cities that do exist so the page can offer them.
func (h HandlerSet) ResolveCity(c *gin.Context) {
	ctx := c.Request.Context()
	slug := c.Param("slug")

	city, strategy, err := h.portal.Registry.ResolveSlug(ctx, slug)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{
			"city":     newCityResponse(city),
			"strategy": strategy,
		})
		return
	}
	if !errors.Is(err, registry.ErrCityNotFound) {
		h.respondError(c, err)
		return
	}

	cities, err := h.portal.Registry.ListCities(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusNotFound, gin.H{
		"error":     "city_not_found",
		"slug":      slug,
		"available": newCityResponses(cities),
	})
}
