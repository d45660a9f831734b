package handler

import (
	"net/http"

	"github.com/aleks2005vk/cheap-gasoline/internal/dto"
	"github.com/aleks2005vk/cheap-gasoline/internal/middleware"
	"github.com/aleks2005vk/cheap-gasoline/internal/service"

	"github.com/gin-gonic/gin"
)

type StationsHandler struct {
	catalog  service.CatalogService
	resolver service.ResolverService
}

func NewStationsHandler(catalog service.CatalogService, resolver service.ResolverService) *StationsHandler {
	return &StationsHandler{catalog: catalog, resolver: resolver}
}

// List godoc
// @Summary All stations with their current prices
// @Tags stations
// @Produce json
// @Success 200 {array} dto.StationWithPrices
// @Router /v1/stations [get]
func (h *StationsHandler) List(c *gin.Context) {
	resp, err := h.resolver.ResolveAllStations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary One station with its current prices
// @Tags stations
// @Produce json
// @Param id path int true "Station id"
// @Success 200 {object} dto.StationWithPrices
// @Failure 404 {object} apierror.APIError
// @Router /v1/stations/{id} [get]
func (h *StationsHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.resolver.ResolveCurrentPrices(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary Add a station to the catalog
// @Description Without fuel_config the brand template is used.
// @Tags stations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateStationRequest true "Station"
// @Success 201 {object} dto.StationResponse
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/stations [post]
func (h *StationsHandler) Create(c *gin.Context) {
	var req dto.CreateStationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.catalog.CreateStation(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Resync godoc
// @Summary Re-derive a station's fuel config from its brand
// @Tags stations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Station id"
// @Success 200 {object} dto.StationResponse
// @Router /v1/stations/{id}/resync [post]
func (h *StationsHandler) Resync(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.catalog.ResyncFuelConfig(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ResyncAll godoc
// @Summary Re-derive every station's fuel config
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ResyncResponse
// @Router /v1/admin/stations/resync [post]
func (h *StationsHandler) ResyncAll(c *gin.Context) {
	n, err := h.catalog.ResyncAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ResyncResponse{Updated: n})
}
