package handler

import (
	"net/http"
	"strconv"

	"github.com/aleks2005vk/cheap-gasoline/internal/dto"
	"github.com/aleks2005vk/cheap-gasoline/internal/middleware"
	"github.com/aleks2005vk/cheap-gasoline/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct{ audit service.AuditService }

func NewAdminHandler(audit service.AuditService) *AdminHandler {
	return &AdminHandler{audit: audit}
}

// AuditLog godoc
// @Summary Recent audit records, newest first
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max rows (default 100)"
// @Success 200 {array} dto.AuditLogItem
// @Router /v1/admin/audit [get]
func (h *AdminHandler) AuditLog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	resp, err := h.audit.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type SiteInfoHandler struct{ svc service.SiteInfoService }

func NewSiteInfoHandler(svc service.SiteInfoService) *SiteInfoHandler {
	return &SiteInfoHandler{svc: svc}
}

// Get godoc
// @Summary Public site settings
// @Tags site
// @Produce json
// @Success 200 {object} map[string]string
// @Router /v1/site-info [get]
func (h *SiteInfoHandler) Get(c *gin.Context) {
	resp, err := h.svc.All(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Set godoc
// @Summary Set a site setting
// @Tags site
// @Accept json
// @Security BearerAuth
// @Param key path string true "Key"
// @Param body body dto.SetSiteInfoRequest true "Value"
// @Success 204
// @Router /v1/site-info/{key} [put]
func (h *SiteInfoHandler) Set(c *gin.Context) {
	var req dto.SetSiteInfoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Set(c.Request.Context(), c.Param("key"), req, middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
