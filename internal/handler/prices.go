package handler

import (
	"net/http"
	"path/filepath"

	"github.com/aleks2005vk/cheap-gasoline/internal/apierror"
	"github.com/aleks2005vk/cheap-gasoline/internal/dto"
	"github.com/aleks2005vk/cheap-gasoline/internal/middleware"
	"github.com/aleks2005vk/cheap-gasoline/internal/service"

	"github.com/gin-gonic/gin"
)

type PricesHandler struct {
	ledger         service.LedgerService
	ocr            service.OCRService
	maxUploadBytes int64
}

func NewPricesHandler(ledger service.LedgerService, ocr service.OCRService, maxUploadMB int) *PricesHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 8
	}
	return &PricesHandler{ledger: ledger, ocr: ocr, maxUploadBytes: int64(maxUploadMB) << 20}
}

// Record godoc
// @Summary Submit prices for a station
// @Description Empty values and "—" are skipped; unparsable or non-positive values are reported as failed while the rest of the batch is recorded.
// @Tags prices
// @Accept json
// @Produce json
// @Param id path int true "Station id"
// @Param body body dto.RecordPricesRequest true "Prices by fuel type id"
// @Success 200 {object} dto.BatchResult
// @Failure 404 {object} apierror.APIError
// @Router /v1/stations/{id}/prices [post]
func (h *PricesHandler) Record(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.RecordPricesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.ledger.RecordBatch(c.Request.Context(), id, req.Prices, req.Source, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History godoc
// @Summary Price history of one fuel type, newest first
// @Tags prices
// @Produce json
// @Param id path int true "Station id"
// @Param fuel_type_id query string true "Fuel type id"
// @Param limit query int false "Max rows (default 50, max 500)"
// @Success 200 {array} dto.ObservationResponse
// @Router /v1/stations/{id}/prices/history [get]
func (h *PricesHandler) History(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var filter dto.HistoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	if !validateStruct(c, &filter) {
		return
	}
	resp, err := h.ledger.HistoryFor(c.Request.Context(), id, filter.FuelTypeID, filter.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Photo godoc
// @Summary Read a price board photo
// @Description Returns price candidates mapped onto the station's fuel order. Nothing is recorded.
// @Tags prices
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Station id"
// @Param file formData file true "Photo"
// @Success 200 {object} dto.OCRSuggestion
// @Failure 503 {object} apierror.APIError
// @Router /v1/stations/{id}/photo [post]
func (h *PricesHandler) Photo(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("multipart field \"file\" is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("cannot read upload"))
		return
	}
	defer f.Close()

	resp, err := h.ocr.Suggest(c.Request.Context(), id, filepath.Base(fh.Filename), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
