package http

import (
	"net/http"
	"strconv"

	"calltracker/internal/dto"
	"calltracker/internal/model"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupTickers(base *echo.Group) {
	v1 := base.Group("/v1/tickers")
	{
		v1.GET("", h.GetTickers)
		v1.POST("/:symbol/reclassify", h.ReclassifyTicker)
	}
}

func (h *HttpAPIHandler) GetTickers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	search := c.QueryParam("search")

	result, err := h.service.AnalysisStore.GetAllTickerProfiles(c.Request().Context(), page, limit, search)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, err.Error()))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Ticker profiles", result))
}

func (h *HttpAPIHandler) ReclassifyTicker(c echo.Context) error {
	symbol := c.Param("symbol")
	if symbol == "" {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("missing symbol"))
	}

	var req dto.ReclassifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	if err := h.service.PriceResolver.Reclassify(c.Request().Context(), symbol, model.AssetType(req.AssetType)); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, err.Error()))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Ticker reclassified", nil))
}
