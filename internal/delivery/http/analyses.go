package http

import (
	"errors"
	"net/http"
	"strconv"

	"calltracker/internal/dto"
	"calltracker/internal/service"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupAnalyses(base *echo.Group) {
	v1 := base.Group("/v1")
	{
		v1.POST("/analyses", h.AnalyzePost)
		v1.DELETE("/analyses/:id", h.DeleteAnalysis)
		v1.GET("/feed", h.GetFeed)
		v1.POST("/refresh", h.TriggerRefresh)
	}
}

func (h *HttpAPIHandler) AnalyzePost(c echo.Context) error {
	var req dto.AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	record, err := h.service.Analyzer.Analyze(c.Request().Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFetchFailed):
			return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse(err.Error()))
		case errors.Is(err, service.ErrNoCallFound), errors.Is(err, service.ErrPriceUnresolved):
			// Not an input error and not a server fault, the post just
			// does not yield a verifiable call.
			return c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponse(http.StatusUnprocessableEntity, err.Error()))
		default:
			return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		}
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Analysis stored", record))
}

func (h *HttpAPIHandler) DeleteAnalysis(c echo.Context) error {
	tweetID := c.Param("id")
	if tweetID == "" {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("missing analysis id"))
	}
	if err := h.service.AnalysisStore.RemoveAnalysisByTweetID(c.Request().Context(), tweetID); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, err.Error()))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Analysis removed", nil))
}

func (h *HttpAPIHandler) GetFeed(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	feed, err := h.service.AnalysisStore.GetRecentFeed(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, err.Error()))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Recent analyses", feed))
}

func (h *HttpAPIHandler) TriggerRefresh(c echo.Context) error {
	summary, err := h.service.Scheduler.TriggerRefresh(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, err.Error()))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Refresh finished", summary))
}
