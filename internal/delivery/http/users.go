package http

import (
	"net/http"

	"calltracker/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupUsers(base *echo.Group) {
	v1 := base.Group("/v1/users")
	{
		v1.GET("", h.GetUsers)
		v1.GET("/:username", h.GetUserDetail)
	}
}

func (h *HttpAPIHandler) GetUsers(c echo.Context) error {
	profiles, err := h.service.AnalysisStore.GetAllUserProfiles(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, err.Error()))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("User profiles", profiles))
}

func (h *HttpAPIHandler) GetUserDetail(c echo.Context) error {
	username := c.Param("username")
	ctx := c.Request().Context()

	profile, err := h.service.AnalysisStore.GetUserProfile(ctx, username)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, err.Error()))
	}
	if profile == nil {
		return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse("user not found"))
	}

	history, err := h.service.AnalysisStore.GetUserHistory(ctx, username)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, err.Error()))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("User detail", dto.UserDetail{
		Profile: *profile,
		History: history,
	}))
}
