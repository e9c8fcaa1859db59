package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"sickfits/internal/auth"
	apperrors "sickfits/internal/errors"
	"sickfits/internal/model"
	"sickfits/internal/service"
)

// ItemHandler handles catalog endpoints.
type ItemHandler struct {
	itemService service.ItemService
	authService service.AuthService
}

// NewItemHandler creates a new item handler.
func NewItemHandler(itemService service.ItemService, authService service.AuthService) *ItemHandler {
	return &ItemHandler{itemService: itemService, authService: authService}
}

// CreateItemRequest represents an item creation request.
type CreateItemRequest struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	Image       string          `json:"image"`
	LargeImage  string          `json:"largeImage"`
}

// UpdateItemRequest carries partial item updates.
type UpdateItemRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Image       *string          `json:"image"`
	LargeImage  *string          `json:"largeImage"`
}

// CreateItem godoc
// @Summary Create a catalog item
// @Tags items
// @Accept json
// @Produce json
// @Param request body CreateItemRequest true "Item data"
// @Success 201 {object} model.Item
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /items [post]
func (h *ItemHandler) CreateItem(c echo.Context) error {
	var req CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	item := &model.Item{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		LargeImage:  req.LargeImage,
	}

	// Record the creator when a session is present. Mutations are still
	// allowed without one; TODO: require sign-in once the frontend sends
	// credentials on every request.
	if cookie, err := c.Cookie(auth.SessionCookieName); err == nil {
		if user, err := h.authService.CurrentUser(c.Request().Context(), cookie.Value); err == nil {
			item.UserID = &user.ID
		}
	}

	created, err := h.itemService.CreateItem(c.Request().Context(), item)
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, created)
}

// GetItem godoc
// @Summary Get item by id
// @Tags items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} model.Item
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /items/{id} [get]
func (h *ItemHandler) GetItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	item, err := h.itemService.GetItem(c.Request().Context(), id)
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, item)
}

// UpdateItem godoc
// @Summary Update a catalog item
// @Tags items
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param request body UpdateItemRequest true "Fields to update"
// @Success 200 {object} model.Item
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /items/{id} [patch]
func (h *ItemHandler) UpdateItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req UpdateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Price != nil {
		fields["price"] = *req.Price
	}
	if req.Image != nil {
		fields["image"] = *req.Image
	}
	if req.LargeImage != nil {
		fields["large_image"] = *req.LargeImage
	}
	if len(fields) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no fields to update")
	}

	item, err := h.itemService.UpdateItem(c.Request().Context(), id, fields)
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, item)
}

// DeleteItem godoc
// @Summary Delete a catalog item
// @Tags items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /items/{id} [delete]
func (h *ItemHandler) DeleteItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.itemService.DeleteItem(c.Request().Context(), id); err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "item deleted"})
}

// ListItems godoc
// @Summary List catalog items
// @Tags items
// @Produce json
// @Success 200 {array} model.Item
// @Router /items [get]
func (h *ItemHandler) ListItems(c echo.Context) error {
	items, err := h.itemService.ListItems(c.Request().Context())
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, items)
}
