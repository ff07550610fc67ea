package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/api/validation"
	"github.com/spec-kit/user-service/internal/service"
)

// UsersHandler exposes the user resource under /api/user.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Create handles POST /api/user/create-user.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	req, ok := validation.BodyFromContext[dto.CreateUserRequest](c)
	if !ok {
		return fiber.ErrBadRequest
	}

	res, err := h.users.Create(c.UserContext(), service.CreateUserInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(res.Status).JSON(dto.Envelope{Message: res.Message})
}

// List handles GET /api/user/list-user.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	res, err := h.users.List(c.UserContext(), service.ListUsersInput{
		Page:        parseInt(c.Query("page"), 1),
		Limit:       parseInt(c.Query("limit"), service.DefaultPageSize),
		SortOrder:   c.Query("sortOrder"),
		FilterField: c.Query("filterField"),
		FilterValue: c.Query("filterValue"),
		SearchKey:   c.Query("searchKey"),
	})
	if err != nil {
		return err
	}
	return c.Status(res.Status).JSON(dto.Envelope{
		Message: res.Message,
		Data:    dto.NewUserResponses(res.Data),
	})
}

// Get handles GET /api/user/get-user/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	params, ok := validation.ParamsFromContext[dto.UserIDParam](c)
	if !ok {
		return fiber.ErrBadRequest
	}

	res, err := h.users.GetByID(c.UserContext(), userID(params))
	if err != nil {
		return err
	}
	return c.Status(res.Status).JSON(dto.Envelope{
		Message: res.Message,
		Data:    dto.NewUserResponse(res.Data),
	})
}

// Update handles PUT /api/user/update-user/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	params, ok := validation.ParamsFromContext[dto.UserIDParam](c)
	if !ok {
		return fiber.ErrBadRequest
	}
	req, ok := validation.BodyFromContext[dto.UpdateUserRequest](c)
	if !ok {
		return fiber.ErrBadRequest
	}

	res, err := h.users.Update(c.UserContext(), userID(params), service.UpdateUserInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(res.Status).JSON(dto.Envelope{Message: res.Message})
}

// Delete handles DELETE /api/user/delete-user/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	params, ok := validation.ParamsFromContext[dto.UserIDParam](c)
	if !ok {
		return fiber.ErrBadRequest
	}

	res, err := h.users.Delete(c.UserContext(), userID(params))
	if err != nil {
		return err
	}
	return c.Status(res.Status).JSON(dto.Envelope{Message: res.Message})
}

// userID returns the id in the canonical lower-case form the stores use.
func userID(p *dto.UserIDParam) string {
	return strings.ToLower(p.ID)
}

// parseInt returns def when val is empty or not a positive integer.
func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
