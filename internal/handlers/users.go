package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aldidev/snipurl/internal/middleware"
	"github.com/aldidev/snipurl/internal/services"
	"github.com/aldidev/snipurl/pkg/errors"
	"github.com/aldidev/snipurl/pkg/response"
)

// UserHandler exposes account lookups and self-service management.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type unverifiedLookupRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type updateUsernameRequest struct {
	Username string `json:"username" validate:"required,handle"`
}

// POST /api/users/unverified
//
// Lets a client recover the account id before verification, so the mail
// verification page can be reached again after signup.
func (h *UserHandler) Unverified(c *gin.Context) {
	var req unverifiedLookupRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.GetByIdentifier(c.Request.Context(), "", req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	if user.IsVerified {
		response.Error(c, services.ErrAlreadyVerified)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// PATCH /api/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req updateUsernameRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.SetUsername(c.Request.Context(), userID, req.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// DELETE /api/users/me
func (h *UserHandler) DeleteMe(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.users.Delete(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Account deleted", nil)
}
