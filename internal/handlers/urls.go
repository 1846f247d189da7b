package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aldidev/snipurl/internal/middleware"
	"github.com/aldidev/snipurl/internal/services"
	"github.com/aldidev/snipurl/pkg/errors"
	"github.com/aldidev/snipurl/pkg/response"
)

// URLHandler manages shortened links and the public redirect.
type URLHandler struct {
	urls *services.URLService
}

func NewURLHandler(urls *services.URLService) *URLHandler {
	return &URLHandler{urls: urls}
}

type createURLRequest struct {
	Origin  string `json:"origin" validate:"required,url"`
	Shorten string `json:"shorten" validate:"required,handle"`
}

type deleteURLsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid4"`
}

// POST /api/urls
func (h *URLHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req createURLRequest
	if !bindAndValidate(c, &req) {
		return
	}

	url, err := h.urls.Create(c.Request.Context(), services.CreateURLInput{
		UserID:  userID,
		Origin:  req.Origin,
		Shorten: req.Shorten,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, url)
}

// GET /api/urls
func (h *URLHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	urls, err := h.urls.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, urls)
}

// DELETE /api/urls/:shorten
func (h *URLHandler) Remove(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.urls.Remove(c.Request.Context(), userID, c.Param("shorten")); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "URL deleted", nil)
}

// DELETE /api/urls
func (h *URLHandler) RemoveMany(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req deleteURLsRequest
	if !bindAndValidate(c, &req) {
		return
	}

	removed, err := h.urls.RemoveMany(c.Request.Context(), userID, req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": removed})
}

// GET /:shorten
func (h *URLHandler) Redirect(c *gin.Context) {
	origin, err := h.urls.Resolve(c.Request.Context(), c.Param("shorten"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Redirect(http.StatusFound, origin)
}
