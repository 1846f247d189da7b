package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aldidev/snipurl/internal/services"
	"github.com/aldidev/snipurl/pkg/errors"
	"github.com/aldidev/snipurl/pkg/response"
)

// MailHandler drives the email verification flow.
type MailHandler struct {
	verification *services.VerificationService
}

func NewMailHandler(verification *services.VerificationService) *MailHandler {
	return &MailHandler{verification: verification}
}

type sendMailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/mail/send
func (h *MailHandler) Send(c *gin.Context) {
	var req sendMailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.verification.IssueAndSend(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Verification email sent", nil)
}

// GET /api/mail/verify?verificationCode=123456&userId=...|email=...
//
// Query parameters mirror the direct link embedded in the mail, so the
// endpoint works straight from the inbox.
func (h *MailHandler) Verify(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	email := strings.TrimSpace(c.Query("email"))
	rawCode := strings.TrimSpace(c.Query("verificationCode"))

	if userID == "" && email == "" {
		response.Error(c, errors.NewBadRequest("userId or email is required"))
		return
	}
	if rawCode == "" {
		response.Error(c, errors.NewBadRequest("verificationCode is required"))
		return
	}

	code, err := strconv.Atoi(rawCode)
	if err != nil {
		response.Error(c, services.ErrInvalidCode)
		return
	}

	err = h.verification.Redeem(c.Request.Context(), services.RedeemInput{
		UserID: userID,
		Email:  email,
		Code:   code,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Email verified", nil)
}
