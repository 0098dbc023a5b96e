package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/osa911/portfolio/internal/api/constants"
	"github.com/osa911/portfolio/internal/api/dto/common"
	"github.com/osa911/portfolio/internal/api/dto/v1/contact"
	"github.com/osa911/portfolio/internal/service"
	"github.com/osa911/portfolio/internal/telemetry"
	"github.com/osa911/portfolio/internal/utils"

	"github.com/gin-gonic/gin"
)

// Relayer sends one validated submission
type Relayer interface {
	Relay(ctx context.Context, sub service.Submission) error
}

// MailHandler serves the contact form endpoint
type MailHandler struct {
	relay   Relayer
	metrics *telemetry.Metrics
}

func NewMailHandler(relay Relayer, metrics *telemetry.Metrics) *MailHandler {
	return &MailHandler{relay: relay, metrics: metrics}
}

// Send sanitizes the validated submission and relays it, answering only
// after the transport reports the outcome
func (h *MailHandler) Send(c *gin.Context) {
	// Set by the validation middleware
	data, exists := c.Get(constants.ContextKeySubmission)
	if !exists {
		utils.HandleAPIError(c, nil, http.StatusInternalServerError, common.ErrCodeInternalServer, "Submission not found in context")
		return
	}

	req, ok := data.(*contact.SubmissionRequest)
	if !ok {
		utils.HandleAPIError(c, nil, http.StatusInternalServerError, common.ErrCodeInternalServer, "Invalid submission format")
		return
	}

	err := h.relay.Relay(c.Request.Context(), service.NewSubmission(*req))
	if errors.Is(err, service.ErrValidation) {
		h.metrics.Submission(telemetry.OutcomeInvalid)
		utils.HandleAPIError(c, err, http.StatusBadRequest, common.ErrCodeValidation, "Submission is empty after removing markup")
		return
	}
	if err != nil {
		h.metrics.Submission(telemetry.OutcomeFailed)
		utils.HandleText(c, http.StatusInternalServerError, contact.DeliveryFailed)
		return
	}

	h.metrics.Submission(telemetry.OutcomeSent)
	utils.HandleText(c, http.StatusOK, contact.Confirmation)
}
