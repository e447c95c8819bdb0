package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lumina/internal/application/subscription/usecases"
	"lumina/internal/domain/subscription"
	"lumina/internal/shared/logger"
)

// WebhookHandler receives vendor server notifications. Every delivery is
// acknowledged with 200 regardless of the internal outcome: a non-2xx answer
// makes the vendor retry aggressively, the dedup ledger would drop the
// redelivery anyway, and failures are logged for operator follow-up.
type WebhookHandler struct {
	router *usecases.EventRouterUseCase
	logger logger.Interface
}

func NewWebhookHandler(router *usecases.EventRouterUseCase, logger logger.Interface) *WebhookHandler {
	return &WebhookHandler{
		router: router,
		logger: logger,
	}
}

// HandleAppStoreNotification handles POST /api/v1/webhooks/appstore.
func (h *WebhookHandler) HandleAppStoreNotification(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	err = h.router.HandleAppStoreNotification(c.Request.Context(), body)
	h.acknowledge(c, "appstore", err)
}

// HandleStripeEvent handles POST /api/v1/webhooks/stripe.
func (h *WebhookHandler) HandleStripeEvent(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	err = h.router.HandleStripeEvent(c.Request.Context(), body, c.GetHeader("Stripe-Signature"))
	h.acknowledge(c, "stripe", err)
}

func (h *WebhookHandler) acknowledge(c *gin.Context, provider string, err error) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	if errors.Is(err, subscription.ErrVerificationFailed) {
		h.logger.Warnw("webhook signature verification failed", "provider", provider, "error", err)
	} else {
		h.logger.Errorw("webhook processing failed", "provider", provider, "error", err)
	}
	c.Status(http.StatusOK)
}
