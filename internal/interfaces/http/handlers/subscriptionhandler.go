package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	notificationUsecases "lumina/internal/application/notification/usecases"
	"lumina/internal/application/subscription/usecases"
	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
	"lumina/internal/interfaces/http/middleware"
	"lumina/internal/shared/goroutine"
	"lumina/internal/shared/logger"
	"lumina/internal/shared/utils"
)

// SubscriptionHandler handles the client-facing subscription endpoints.
type SubscriptionHandler struct {
	verifyUC *usecases.VerifyPurchaseUseCase
	getUC    *usecases.GetSubscriptionUseCase
	cancelUC *usecases.CancelSubscriptionUseCase
	noticeUC *notificationUsecases.SendPurchaseNoticesUseCase
	logger   logger.Interface
}

func NewSubscriptionHandler(
	verifyUC *usecases.VerifyPurchaseUseCase,
	getUC *usecases.GetSubscriptionUseCase,
	cancelUC *usecases.CancelSubscriptionUseCase,
	noticeUC *notificationUsecases.SendPurchaseNoticesUseCase,
	logger logger.Interface,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		verifyUC: verifyUC,
		getUC:    getUC,
		cancelUC: cancelUC,
		noticeUC: noticeUC,
		logger:   logger,
	}
}

type verifyPurchaseRequest struct {
	Receipt       string `json:"receipt" validate:"required"`
	ProductID     string `json:"product_id" validate:"required"`
	Platform      string `json:"platform" validate:"required,oneof=ios stripe"`
	Tier          string `json:"tier"`
	BillingPeriod string `json:"billing_period" validate:"required"`
}

type cancelSubscriptionRequest struct {
	Reason string `json:"reason" validate:"omitempty,oneof=user_request account_deletion"`
}

// VerifyPurchase handles POST /api/v1/subscription/verify.
// The client sends the raw vendor receipt after a purchase or restore; the
// response carries the reconciled subscription state.
func (h *SubscriptionHandler) VerifyPurchase(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req verifyPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.verifyUC.Execute(c.Request.Context(), usecases.VerifyPurchaseRequest{
		UserID:        userID,
		Receipt:       req.Receipt,
		ProductID:     req.ProductID,
		Platform:      req.Platform,
		Tier:          req.Tier,
		BillingPeriod: req.BillingPeriod,
	})
	if err != nil {
		h.logger.Warnw("purchase verification failed", "user_id", userID, "product_id", req.ProductID, "error", err)
		h.respondSubscriptionError(c, err)
		return
	}

	// The purchase is durable at this point; confirmation email and
	// analytics run off the request path.
	goroutine.SafeGo(h.logger, "purchase_notices", func() {
		h.noticeUC.Execute(context.Background(), userID, req.ProductID, result.Subscription.MigratedFrom)
	})

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"subscription": result.Subscription,
		"migrated":     result.Migrated,
	})
}

// GetSubscription handles GET /api/v1/subscription.
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	dto, err := h.getUC.Execute(c.Request.Context(), userID)
	if err != nil {
		h.respondSubscriptionError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"subscription": dto})
}

// GetAccess handles GET /api/v1/subscription/access. It answers the single
// question clients poll on launch: can this user use the paid features right
// now. Served from the entitlement cache when warm.
func (h *SubscriptionHandler) GetAccess(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	canUse, err := h.getUC.CanUseService(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, subscription.ErrUserNotFound) {
		h.respondSubscriptionError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"can_use_service": canUse})
}

// CancelSubscription handles POST /api/v1/subscription/cancel. Access runs
// until the end of the paid period; the sweep expires the record afterwards.
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req cancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	reason := vo.CancellationReason(req.Reason)
	if req.Reason == "" {
		reason = vo.CancelReasonUserRequest
	}

	dto, err := h.cancelUC.Execute(c.Request.Context(), userID, reason)
	if err != nil {
		h.respondSubscriptionError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "subscription cancelled", gin.H{"subscription": dto})
}

// respondSubscriptionError maps domain sentinels onto HTTP statuses. Anything
// unmapped is an internal error and stays opaque to the client.
func (h *SubscriptionHandler) respondSubscriptionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, subscription.ErrUserNotFound), errors.Is(err, subscription.ErrRecordNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "no subscription found")
	case errors.Is(err, subscription.ErrCallerNotOwner):
		utils.ErrorResponse(c, http.StatusConflict, "purchase belongs to another account")
	case errors.Is(err, subscription.ErrUnknownProduct):
		utils.ErrorResponse(c, http.StatusBadRequest, "unknown product identifier")
	case errors.Is(err, subscription.ErrVerificationFailed):
		utils.ErrorResponse(c, http.StatusBadRequest, "receipt verification failed")
	case errors.Is(err, subscription.ErrVendorUnavailable):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "store verification is temporarily unavailable, please retry")
	default:
		h.logger.Errorw("subscription request failed", "error", err)
		utils.ErrorResponseWithError(c, err)
	}
}
