package appstore

// Notification type values from App Store Server Notifications V2.
const (
	NotificationSubscribed              = "SUBSCRIBED"
	NotificationDidRenew                = "DID_RENEW"
	NotificationDidFailToRenew          = "DID_FAIL_TO_RENEW"
	NotificationDidChangeRenewalStatus  = "DID_CHANGE_RENEWAL_STATUS"
	NotificationDidChangeRenewalPref    = "DID_CHANGE_RENEWAL_PREF"
	NotificationExpired                 = "EXPIRED"
	NotificationGracePeriodExpired      = "GRACE_PERIOD_EXPIRED"
	NotificationRefund                  = "REFUND"
	NotificationRevoke                  = "REVOKE"
	NotificationRenewalExtended         = "RENEWAL_EXTENDED"
	NotificationPriceIncrease           = "PRICE_INCREASE"
	NotificationOfferRedeemed           = "OFFER_REDEEMED"
	NotificationTest                    = "TEST"
	SubtypeAutoRenewEnabled             = "AUTO_RENEW_ENABLED"
	SubtypeAutoRenewDisabled            = "AUTO_RENEW_DISABLED"
	SubtypeBillingRetry                 = "BILLING_RETRY"
	SubtypeGracePeriod                  = "GRACE_PERIOD"
	SubtypeVoluntary                    = "VOLUNTARY"
	SubtypeBillingRecovery              = "BILLING_RECOVERY"
	SubtypeInitialBuy                   = "INITIAL_BUY"
	SubtypeResubscribe                  = "RESUBSCRIBE"
)

// TransactionPayload is the decoded claims of a signedTransactionInfo JWS.
// Timestamps are millisecond epochs.
type TransactionPayload struct {
	TransactionID         string `json:"transactionId"`
	OriginalTransactionID string `json:"originalTransactionId"`
	WebOrderLineItemID    string `json:"webOrderLineItemId"`
	BundleID              string `json:"bundleId"`
	ProductID             string `json:"productId"`
	SubscriptionGroupID   string `json:"subscriptionGroupIdentifier"`
	PurchaseDate          int64  `json:"purchaseDate"`
	OriginalPurchaseDate  int64  `json:"originalPurchaseDate"`
	ExpiresDate           int64  `json:"expiresDate"`
	Quantity              int    `json:"quantity"`
	Type                  string `json:"type"`
	AppAccountToken       string `json:"appAccountToken"`
	InAppOwnershipType    string `json:"inAppOwnershipType"`
	SignedDate            int64  `json:"signedDate"`
	RevocationDate        *int64 `json:"revocationDate,omitempty"`
	RevocationReason      *int   `json:"revocationReason,omitempty"`
	OfferType             *int   `json:"offerType,omitempty"`
	OfferIdentifier       string `json:"offerIdentifier,omitempty"`
	IsUpgraded            bool   `json:"isUpgraded,omitempty"`
	Environment           string `json:"environment"`
}

// RenewalInfoPayload is the decoded claims of a signedRenewalInfo JWS.
type RenewalInfoPayload struct {
	OriginalTransactionID  string `json:"originalTransactionId"`
	AutoRenewProductID     string `json:"autoRenewProductId"`
	ProductID              string `json:"productId"`
	AutoRenewStatus        *int   `json:"autoRenewStatus,omitempty"`
	ExpirationIntent       *int64 `json:"expirationIntent,omitempty"`
	IsInBillingRetryPeriod bool   `json:"isInBillingRetryPeriod,omitempty"`
	GracePeriodExpiresDate *int64 `json:"gracePeriodExpiresDate,omitempty"`
	SignedDate             int64  `json:"signedDate"`
	Environment            string `json:"environment"`
}

// notificationEnvelope is the outer body Apple posts to the webhook endpoint.
type notificationEnvelope struct {
	SignedPayload string `json:"signedPayload"`
}

// notificationPayload is the decoded claims of the envelope's signedPayload.
type notificationPayload struct {
	NotificationType string           `json:"notificationType"`
	Subtype          string           `json:"subtype"`
	NotificationUUID string           `json:"notificationUUID"`
	Version          string           `json:"version"`
	SignedDate       int64            `json:"signedDate"`
	Data             notificationData `json:"data"`
}

type notificationData struct {
	AppAppleID            int64  `json:"appAppleId"`
	BundleID              string `json:"bundleId"`
	BundleVersion         string `json:"bundleVersion"`
	Environment           string `json:"environment"`
	SignedTransactionInfo string `json:"signedTransactionInfo"`
	SignedRenewalInfo     string `json:"signedRenewalInfo"`
	Status                int    `json:"status"`
}

// transactionResponse is the body of GET /inApps/v1/transactions/{id}.
type transactionResponse struct {
	SignedTransactionInfo string `json:"signedTransactionInfo"`
}

// apiErrorResponse is the error body the App Store Server API returns.
type apiErrorResponse struct {
	ErrorCode    int64  `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}
