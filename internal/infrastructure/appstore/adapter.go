package appstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
	"lumina/internal/shared/biztime"
	"lumina/internal/shared/logger"
)

// Adapter converges every App Store input shape (raw transaction ID, signed
// transaction, JSON wrapper, opaque legacy receipt) into normalized facts.
type Adapter struct {
	client   *Client
	verifier *PayloadVerifier
	logger   logger.Interface
}

func NewAdapter(client *Client, verifier *PayloadVerifier, log logger.Interface) *Adapter {
	return &Adapter{
		client:   client,
		verifier: verifier,
		logger:   log.With("component", "appstore.adapter"),
	}
}

// VerifyReceipt resolves whatever the client submitted down to a verified
// transaction and returns its facts. Renewal state is absent on this path;
// the resolver treats missing renewal fields as "no signal".
func (a *Adapter) VerifyReceipt(ctx context.Context, receipt string) (subscription.Facts, error) {
	receipt = strings.TrimSpace(receipt)
	if receipt == "" {
		return subscription.Facts{}, fmt.Errorf("%w: empty receipt", subscription.ErrVerificationFailed)
	}

	// A signed transaction can be decoded locally without an API round trip.
	if strings.Count(receipt, ".") == 2 {
		claims, err := a.verifier.Verify(receipt)
		if err != nil {
			return subscription.Facts{}, err
		}
		var payload TransactionPayload
		if err := json.Unmarshal(claims, &payload); err != nil {
			return subscription.Facts{}, fmt.Errorf("%w: invalid transaction claims", subscription.ErrVerificationFailed)
		}
		return a.factsFromPayloads(&payload, nil), nil
	}

	transactionID, err := a.resolveTransactionID(ctx, receipt)
	if err != nil {
		return subscription.Facts{}, err
	}

	payload, err := a.client.GetTransaction(ctx, transactionID)
	if err != nil {
		return subscription.Facts{}, err
	}

	return a.factsFromPayloads(payload, nil), nil
}

// resolveTransactionID handles the non-JWS receipt shapes: a bare numeric
// transaction ID, a JSON wrapper carrying one, or an opaque legacy receipt
// that needs the verifyReceipt exchange.
func (a *Adapter) resolveTransactionID(ctx context.Context, receipt string) (string, error) {
	if isNumeric(receipt) {
		return receipt, nil
	}

	var wrapper map[string]interface{}
	if err := json.Unmarshal([]byte(receipt), &wrapper); err == nil {
		for _, key := range []string{"transactionId", "transaction_id"} {
			switch v := wrapper[key].(type) {
			case string:
				if v != "" {
					return v, nil
				}
			case float64:
				return fmt.Sprintf("%.0f", v), nil
			}
		}
		return "", fmt.Errorf("%w: json receipt has no transaction id", subscription.ErrVerificationFailed)
	}

	a.logger.Debugw("falling back to legacy receipt exchange")
	return a.client.ResolveLegacyReceipt(ctx, receipt)
}

// DecodeNotification verifies a V2 server notification body and returns it
// in provider-neutral form.
func (a *Adapter) DecodeNotification(body []byte) (*subscription.ProviderEvent, error) {
	var envelope notificationEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.SignedPayload == "" {
		return nil, fmt.Errorf("%w: body is not a notification envelope", subscription.ErrVerificationFailed)
	}

	claims, err := a.verifier.Verify(envelope.SignedPayload)
	if err != nil {
		return nil, err
	}

	var payload notificationPayload
	if err := json.Unmarshal(claims, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid notification claims", subscription.ErrVerificationFailed)
	}

	event := &subscription.ProviderEvent{
		Provider:  vo.ProviderApple,
		EventID:   payload.NotificationUUID,
		EventType: payload.NotificationType,
		Subtype:   payload.Subtype,
		Payload:   body,
	}

	var transaction *TransactionPayload
	if payload.Data.SignedTransactionInfo != "" {
		txClaims, err := a.verifier.Verify(payload.Data.SignedTransactionInfo)
		if err != nil {
			return nil, err
		}
		transaction = &TransactionPayload{}
		if err := json.Unmarshal(txClaims, transaction); err != nil {
			return nil, fmt.Errorf("%w: invalid transaction claims", subscription.ErrVerificationFailed)
		}
	}

	var renewal *RenewalInfoPayload
	if payload.Data.SignedRenewalInfo != "" {
		renewalClaims, err := a.verifier.Verify(payload.Data.SignedRenewalInfo)
		if err != nil {
			return nil, err
		}
		renewal = &RenewalInfoPayload{}
		if err := json.Unmarshal(renewalClaims, renewal); err != nil {
			return nil, fmt.Errorf("%w: invalid renewal claims", subscription.ErrVerificationFailed)
		}
	}

	if transaction != nil {
		facts := a.factsFromPayloads(transaction, renewal)
		event.Facts = &facts
	}

	return event, nil
}

// factsFromPayloads merges a transaction payload and optional renewal info
// into the normalized fact set.
func (a *Adapter) factsFromPayloads(tx *TransactionPayload, renewal *RenewalInfoPayload) subscription.Facts {
	facts := subscription.Facts{
		Provider:              vo.ProviderApple,
		TransactionID:         tx.TransactionID,
		OriginalTransactionID: tx.OriginalTransactionID,
		ProductID:             tx.ProductID,
		PurchaseDate:          biztime.FromUnixMillis(tx.PurchaseDate),
		ExpiresDate:           biztime.FromUnixMillis(tx.ExpiresDate),
		OfferType:             mapOfferType(tx.OfferType),
		IsUpgraded:            tx.IsUpgraded,
		Environment:           subscription.Environment(tx.Environment),
		AppAccountToken:       tx.AppAccountToken,
	}

	if tx.RevocationDate != nil {
		revokedAt := biztime.FromUnixMillis(*tx.RevocationDate)
		facts.RevocationDate = &revokedAt
		reason := mapRevocationReason(tx.RevocationReason)
		facts.RevocationReason = &reason
	}

	if renewal != nil {
		if renewal.AutoRenewStatus != nil {
			enabled := *renewal.AutoRenewStatus == 1
			facts.AutoRenewStatus = &enabled
		}
		facts.ExpirationIntent = renewal.ExpirationIntent
		facts.InBillingRetryPeriod = renewal.IsInBillingRetryPeriod
		if renewal.GracePeriodExpiresDate != nil {
			graceEnd := biztime.FromUnixMillis(*renewal.GracePeriodExpiresDate)
			facts.GracePeriodExpiresAt = &graceEnd
		}
	}

	return facts
}

func mapOfferType(offerType *int) subscription.OfferType {
	if offerType == nil {
		return subscription.OfferNone
	}
	switch *offerType {
	case 1:
		return subscription.OfferIntroductory
	case 2:
		return subscription.OfferPromotional
	case 3:
		return subscription.OfferCode
	default:
		return subscription.OfferNone
	}
}

func mapRevocationReason(reason *int) string {
	if reason == nil {
		return "other"
	}
	switch *reason {
	case 1:
		return "app_issue"
	default:
		return "other"
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
