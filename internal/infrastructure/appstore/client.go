package appstore

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lumina/internal/domain/subscription"
	"lumina/internal/shared/config"
	"lumina/internal/shared/logger"
)

const (
	defaultAPIBaseURL     = "https://api.storekit.itunes.apple.com"
	defaultSandboxBaseURL = "https://api.storekit-sandbox.itunes.apple.com"

	legacyVerifyURL        = "https://buy.itunes.apple.com/verifyReceipt"
	legacySandboxVerifyURL = "https://sandbox.itunes.apple.com/verifyReceipt"

	// legacyStatusUseSandbox is returned when a sandbox receipt hits the
	// production verifyReceipt endpoint.
	legacyStatusUseSandbox = 21007

	defaultMaxRetries = 3
	baseRetryDelay    = 500 * time.Millisecond
)

// Client calls the App Store Server API with an ES256 bearer token and
// retries transient failures with exponential backoff.
type Client struct {
	cfg        *config.AppStoreConfig
	verifier   *PayloadVerifier
	httpClient *http.Client
	logger     logger.Interface
}

func NewClient(cfg *config.AppStoreConfig, verifier *PayloadVerifier, log logger.Interface) *Client {
	return &Client{
		cfg:        cfg,
		verifier:   verifier,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     log.With("component", "appstore.client"),
	}
}

// GetTransaction fetches a signed transaction by ID, trying production first
// and falling back to sandbox. The returned payload has already passed chain
// and signature verification.
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*TransactionPayload, error) {
	token, err := c.generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate api token: %w", err)
	}

	payload, prodErr := c.fetchTransaction(ctx, c.apiBaseURL(), token, transactionID)
	if prodErr == nil {
		return payload, nil
	}

	c.logger.Warnw("production transaction lookup failed, trying sandbox",
		"transaction_id", transactionID, "error", prodErr)

	payload, sandboxErr := c.fetchTransaction(ctx, c.sandboxBaseURL(), token, transactionID)
	if sandboxErr == nil {
		return payload, nil
	}

	return nil, fmt.Errorf("%w: transaction lookup failed in both environments: %v", subscription.ErrVendorUnavailable, sandboxErr)
}

// fetchTransaction performs the GET with bounded exponential backoff on rate
// limits and server errors.
func (c *Client) fetchTransaction(ctx context.Context, baseURL, token, transactionID string) (*TransactionPayload, error) {
	endpoint := baseURL + "/inApps/v1/transactions/" + transactionID

	maxRetries := c.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
			}
		}

		payload, retryable, err := c.doTransactionRequest(ctx, endpoint, token)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if !retryable {
			break
		}

		c.logger.Warnw("transient error from app store api",
			"transaction_id", transactionID, "attempt", attempt+1, "error", err)
	}

	return nil, lastErr
}

func (c *Client) doTransactionRequest(ctx context.Context, endpoint, token string) (*TransactionPayload, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		var apiErr apiErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.ErrorMessage != "" {
			return nil, retryable, fmt.Errorf("app store api error %d: %s", apiErr.ErrorCode, apiErr.ErrorMessage)
		}
		return nil, retryable, fmt.Errorf("app store api returned status %d", resp.StatusCode)
	}

	var txResp transactionResponse
	if err := json.Unmarshal(body, &txResp); err != nil {
		return nil, false, fmt.Errorf("failed to parse response: %w", err)
	}
	if txResp.SignedTransactionInfo == "" {
		return nil, false, fmt.Errorf("response has no signed transaction info")
	}

	claims, err := c.verifier.Verify(txResp.SignedTransactionInfo)
	if err != nil {
		return nil, false, err
	}

	var payload TransactionPayload
	if err := json.Unmarshal(claims, &payload); err != nil {
		return nil, false, fmt.Errorf("failed to parse transaction claims: %w", err)
	}

	return &payload, false, nil
}

// legacyVerifyRequest is the body of the deprecated verifyReceipt endpoint,
// kept for clients that still submit opaque base64 receipts.
type legacyVerifyRequest struct {
	ReceiptData            string `json:"receipt-data"`
	Password               string `json:"password,omitempty"`
	ExcludeOldTransactions bool   `json:"exclude-old-transactions"`
}

type legacyVerifyResponse struct {
	Status            int `json:"status"`
	LatestReceiptInfo []struct {
		TransactionID         string `json:"transaction_id"`
		OriginalTransactionID string `json:"original_transaction_id"`
		ProductID             string `json:"product_id"`
	} `json:"latest_receipt_info"`
}

// ResolveLegacyReceipt exchanges an opaque base64 receipt for the latest
// transaction ID via the verifyReceipt endpoint. A 21007 status means the
// receipt is from sandbox, so the sandbox endpoint is tried next.
func (c *Client) ResolveLegacyReceipt(ctx context.Context, receiptData string) (string, error) {
	result, err := c.doLegacyVerify(ctx, legacyVerifyURL, receiptData)
	if err != nil {
		return "", err
	}
	if result.Status == legacyStatusUseSandbox {
		result, err = c.doLegacyVerify(ctx, legacySandboxVerifyURL, receiptData)
		if err != nil {
			return "", err
		}
	}

	if result.Status != 0 {
		return "", fmt.Errorf("%w: receipt rejected with status %d", subscription.ErrVerificationFailed, result.Status)
	}
	if len(result.LatestReceiptInfo) == 0 {
		return "", fmt.Errorf("%w: receipt has no transactions", subscription.ErrVerificationFailed)
	}

	return result.LatestReceiptInfo[0].TransactionID, nil
}

func (c *Client) doLegacyVerify(ctx context.Context, endpoint, receiptData string) (*legacyVerifyResponse, error) {
	reqBody, err := json.Marshal(legacyVerifyRequest{
		ReceiptData:            receiptData,
		Password:               c.cfg.SharedSecret,
		ExcludeOldTransactions: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: verify request failed: %v", subscription.ErrVendorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read verify response: %w", err)
	}

	var result legacyVerifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse verify response: %w", err)
	}

	return &result, nil
}

// generateToken signs a short-lived ES256 bearer token for the App Store
// Server API.
func (c *Client) generateToken() (string, error) {
	block, _ := pem.Decode([]byte(c.cfg.PrivateKey))
	if block == nil {
		return "", fmt.Errorf("private key is not valid PEM")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		key, err = x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return "", fmt.Errorf("failed to parse private key: %w", err)
		}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": c.cfg.IssuerID,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
		"aud": "appstoreconnect-v1",
		"bid": c.cfg.BundleID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = c.cfg.KeyID

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

func (c *Client) apiBaseURL() string {
	if c.cfg.APIBaseURL != "" {
		return c.cfg.APIBaseURL
	}
	return defaultAPIBaseURL
}

func (c *Client) sandboxBaseURL() string {
	if c.cfg.SandboxBaseURL != "" {
		return c.cfg.SandboxBaseURL
	}
	return defaultSandboxBaseURL
}
