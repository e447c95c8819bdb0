// Package testutil provides mock implementations for testing the
// subscription application layer.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
	"lumina/internal/shared/logger"
)

// MockSubscriptionRepository is an in-memory implementation of
// subscription.Repository.
type MockSubscriptionRepository struct {
	mu            sync.RWMutex
	records       map[uint]*subscription.Record
	accountTokens map[string]uint

	// Applied writes, in order, for assertions.
	Reconciliations []AppliedReconciliation
	Cancellations   []AppliedCancellation
	Expirations     []uint

	// Error injection. GetErrorAfter fails GetByUserID once that many reads
	// have succeeded; zero disables it.
	GetError      error
	GetErrorAfter int
	getCalls      int
	ApplyError    error
}

// AppliedReconciliation is one ApplyReconciliation call.
type AppliedReconciliation struct {
	UserID uint
	Rec    subscription.Reconciliation
}

// AppliedCancellation is one MarkCancelled call.
type AppliedCancellation struct {
	UserID uint
	Reason vo.CancellationReason
	At     time.Time
}

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{
		records: make(map[uint]*subscription.Record),
	}
}

// AddRecord seeds a record keyed by its user ID.
func (m *MockSubscriptionRepository) AddRecord(record *subscription.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.UserID()] = record
}

func (m *MockSubscriptionRepository) GetByUserID(ctx context.Context, userID uint) (*subscription.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	if m.GetErrorAfter > 0 && m.getCalls >= m.GetErrorAfter {
		return nil, fmt.Errorf("read failed")
	}
	m.getCalls++
	return m.records[userID], nil
}

// ApplyReconciliation records the write and rebuilds the stored record so
// reloads observe the new state.
func (m *MockSubscriptionRepository) ApplyReconciliation(ctx context.Context, userID uint, rec subscription.Reconciliation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ApplyError != nil {
		return m.ApplyError
	}
	current := m.records[userID]
	if current == nil {
		return subscription.ErrRecordNotFound
	}

	m.Reconciliations = append(m.Reconciliations, AppliedReconciliation{UserID: userID, Rec: rec})

	params := recordParams(current)
	params.Status = rec.Status
	params.Provider = rec.Provider
	if rec.Tier != "" {
		params.Tier = rec.Tier
	}
	if rec.BillingPeriod != "" {
		params.BillingPeriod = rec.BillingPeriod
	}
	params.CurrentPeriodStart = rec.CurrentPeriodStart
	params.CurrentPeriodEnd = rec.CurrentPeriodEnd
	params.TrialEnd = rec.TrialEnd
	params.LastVerifiedAt = &rec.LastVerifiedAt
	switch rec.Provider {
	case vo.ProviderApple:
		params.AppleOriginalTransactionID = rec.AppleOriginalTransactionID
		params.AppleTransactionID = rec.AppleTransactionID
	case vo.ProviderGoogle:
		params.GoogleOrderID = rec.GoogleOrderID
	case vo.ProviderStripe:
		params.StripeSubscriptionID = rec.StripeSubscriptionID
		params.StripeCustomerID = rec.StripeCustomerID
	}
	if rec.Migration != nil {
		from := rec.Migration.From
		at := rec.Migration.At
		params.MigratedFrom = &from
		params.MigratedAt = &at
	}
	if rec.Cancellation != nil {
		at := rec.Cancellation.At
		reason := rec.Cancellation.Reason
		params.CancelledAt = &at
		params.CancellationReason = &reason
	}
	if params.CreatedAt == nil {
		now := rec.LastVerifiedAt
		params.CreatedAt = &now
	}

	m.records[userID] = subscription.ReconstructRecord(params)
	return nil
}

func (m *MockSubscriptionRepository) MarkCancelled(ctx context.Context, userID uint, reason vo.CancellationReason, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.records[userID]
	if current == nil {
		return subscription.ErrRecordNotFound
	}

	m.Cancellations = append(m.Cancellations, AppliedCancellation{UserID: userID, Reason: reason, At: at})

	params := recordParams(current)
	params.Status = vo.StatusCancelled
	params.CancelledAt = &at
	params.CancellationReason = &reason
	m.records[userID] = subscription.ReconstructRecord(params)
	return nil
}

func (m *MockSubscriptionRepository) MarkExpired(ctx context.Context, userID uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.records[userID]
	if current == nil {
		return subscription.ErrRecordNotFound
	}

	m.Expirations = append(m.Expirations, userID)

	params := recordParams(current)
	params.Status = vo.StatusExpired
	m.records[userID] = subscription.ReconstructRecord(params)
	return nil
}

func (m *MockSubscriptionRepository) FindUserIDByProviderTransaction(ctx context.Context, provider vo.Provider, originalTransactionID string) (uint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if originalTransactionID == "" {
		return 0, nil
	}
	for userID, record := range m.records {
		if record.Provider() != provider {
			continue
		}
		switch provider {
		case vo.ProviderApple:
			if id, err := record.AppleOriginalTransactionID(); err == nil && id == originalTransactionID {
				return userID, nil
			}
		case vo.ProviderStripe:
			if id, err := record.StripeSubscriptionID(); err == nil && id == originalTransactionID {
				return userID, nil
			}
		}
	}
	return 0, nil
}

func (m *MockSubscriptionRepository) FindUserIDByAccountToken(ctx context.Context, token string) (uint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if token == "" {
		return 0, nil
	}
	return m.accountTokens[token], nil
}

// SetAccountToken registers a token to user association for lookups.
func (m *MockSubscriptionRepository) SetAccountToken(token string, userID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accountTokens == nil {
		m.accountTokens = make(map[string]uint)
	}
	m.accountTokens[token] = userID
}

func (m *MockSubscriptionRepository) ListLapsed(ctx context.Context, now time.Time, limit int) ([]*subscription.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var lapsed []*subscription.Record
	for _, record := range m.records {
		if record.HasLapsed(now) {
			lapsed = append(lapsed, record)
		}
		if limit > 0 && len(lapsed) >= limit {
			break
		}
	}
	return lapsed, nil
}

func (m *MockSubscriptionRepository) ListExpiringSoon(ctx context.Context, now time.Time, within time.Duration, limit int) ([]*subscription.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var expiring []*subscription.Record
	for _, record := range m.records {
		if record.Status() == vo.StatusExpired || record.Status() == vo.StatusNone {
			continue
		}
		if record.BillingPeriod() == vo.PeriodLifetime {
			continue
		}
		end := record.CurrentPeriodEnd()
		if end.After(now) && !end.After(now.Add(within)) {
			expiring = append(expiring, record)
		}
		if limit > 0 && len(expiring) >= limit {
			break
		}
	}
	return expiring, nil
}

func recordParams(r *subscription.Record) subscription.RecordParams {
	params := subscription.RecordParams{
		UserID:             r.UserID(),
		Status:             r.Status(),
		Tier:               r.Tier(),
		BillingPeriod:      r.BillingPeriod(),
		Provider:           r.Provider(),
		CurrentPeriodStart: r.CurrentPeriodStart(),
		CurrentPeriodEnd:   r.CurrentPeriodEnd(),
		TrialEnd:           r.TrialEnd(),
		MigratedFrom:       r.MigratedFrom(),
		MigratedAt:         r.MigratedAt(),
		CancelledAt:        r.CancelledAt(),
		CancellationReason: r.CancellationReason(),
		LastVerifiedAt:     r.LastVerifiedAt(),
		CreatedAt:          r.CreatedAt(),
	}
	if id, err := r.AppleOriginalTransactionID(); err == nil {
		params.AppleOriginalTransactionID = id
	}
	if id, err := r.StripeSubscriptionID(); err == nil {
		params.StripeSubscriptionID = id
	}
	return params
}

// MockTransactionMappingRepository is an in-memory implementation of
// subscription.TransactionMappingRepository.
type MockTransactionMappingRepository struct {
	mu       sync.RWMutex
	mappings map[string]subscription.TransactionMapping

	UpsertError error
	Upserts     []subscription.TransactionMapping
}

func NewMockTransactionMappingRepository() *MockTransactionMappingRepository {
	return &MockTransactionMappingRepository{
		mappings: make(map[string]subscription.TransactionMapping),
	}
}

func (m *MockTransactionMappingRepository) Upsert(ctx context.Context, mapping subscription.TransactionMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.Upserts = append(m.Upserts, mapping)
	key := mappingKey(mapping.Provider, mapping.TransactionID)
	if _, exists := m.mappings[key]; exists {
		return nil
	}
	m.mappings[key] = mapping
	return nil
}

func (m *MockTransactionMappingRepository) FindUserID(ctx context.Context, provider vo.Provider, transactionID string) (uint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if transactionID == "" {
		return 0, nil
	}
	if mapping, ok := m.mappings[mappingKey(provider, transactionID)]; ok {
		return mapping.UserID, nil
	}
	for _, mapping := range m.mappings {
		if mapping.Provider == provider && mapping.OriginalTransactionID == transactionID {
			return mapping.UserID, nil
		}
	}
	return 0, nil
}

func mappingKey(provider vo.Provider, transactionID string) string {
	return fmt.Sprintf("%s:%s", provider, transactionID)
}

// MockWebhookEventRepository is an in-memory dedup ledger.
type MockWebhookEventRepository struct {
	mu        sync.RWMutex
	seen      map[string]bool
	Processed []ProcessedMark

	RecordError error
}

// ProcessedMark is one MarkProcessed call.
type ProcessedMark struct {
	Provider vo.Provider
	EventID  string
	Err      error
}

func NewMockWebhookEventRepository() *MockWebhookEventRepository {
	return &MockWebhookEventRepository{
		seen: make(map[string]bool),
	}
}

func (m *MockWebhookEventRepository) Record(ctx context.Context, event *subscription.WebhookEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordError != nil {
		return m.RecordError
	}
	key := fmt.Sprintf("%s:%s", event.Provider, event.EventID)
	if m.seen[key] {
		return subscription.ErrDuplicateEvent
	}
	m.seen[key] = true
	return nil
}

func (m *MockWebhookEventRepository) MarkProcessed(ctx context.Context, provider vo.Provider, eventID string, processingErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Processed = append(m.Processed, ProcessedMark{Provider: provider, EventID: eventID, Err: processingErr})
	return nil
}

// MockReceiptVerifier returns canned facts for any receipt.
type MockReceiptVerifier struct {
	Facts subscription.Facts
	Err   error

	Receipts []string
}

func (m *MockReceiptVerifier) VerifyReceipt(ctx context.Context, receipt string) (subscription.Facts, error) {
	m.Receipts = append(m.Receipts, receipt)
	if m.Err != nil {
		return subscription.Facts{}, m.Err
	}
	return m.Facts, nil
}

// MockPaymentGateway returns canned facts and records cancellations.
type MockPaymentGateway struct {
	Facts    subscription.Facts
	FetchErr error

	CancelErr  error
	Cancelled  []string
	FetchedIDs []string
}

func (m *MockPaymentGateway) FetchSubscription(ctx context.Context, subscriptionID string) (subscription.Facts, error) {
	m.FetchedIDs = append(m.FetchedIDs, subscriptionID)
	if m.FetchErr != nil {
		return subscription.Facts{}, m.FetchErr
	}
	return m.Facts, nil
}

func (m *MockPaymentGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	m.Cancelled = append(m.Cancelled, subscriptionID)
	return m.CancelErr
}

// MockAppStoreDecoder returns a canned provider event for any body.
type MockAppStoreDecoder struct {
	Event *subscription.ProviderEvent
	Err   error
}

func (m *MockAppStoreDecoder) DecodeNotification(body []byte) (*subscription.ProviderEvent, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Event, nil
}

// MockStripeDecoder returns a canned provider event for any payload.
type MockStripeDecoder struct {
	Event *subscription.ProviderEvent
	Err   error
}

func (m *MockStripeDecoder) Decode(payload []byte, signatureHeader string) (*subscription.ProviderEvent, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Event, nil
}

// MockEntitlementCache is an in-memory entitlement cache.
type MockEntitlementCache struct {
	mu       sync.RWMutex
	statuses map[uint]vo.Status

	SetError    error
	GetError    error
	Invalidated []uint
}

func NewMockEntitlementCache() *MockEntitlementCache {
	return &MockEntitlementCache{
		statuses: make(map[uint]vo.Status),
	}
}

func (m *MockEntitlementCache) GetStatus(ctx context.Context, userID uint) (vo.Status, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetError != nil {
		return vo.StatusNone, false, m.GetError
	}
	status, ok := m.statuses[userID]
	if !ok {
		return vo.StatusNone, false, nil
	}
	return status, true, nil
}

func (m *MockEntitlementCache) SetStatus(ctx context.Context, userID uint, status vo.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetError != nil {
		return m.SetError
	}
	m.statuses[userID] = status
	return nil
}

func (m *MockEntitlementCache) Invalidate(ctx context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invalidated = append(m.Invalidated, userID)
	delete(m.statuses, userID)
	return nil
}

// Status returns the cached status for assertions.
func (m *MockEntitlementCache) Status(userID uint) (vo.Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.statuses[userID]
	return status, ok
}

// MockLogger records log calls and implements logger.Interface.
type MockLogger struct {
	mu      sync.RWMutex
	entries []LogEntry
}

// LogEntry records one log call.
type LogEntry struct {
	Level   string
	Message string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) log(level, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, LogEntry{Level: level, Message: msg})
}

func (m *MockLogger) Debug(msg string, args ...any) { m.log("DEBUG", msg) }
func (m *MockLogger) Info(msg string, args ...any)  { m.log("INFO", msg) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.log("WARN", msg) }
func (m *MockLogger) Error(msg string, args ...any) { m.log("ERROR", msg) }
func (m *MockLogger) Fatal(msg string, args ...any) { m.log("FATAL", msg) }

func (m *MockLogger) Debugw(msg string, keysAndValues ...interface{}) { m.log("DEBUG", msg) }
func (m *MockLogger) Infow(msg string, keysAndValues ...interface{})  { m.log("INFO", msg) }
func (m *MockLogger) Warnw(msg string, keysAndValues ...interface{})  { m.log("WARN", msg) }
func (m *MockLogger) Errorw(msg string, keysAndValues ...interface{}) { m.log("ERROR", msg) }
func (m *MockLogger) Fatalw(msg string, keysAndValues ...interface{}) { m.log("FATAL", msg) }

func (m *MockLogger) With(args ...any) logger.Interface  { return m }
func (m *MockLogger) Named(name string) logger.Interface { return m }

// Entries returns the recorded log calls.
func (m *MockLogger) Entries() []LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]LogEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
