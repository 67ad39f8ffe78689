package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/shepherd/api/internal/filter"
	"github.com/forgo/shepherd/api/internal/model"
	"github.com/forgo/shepherd/api/internal/payments"
)

// ============================================================================
// Fakes
// ============================================================================

type memDonationRepo struct {
	mu        sync.Mutex
	donations map[string]*model.Donation
	seq       int
}

func newMemDonationRepo() *memDonationRepo {
	return &memDonationRepo{donations: make(map[string]*model.Donation)}
}

func (m *memDonationRepo) Create(ctx context.Context, d *model.Donation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	d.ID = fmt.Sprintf("donation:%d", m.seq)
	if d.CreatedOn.IsZero() {
		d.CreatedOn = testNow
	}
	cp := *d
	m.donations[d.ID] = &cp
	return nil
}

func (m *memDonationRepo) GetByID(ctx context.Context, id string) (*model.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.donations[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (m *memDonationRepo) GetByCheckoutSession(ctx context.Context, sessionID string) (*model.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.donations {
		if d.CheckoutSessionID != nil && *d.CheckoutSessionID == sessionID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memDonationRepo) SetCheckoutSession(ctx context.Context, id, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.donations[id].CheckoutSessionID = &sessionID
	return nil
}

func (m *memDonationRepo) UpdateStatus(ctx context.Context, id string, status model.DonationStatus) (*model.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donations[id]
	if !ok {
		return nil, nil
	}
	d.Status = status
	cp := *d
	return &cp, nil
}

func (m *memDonationRepo) SettlePending(ctx context.Context, id string, status model.DonationStatus) (*model.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donations[id]
	if !ok || d.Status != model.DonationPending {
		return nil, nil
	}
	d.Status = status
	cp := *d
	return &cp, nil
}

func (m *memDonationRepo) ListByMember(ctx context.Context, memberID string, page model.PageRequest) (*model.Page[*model.Donation], error) {
	return &model.Page[*model.Donation]{PageRequest: page}, nil
}

func (m *memDonationRepo) List(ctx context.Context, cond filter.Condition, page model.PageRequest) (*model.Page[*model.Donation], error) {
	return &model.Page[*model.Donation]{PageRequest: page}, nil
}

func (m *memDonationRepo) Summary(ctx context.Context, memberID string, from, to time.Time) (int64, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	var count int
	for _, d := range m.donations {
		if d.MemberID == nil || *d.MemberID != memberID || d.Status != model.DonationCompleted {
			continue
		}
		if d.CreatedOn.Before(from) || !d.CreatedOn.Before(to) {
			continue
		}
		total += d.AmountCents
		count++
	}
	return total, count, nil
}

type fakeProvider struct {
	input      payments.CheckoutInput
	checkout   error
	event      *payments.WebhookEvent
	webhookErr error
}

func (p *fakeProvider) CreateCheckout(ctx context.Context, in payments.CheckoutInput) (*payments.CheckoutSession, error) {
	p.input = in
	if p.checkout != nil {
		return nil, p.checkout
	}
	return &payments.CheckoutSession{ID: "cs_test_" + in.DonationID, URL: "https://checkout.example/" + in.DonationID}, nil
}

func (p *fakeProvider) ParseWebhook(payload []byte, signature string) (*payments.WebhookEvent, error) {
	if p.webhookErr != nil {
		return nil, p.webhookErr
	}
	return p.event, nil
}

type mapUsers map[string]*model.User

func (m mapUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	return m[id], nil
}

type recordingReceipts struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingReceipts) DonationReceipt(ctx context.Context, to model.Recipient, d *model.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, to.Email+"|"+d.ID)
	return nil
}

type donationFixture struct {
	svc      *DonationService
	repo     *memDonationRepo
	provider *fakeProvider
	receipts *recordingReceipts
	notifier *recordingNotifier
	checker  *countingChecker
	auditor  *recordingAuditor
}

func newDonationFixture(withProvider bool) *donationFixture {
	f := &donationFixture{
		repo:     newMemDonationRepo(),
		provider: &fakeProvider{},
		receipts: &recordingReceipts{},
		notifier: &recordingNotifier{},
		checker:  &countingChecker{},
		auditor:  &recordingAuditor{},
	}
	cfg := DonationServiceConfig{
		Repo:         f.repo,
		Users:        mapUsers{"user:1": {ID: "user:1", Email: "lydia@example.org"}},
		Receipts:     f.receipts,
		Notifier:     f.notifier,
		Achievements: f.checker,
		Auditor:      f.auditor,
		Now:          fixedNow,
	}
	if withProvider {
		cfg.Provider = f.provider
	}
	f.svc = NewDonationService(cfg)
	return f
}

// ============================================================================
// Checkout
// ============================================================================

func TestDonationCheckout_CreatesPendingGiftAndSession(t *testing.T) {
	t.Parallel()

	f := newDonationFixture(true)

	result, err := f.svc.Checkout(context.Background(), "user:1", &model.CheckoutRequest{
		AmountCents: 2500, Fund: "missions", Frequency: "monthly",
	})

	require.NoError(t, err)
	assert.Equal(t, model.DonationPending, result.Donation.Status)
	assert.Equal(t, "https://checkout.example/"+result.Donation.ID, result.CheckoutURL)
	assert.True(t, f.provider.input.Monthly)
	assert.Equal(t, "lydia@example.org", f.provider.input.Email)
	stored, _ := f.repo.GetByID(context.Background(), result.Donation.ID)
	require.NotNil(t, stored.CheckoutSessionID)
	assert.Equal(t, "cs_test_"+result.Donation.ID, *stored.CheckoutSessionID)
}

func TestDonationCheckout_Rejections(t *testing.T) {
	t.Parallel()

	t.Run("payments unconfigured", func(t *testing.T) {
		t.Parallel()
		f := newDonationFixture(false)
		_, err := f.svc.Checkout(context.Background(), "user:1", &model.CheckoutRequest{AmountCents: 2500, Fund: "general", Frequency: "one_time"})
		assert.ErrorIs(t, err, ErrPaymentsUnavailable)
	})

	t.Run("amount below minimum", func(t *testing.T) {
		t.Parallel()
		f := newDonationFixture(true)
		_, err := f.svc.Checkout(context.Background(), "user:1", &model.CheckoutRequest{AmountCents: 99, Fund: "general", Frequency: "one_time"})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("provider failure marks the gift failed", func(t *testing.T) {
		t.Parallel()
		f := newDonationFixture(true)
		f.provider.checkout = errors.New("card network down")

		_, err := f.svc.Checkout(context.Background(), "user:1", &model.CheckoutRequest{AmountCents: 2500, Fund: "general", Frequency: "one_time"})

		assert.ErrorIs(t, err, ErrPaymentProvider)
		require.Len(t, f.repo.donations, 1)
		for _, d := range f.repo.donations {
			assert.Equal(t, model.DonationFailed, d.Status)
		}
	})
}

// ============================================================================
// Webhook
// ============================================================================

func TestDonationWebhook_CompletesOnce(t *testing.T) {
	t.Parallel()

	f := newDonationFixture(true)
	ctx := context.Background()
	result, err := f.svc.Checkout(ctx, "user:1", &model.CheckoutRequest{AmountCents: 5000, Fund: "general", Frequency: "one_time"})
	require.NoError(t, err)

	f.provider.event = &payments.WebhookEvent{
		ID:        "evt_1",
		Type:      payments.EventCheckoutCompleted,
		SessionID: *result.Donation.CheckoutSessionID,
	}
	require.NoError(t, f.svc.HandleWebhook(ctx, []byte("{}"), "sig"))
	require.NoError(t, f.svc.HandleWebhook(ctx, []byte("{}"), "sig"))

	stored, _ := f.repo.GetByID(ctx, result.Donation.ID)
	assert.Equal(t, model.DonationCompleted, stored.Status)
	assert.Equal(t, []string{"lydia@example.org|" + result.Donation.ID}, f.receipts.sent)
	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0].Body, "$50.00")
	assert.Equal(t, 1, f.checker.count("user:1"))
}

func TestDonationWebhook_ConcurrentRedeliverySettlesOnce(t *testing.T) {
	t.Parallel()

	f := newDonationFixture(true)
	ctx := context.Background()
	result, err := f.svc.Checkout(ctx, "user:1", &model.CheckoutRequest{AmountCents: 5000, Fund: "general", Frequency: "one_time"})
	require.NoError(t, err)

	f.provider.event = &payments.WebhookEvent{
		ID:        "evt_1",
		Type:      payments.EventCheckoutCompleted,
		SessionID: *result.Donation.CheckoutSessionID,
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.svc.HandleWebhook(ctx, []byte("{}"), "sig")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Len(t, f.receipts.sent, 1)
	assert.Len(t, f.notifier.sent, 1)
	assert.Equal(t, 1, f.checker.count("user:1"))
}

func TestDonationWebhook_ExpiredFallsBackToClientReference(t *testing.T) {
	t.Parallel()

	f := newDonationFixture(true)
	ctx := context.Background()
	d := &model.Donation{AmountCents: 1000, Status: model.DonationPending}
	require.NoError(t, f.repo.Create(ctx, d))

	f.provider.event = &payments.WebhookEvent{ID: "evt_2", Type: payments.EventCheckoutExpired, SessionID: "cs_unknown", ClientReferenceID: d.ID}
	require.NoError(t, f.svc.HandleWebhook(ctx, nil, "sig"))

	stored, _ := f.repo.GetByID(ctx, d.ID)
	assert.Equal(t, model.DonationFailed, stored.Status)
	assert.Empty(t, f.receipts.sent)
}

func TestDonationWebhook_AcknowledgesUnknownAndIgnored(t *testing.T) {
	t.Parallel()

	f := newDonationFixture(true)

	f.provider.event = &payments.WebhookEvent{ID: "evt_3", Type: "invoice.paid"}
	assert.NoError(t, f.svc.HandleWebhook(context.Background(), nil, "sig"))

	f.provider.event = &payments.WebhookEvent{ID: "evt_4", Type: payments.EventCheckoutCompleted, SessionID: "cs_nobody"}
	assert.NoError(t, f.svc.HandleWebhook(context.Background(), nil, "sig"))
}

func TestDonationWebhook_BadSignature(t *testing.T) {
	t.Parallel()

	f := newDonationFixture(true)
	f.provider.webhookErr = fmt.Errorf("%w: timestamp too old", payments.ErrInvalidSignature)

	err := f.svc.HandleWebhook(context.Background(), nil, "sig")

	assert.ErrorIs(t, err, ErrInvalidWebhook)
}

// ============================================================================
// History / Record / Status
// ============================================================================

func TestDonationYearSummary_CountsCompletedThisYear(t *testing.T) {
	t.Parallel()

	f := newDonationFixture(true)
	ctx := context.Background()
	member := "user:1"
	for _, d := range []*model.Donation{
		{MemberID: &member, AmountCents: 1000, Status: model.DonationCompleted, CreatedOn: testNow.AddDate(0, -1, 0)},
		{MemberID: &member, AmountCents: 2550, Status: model.DonationCompleted, CreatedOn: testNow},
		{MemberID: &member, AmountCents: 9999, Status: model.DonationPending, CreatedOn: testNow},
		{MemberID: &member, AmountCents: 7000, Status: model.DonationCompleted, CreatedOn: testNow.AddDate(-1, 0, 0)},
	} {
		require.NoError(t, f.repo.Create(ctx, d))
	}

	summary, err := f.svc.YearSummary(ctx, member)

	require.NoError(t, err)
	assert.Equal(t, model.GivingSummary{Year: 2026, TotalCents: 3550, TotalFormatted: "$35.50", GiftCount: 2}, summary)
}

func TestDonationRecord_OfflineGiftCompletedAndAudited(t *testing.T) {
	t.Parallel()

	f := newDonationFixture(false)
	member := "user:1"

	d, err := f.svc.Record(context.Background(), "user:treasurer", &model.RecordDonationRequest{
		MemberID: &member, AmountCents: 10000, Fund: "building", Method: "check",
	})

	require.NoError(t, err)
	assert.Equal(t, model.DonationCompleted, d.Status)
	assert.Equal(t, "usd", d.Currency)
	assert.Equal(t, []string{model.AuditDonationRecord}, f.auditor.actions())
	assert.Len(t, f.receipts.sent, 1)
}

func TestDonationRecord_UnknownMember(t *testing.T) {
	t.Parallel()

	f := newDonationFixture(false)
	ghost := "user:404"

	_, err := f.svc.Record(context.Background(), "user:treasurer", &model.RecordDonationRequest{
		MemberID: &ghost, AmountCents: 10000, Fund: "general", Method: "cash",
	})

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, f.auditor.actions())
}

func TestDonationUpdateStatus_Refund(t *testing.T) {
	t.Parallel()

	f := newDonationFixture(false)
	ctx := context.Background()
	d := &model.Donation{AmountCents: 1000, Status: model.DonationCompleted}
	require.NoError(t, f.repo.Create(ctx, d))

	updated, err := f.svc.UpdateStatus(ctx, "user:admin", d.ID, &model.UpdateDonationStatusRequest{Status: "refunded", Note: "duplicate charge"})

	require.NoError(t, err)
	assert.Equal(t, model.DonationRefunded, updated.Status)
	require.Len(t, f.auditor.records, 1)
	assert.Equal(t, "duplicate charge", f.auditor.records[0].Detail["note"])

	_, err = f.svc.UpdateStatus(ctx, "user:admin", d.ID, &model.UpdateDonationStatusRequest{Status: "lost"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
