package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/shepherd/api/internal/format"
	"github.com/forgo/shepherd/api/internal/insights"
	"github.com/forgo/shepherd/api/internal/model"
)

// ============================================================================
// Mock Mailer
// ============================================================================

type mockMailer struct {
	sent    []Message
	sendErr error
}

func (m *mockMailer) Send(ctx context.Context, msg Message) (string, error) {
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.sent = append(m.sent, msg)
	return "msg-1", nil
}

var ruth = model.Recipient{UserID: "user:ruth", Email: "ruth@example.com", Firstname: "Ruth", Lastname: "Moab"}

// ============================================================================
// Renderer Tests
// ============================================================================

func TestPersonalize(t *testing.T) {
	t.Parallel()

	r := NewRenderer("Grace Chapel", "")

	got := r.Personalize("Dear {{first_name}} {{last_name}}, welcome to {{church_name}}", ruth)
	assert.Equal(t, "Dear Ruth Moab, welcome to Grace Chapel", got)

	got = r.Personalize("Hi {{first_name}}", model.Recipient{Email: "x@example.com"})
	assert.Equal(t, "Hi friend", got)
}

func TestRender_Layouts(t *testing.T) {
	t.Parallel()

	r := NewRenderer("Grace Chapel", "https://grace.example.com")

	tests := []struct {
		layout model.EmailLayout
		marker string
	}{
		{model.LayoutAnnouncement, "Announcement"},
		{model.LayoutNewsletter, "Grace Chapel Newsletter"},
		{model.LayoutPlain, "<p style"},
	}

	for _, tt := range tests {
		t.Run(string(tt.layout), func(t *testing.T) {
			t.Parallel()
			msg, err := r.Render(context.Background(), tt.layout, "Hello {{first_name}}", "Line one\n\nLine two", ruth)
			require.NoError(t, err)

			assert.Equal(t, "Hello Ruth", msg.Subject)
			assert.Contains(t, msg.HTML, "<!DOCTYPE html>")
			assert.Contains(t, msg.HTML, tt.marker)
			assert.Contains(t, msg.HTML, "Line one")
			assert.Contains(t, msg.HTML, "Line two")
			assert.Contains(t, msg.HTML, "https://grace.example.com/me/settings")
			assert.Contains(t, msg.Text, "Line two")
		})
	}
}

func TestRender_EscapesBody(t *testing.T) {
	t.Parallel()

	r := NewRenderer("Grace <Chapel>", "")
	msg, err := r.Render(context.Background(), model.LayoutPlain, "Hi", "<script>alert(1)</script>", ruth)
	require.NoError(t, err)

	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
	assert.Contains(t, msg.HTML, "Grace &lt;Chapel&gt;")
}

func TestSplitParagraphs(t *testing.T) {
	t.Parallel()

	got := splitParagraphs("a\r\nb\r\n\r\n\n\nc\n\n  ")
	assert.Equal(t, []string{"a\nb", "c"}, got)
}

// ============================================================================
// Mailer Tests
// ============================================================================

func TestLogMailer(t *testing.T) {
	t.Parallel()

	m := NewLogMailer(nil)
	_, err := m.Send(context.Background(), Message{To: "a@example.com", Subject: "s"})
	assert.NoError(t, err)

	_, err = m.Send(context.Background(), Message{Subject: "s"})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

// ============================================================================
// Transactional Tests
// ============================================================================

func newTransactional(m Mailer) *Transactional {
	return NewTransactional(NewRenderer("Grace Chapel", ""), m, format.New("en-US"))
}

func TestWelcome(t *testing.T) {
	t.Parallel()

	m := &mockMailer{}
	require.NoError(t, newTransactional(m).Welcome(context.Background(), ruth))

	require.Len(t, m.sent, 1)
	assert.Equal(t, "ruth@example.com", m.sent[0].To)
	assert.Equal(t, "Welcome to Grace Chapel", m.sent[0].Subject)
	assert.Equal(t, "welcome", m.sent[0].Tags["kind"])
}

func TestDonationReceipt(t *testing.T) {
	t.Parallel()

	m := &mockMailer{}
	done := time.Date(2026, 4, 5, 10, 0, 0, 0, time.UTC)
	d := &model.Donation{ID: "donation:abc", AmountCents: 12550, Currency: "usd", Fund: model.FundMissions, CompletedOn: &done}

	require.NoError(t, newTransactional(m).DonationReceipt(context.Background(), ruth, d))

	require.Len(t, m.sent, 1)
	assert.Contains(t, m.sent[0].Text, "125.50")
	assert.Contains(t, m.sent[0].Text, "missions")
	assert.Contains(t, m.sent[0].Text, "April 5, 2026")
	assert.Contains(t, m.sent[0].Text, "donation:abc")
}

func TestDigest(t *testing.T) {
	t.Parallel()

	m := &mockMailer{}
	report := &insights.Report{
		WindowDays: 7,
		Insights: []insights.Insight{
			{Metric: insights.MetricGivingTotal, Message: "Giving is up +30.0%."},
		},
	}

	require.NoError(t, newTransactional(m).Digest(context.Background(), "staff@example.com", report))

	require.Len(t, m.sent, 1)
	assert.Equal(t, "Grace Chapel activity digest", m.sent[0].Subject)
	assert.True(t, strings.Contains(m.sent[0].HTML, "Giving is up +30.0%."))
}

func TestTransactional_MailerError(t *testing.T) {
	t.Parallel()

	m := &mockMailer{sendErr: errors.New("down")}
	err := newTransactional(m).Welcome(context.Background(), ruth)
	assert.EqualError(t, err, "down")
}
