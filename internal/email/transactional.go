package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/forgo/shepherd/api/internal/format"
	"github.com/forgo/shepherd/api/internal/insights"
	"github.com/forgo/shepherd/api/internal/model"
)

// Transactional sends the fixed system messages
type Transactional struct {
	renderer *Renderer
	mailer   Mailer
	fmt      *format.Formatter
}

// NewTransactional creates a sender for system messages
func NewTransactional(renderer *Renderer, mailer Mailer, f *format.Formatter) *Transactional {
	return &Transactional{renderer: renderer, mailer: mailer, fmt: f}
}

func (t *Transactional) send(ctx context.Context, layout model.EmailLayout, subject, body string, to model.Recipient, kind string) error {
	msg, err := t.renderer.Render(ctx, layout, subject, body, to)
	if err != nil {
		return err
	}
	_, err = t.mailer.Send(ctx, Message{
		To:      to.Email,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
		Tags:    map[string]string{"kind": kind},
	})
	return err
}

// Welcome greets a newly registered member
func (t *Transactional) Welcome(ctx context.Context, to model.Recipient) error {
	body := "Hi {{first_name}},\n\n" +
		"Welcome to {{church_name}}! Your account is ready. You can update your profile, " +
		"join a reading plan, RSVP to events and share prayer requests from your dashboard.\n\n" +
		"We're glad you're here."
	return t.send(ctx, model.LayoutPlain, "Welcome to {{church_name}}", body, to, "welcome")
}

// DonationReceipt thanks a giver for a completed gift
func (t *Transactional) DonationReceipt(ctx context.Context, to model.Recipient, d *model.Donation) error {
	amount := t.fmt.Money(d.AmountCents, d.Currency)
	date := d.CreatedOn
	if d.CompletedOn != nil {
		date = *d.CompletedOn
	}

	body := fmt.Sprintf("Hi {{first_name}},\n\n"+
		"Thank you for your gift of %s to the %s fund on %s.\n\n"+
		"Reference: %s\n\n"+
		"Please keep this email for your records.",
		amount, d.Fund, date.Format("January 2, 2006"), d.ID)
	return t.send(ctx, model.LayoutPlain, "Thank you for your gift", body, to, "receipt")
}

// Digest sends an insights report to a staff address
func (t *Transactional) Digest(ctx context.Context, to string, report *insights.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is how the last %d days compare with the %d days before.\n\n", report.WindowDays, report.WindowDays)
	if len(report.Insights) == 0 {
		b.WriteString("No activity was recorded in either period.")
	}
	for _, in := range report.Insights {
		b.WriteString(in.Message)
		b.WriteString("\n\n")
	}
	return t.send(ctx, model.LayoutNewsletter, "{{church_name}} activity digest", b.String(), model.Recipient{Email: to, Firstname: "team"}, "digest")
}
