package email

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/forgo/shepherd/api/internal/model"
)

// Renderer turns a subject and body into a finished message for one recipient
type Renderer struct {
	churchName string
	baseURL    string
}

// NewRenderer creates a renderer that signs messages with churchName
func NewRenderer(churchName, baseURL string) *Renderer {
	return &Renderer{churchName: churchName, baseURL: baseURL}
}

// ChurchName returns the name used in placeholders and footers
func (r *Renderer) ChurchName() string {
	return r.churchName
}

// Personalize replaces {{first_name}}, {{last_name}} and {{church_name}}
func (r *Renderer) Personalize(s string, to model.Recipient) string {
	first := to.Firstname
	if first == "" {
		first = "friend"
	}
	return strings.NewReplacer(
		"{{first_name}}", first,
		"{{last_name}}", to.Lastname,
		"{{church_name}}", r.churchName,
	).Replace(s)
}

// Render personalizes subject and body and wraps the body in layout.
// Body text is split into paragraphs on blank lines and HTML-escaped.
func (r *Renderer) Render(ctx context.Context, layout model.EmailLayout, subject, body string, to model.Recipient) (*model.RenderedEmail, error) {
	subject = r.Personalize(subject, to)
	body = r.Personalize(body, to)

	p := page{
		ChurchName: r.churchName,
		BaseURL:    r.baseURL,
		Subject:    subject,
		Paragraphs: splitParagraphs(body),
		Preheader:  preheader(body),
	}

	var buf bytes.Buffer
	if err := layoutFor(layout, p).Render(ctx, &buf); err != nil {
		return nil, fmt.Errorf("render %s layout: %w", layout, err)
	}

	return &model.RenderedEmail{
		Subject: subject,
		HTML:    buf.String(),
		Text:    plainText(subject, p.Paragraphs, r.churchName),
	}, nil
}

func splitParagraphs(body string) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	var out []string
	for _, chunk := range strings.Split(body, "\n\n") {
		if chunk = strings.TrimSpace(chunk); chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

func preheader(body string) string {
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(body), "\n", 2)[0])
	if r := []rune(line); len(r) > 90 {
		return string(r[:90]) + "…"
	}
	return line
}

func plainText(subject string, paras []string, churchName string) string {
	var b strings.Builder
	b.WriteString(subject)
	b.WriteString("\n\n")
	for _, p := range paras {
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	b.WriteString("-- \n")
	b.WriteString(churchName)
	b.WriteString("\n")
	return b.String()
}
