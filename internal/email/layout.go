package email

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/forgo/shepherd/api/internal/model"
)

// page holds what every layout needs to draw a message
type page struct {
	ChurchName string
	BaseURL    string
	Subject    string
	Paragraphs []string
	Preheader  string
}

const baseStyle = "font-family:Georgia,serif;color:#2b2b2b;line-height:1.6;"

// layoutFor returns the component for a layout name, defaulting to plain
func layoutFor(layout model.EmailLayout, p page) templ.Component {
	switch layout {
	case model.LayoutAnnouncement:
		return shell(p, announcementBody(p))
	case model.LayoutNewsletter:
		return shell(p, newsletterBody(p))
	default:
		return shell(p, plainBody(p))
	}
}

func shell(p page, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width"><title>`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, templ.EscapeString(p.Subject)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</title></head><body style="margin:0;background:#f4f1ea;">`); err != nil {
			return err
		}
		if p.Preheader != "" {
			if _, err := io.WriteString(w, `<div style="display:none;max-height:0;overflow:hidden;">`+templ.EscapeString(p.Preheader)+`</div>`); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<table role="presentation" width="100%" cellpadding="0" cellspacing="0"><tr><td align="center" style="padding:24px;"><table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;`+baseStyle+`">`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		if err := footer(p).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</table></td></tr></table></body></html>`)
		return err
	})
}

func paragraphs(items []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, para := range items {
			lines := strings.Split(para, "\n")
			for i := range lines {
				lines[i] = templ.EscapeString(lines[i])
			}
			if _, err := io.WriteString(w, `<p style="margin:0 0 16px;">`+strings.Join(lines, "<br>")+`</p>`); err != nil {
				return err
			}
		}
		return nil
	})
}

func announcementBody(p page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<tr><td style="background:#5b3a29;color:#ffffff;padding:28px 32px;"><p style="margin:0;font-size:13px;letter-spacing:2px;text-transform:uppercase;">Announcement</p><h1 style="margin:8px 0 0;font-size:26px;">`+templ.EscapeString(p.Subject)+`</h1></td></tr><tr><td style="padding:28px 32px;">`); err != nil {
			return err
		}
		if err := paragraphs(p.Paragraphs).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</td></tr>`)
		return err
	})
}

func newsletterBody(p page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<tr><td style="padding:24px 32px;border-bottom:3px solid #c8a96a;"><p style="margin:0;font-size:14px;color:#7a6a58;">`+templ.EscapeString(p.ChurchName)+` Newsletter</p><h1 style="margin:6px 0 0;font-size:24px;">`+templ.EscapeString(p.Subject)+`</h1></td></tr>`); err != nil {
			return err
		}
		// Each paragraph is its own section row
		for _, para := range p.Paragraphs {
			if _, err := io.WriteString(w, `<tr><td style="padding:20px 32px 4px;">`); err != nil {
				return err
			}
			if err := paragraphs([]string{para}).Render(ctx, w); err != nil {
				return err
			}
			if _, err := io.WriteString(w, `</td></tr>`); err != nil {
				return err
			}
		}
		return nil
	})
}

func plainBody(p page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<tr><td style="padding:28px 32px;">`); err != nil {
			return err
		}
		if err := paragraphs(p.Paragraphs).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</td></tr>`)
		return err
	})
}

func footer(p page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<tr><td style="padding:20px 32px;background:#faf8f3;font-size:12px;color:#8a8a8a;">`)
		b.WriteString(templ.EscapeString(p.ChurchName))
		if p.BaseURL != "" {
			b.WriteString(` &middot; <a href="`)
			b.WriteString(templ.EscapeString(strings.TrimRight(p.BaseURL, "/") + "/me/settings"))
			b.WriteString(`" style="color:#8a8a8a;">Email preferences</a>`)
		}
		b.WriteString(`</td></tr>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
