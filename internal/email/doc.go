// Package email renders HTML messages with templ layouts and delivers them
// through a Mailer (Resend, or the log when no key is configured).
package email
