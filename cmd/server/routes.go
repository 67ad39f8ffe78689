package main

import (
	"net/http"

	"github.com/forgo/shepherd/api/internal/handler"
	"github.com/forgo/shepherd/api/internal/middleware"
)

// routeDeps is everything the HTTP surface needs
type routeDeps struct {
	db            handler.Pinger
	authService   authenticator
	users         middleware.UserLookup
	hub           handler.StreamHub
	members       handler.MemberOperations
	dashboard     handler.DashboardBuilder
	donations     handler.DonationOperations
	prayers       handler.PrayerOperations
	events        handler.EventOperations
	achievements  handler.AchievementOperations
	notifications handler.NotificationOperations
	readingPlans  handler.ReadingPlanOperations
	volunteer     handler.VolunteerOperations
	audit         handler.AuditLog
	leads         handler.LeadOperations
	insights      handler.InsightsReporter
	email         handler.EmailOperations
}

// authenticator is the full auth surface: token validation plus the auth endpoints
type authenticator interface {
	middleware.AuthService
	handler.Authenticator
}

func registerRoutes(mux *http.ServeMux, d routeDeps) {
	authMW := middleware.Auth(d.authService)
	staffMW := middleware.RequireStaff(d.users)
	adminMW := middleware.RequireAdmin(d.users)

	member := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	staff := func(h http.HandlerFunc) http.Handler { return authMW(staffMW(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(adminMW(h)) }

	authHandler := handler.NewAuthHandler(d.authService)
	memberHandler := handler.NewMemberHandler(d.members)
	dashboardHandler := handler.NewDashboardHandler(d.dashboard)
	donationHandler := handler.NewDonationHandler(d.donations)
	prayerHandler := handler.NewPrayerHandler(d.prayers)
	eventHandler := handler.NewEventHandler(d.events)
	achievementHandler := handler.NewAchievementHandler(d.achievements)
	notificationHandler := handler.NewNotificationHandler(d.notifications, d.hub)
	readingPlanHandler := handler.NewReadingPlanHandler(d.readingPlans)
	volunteerHandler := handler.NewVolunteerHandler(d.volunteer)
	auditHandler := handler.NewAuditHandler(d.audit)
	leadHandler := handler.NewLeadHandler(d.leads)
	insightsHandler := handler.NewInsightsHandler(d.insights)
	emailHandler := handler.NewEmailHandler(d.email)

	// Health check (public)
	mux.HandleFunc("GET /health", handler.Health(d.db))

	// Auth endpoints (public)
	mux.HandleFunc("POST /v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /v1/auth/refresh", authHandler.Refresh)
	mux.Handle("POST /v1/auth/logout", member(authHandler.Logout))

	// Profile and directory
	mux.Handle("GET /v1/me", member(memberHandler.Me))
	mux.Handle("PATCH /v1/me", member(memberHandler.UpdateMe))
	mux.Handle("GET /v1/me/dashboard", member(dashboardHandler.Get))
	mux.Handle("GET /v1/directory", member(memberHandler.Directory))
	mux.Handle("PATCH /v1/admin/members/{id}/role", admin(memberHandler.SetRole))

	// Giving
	mux.Handle("POST /v1/donations/checkout", member(donationHandler.Checkout))
	mux.HandleFunc("POST /v1/webhooks/stripe", donationHandler.Webhook)
	mux.Handle("GET /v1/me/donations", member(donationHandler.Mine))
	mux.Handle("GET /v1/admin/donations", staff(donationHandler.List))
	mux.Handle("POST /v1/admin/donations", staff(donationHandler.Record))
	mux.Handle("PATCH /v1/admin/donations/{id}", admin(donationHandler.UpdateStatus))

	// Prayer wall
	mux.Handle("POST /v1/prayers", member(prayerHandler.Create))
	mux.Handle("GET /v1/prayers", member(prayerHandler.Wall))
	mux.Handle("GET /v1/me/prayers", member(prayerHandler.Mine))
	mux.Handle("GET /v1/prayers/{id}", member(prayerHandler.Get))
	mux.Handle("PATCH /v1/prayers/{id}", member(prayerHandler.Update))
	mux.Handle("DELETE /v1/prayers/{id}", member(prayerHandler.Delete))
	mux.Handle("POST /v1/prayers/{id}/answer", member(prayerHandler.Answer))
	mux.Handle("POST /v1/prayers/{id}/archive", member(prayerHandler.Archive))
	mux.Handle("POST /v1/prayers/{id}/pray", member(prayerHandler.Pray))
	mux.Handle("GET /v1/prayers/{id}/partners", member(prayerHandler.Partners))
	mux.Handle("GET /v1/admin/prayers", staff(prayerHandler.AdminList))
	mux.Handle("PATCH /v1/admin/prayers/{id}", staff(prayerHandler.Moderate))
	mux.Handle("DELETE /v1/admin/prayers/{id}", staff(prayerHandler.Remove))
	mux.Handle("POST /v1/admin/prayers/{id}/match", staff(prayerHandler.Match))

	// Events
	mux.Handle("GET /v1/events", member(eventHandler.List))
	mux.Handle("GET /v1/events/{id}", member(eventHandler.Get))
	mux.Handle("PUT /v1/events/{id}/rsvp", member(eventHandler.RSVP))
	mux.Handle("DELETE /v1/events/{id}/rsvp", member(eventHandler.CancelRSVP))
	mux.Handle("GET /v1/me/events", member(eventHandler.Mine))
	mux.Handle("POST /v1/admin/events", staff(eventHandler.Create))
	mux.Handle("PATCH /v1/admin/events/{id}", staff(eventHandler.Update))
	mux.Handle("POST /v1/admin/events/{id}/cancel", staff(eventHandler.Cancel))

	// Achievements
	mux.Handle("GET /v1/achievements", member(achievementHandler.Catalog))
	mux.Handle("GET /v1/me/achievements", member(achievementHandler.Mine))
	mux.Handle("POST /v1/admin/members/{id}/achievements", admin(achievementHandler.Award))

	// Notifications
	mux.Handle("GET /v1/me/notifications", member(notificationHandler.List))
	mux.Handle("GET /v1/me/notifications/stream", member(notificationHandler.Stream))
	mux.Handle("POST /v1/me/notifications/read-all", member(notificationHandler.MarkAllRead))
	mux.Handle("POST /v1/me/notifications/{id}/read", member(notificationHandler.MarkRead))
	mux.Handle("DELETE /v1/me/notifications/{id}", member(notificationHandler.Delete))

	// Reading plans
	mux.Handle("GET /v1/reading-plans", member(readingPlanHandler.List))
	mux.Handle("GET /v1/reading-plans/{id}", member(readingPlanHandler.Get))
	mux.Handle("POST /v1/reading-plans/{id}/enroll", member(readingPlanHandler.Enroll))
	mux.Handle("POST /v1/reading-plans/{id}/days/{day}/complete", member(readingPlanHandler.CompleteDay))
	mux.Handle("GET /v1/me/reading-plans", member(readingPlanHandler.Mine))
	mux.Handle("POST /v1/admin/reading-plans", staff(readingPlanHandler.Create))
	mux.Handle("DELETE /v1/admin/reading-plans/{id}", staff(readingPlanHandler.Delete))

	// Volunteering
	mux.Handle("GET /v1/volunteer/opportunities", member(volunteerHandler.ListOpportunities))
	mux.Handle("GET /v1/volunteer/opportunities/{id}", member(volunteerHandler.GetOpportunity))
	mux.Handle("POST /v1/volunteer/shifts/{id}/signup", member(volunteerHandler.SignUp))
	mux.Handle("DELETE /v1/volunteer/shifts/{id}/signup", member(volunteerHandler.CancelSignup))
	mux.Handle("GET /v1/me/volunteer", member(volunteerHandler.Mine))
	mux.Handle("POST /v1/admin/volunteer/opportunities", staff(volunteerHandler.CreateOpportunity))
	mux.Handle("PATCH /v1/admin/volunteer/opportunities/{id}", staff(volunteerHandler.UpdateOpportunity))
	mux.Handle("POST /v1/admin/volunteer/opportunities/{id}/shifts", staff(volunteerHandler.AddShift))

	// Audit log
	mux.Handle("GET /v1/admin/audit", admin(auditHandler.List))

	// Leads
	mux.HandleFunc("POST /v1/connect", leadHandler.Connect)
	mux.Handle("GET /v1/admin/leads", staff(leadHandler.List))
	mux.Handle("PATCH /v1/admin/leads/{id}", staff(leadHandler.Update))
	mux.Handle("POST /v1/admin/leads/{id}/score", staff(leadHandler.Score))

	// Insights
	mux.Handle("GET /v1/admin/insights", staff(insightsHandler.Get))

	// Email composer
	mux.Handle("GET /v1/admin/email/templates", staff(emailHandler.ListTemplates))
	mux.Handle("POST /v1/admin/email/templates", staff(emailHandler.CreateTemplate))
	mux.Handle("GET /v1/admin/email/templates/{id}", staff(emailHandler.GetTemplate))
	mux.Handle("PATCH /v1/admin/email/templates/{id}", staff(emailHandler.UpdateTemplate))
	mux.Handle("DELETE /v1/admin/email/templates/{id}", staff(emailHandler.DeleteTemplate))
	mux.Handle("POST /v1/admin/email/preview", staff(emailHandler.Preview))
	mux.Handle("GET /v1/admin/email/campaigns", staff(emailHandler.ListCampaigns))
	mux.Handle("POST /v1/admin/email/campaigns", staff(emailHandler.Compose))
	mux.Handle("GET /v1/admin/email/campaigns/{id}", staff(emailHandler.GetCampaign))
	mux.Handle("POST /v1/admin/email/campaigns/{id}/send", staff(emailHandler.Send))
}
