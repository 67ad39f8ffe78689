package handler

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/forgo/shepherd/api/internal/model"
	"github.com/forgo/shepherd/api/internal/service"
)

// problemRule maps a group of service sentinels to one problem shape
type problemRule struct {
	match []error
	build func(err error) *model.ProblemDetails
}

func detail(fn func(string) *model.ProblemDetails) func(error) *model.ProblemDetails {
	return func(err error) *model.ProblemDetails { return fn(err.Error()) }
}

func missing(resource string) func(error) *model.ProblemDetails {
	return func(error) *model.ProblemDetails { return model.NewNotFoundError(resource) }
}

func invalidField(field string) func(error) *model.ProblemDetails {
	return func(err error) *model.ProblemDetails {
		return model.NewValidationError([]model.FieldError{{Field: field, Message: err.Error()}})
	}
}

func full(resource string) func(error) *model.ProblemDetails {
	return func(error) *model.ProblemDetails { return model.NewCapacityError(resource, 0, 0) }
}

// problemRules is checked in order; the first rule with a matching
// sentinel wins
var problemRules = []problemRule{
	{[]error{service.ErrInvalidCredentials}, func(err error) *model.ProblemDetails {
		return model.NewUnauthorizedError(err.Error()).WithCode(model.ErrCodeLoginFailed)
	}},
	{[]error{service.ErrInvalidRefreshToken, service.ErrRefreshTokenExpired, service.ErrRefreshTokenRevoked},
		detail(model.NewUnauthorizedError)},

	{[]error{service.ErrForbidden, service.ErrNotPrayerAuthor}, detail(model.NewForbiddenError)},

	{[]error{service.ErrUserNotFound}, missing("member")},
	{[]error{service.ErrDonationNotFound}, missing("donation")},
	{[]error{service.ErrPrayerNotFound}, missing("prayer request")},
	{[]error{service.ErrEventNotFound}, missing("event")},
	{[]error{service.ErrRSVPNotFound}, missing("RSVP")},
	{[]error{service.ErrAchievementNotFound}, missing("achievement")},
	{[]error{service.ErrNotificationNotFound}, missing("notification")},
	{[]error{service.ErrReadingPlanNotFound}, missing("reading plan")},
	{[]error{service.ErrNotEnrolled}, missing("reading plan enrollment")},
	{[]error{service.ErrOpportunityNotFound}, missing("volunteer opportunity")},
	{[]error{service.ErrShiftNotFound}, missing("shift")},
	{[]error{service.ErrSignupNotFound}, missing("signup")},
	{[]error{service.ErrLeadNotFound}, missing("lead")},
	{[]error{service.ErrTemplateNotFound}, missing("email template")},
	{[]error{service.ErrCampaignNotFound}, missing("campaign")},

	{[]error{service.ErrEventFull}, full("event")},
	{[]error{service.ErrShiftFull}, full("shift")},
	{[]error{
		service.ErrEmailAlreadyExists, service.ErrTemplateKeyExists,
		service.ErrAlreadyPrayed, service.ErrAlreadyEnrolled, service.ErrAlreadySignedUp,
		service.ErrPrayerNotActive, service.ErrEventCancelled, service.ErrEventStarted,
		service.ErrShiftStarted, service.ErrOpportunityInactive, service.ErrCampaignNotDraft,
	}, detail(model.NewConflictError)},

	{[]error{
		service.ErrInvalidEmail, service.ErrPasswordRequired, service.ErrPasswordTooShort,
		service.ErrPasswordTooLong, service.ErrPasswordTooWeak,
	}, invalidField("credentials")},
	{[]error{service.ErrInvalidAmount}, invalidField("amount_cents")},
	{[]error{service.ErrInvalidStatus}, invalidField("status")},
	{[]error{service.ErrInvalidRole}, invalidField("role")},
	{[]error{service.ErrInvalidTimes}, invalidField("end_time")},
	{[]error{service.ErrInvalidDay}, invalidField("day")},
	{[]error{service.ErrNoRecipients}, invalidField("audience")},
	{[]error{service.ErrNoPartnerMatches}, invalidField("partners")},
	{[]error{service.ErrInvalidInput}, invalidField("input")},

	{[]error{service.ErrInvalidFilter}, func(err error) *model.ProblemDetails {
		return model.NewInvalidFilterError(strings.TrimPrefix(err.Error(), service.ErrInvalidFilter.Error()+": "))
	}},
	{[]error{service.ErrInvalidWindow, service.ErrInvalidWebhook}, detail(model.NewBadRequestError)},

	{[]error{service.ErrPaymentProvider, service.ErrAIUpstream}, detail(model.NewBadGatewayError)},
	{[]error{service.ErrPaymentsUnavailable, service.ErrAIUnavailable}, detail(model.NewServiceUnavailableError)},
}

// MapServiceError turns a service error into the problem the client sees.
// Anything unrecognised is a 500 with no detail.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	var capErr *service.CapacityError
	if errors.As(err, &capErr) {
		return model.NewCapacityError(capErr.Resource, capErr.Limit, capErr.Current)
	}

	for _, rule := range problemRules {
		for _, target := range rule.match {
			if errors.Is(err, target) {
				return rule.build(err)
			}
		}
	}
	return model.NewInternalError("")
}

// MapServiceErrorWithContext logs unmapped errors under operation and
// names the operation in the 500 detail
func MapServiceErrorWithContext(err error, operation string) *model.ProblemDetails {
	pd := MapServiceError(err)
	if pd != nil && pd.Status == 500 {
		slog.Error("unhandled service error", "operation", operation, "error", err)
		pd.Detail = operation + ": an unexpected error occurred"
	}
	return pd
}
