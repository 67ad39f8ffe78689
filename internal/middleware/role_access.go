package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/forgo/shepherd/api/internal/model"
)

// UserLookup loads the member record; nil, nil when it is gone
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// RoleKey holds the role RequireRole verified
const RoleKey contextKey = "role"

func GetRole(ctx context.Context) model.UserRole {
	role, _ := ctx.Value(RoleKey).(model.UserRole)
	return role
}

// RequireStaff admits staff and admins
func RequireStaff(users UserLookup) Middleware {
	return RequireRole(users, model.UserRoleStaff, model.UserRoleAdmin)
}

func RequireAdmin(users UserLookup) Middleware {
	return RequireRole(users, model.UserRoleAdmin)
}

// RequireRole admits callers holding one of allowed and must run after Auth.
// The role is read from the member record on every request so a demotion
// takes effect before the access token expires. With a nil lookup the
// token's role claim is used instead.
func RequireRole(users UserLookup, allowed ...model.UserRole) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := GetUserID(ctx)
			if userID == "" {
				model.NewUnauthorizedError("authentication required").WriteJSON(w)
				return
			}

			role, problem := resolveRole(ctx, users, userID)
			if problem != nil {
				problem.WriteJSON(w)
				return
			}
			if !slices.Contains(allowed, role) {
				model.NewForbiddenError("insufficient role").WithCode(model.ErrCodeStaffOnly).WriteJSON(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, RoleKey, role)))
		})
	}
}

func resolveRole(ctx context.Context, users UserLookup, userID string) (model.UserRole, *model.ProblemDetails) {
	if users == nil {
		if claims := GetClaims(ctx); claims != nil && claims.Role != "" {
			return model.UserRole(claims.Role), nil
		}
		return model.UserRoleMember, nil
	}

	user, err := users.GetByID(ctx, userID)
	switch {
	case err != nil:
		slog.ErrorContext(ctx, "role lookup failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		return "", model.NewInternalError("")
	case user == nil:
		return "", model.NewUnauthorizedError("account no longer exists")
	}
	return user.Role, nil
}
