package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type OrganisationStatus string

const (
	OrganisationLive     OrganisationStatus = "Live"
	OrganisationArchived OrganisationStatus = "Archived"
)

type Organisation struct {
	ID         int64              `json:"id"`
	UUID       string             `json:"uuid"`
	Name       string             `json:"name"`
	DBUser     string             `json:"dbUser"`
	SchemaName string             `json:"schemaName"`
	Status     OrganisationStatus `json:"status"`
}

type User struct {
	ID             int64  `json:"id"`
	UUID           string `json:"uuid"`
	Username       string `json:"username"`
	OrganisationID int64  `json:"organisationId"`
	OrgAdmin       bool   `json:"orgAdmin"`
	Admin          bool   `json:"admin"`
}

// UserContext is the acting user and organisation of one request. It is
// built once by UserContextMiddleware and handed explicitly to services.
type UserContext struct {
	User         User
	Organisation Organisation
}

func (uc UserContext) OrganisationID() int64 { return uc.Organisation.ID }

// Roles derives the coarse roles checked by RequireRole.
func (uc UserContext) Roles() []string {
	roles := []string{"user"}
	if uc.User.OrgAdmin {
		roles = append(roles, "organisation_admin")
	}
	if uc.User.Admin {
		roles = append(roles, "admin")
	}
	return roles
}

const userContextKey contextKey = "user_context"

var (
	ErrNoUserContext = errors.New("no user context for request")
	ErrUnknownUser   = errors.New("unknown user")
)

func WithUserContext(ctx context.Context, uc UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

func UserContextFrom(ctx context.Context) (UserContext, bool) {
	uc, ok := ctx.Value(userContextKey).(UserContext)
	return uc, ok
}

// RequireUserContext is the handler-side accessor; a missing context is a 401.
func RequireUserContext(ctx context.Context) (UserContext, error) {
	uc, ok := UserContextFrom(ctx)
	if !ok {
		return UserContext{}, echo.NewHTTPError(http.StatusUnauthorized, ErrNoUserContext.Error())
	}
	return uc, nil
}

// UserResolver loads the user and organisation for an authenticated username.
// Implementations return ErrUnknownUser when no active user matches.
type UserResolver interface {
	ResolveUser(ctx context.Context, username string) (UserContext, error)
}

// UserContextMiddleware turns the username left by JWTMiddleware or
// DevAuthMiddleware into a UserContext. Archived organisations are refused.
func UserContextMiddleware(resolver UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			username := UsernameFromContext(ctx)
			if username == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "no authenticated user")
			}

			uc, err := resolver.ResolveUser(ctx, username)
			if errors.Is(err, ErrUnknownUser) {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "resolve user").SetInternal(err)
			}
			if uc.Organisation.Status == OrganisationArchived {
				return echo.NewHTTPError(http.StatusForbidden, "organisation is archived")
			}

			c.SetRequest(c.Request().WithContext(WithUserContext(ctx, uc)))
			return next(c)
		}
	}
}

// OrganisationOf is a db.OrganisationResolver reading the request's UserContext.
func OrganisationOf(c echo.Context) (int64, bool) {
	uc, ok := UserContextFrom(c.Request().Context())
	if !ok || uc.Organisation.ID == 0 {
		return 0, false
	}
	return uc.Organisation.ID, true
}
