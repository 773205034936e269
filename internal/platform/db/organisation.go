package db

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	OrganisationIDKey contextKey = "organisation_id"
	DBConnKey         contextKey = "db_conn"
)

// OrganisationResolver reports the organisation the current request acts for.
type OrganisationResolver func(c echo.Context) (int64, bool)

// OrganisationMiddleware pins one pooled connection to the request and scopes
// it to the acting organisation through the app.organisation_id setting that
// the row level security policies read.
func OrganisationMiddleware(pool *pgxpool.Pool, resolve OrganisationResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			orgID, ok := resolve(c)
			if !ok {
				return next(c)
			}

			ctx, release, err := Pin(c.Request().Context(), pool, orgID)
			if errors.Is(err, errAcquire) {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable").SetInternal(err)
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "organisation scoping failed").SetInternal(err)
			}
			defer release()

			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

var errAcquire = errors.New("acquire connection")

// Pin acquires a connection scoped to orgID and stores it on the returned
// context. release resets the scope and returns the connection to the pool.
func Pin(ctx context.Context, pool *pgxpool.Pool, orgID int64) (context.Context, func(), error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("%w: %v", errAcquire, err)
	}
	release := func() {
		_, _ = conn.Exec(context.Background(), `RESET app.organisation_id`)
		conn.Release()
	}

	if _, err := conn.Exec(ctx, `SELECT set_config('app.organisation_id', $1, false)`,
		strconv.FormatInt(orgID, 10)); err != nil {
		release()
		return ctx, nil, fmt.Errorf("set organisation scope: %w", err)
	}

	ctx = WithOrganisation(ctx, orgID)
	return context.WithValue(ctx, DBConnKey, conn), release, nil
}

// WithOrganisation stores the acting organisation id on ctx.
func WithOrganisation(ctx context.Context, orgID int64) context.Context {
	return context.WithValue(ctx, OrganisationIDKey, orgID)
}

// ConnFromContext retrieves the organisation-scoped connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// OrganisationFromContext returns the organisation id, or 0 when unset.
func OrganisationFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(OrganisationIDKey).(int64)
	return id
}
