package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrecho-v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/deppfellow/blogtemplates/internal/errs"
	"github.com/deppfellow/blogtemplates/internal/server"
)

// TracingMiddleware owns the New Relic echo middleware. nrApp is nil when
// New Relic is disabled.
type TracingMiddleware struct {
	server *server.Server
	nrApp  *newrelic.Application
}

func NewTracingMiddleware(s *server.Server, nrApp *newrelic.Application) *TracingMiddleware {
	return &TracingMiddleware{
		server: s,
		nrApp:  nrApp,
	}
}

// NewRelicMiddleware starts a transaction per request, or passes requests
// through untouched when New Relic is disabled.
func (tm *TracingMiddleware) NewRelicMiddleware() echo.MiddlewareFunc {
	if tm.nrApp == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}
	return nrecho.Middleware(tm.nrApp)
}

// EnhanceTracing adds request attributes to the transaction and notices
// returned errors. It must run after NewRelicMiddleware.
func (tm *TracingMiddleware) EnhanceTracing() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			txn := newrelic.FromContext(c.Request().Context())
			if txn == nil {
				return next(c)
			}

			txn.AddAttribute("http.real_ip", c.RealIP())
			txn.AddAttribute("http.user_agent", c.Request().UserAgent())
			txn.AddAttribute("store.table_prefix", tm.server.Tables.Prefix)
			if requestID := GetRequestID(c); requestID != "" {
				txn.AddAttribute("request.id", requestID)
			}

			err := next(c)

			// Path params are only known once the router matched.
			if id := c.Param("id"); id != "" {
				txn.AddAttribute(resourceAttribute(c.Path()), id)
			}
			if err != nil {
				txn.NoticeError(nrpkgerrors.Wrap(err))
				if kind := errs.KindOf(err); kind != nil {
					txn.AddAttribute("store.error_kind", kind.Error())
				}
			}

			txn.AddAttribute("http.status_code", c.Response().Status)
			return err
		}
	}
}

// resourceAttribute names the id attribute after the route's resource:
// store.category_id under /api/v1/categories, store.template_id otherwise.
func resourceAttribute(route string) string {
	if strings.HasPrefix(route, "/api/v1/categories") {
		return "store.category_id"
	}
	return "store.template_id"
}
