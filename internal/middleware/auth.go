package middleware

import (
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"

	"github.com/2beens/portfoliocms/internal/telemetry/tracing"
	"github.com/2beens/portfoliocms/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=middleware_mocks_test.go -package=middleware_test

type sessionChecker interface {
	IsAuthenticated(r *http.Request) bool
}

// AuthMiddlewareHandler guards the admin surface: mutating API calls need an
// admin session (401 otherwise) and admin pages redirect to the login page.
type AuthMiddlewareHandler struct {
	checker          sessionChecker
	protectedPages   map[string]bool
	apiPrefix        string
	loginPath        string
	publicAPIMethods map[string]bool
}

func NewAuthMiddlewareHandler(checker sessionChecker) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		checker: checker,
		protectedPages: map[string]bool{
			"/admin": true,
		},
		apiPrefix: "/api/",
		loginPath: "/login",
		publicAPIMethods: map[string]bool{
			http.MethodGet:  true,
			http.MethodHead: true,
		},
	}
}

func (h *AuthMiddlewareHandler) isProtectedAPICall(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, h.apiPrefix) && !h.publicAPIMethods[r.Method]
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			protectedPage := h.protectedPages[r.URL.Path]
			protectedAPICall := h.isProtectedAPICall(r)
			if !protectedPage && !protectedAPICall {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			if h.checker.IsAuthenticated(r) {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			if protectedPage {
				log.Tracef("[auth middleware] no session for page %s, redirecting to login", r.URL.Path)
				http.Redirect(w, r, h.loginPath, http.StatusFound)
				span.SetStatus(codes.Ok, "login-redirect")
				return
			}

			reqIp, _ := pkg.ReadUserIP(r)
			log.Debugf("[auth middleware] unauthorized %s %s from %s", r.Method, r.URL.Path, reqIp)
			pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
			span.SetStatus(codes.Error, "not-logged")
		})
	}
}
