package web

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/portfoliocms/internal/apperr"
	"github.com/2beens/portfoliocms/internal/auth"
	"github.com/2beens/portfoliocms/internal/telemetry/metrics"
	"github.com/2beens/portfoliocms/internal/telemetry/tracing"
	"github.com/2beens/portfoliocms/pkg"
)

const (
	messageStoreUnavailable = "Portfolio data is currently unavailable."
	messageSessionFailed    = "Could not start a session, please try again."
)

type treeProvider interface {
	Tree(ctx context.Context) (map[string]any, error)
}

type sessionManager interface {
	Start(w http.ResponseWriter, r *http.Request) (*auth.Session, error)
	End(w http.ResponseWriter, r *http.Request)
}

type HandlerParams struct {
	Portfolio      treeProvider
	Sessions       sessionManager
	Renderer       *Renderer
	Singletons     map[string]bool
	CredentialPath string
	MetricsManager *metrics.Manager
}

// Handler serves the HTML pages: the public portfolio, login, admin and logout.
type Handler struct {
	portfolio      treeProvider
	sessions       sessionManager
	renderer       *Renderer
	singletons     map[string]bool
	credentialPath string
	metricsManager *metrics.Manager
}

func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		portfolio:      params.Portfolio,
		sessions:       params.Sessions,
		renderer:       params.Renderer,
		singletons:     params.Singletons,
		credentialPath: params.CredentialPath,
		metricsManager: params.MetricsManager,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/", handler.HandleIndex).Methods("GET").Name("index")
	r.HandleFunc("/login", handler.HandleLogin).Methods("GET", "POST").Name("login")
	r.HandleFunc("/admin", handler.HandleAdmin).Methods("GET").Name("admin")
	r.HandleFunc("/logout", handler.HandleLogout).Methods("GET").Name("logout")
}

// HandleIndex renders the public page. Store failures render an empty portfolio.
func (handler *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.web.index")
	defer span.End()

	tree, err := handler.portfolio.Tree(ctx)
	if err != nil {
		log.Warnf("index: get portfolio: %s", err)
		tree = map[string]any{}
	}

	handler.render(w, http.StatusOK, "index", handler.renderer.buildIndexPage(tree, handler.singletons))
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.web.login")
	defer span.End()

	page := loginPage{Title: "Admin login"}
	if r.Method != http.MethodPost {
		handler.render(w, http.StatusOK, "login", page)
		return
	}

	if err := r.ParseForm(); err != nil {
		log.Debugf("login: parse form: %s", err)
	}
	email := r.PostForm.Get("email")
	password := r.PostForm.Get("password")
	page.Email = email

	cred := auth.LoadAdminCredential(handler.credentialPath)
	if err := auth.Authenticate(email, password, cred); err != nil {
		reqIp, _ := pkg.ReadUserIP(r)
		log.Warnf("failed login attempt from %s: %s", reqIp, err)
		handler.countLogin(loginResult(err))
		page.Error = auth.FailureMessage(err)
		handler.render(w, apperr.KindOf(err).HTTPStatus(), "login", page)
		return
	}

	if _, err := handler.sessions.Start(w, r); err != nil {
		log.Errorf("login: start session: %s", err)
		handler.countLogin("session_error")
		page.Error = messageSessionFailed
		handler.render(w, http.StatusInternalServerError, "login", page)
		return
	}

	handler.countLogin("ok")
	log.Infoln("admin logged in")
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// HandleAdmin renders the admin page. The session check is done by the auth middleware.
func (handler *Handler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.web.admin")
	defer span.End()

	tree, err := handler.portfolio.Tree(ctx)
	storeErr := ""
	if err != nil {
		log.Errorf("admin: get portfolio: %s", err)
		tree = map[string]any{}
		storeErr = messageStoreUnavailable
	}

	page := buildAdminPage(tree, handler.singletons)
	page.Error = storeErr
	handler.render(w, http.StatusOK, "admin", page)
}

func (handler *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	handler.sessions.End(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

// render executes the page before touching the response, so a template
// failure still answers 500 instead of a half written page.
func (handler *Handler) render(w http.ResponseWriter, status int, page string, data any) {
	var buf bytes.Buffer
	if err := handler.renderer.Render(&buf, page, data); err != nil {
		log.Errorf("render page: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", pkg.ContentType.HTML)
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Errorf("write page %s: %s", page, err)
	}
}

func (handler *Handler) countLogin(result string) {
	if handler.metricsManager != nil {
		handler.metricsManager.CounterLoginAttempts.With(prometheus.Labels{"result": result}).Inc()
	}
}

func loginResult(err error) string {
	if auth.FailureMessage(err) == auth.MessageFieldsRequired {
		return "fields_required"
	}
	return "invalid_credentials"
}
