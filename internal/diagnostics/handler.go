// Package diagnostics exposes two unauthenticated routes reporting the state
// of the store connection. They reveal the database URL and the service
// account project id, so production deployments may switch them off with
// diagnostics_disabled.
package diagnostics

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/portfoliocms/internal/apperr"
	"github.com/2beens/portfoliocms/internal/connector"
	"github.com/2beens/portfoliocms/internal/telemetry/tracing"
	"github.com/2beens/portfoliocms/pkg"
)

// DBTestResponse is the /db_test body on success. sample_preview is always
// present, null for an empty store.
type DBTestResponse struct {
	Connected     bool `json:"connected"`
	SamplePreview any  `json:"sample_preview"`
}

type DBTestErrorResponse struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error"`
}

// ProbeResult is either {ok, sample_preview} or {ok, error}; the two shapes
// never mix.
type ProbeResult struct {
	OK            bool
	SamplePreview any
	Error         string
}

func (p ProbeResult) MarshalJSON() ([]byte, error) {
	if !p.OK {
		return json.Marshal(struct {
			OK    bool   `json:"ok"`
			Error string `json:"error"`
		}{Error: p.Error})
	}
	return json.Marshal(struct {
		OK            bool `json:"ok"`
		SamplePreview any  `json:"sample_preview"`
	}{OK: true, SamplePreview: p.SamplePreview})
}

type StatusResponse struct {
	DatabaseURL             string      `json:"database_url"`
	StoreBackend            string      `json:"store_backend"`
	ServiceAccountProjectID string      `json:"service_account_project_id,omitempty"`
	DBTest                  ProbeResult `json:"db_test"`
}

type Handler struct {
	connector *connector.Connector
}

func NewHandler(conn *connector.Connector) *Handler {
	return &Handler{
		connector: conn,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/db_test", handler.HandleDBTest).Methods("GET").Name("db-test")
	r.HandleFunc("/firebase_status", handler.HandleStatus).Methods("GET").Name("firebase-status")
}

// HandleDBTest reads the whole store root.
func (handler *Handler) HandleDBTest(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.diagnostics.dbtest")
	defer span.End()

	root, err := handler.connector.RootRef(ctx)
	if err != nil {
		log.Warnf("db test: %s", err)
		pkg.WriteJSON(w, http.StatusInternalServerError, DBTestErrorResponse{Error: apperr.Message(err)})
		return
	}

	sample, err := root.Get(ctx)
	if err != nil {
		log.Warnf("db test, get root: %s", err)
		pkg.WriteJSON(w, http.StatusInternalServerError, DBTestErrorResponse{Error: err.Error()})
		return
	}

	pkg.WriteJSON(w, http.StatusOK, DBTestResponse{
		Connected:     true,
		SamplePreview: sample,
	})
}

// HandleStatus reports the connection settings and probes the portfolio
// subtree. It always responds with 200; failures show up in db_test.
func (handler *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.diagnostics.status")
	defer span.End()

	status := StatusResponse{
		DatabaseURL:             handler.connector.DatabaseURL(),
		StoreBackend:            string(handler.connector.Backend()),
		ServiceAccountProjectID: handler.connector.ServiceAccountProjectID(),
	}

	ref, err := handler.connector.PortfolioRef(ctx)
	if err == nil {
		var sample any
		if sample, err = ref.Get(ctx); err == nil {
			status.DBTest = ProbeResult{OK: true, SamplePreview: sample}
		}
	}
	if err != nil {
		status.DBTest = ProbeResult{Error: apperr.Message(err)}
	}

	pkg.WriteJSON(w, http.StatusOK, status)
}
