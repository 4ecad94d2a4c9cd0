package portfolio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/portfoliocms/internal/apperr"
	"github.com/2beens/portfoliocms/internal/telemetry/tracing"
	"github.com/2beens/portfoliocms/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=portfolio_mocks_test.go -package=portfolio_test

const errStoreUnavailable = "firebase_unavailable"

type portfolioService interface {
	Tree(ctx context.Context) (map[string]any, error)
	AddEntry(ctx context.Context, category string, entry any) (string, error)
	UpdateEntry(ctx context.Context, category, itemID string, fields map[string]any) error
	DeleteEntry(ctx context.Context, category, itemID string) error
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

type Handler struct {
	service portfolioService
}

func NewHandler(service portfolioService) *Handler {
	return &Handler{
		service: service,
	}
}

// SetupRoutes registers the JSON API. Session checks for the mutating routes
// are done by the auth middleware.
func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/api/data", handler.HandleGetData).Methods("GET").Name("get-portfolio")
	r.HandleFunc("/api/{category}", handler.HandleAddEntry).Methods("POST").Name("add-entry")
	r.HandleFunc("/api/{category}/{itemId}", handler.HandleUpdateEntry).Methods("PUT", "POST").Name("update-entry")
	r.HandleFunc("/api/{category}/{itemId}", handler.HandleDeleteEntry).Methods("DELETE").Name("delete-entry")
}

func (handler *Handler) HandleGetData(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.portfolio.data")
	defer span.End()

	tree, err := handler.service.Tree(ctx)
	if err != nil {
		writeError(w, "get portfolio", err)
		return
	}

	pkg.WriteJSON(w, http.StatusOK, tree)
}

func (handler *Handler) HandleAddEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.portfolio.add")
	defer span.End()

	category := mux.Vars(r)["category"]
	entry, err := decodeBody(r)
	if err != nil {
		writeError(w, "add entry", err)
		return
	}

	id, err := handler.service.AddEntry(ctx, category, entry)
	if err != nil {
		writeError(w, "add entry", err)
		return
	}

	log.Debugf("portfolio entry added to [%s] %s", category, id)
	pkg.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, ID: id})
}

func (handler *Handler) HandleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.portfolio.update")
	defer span.End()

	vars := mux.Vars(r)
	category, itemID := vars["category"], vars["itemId"]

	body, err := decodeBody(r)
	if err != nil {
		writeError(w, "update entry", err)
		return
	}
	// a non-object body ends up as an empty update, which the service rejects
	fields, _ := body.(map[string]any)

	if err := handler.service.UpdateEntry(ctx, category, itemID, fields); err != nil {
		writeError(w, "update entry", err)
		return
	}

	log.Debugf("portfolio entry updated [%s/%s]", category, itemID)
	pkg.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (handler *Handler) HandleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.portfolio.delete")
	defer span.End()

	vars := mux.Vars(r)
	category, itemID := vars["category"], vars["itemId"]

	if err := handler.service.DeleteEntry(ctx, category, itemID); err != nil {
		writeError(w, "delete entry", err)
		return
	}

	log.Debugf("portfolio entry deleted [%s/%s]", category, itemID)
	pkg.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// decodeBody reads the JSON request body. A missing body or JSON null is
// treated as an empty object.
func decodeBody(r *http.Request) (any, error) {
	if r.Body == nil {
		return map[string]any{}, nil
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, apperr.InvalidInput("read body", err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return map[string]any{}, nil
	}

	var body any
	if err := json.Unmarshal(content, &body); err != nil {
		return nil, apperr.InvalidInput("decode body", fmt.Errorf("invalid json body: %w", err))
	}
	if body == nil {
		return map[string]any{}, nil
	}

	return body, nil
}

func writeError(w http.ResponseWriter, op string, err error) {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindUnavailable:
		log.Warnf("%s: %s", op, err)
		pkg.WriteJSONError(w, kind.HTTPStatus(), errStoreUnavailable)
	case apperr.KindInvalidInput:
		log.Debugf("%s: %s", op, err)
		pkg.WriteJSONError(w, kind.HTTPStatus(), apperr.Message(err))
	default:
		log.Errorf("%s: %s", op, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, apperr.Message(err))
	}
}
