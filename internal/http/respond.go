package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ruraldata/internal/core"
)

// errorResponse is the uniform error body: a machine-readable kind plus a
// human-readable message, and the offending field when one is known.
type errorResponse struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
}

type pagination struct {
	Total    int `json:"total"`
	Limit    int `json:"limit"`
	Offset   int `json:"offset"`
	Returned int `json:"returned"`
}

type pageResponse struct {
	Data       []core.InvestmentRecord `json:"data"`
	Pagination pagination              `json:"pagination"`
}

func newPageResponse(page core.Page) pageResponse {
	return pageResponse{
		Data: page.Records,
		Pagination: pagination{
			Total:    page.Total,
			Limit:    page.Limit,
			Offset:   page.Offset,
			Returned: page.Returned(),
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// statusForKind maps error kinds onto HTTP statuses: structurally invalid
// requests are 400, semantically unprocessable ones 422, store trouble 500.
func statusForKind(kind core.ErrorKind) int {
	switch kind {
	case core.ErrInvalidRange, core.ErrEvaluationTimeout:
		return http.StatusUnprocessableEntity
	case core.ErrStoreUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	var qe *core.QueryError
	if !errors.As(err, &qe) {
		slog.ErrorContext(r.Context(), "Unexpected handler error", "error", err, "url", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			ErrorKind: "internal",
			Message:   "internal server error",
		})
		return
	}

	status := statusForKind(qe.Kind)
	if qe.Kind == core.ErrStoreUnavailable {
		w.Header().Set("Retry-After", "10")
	}
	if status >= 500 {
		slog.ErrorContext(r.Context(), "Query failed", "error_kind", string(qe.Kind), "error", qe.Reason, "url", r.URL.Path)
	} else {
		slog.WarnContext(r.Context(), "Query rejected", "error_kind", string(qe.Kind), "field", qe.Field, "error", qe.Reason, "url", r.URL.Path)
	}

	writeJSON(w, status, errorResponse{
		ErrorKind: string(qe.Kind),
		Message:   qe.Reason,
		Field:     qe.Field,
	})
}
