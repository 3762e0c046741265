package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ruraldata/internal/core"
	"ruraldata/internal/filter"
	"ruraldata/internal/storage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap, err := s.handle.Current()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "empty"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"generation_id": snap.Generation.ID,
		"record_count":  len(snap.Records),
		"loaded_at":     snap.Generation.LoadedAt,
	})
}

type schemaResponse struct {
	Fields     []core.Field        `json:"fields"`
	Dimensions []string            `json:"dimensions"`
	Generation *storage.Generation `json:"generation,omitempty"`
	Values     map[string][]string `json:"values,omitempty"`
}

// handleSchema describes the queryable fields, and when a generation is
// loaded, the distinct values of each categorical field.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	resp := schemaResponse{
		Fields:     core.SchemaFields(),
		Dimensions: core.AggregationDimensions(),
	}
	if snap, err := s.handle.Current(); err == nil {
		gen := snap.Generation
		resp.Generation = &gen
		resp.Values = make(map[string][]string)
		for _, f := range resp.Fields {
			if f.Kind == core.KindCategorical {
				resp.Values[f.Name] = snap.DistinctValues(f.Name)
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type queryRequest struct {
	Filters filter.Spec `json:"filters"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
}

// handleQueryInvestments evaluates a nested filter posted as JSON.
func (s *Server) handleQueryInvestments(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeBody(r, &req); err != nil {
		writeQueryError(w, r, err)
		return
	}

	snap, err := s.handle.Current()
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	compiled, err := filter.Compile(req.Filters, s.limits, snap)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	start := time.Now()
	page, err := s.executor.Execute(r.Context(), snap, compiled, req.Limit, req.Offset)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	s.qlog.LogQueryExecuted(r.Context(), compiled.Canonical(), page.Total, time.Since(start).Milliseconds())
	writeJSON(w, http.StatusOK, newPageResponse(page))
}

// handleListInvestments is the query-string shorthand: field=value equality,
// field_min/field_max ranges, plus limit and offset.
func (s *Server) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	spec, limit, offset, err := parseListParams(r.URL.Query())
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	snap, err := s.handle.Current()
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	compiled, err := filter.Compile(spec, s.limits, snap)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	start := time.Now()
	page, err := s.executor.Execute(r.Context(), snap, compiled, limit, offset)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	s.qlog.LogQueryExecuted(r.Context(), compiled.Canonical(), page.Total, time.Since(start).Milliseconds())
	writeJSON(w, http.StatusOK, newPageResponse(page))
}

type summaryRequest struct {
	Dimension string      `json:"dimension"`
	Filters   filter.Spec `json:"filters"`
}

type summaryResponse struct {
	Dimension string       `json:"dimension"`
	Groups    []core.Group `json:"groups"`
}

// handleSummaryQuery aggregates matching records over a grouping dimension.
func (s *Server) handleSummaryQuery(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := decodeBody(r, &req); err != nil {
		writeQueryError(w, r, err)
		return
	}

	dim, ok := core.LookupDimension(req.Dimension)
	if !ok {
		writeQueryError(w, r, core.NewUnknownField(req.Dimension))
		return
	}

	snap, err := s.handle.Current()
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	compiled, err := filter.Compile(req.Filters, s.limits, snap)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	groups, err := s.executor.Aggregate(r.Context(), snap, dim, compiled)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Dimension: dim.Name, Groups: groups})
}

// handleAggregation is the GET shorthand for a summary over one dimension,
// with equality filters from the query string.
func (s *Server) handleAggregation(w http.ResponseWriter, r *http.Request) {
	dim, ok := core.LookupDimension(r.PathValue("dimension"))
	if !ok {
		writeQueryError(w, r, core.NewUnknownField(r.PathValue("dimension")))
		return
	}

	spec, _, _, err := parseListParams(r.URL.Query())
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	snap, err := s.handle.Current()
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	compiled, err := filter.Compile(spec, s.limits, snap)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	groups, err := s.executor.Aggregate(r.Context(), snap, dim, compiled)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Dimension: dim.Name, Groups: groups})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return core.NewTypeMismatch("", fmt.Sprintf("request body is not valid JSON: %v", err))
	}
	return nil
}

// parseListParams builds a filter specification from query-string parameters.
// A repeated parameter becomes a membership list; field_min and field_max
// merge into a range predicate.
func parseListParams(values url.Values) (filter.Spec, int, int, error) {
	spec := filter.Spec{}
	limit, offset := 0, 0

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		switch key {
		case "limit":
			n, err := strconv.Atoi(vals[0])
			if err != nil || n < 0 {
				return nil, 0, 0, core.NewTypeMismatch("limit", "must be a non-negative integer")
			}
			limit = n
		case "offset":
			n, err := strconv.Atoi(vals[0])
			if err != nil || n < 0 {
				return nil, 0, 0, core.NewTypeMismatch("offset", "must be a non-negative integer")
			}
			offset = n
		default:
			if err := addParam(spec, key, vals); err != nil {
				return nil, 0, 0, err
			}
		}
	}
	return spec, limit, offset, nil
}

func addParam(spec filter.Spec, key string, vals []string) error {
	if field, op, ok := splitRangeParam(key); ok {
		existing, _ := spec[field].(map[string]any)
		if spec[field] != nil && existing == nil {
			return core.NewTypeMismatch(field, "cannot combine equality and range parameters")
		}
		if existing == nil {
			existing = map[string]any{}
			spec[field] = existing
		}
		existing[op] = vals[0]
		return nil
	}

	if _, isRange := spec[key].(map[string]any); isRange {
		return core.NewTypeMismatch(key, "cannot combine equality and range parameters")
	}
	if len(vals) > 1 {
		list := make([]any, len(vals))
		for i, v := range vals {
			list[i] = v
		}
		spec[key] = list
		return nil
	}
	spec[key] = vals[0]
	return nil
}

// splitRangeParam recognizes field_min / field_max parameter names.
func splitRangeParam(key string) (field, op string, ok bool) {
	switch {
	case strings.HasSuffix(key, "_min"):
		return strings.TrimSuffix(key, "_min"), "min", true
	case strings.HasSuffix(key, "_max"):
		return strings.TrimSuffix(key, "_max"), "max", true
	}
	return "", "", false
}
