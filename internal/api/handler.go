// Package api provides the HTTP handlers for the rate analytics REST API.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"ratelens/internal/domain"
	"ratelens/internal/service/dataset"
	"ratelens/internal/service/insights"
	"ratelens/internal/service/navigator"
)

// Handler owns the route handlers; services do the work.
type Handler struct {
	navigator *navigator.Service
	datasets  *dataset.Service
	insights  *insights.Service
	logger    *slog.Logger
}

// NewHandler creates a Handler over the three services. insights may be nil
// when no local rates source is configured.
func NewHandler(nav *navigator.Service, datasets *dataset.Service, ins *insights.Service, logger *slog.Logger) *Handler {
	return &Handler{
		navigator: nav,
		datasets:  datasets,
		insights:  ins,
		logger:    logger.With("component", "api"),
	}
}

// GetFilterOptions handles GET /api/filters.
func (h *Handler) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.navigator.FilterOptions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, options)
}

// SearchPartitions handles GET /api/partitions.
func (h *Handler) SearchPartitions(w http.ResponseWriter, r *http.Request) {
	descriptors, err := h.navigator.SearchPartitions(r.Context(), filterParams(r.URL.Query()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"partitions": descriptors,
		"count":      len(descriptors),
	})
}

// PartitionSummary handles GET /api/partitions/summary. Summaries are
// ungated: a partial filter set still aggregates everything it matches.
func (h *Handler) PartitionSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.navigator.SummarizePartitions(r.Context(), filterParams(r.URL.Query()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// CombineDataset handles POST /api/datasets/combine. With ?format=csv the
// merged dataset streams back as CSV instead of JSON.
func (h *Handler) CombineDataset(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCombineRequest(w, r)
	if !ok {
		return
	}
	ds, err := h.datasets.Combine(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", ds.Summary.LoadID+".csv"))
		if err := dataset.ExportCSV(w, ds); err != nil {
			h.logger.Error("csv export aborted", "load_id", ds.Summary.LoadID, "error", err)
		}
		return
	}
	h.writeJSON(w, http.StatusOK, ds)
}

// AnalyzeDataset handles POST /api/datasets/analyze: runs the combine
// pipeline and returns a profile of the result instead of the rows.
func (h *Handler) AnalyzeDataset(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCombineRequest(w, r)
	if !ok {
		return
	}
	ds, err := h.datasets.Combine(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"analysis":     dataset.Analyze(ds),
		"load_summary": ds.Summary,
	})
}

// InsightsUniqueValues handles GET /api/insights/values.
func (h *Handler) InsightsUniqueValues(w http.ResponseWriter, r *http.Request) {
	if h.insights == nil {
		h.writeError(w, r, domain.ErrValidation("insights source not configured"))
		return
	}
	q := r.URL.Query()
	values, err := h.insights.UniqueValues(r.Context(), q.Get("source"), q.Get("column"), insightFilters(q))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"values": values})
}

// InsightsStats handles GET /api/insights/stats.
func (h *Handler) InsightsStats(w http.ResponseWriter, r *http.Request) {
	if h.insights == nil {
		h.writeError(w, r, domain.ErrValidation("insights source not configured"))
		return
	}
	q := r.URL.Query()
	stats, err := h.insights.AggregatedStats(r.Context(), q.Get("source"), insightFilters(q))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// InsightsSample handles GET /api/insights/sample.
func (h *Handler) InsightsSample(w http.ResponseWriter, r *http.Request) {
	if h.insights == nil {
		h.writeError(w, r, domain.ErrValidation("insights source not configured"))
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	rows, err := h.insights.SampleRecords(r.Context(), q.Get("source"), insightFilters(q), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": rows,
		"count":   len(rows),
	})
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decodeCombineRequest(w http.ResponseWriter, r *http.Request) (dataset.CombineRequest, bool) {
	// Enrichment is opt-out.
	req := dataset.CombineRequest{Enrich: true}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body: %v", err))
		return req, false
	}
	return req, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, map[string]interface{}{
		"code":    status,
		"message": err.Error(),
	})
}

// filterParams keeps only recognized filter fields from a query string, so
// unrelated query params never trip the resolver.
func filterParams(q url.Values) map[string][]string {
	raw := make(map[string][]string)
	for _, field := range allFilterFields() {
		if values, ok := q[field]; ok {
			raw[field] = values
		}
	}
	return raw
}

func allFilterFields() []string {
	fields := make([]string, 0, 9)
	fields = append(fields, domain.RequiredFilterFields...)
	fields = append(fields, domain.OptionalFilterFields...)
	fields = append(fields, domain.TemporalFilterFields...)
	return fields
}

// insightFilters collects col=value pairs from the reserved "f." prefix,
// e.g. ?f.billing_code=99213.
func insightFilters(q url.Values) insights.Filters {
	filters := make(insights.Filters)
	for key, values := range q {
		if len(key) > 2 && key[:2] == "f." && len(values) > 0 {
			filters[key[2:]] = values[0]
		}
	}
	return filters
}
