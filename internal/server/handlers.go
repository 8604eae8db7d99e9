package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/law-makers/sourcer/internal/batch"
	"github.com/law-makers/sourcer/internal/pipeline"
	"github.com/law-makers/sourcer/internal/source"
	"github.com/law-makers/sourcer/pkg/models"
	"github.com/rs/zerolog/log"
)

// Handlers implements the API endpoints
type Handlers struct {
	runner   batch.Runner
	batch    *batch.Scraper
	maxBatch int
	deliver  bool
}

// NewHandlers creates the API handlers
func NewHandlers(runner batch.Runner, scraper *batch.Scraper, maxBatch int, deliver bool) *Handlers {
	return &Handlers{
		runner:   runner,
		batch:    scraper,
		maxBatch: maxBatch,
		deliver:  deliver,
	}
}

// ScrapeRequest is the body of POST /api/v1/scrape
type ScrapeRequest struct {
	URL     string            `json:"url"`
	Source  string            `json:"source,omitempty"`
	Session string            `json:"session,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Deliver *bool             `json:"deliver,omitempty"`
}

// BatchRequest is the body of POST /api/v1/batch
type BatchRequest struct {
	URLs    []string `json:"urls"`
	Source  string   `json:"source,omitempty"`
	Deliver *bool    `json:"deliver,omitempty"`
}

// ScrapeResponse reports one pipeline run
type ScrapeResponse struct {
	models.ScrapeResult
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// BatchResponse reports a batch of runs in completion order
type BatchResponse struct {
	Results   []ScrapeResponse `json:"results"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// Health reports liveness
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Scrape runs the pipeline for one URL
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	kind, err := source.ParseKind(req.Source)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.runner.Run(r.Context(), pipeline.Options{
		Request: models.RequestOptions{
			URL:         req.URL,
			Source:      kind,
			SessionName: req.Session,
			Headers:     req.Headers,
		},
		Deliver: h.deliverFor(req.Deliver),
	})

	respondJSON(w, statusFor(res), toResponse(res))
}

// Batch runs the pipeline for several URLs concurrently
func (h *Handlers) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		respondError(w, http.StatusBadRequest, "urls is required")
		return
	}
	if len(req.URLs) > h.maxBatch {
		respondError(w, http.StatusRequestEntityTooLarge, "too many urls")
		return
	}
	kind, err := source.ParseKind(req.Source)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	deliver := h.deliverFor(req.Deliver)
	requests := make([]pipeline.Options, 0, len(req.URLs))
	for _, u := range req.URLs {
		requests = append(requests, pipeline.Options{
			Request: models.RequestOptions{URL: u, Source: kind},
			Deliver: deliver,
		})
	}

	resp := BatchResponse{Results: make([]ScrapeResponse, 0, len(requests))}
	for res := range h.batch.Scrape(r.Context(), requests) {
		if res.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, toResponse(res))
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) deliverFor(v *bool) bool {
	if v != nil {
		return *v
	}
	return h.deliver
}

func toResponse(res models.ScrapeResult) ScrapeResponse {
	out := ScrapeResponse{ScrapeResult: res}
	if res.Error != nil {
		out.Error = res.Error.Error()
		out.Code = string(source.Code(res.Error))
	}
	return out
}

// statusFor maps a run to an HTTP status. A record with a failed delivery is
// still a 200; the error field carries the delivery failure.
func statusFor(res models.ScrapeResult) int {
	if !res.Failed() {
		return http.StatusOK
	}
	if errors.Is(res.Error, source.ErrUnknownSource) {
		return http.StatusBadRequest
	}
	switch source.Code(res.Error) {
	case source.ErrCodeValidation:
		return http.StatusBadRequest
	case source.ErrCodeNotFound, source.ErrCodeNoContent:
		return http.StatusNotFound
	case source.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
