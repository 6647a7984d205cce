package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"obruk-backend/app/src/domain"
	"obruk-backend/app/src/infra"
)

const (
	queryPage  = "page"
	queryLimit = "limit"

	maxBulkBody = 10 << 20
)

// handler contains the HTTP handlers and shared dependencies for the REST API.
type handler struct {
	service domain.TelemetryService
	logger  *infra.Logger
}

func registerRoutes(router *mux.Router, h *handler) {
	router.HandleFunc("/data", h.handleIngest).Methods(http.MethodPost)
	router.HandleFunc("/api/data", h.handleIngest).Methods(http.MethodPost)
	router.HandleFunc("/data", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/data/latest", h.handleLatest).Methods(http.MethodGet)
	router.HandleFunc("/data/stats", h.handleStats).Methods(http.MethodGet)
	router.HandleFunc("/data/bulk", h.handleBulk).Methods(http.MethodPost)
	router.HandleFunc("/predict", h.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/train/start", h.handleTrainStart).Methods(http.MethodPost)
	router.HandleFunc("/train/status", h.handleTrainStatus).Methods(http.MethodGet)
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
}

type ingestResponse struct {
	Success      bool               `json:"success"`
	Measurement  domain.Measurement `json:"measurement"`
	AIPrediction *domain.Forecast   `json:"aiPrediction,omitempty"`
	AIError      string             `json:"aiError,omitempty"`
}

type listResponse struct {
	Success    bool                 `json:"success"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	Total      int                  `json:"total"`
	TotalPages int                  `json:"totalPages"`
	Items      []domain.Measurement `json:"items"`
}

type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type bulkResponse struct {
	Success bool              `json:"success"`
	Report  domain.BulkReport `json:"report"`
}

type predictResponse struct {
	Success    bool            `json:"success"`
	Prediction domain.Forecast `json:"prediction"`
}

type healthResponse struct {
	Success bool                 `json:"success"`
	Backend domain.BackendHealth `json:"backend"`
	AI      domain.AIHealth      `json:"ai"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type validationResponse struct {
	Success bool                `json:"success"`
	Errors  []domain.FieldError `json:"errors"`
}

func (h *handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}

	result, err := h.service.Ingest(r.Context(), payload)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, ingestResponse{
		Success:      true,
		Measurement:  result.Measurement,
		AIPrediction: result.Prediction,
		AIError:      result.PredictionError,
	})
}

func (h *handler) handleList(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	page := parseIntParam(params.Get(queryPage), 1)
	limit := parseIntParam(params.Get(queryLimit), 0)

	result, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, listResponse{
		Success:    true,
		Page:       result.Page,
		Limit:      result.Limit,
		Total:      result.Total,
		TotalPages: result.TotalPages,
		Items:      result.Items,
	})
}

func (h *handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Latest(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: m})
}

func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: stats})
}

func (h *handler) handleBulk(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBulkBody)
	report, err := h.service.BulkIngest(r.Context(), body)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, bulkResponse{Success: true, Report: report})
}

func (h *handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	forecast, err := h.service.Forecast(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, predictResponse{Success: true, Prediction: forecast})
}

func (h *handler) handleTrainStart(w http.ResponseWriter, r *http.Request) {
	raw, err := h.service.StartTraining(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeRaw(w, http.StatusOK, raw)
}

func (h *handler) handleTrainStatus(w http.ResponseWriter, r *http.Request) {
	raw, err := h.service.TrainingStatus(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeRaw(w, http.StatusOK, raw)
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := h.service.Health(r.Context())
	h.writeJSON(w, http.StatusOK, healthResponse{
		Success: true,
		Backend: report.Backend,
		AI:      report.AI,
	})
}

// decodePayload reads one JSON object body. Numbers stay as json.Number so
// the validator can report range violations precisely.
func (h *handler) decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.UseNumber()

	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		h.writeJSON(w, http.StatusBadRequest, validationResponse{
			Success: false,
			Errors:  []domain.FieldError{{Field: "body", Message: "request body must be a JSON object"}},
		})
		return nil, false
	}
	return payload, true
}

func (h *handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusBadRequest, validationResponse{Success: false, Errors: verr.Fields})
	case errors.Is(err, domain.ErrNoData):
		h.writeError(w, http.StatusNotFound, domain.ErrNoData.Error())
	case errors.Is(err, domain.ErrUnsupportedMedia):
		h.writeError(w, http.StatusBadRequest, domain.ErrUnsupportedMedia.Error())
	case errors.Is(err, domain.ErrPredictionUnavailable):
		h.writeError(w, http.StatusBadGateway, domain.ErrPredictionUnavailable.Error())
	default:
		if h.logger != nil {
			h.logger.Errorf(r.Context(), "request failed: %v", err)
		}
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Success: false, Message: message})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *handler) writeRaw(w http.ResponseWriter, status int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
