package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"orthorec/db"
	"orthorec/ml"
	"orthorec/monitoring"
	"orthorec/prosthesis"
)

// Engine is the recommendation facade surface the handlers need.
// Narrowed to an interface so tests can substitute a fake.
type Engine interface {
	Recommend(profile prosthesis.PatientProfile) (*ml.Recommendation, error)
	Ready() bool
	TrainingError() error
	Dataset() *prosthesis.Dataset
}

// Handlers bundles the handler dependencies.
type Handlers struct {
	engine  Engine
	metrics *monitoring.Metrics
	hub     *monitoring.Hub
	logger  *zap.Logger
}

func NewHandlers(engine Engine, metrics *monitoring.Metrics, hub *monitoring.Hub, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{engine: engine, metrics: metrics, hub: hub, logger: logger}
}

// Register wires all API routes onto the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("POST /api/recommend", h.handleRecommend)
	mux.HandleFunc("GET /api/materials", h.handleMaterials)
	mux.HandleFunc("GET /api/fixations", h.handleFixations)
	mux.HandleFunc("GET /api/model/status", h.handleModelStatus)
	mux.HandleFunc("GET /api/recommendations", h.handleHistory)
	if h.hub != nil {
		mux.Handle("GET /api/ws/monitor", h.hub)
	}
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRecommend is the main entry: a patient profile in, a complete
// ranked recommendation out. Missing optional profile fields are not
// errors; only unparseable JSON is rejected.
func (h *Handlers) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var profile prosthesis.PatientProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		http.Error(w, "invalid profile payload", http.StatusBadRequest)
		return
	}

	start := time.Now()
	result, err := h.engine.Recommend(profile)
	if err != nil {
		// Only the rule-based safety net can fail, which means the
		// catalogs themselves are broken.
		if h.metrics != nil {
			h.metrics.RecordFailure()
		}
		h.logger.Error("recommendation failed", zap.Error(err))
		http.Error(w, "recommendation unavailable", http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRequest(result.Source, time.Since(start))
	}
	if h.hub != nil {
		h.hub.Publish(monitoring.RecommendationEvent, map[string]interface{}{
			"material":   result.RecommendedMaterial.ID,
			"fixation":   result.RecommendedFixation.ID,
			"confidence": result.RecommendedMaterial.Confidence,
			"source":     result.Source,
		})
	}
	if err := db.SaveRecommendation(profile, result); err != nil {
		// History is best-effort; the caller still gets the result.
		h.logger.Warn("save recommendation history failed", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) handleMaterials(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Dataset().Materials)
}

func (h *Handlers) handleFixations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Dataset().FixationMethods)
}

func (h *Handlers) handleModelStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"ready": h.engine.Ready(),
	}
	if err := h.engine.TrainingError(); err != nil {
		status["trainingError"] = err.Error()
	}
	if h.metrics != nil {
		status["metrics"] = h.metrics.Snapshot()
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	records, err := db.QueryRecent(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": records})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
