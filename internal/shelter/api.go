package shelter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ddpm-gov/relief/internal/shared/errors"
	"github.com/ddpm-gov/relief/internal/shared/events"
	"github.com/ddpm-gov/relief/internal/shared/metrics"
	"github.com/ddpm-gov/relief/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP handlers for the shelter ledger
type Handler struct {
	repo Repository
	bus  *events.Bus
}

// NewHandler creates a new shelter handler
func NewHandler(repo Repository, bus *events.Bus) *Handler {
	return &Handler{repo: repo, bus: bus}
}

// Routes registers the shelter routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListShelters)
	r.Post("/", h.RegisterShelter)
	r.Get("/{shelterID}", h.GetShelter)

	return r
}

// shelterView extends the stored record with derived fields for display
type shelterView struct {
	Shelter
	AvailableSpace      int     `json:"available_space"`
	OccupancyPercentage float64 `json:"occupancy_percentage"`
	Full                bool    `json:"full"`
}

func newShelterView(s Shelter) shelterView {
	return shelterView{
		Shelter:             s,
		AvailableSpace:      AvailableSpace(s),
		OccupancyPercentage: OccupancyPercentage(s),
		Full:                IsFull(s),
	}
}

// ListShelters lists shelters with optional risk/availability filters
func (h *Handler) ListShelters(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{}

	if l := r.URL.Query().Get("risk_level"); l != "" {
		level := RiskLevel(strings.ToUpper(l))
		if !level.Valid() {
			writeError(w, errors.BadRequest("unknown risk level"))
			return
		}
		filter.RiskLevel = &level
	}
	if r.URL.Query().Get("available") == "true" {
		filter.AvailableOnly = true
	}

	shelters, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]shelterView, 0, len(shelters))
	for _, s := range shelters {
		views = append(views, newShelterView(s))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  views,
		"total": len(views),
	})
}

// GetShelter gets a shelter by ID
func (h *Handler) GetShelter(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "shelterID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid shelter ID"))
		return
	}

	s, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newShelterView(*s))
}

// RegisterShelter registers a new shelter
func (h *Handler) RegisterShelter(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if details := req.Validate(); details != nil {
		writeError(w, errors.Validation("validation failed", details))
		return
	}

	riskLevel := req.RiskLevel
	if riskLevel == "" {
		riskLevel = RiskLow
	}

	s := &Shelter{
		ID:               types.NewID(),
		Name:             strings.TrimSpace(req.Name),
		MaxCapacity:      req.MaxCapacity,
		CurrentOccupancy: 0,
		RiskLevel:        riskLevel,
		RegisteredAt:     time.Now().UTC(),
	}

	if err := h.repo.Create(r.Context(), s); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordShelterRegistered(string(s.RiskLevel))
	metrics.SetShelterOccupancy(s.Name, s.CurrentOccupancy, s.MaxCapacity)

	if h.bus != nil {
		event := events.NewEvent("shelter.registered", "shelter", map[string]any{
			"shelter_id":   s.ID,
			"risk_level":   s.RiskLevel,
			"max_capacity": s.MaxCapacity,
		})
		h.bus.Publish(r.Context(), event)
	}

	writeJSON(w, http.StatusCreated, newShelterView(*s))
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
