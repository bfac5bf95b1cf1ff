package person

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

// Handler provides HTTP handlers for the person registry
type Handler struct {
	repo Repository
	bus  *events.Bus
}

// NewHandler creates a new person handler
func NewHandler(repo Repository, bus *events.Bus) *Handler {
	return &Handler{repo: repo, bus: bus}
}

// Routes registers the person routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListPersons)
	r.Post("/", h.RegisterPerson)
	r.Get("/{personID}", h.GetPerson)

	return r
}

// ListPersons lists registered persons, optionally filtered by category
func (h *Handler) ListPersons(w http.ResponseWriter, r *http.Request) {
	var (
		persons []Person
		err     error
	)

	if c := r.URL.Query().Get("category"); c != "" {
		category := Category(strings.ToUpper(c))
		if !category.Valid() {
			writeError(w, errors.BadRequest("unknown category"))
			return
		}
		persons, err = h.repo.ListByCategory(r.Context(), category)
	} else {
		persons, err = h.repo.List(r.Context())
	}

	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  persons,
		"total": len(persons),
	})
}

// GetPerson gets a person by ID
func (h *Handler) GetPerson(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "personID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid person ID"))
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// RegisterPerson registers a new person
func (h *Handler) RegisterPerson(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if details := req.Validate(); details != nil {
		writeError(w, errors.Validation("validation failed", details))
		return
	}

	category := req.Category
	if category == "" {
		category = CategoryGeneral
	}

	p := &Person{
		ID:              types.NewID(),
		Name:            strings.TrimSpace(req.Name),
		Age:             req.Age,
		HealthCondition: strings.TrimSpace(req.HealthCondition),
		Category:        category,
		RegisteredAt:    time.Now().UTC(),
	}

	if err := h.repo.Create(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordPersonRegistered(string(p.Category))

	if h.bus != nil {
		event := events.NewEvent("person.registered", "person", map[string]any{
			"person_id": p.ID,
			"category":  p.Category,
			"priority":  IsPriorityGroup(*p),
		})
		h.bus.Publish(r.Context(), event)
	}

	writeJSON(w, http.StatusCreated, p)
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
