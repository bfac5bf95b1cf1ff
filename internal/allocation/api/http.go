package api

import (
	"encoding/json"
	"net/http"

	"github.com/ddpm-gov/relief/internal/allocation/domain"
	"github.com/ddpm-gov/relief/internal/shared/errors"
	"github.com/ddpm-gov/relief/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP handlers for the allocation engine
type Handler struct {
	engine *domain.Engine
}

// NewHandler creates a new allocation handler
func NewHandler(engine *domain.Engine) *Handler {
	return &Handler{engine: engine}
}

// Routes registers the allocation routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListAssignments)
	r.Post("/", h.Assign)
	r.Post("/auto", h.AutoAssign)
	r.Get("/queue", h.ListQueue)
	r.Get("/person/{personID}", h.GetPersonAssignment)
	r.Get("/person/{personID}/status", h.GetPersonStatus)

	return r
}

// AssignRequest is the request for manual assignment
type AssignRequest struct {
	PersonID  types.ID `json:"person_id"`
	ShelterID types.ID `json:"shelter_id"`
}

// AutoAssignRequest is the request for automatic assignment
type AutoAssignRequest struct {
	PersonID types.ID `json:"person_id"`
}

// Assign places a person into a chosen shelter
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.PersonID.IsZero() || req.ShelterID.IsZero() {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"person_id":  "person_id is required",
			"shelter_id": "shelter_id is required",
		}))
		return
	}

	a, err := h.engine.Assign(r.Context(), req.PersonID, req.ShelterID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// AutoAssign picks the best shelter for a person and places them there
func (h *Handler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	var req AutoAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.PersonID.IsZero() {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"person_id": "person_id is required",
		}))
		return
	}

	a, err := h.engine.AutoAssign(r.Context(), req.PersonID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// ListAssignments lists assignments joined with person and shelter,
// optionally filtered by shelter
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	var shelterID *types.ID
	if s := r.URL.Query().Get("shelter_id"); s != "" {
		id, err := types.ParseID(s)
		if err != nil {
			writeError(w, errors.BadRequest("invalid shelter ID"))
			return
		}
		shelterID = &id
	}

	details, err := h.engine.ListAssignments(r.Context(), shelterID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  details,
		"total": len(details),
	})
}

// ListQueue returns unassigned persons in rescue-priority order
func (h *Handler) ListQueue(w http.ResponseWriter, r *http.Request) {
	queue, err := h.engine.ListUnassignedByPriority(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  queue,
		"total": len(queue),
	})
}

// GetPersonAssignment returns a person's assignment with detail
func (h *Handler) GetPersonAssignment(w http.ResponseWriter, r *http.Request) {
	personID, err := types.ParseID(chi.URLParam(r, "personID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid person ID"))
		return
	}

	detail, err := h.engine.AssignmentForPerson(r.Context(), personID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// GetPersonStatus reports whether a person already holds an assignment
func (h *Handler) GetPersonStatus(w http.ResponseWriter, r *http.Request) {
	personID, err := types.ParseID(chi.URLParam(r, "personID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid person ID"))
		return
	}

	assigned, err := h.engine.IsAssigned(r.Context(), personID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"person_id": personID,
		"assigned":  assigned,
	})
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
