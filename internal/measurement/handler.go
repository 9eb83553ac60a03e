package measurement

import (
	"errors"
	"net/http"

	"tailor-be/internal/apperror"
	"tailor-be/internal/transport"
	"tailor-be/internal/utils"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type createRequest struct {
	Label string  `json:"label" validate:"required,max=100"`
	Unit  Unit    `json:"unit" validate:"omitempty,unit"`
	Notes *string `json:"notes" validate:"omitempty,max=500"`
	Values
}

type updateRequest struct {
	Label *string `json:"label" validate:"omitempty,min=1,max=100"`
	Unit  *Unit   `json:"unit" validate:"omitempty,unit"`
	Notes *string `json:"notes" validate:"omitempty,max=500"`
	Values
}

func mapError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return apperror.NotFound("measurement not found")
	}
	return err
}

func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		transport.WriteError(w, r, apperror.Unauthorized(apperror.CodeUnauthorized, "unauthorized"))
	}
	return userID, ok
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.WriteError(w, r, err)
		return
	}
	if fields := req.Values.Invalid(); fields != nil {
		transport.WriteError(w, r, apperror.Validation(fields))
		return
	}

	m, err := h.svc.Create(r.Context(), userID, CreateInput{
		Label:  req.Label,
		Unit:   req.Unit,
		Notes:  req.Notes,
		Values: req.Values,
	})
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusCreated, "measurement added", m)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := h.svc.List(r.Context(), userID)
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "measurements fetched", list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := transport.PathID(r, "id")
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}

	m, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "measurement fetched", m)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := transport.PathID(r, "id")
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}

	var req updateRequest
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.WriteError(w, r, err)
		return
	}
	if fields := req.Values.Invalid(); fields != nil {
		transport.WriteError(w, r, apperror.Validation(fields))
		return
	}

	m, err := h.svc.Update(r.Context(), userID, id, UpdateParams{
		Label:  req.Label,
		Unit:   req.Unit,
		Notes:  req.Notes,
		Values: req.Values,
	})
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "measurement updated", m)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := transport.PathID(r, "id")
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "measurement deleted", nil)
}
