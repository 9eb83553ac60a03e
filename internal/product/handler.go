package product

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"tailor-be/internal/apperror"
	"tailor-be/internal/transport"

	"github.com/shopspring/decimal"
)

const maxMultipartMemory = 10 << 20

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type fabricRequest struct {
	Name      string          `json:"name" validate:"required,max=100"`
	Price     decimal.Decimal `json:"price"`
	Available *bool           `json:"available"`
}

type colorRequest struct {
	Name       string          `json:"name" validate:"required,max=100"`
	ExtraPrice decimal.Decimal `json:"extraPrice"`
	Available  *bool           `json:"available"`
}

type createRequest struct {
	Name        string           `json:"name" validate:"required,max=150"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Category    string           `json:"category" validate:"required,max=100"`
	BasePrice   *decimal.Decimal `json:"basePrice" validate:"required"`
	ImageURL    *string          `json:"imageUrl" validate:"omitempty,url"`
	Fabrics     []fabricRequest  `json:"fabrics" validate:"required,min=1,dive"`
	Colors      []colorRequest   `json:"colors" validate:"omitempty,dive"`
}

type updateRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=150"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Category    *string          `json:"category" validate:"omitempty,min=1,max=100"`
	BasePrice   *decimal.Decimal `json:"basePrice"`
	ImageURL    *string          `json:"imageUrl" validate:"omitempty,url"`
	Fabrics     []fabricRequest  `json:"fabrics" validate:"omitempty,min=1,dive"`
	Colors      []colorRequest   `json:"colors" validate:"omitempty,dive"`
}

func toFabrics(in []fabricRequest) []FabricOption {
	if in == nil {
		return nil
	}
	out := make([]FabricOption, len(in))
	for i, f := range in {
		out[i] = FabricOption{Name: f.Name, Price: f.Price, Available: f.Available == nil || *f.Available}
	}
	return out
}

func toColors(in []colorRequest) []ColorOption {
	if in == nil {
		return nil
	}
	out := make([]ColorOption, len(in))
	for i, c := range in {
		out[i] = ColorOption{Name: c.Name, ExtraPrice: c.ExtraPrice, Available: c.Available == nil || *c.Available}
	}
	return out
}

func mapError(err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return apperror.Validation(verr.Fields)
	case errors.Is(err, ErrNotFound):
		return apperror.NotFound("product not found")
	case errors.Is(err, ErrNothingToSave):
		return apperror.BadRequest(apperror.CodeBadRequest, "no fields to update")
	case errors.Is(err, ErrInUse):
		return apperror.Conflict(apperror.CodeConflict, "product has orders and cannot be deleted")
	}
	return err
}

// decodeCreate accepts a JSON body, or a multipart form whose "data" field holds
// the JSON document and whose optional "imageUrl" field sets the image.
func decodeCreate(r *http.Request) (*createRequest, error) {
	var req createRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := transport.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, apperror.BadRequest(apperror.CodeBadRequest, "invalid multipart form")
	}

	data := r.FormValue("data")
	if data == "" {
		return nil, apperror.BadRequest(apperror.CodeBadRequest, "form field data is required")
	}

	dec := json.NewDecoder(strings.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, apperror.BadRequest(apperror.CodeBadRequest, "invalid JSON in data field: "+err.Error())
	}

	if img := strings.TrimSpace(r.FormValue("imageUrl")); img != "" {
		req.ImageURL = &img
	}

	if err := transport.Validate(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreate(r)
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}

	p, err := h.svc.Create(r.Context(), &Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		BasePrice:   *req.BasePrice,
		ImageURL:    req.ImageURL,
		Fabrics:     toFabrics(req.Fabrics),
		Colors:      toColors(req.Colors),
	})
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusCreated, "product created", p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, page := transport.Pagination(r)

	result, err := h.svc.List(r.Context(), ListOptions{
		Category: r.URL.Query().Get("category"),
		Limit:    limit,
		Page:     page,
	})
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "products fetched", result)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := transport.PathID(r, "id")
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "product fetched", p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
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

	p, err := h.svc.Update(r.Context(), id, UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		BasePrice:   req.BasePrice,
		ImageURL:    req.ImageURL,
		Fabrics:     toFabrics(req.Fabrics),
		Colors:      toColors(req.Colors),
	})
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "product updated", p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := transport.PathID(r, "id")
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "product deleted", nil)
}
