package order

import (
	"errors"
	"net/http"
	"strconv"

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
	ProductID       int64   `json:"productId" validate:"required,gt=0"`
	Quantity        int     `json:"quantity" validate:"required,min=1,max=1000"`
	SelectedFabric  string  `json:"selectedFabric" validate:"required,max=100"`
	SelectedColor   *string `json:"selectedColor" validate:"omitempty,max=100"`
	DeliveryDate    string  `json:"deliveryDate" validate:"required"`
	DeliveryAddress string  `json:"deliveryAddress" validate:"required,max=500"`
	MeasurementID   *int64  `json:"measurementId" validate:"omitempty,gt=0"`
	Notes           *string `json:"notes" validate:"omitempty,max=1000"`
}

type updateRequest struct {
	Quantity        *int    `json:"quantity" validate:"omitempty,min=1,max=1000"`
	SelectedFabric  *string `json:"selectedFabric" validate:"omitempty,min=1,max=100"`
	SelectedColor   *string `json:"selectedColor" validate:"omitempty,max=100"`
	DeliveryDate    *string `json:"deliveryDate"`
	DeliveryAddress *string `json:"deliveryAddress" validate:"omitempty,min=1,max=500"`
	MeasurementID   *int64  `json:"measurementId" validate:"omitempty,gt=0"`
	Notes           *string `json:"notes" validate:"omitempty,max=1000"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type createResponse struct {
	OrderID   int64      `json:"orderId"`
	Order     *Order     `json:"order"`
	Breakdown *Breakdown `json:"breakdown"`
}

func mapError(err error) error {
	var (
		optErr   *OptionError
		transErr *TransitionError
	)
	switch {
	case errors.As(err, &optErr):
		field := "selectedFabric"
		if optErr.Kind == "color" {
			field = "selectedColor"
		}
		return apperror.Validation(map[string]string{field: optErr.Error()})
	case errors.As(err, &transErr):
		return apperror.Conflict(apperror.CodeConflict, transErr.Error())
	case errors.Is(err, ErrNotFound):
		return apperror.NotFound("order not found")
	case errors.Is(err, ErrProductNotFound):
		return apperror.NotFound("product not found")
	case errors.Is(err, ErrMeasurementNotFound):
		return apperror.NotFound("measurement not found")
	case errors.Is(err, ErrInvalidQuantity):
		return apperror.Validation(map[string]string{"quantity": err.Error()})
	case errors.Is(err, ErrInvalidDeliveryDate), errors.Is(err, ErrDeliveryDateInPast):
		return apperror.Validation(map[string]string{"deliveryDate": err.Error()})
	case errors.Is(err, ErrAlreadyPaid):
		return apperror.BadRequest(apperror.CodeAlreadyPaid, err.Error())
	case errors.Is(err, ErrNothingToUpdate):
		return apperror.BadRequest(apperror.CodeBadRequest, err.Error())
	case errors.Is(err, ErrNotEditable), errors.Is(err, ErrPaymentRequired), errors.Is(err, ErrStatusChanged):
		return apperror.Conflict(apperror.CodeConflict, err.Error())
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

	o, breakdown, err := h.svc.Create(r.Context(), userID, CreateInput{
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		Fabric:          req.SelectedFabric,
		Color:           req.SelectedColor,
		DeliveryDate:    req.DeliveryDate,
		DeliveryAddress: req.DeliveryAddress,
		MeasurementID:   req.MeasurementID,
		Notes:           req.Notes,
	})
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusCreated, "order created", createResponse{
		OrderID:   o.ID,
		Order:     o,
		Breakdown: breakdown,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, page := transport.Pagination(r)

	result, err := h.svc.List(r.Context(), userID, limit, page)
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "orders fetched", result)
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

	o, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "order fetched", o)
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

	o, err := h.svc.Update(r.Context(), userID, id, UpdateInput{
		Quantity:        req.Quantity,
		Fabric:          req.SelectedFabric,
		Color:           req.SelectedColor,
		DeliveryDate:    req.DeliveryDate,
		DeliveryAddress: req.DeliveryAddress,
		MeasurementID:   req.MeasurementID,
		Notes:           req.Notes,
	})
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "order updated", o)
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
	transport.WriteSuccess(w, http.StatusOK, "order deleted", nil)
}

// AdminList supports ?status=, ?paymentStatus= and ?userId= filters.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, page := transport.Pagination(r)
	filter := ListFilter{Limit: limit, Page: page}

	if v := q.Get("status"); v != "" {
		st, ok := ParseStatus(v)
		if !ok {
			transport.WriteError(w, r, apperror.Validation(map[string]string{"status": "unknown order status"}))
			return
		}
		filter.Status = &st
	}
	if v := q.Get("paymentStatus"); v != "" {
		st, ok := ParsePaymentStatus(v)
		if !ok {
			transport.WriteError(w, r, apperror.Validation(map[string]string{"paymentStatus": "unknown payment status"}))
			return
		}
		filter.PaymentStatus = &st
	}
	if v := q.Get("userId"); v != "" {
		uid, err := strconv.ParseInt(v, 10, 64)
		if err != nil || uid <= 0 {
			transport.WriteError(w, r, apperror.Validation(map[string]string{"userId": "must be a positive integer"}))
			return
		}
		filter.UserID = &uid
	}

	result, err := h.svc.AdminList(r.Context(), filter)
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "orders fetched", result)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := transport.PathID(r, "id")
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}

	var req statusRequest
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.WriteError(w, r, err)
		return
	}
	to, ok := ParseStatus(req.Status)
	if !ok {
		transport.WriteError(w, r, apperror.Validation(map[string]string{"status": "unknown order status"}))
		return
	}

	o, err := h.svc.UpdateStatus(r.Context(), id, to)
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "order status updated", o)
}
