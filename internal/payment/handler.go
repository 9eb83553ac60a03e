package payment

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

type initializeRequest struct {
	OrderID     int64  `json:"orderId" validate:"required,gt=0"`
	CallbackURL string `json:"callbackUrl" validate:"omitempty,url"`
}

func mapError(err error) error {
	var (
		rangeErr *AmountRangeError
		gwErr    *GatewayError
	)
	switch {
	case errors.As(err, &rangeErr):
		return apperror.Validation(map[string]string{"amount": rangeErr.Error()})
	case errors.As(err, &gwErr):
		return apperror.New(http.StatusInternalServerError, apperror.CodePaymentFailed, "payment gateway request failed", err)
	case errors.Is(err, ErrNotFound):
		return apperror.NotFound("payment not found")
	case errors.Is(err, ErrOrderNotFound):
		return apperror.NotFound("order not found")
	case errors.Is(err, ErrAlreadyPaid):
		return apperror.BadRequest(apperror.CodeAlreadyPaid, "order has already been paid")
	case errors.Is(err, ErrOrderNotPayable):
		return apperror.Conflict(apperror.CodeConflict, err.Error())
	case errors.Is(err, ErrAmountMismatch), errors.Is(err, ErrNotReconcilable):
		return apperror.Conflict(apperror.CodePaymentFailed, err.Error())
	}
	return err
}

func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	payer, ok := utils.IdentityFrom(r.Context())
	if !ok {
		transport.WriteError(w, r, apperror.Unauthorized(apperror.CodeUnauthorized, "unauthorized"))
		return
	}

	var req initializeRequest
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Initialize(r.Context(), payer, InitializeInput{
		OrderID:     req.OrderID,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "payment initialized", res)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		transport.WriteError(w, r, apperror.Unauthorized(apperror.CodeUnauthorized, "unauthorized"))
		return
	}
	reference := r.PathValue("reference")
	if reference == "" {
		transport.WriteError(w, r, apperror.BadRequest(apperror.CodeBadRequest, "reference is required"))
		return
	}

	p, err := h.svc.Verify(r.Context(), userID, reference)
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "payment "+string(p.Status), p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		transport.WriteError(w, r, apperror.Unauthorized(apperror.CodeUnauthorized, "unauthorized"))
		return
	}

	payments, err := h.svc.List(r.Context(), userID)
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "payments fetched", payments)
}
