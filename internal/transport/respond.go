package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"

	"tailor-be/internal/apperror"
	"tailor-be/internal/logger"
	"tailor-be/internal/validation"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var exposeInternal atomic.Bool

// ExposeInternalErrors controls whether 5xx responses carry the underlying cause.
// Only development turns it on.
func ExposeInternalErrors(on bool) {
	exposeInternal.Store(on)
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Code    string            `json:"code,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	WriteJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// WriteError renders err through the error taxonomy. Unknown errors become 500s.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.From(err)

	msg := appErr.Message
	if appErr.Status >= http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", appErr.Code),
			zap.Error(appErr),
		)
		if exposeInternal.Load() && appErr.Err != nil {
			msg = appErr.Error()
		}
	}

	WriteJSON(w, appErr.Status, envelope{
		Success: false,
		Message: msg,
		Code:    appErr.Code,
		Errors:  appErr.Fields,
	})
}

// DecodeJSON reads a JSON body into dst and validates its struct tags.
func DecodeJSON(r *http.Request, dst interface{}) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.BadRequest(apperror.CodeBadRequest, "request body is required")
		}
		return apperror.BadRequest(apperror.CodeBadRequest, "invalid JSON payload: "+err.Error())
	}

	return Validate(dst)
}

// Validate runs struct-tag validation and converts failures into a 400.
func Validate(v interface{}) error {
	if fields := validation.Struct(v); fields != nil {
		return apperror.Validation(fields)
	}
	return nil
}

// PathID parses a positive integer path value.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.BadRequest(apperror.CodeBadRequest, "invalid "+name)
	}
	return id, nil
}

// MaxPage bounds the page param so the derived OFFSET stays small.
const MaxPage = 10_000

// Pagination reads limit/page query params with sane bounds.
func Pagination(r *http.Request) (limit, page int) {
	limit, page = 20, 1
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if page > MaxPage {
		page = MaxPage
	}
	return limit, page
}
