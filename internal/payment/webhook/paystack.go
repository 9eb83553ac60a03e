// Package webhook receives Paystack event deliveries.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"tailor-be/internal/apperror"
	"tailor-be/internal/logger"
	"tailor-be/internal/payment"
	"tailor-be/internal/transport"

	"go.uber.org/zap"
)

const (
	SignatureHeader = "x-paystack-signature"
	maxBodyBytes    = 1 << 20
)

type Processor interface {
	HandleWebhook(ctx context.Context, d payment.Delivery) error
}

type Handler struct {
	processor Processor
	secret    []byte
}

func NewHandler(processor Processor, secretKey string) *Handler {
	return &Handler{processor: processor, secret: []byte(secretKey)}
}

// Sign returns the hex HMAC-SHA512 Paystack sends for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidSignature compares in constant time. An empty secret never validates.
func ValidSignature(secret, body []byte, signature string) bool {
	if len(secret) == 0 || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}

func (h *Handler) Paystack(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context())

	// the signature covers the exact bytes, so read them before any decoding
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		transport.WriteError(w, r, apperror.BadRequest(apperror.CodeBadRequest, "failed to read body"))
		return
	}
	defer r.Body.Close()

	// forged deliveries never reach storage
	if !ValidSignature(h.secret, body, r.Header.Get(SignatureHeader)) {
		log.Warn("rejected webhook with invalid signature", zap.Int("bytes", len(body)))
		transport.WriteError(w, r, apperror.BadRequest(apperror.CodeInvalidSignature, "invalid signature"))
		return
	}

	err = h.processor.HandleWebhook(r.Context(), payment.Delivery{Body: body, SignatureValid: true})
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		transport.WriteError(w, r, apperror.BadRequest(apperror.CodeInvalidSignature, "invalid signature"))
		return
	case err != nil:
		log.Error("webhook not processed", zap.Error(err))
		transport.WriteError(w, r, apperror.Internal("failed to process webhook", err))
		return
	}

	transport.WriteSuccess(w, http.StatusOK, "ok", nil)
}
