package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tailor-be/internal/logger"

	"go.uber.org/zap"
)

const defaultPaystackBaseURL = "https://api.paystack.co"

type Gateway interface {
	Initialize(ctx context.Context, req ChargeRequest) (*Checkout, error)
	Verify(ctx context.Context, reference string) (*Transaction, error)
}

type ChargeRequest struct {
	Email       string
	Amount      int64
	Reference   string
	CallbackURL string
	Metadata    map[string]any
}

type Checkout struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// envelope is the wrapper every Paystack response uses.
type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type paystackGateway struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// ----------------- Constructor -----------------

func NewPaystackGateway(secretKey, baseURL string) Gateway {
	if secretKey == "" {
		logger.L().Warn("Paystack secret key is empty")
	}
	if baseURL == "" {
		baseURL = defaultPaystackBaseURL
	}

	return &paystackGateway{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ----------------- Initialize -----------------

func (p *paystackGateway) Initialize(ctx context.Context, charge ChargeRequest) (*Checkout, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("reference", charge.Reference),
		zap.Int64("amount", charge.Amount),
	)

	body := map[string]any{
		"email":     charge.Email,
		"amount":    charge.Amount,
		"currency":  CurrencyNGN,
		"reference": charge.Reference,
	}
	if charge.CallbackURL != "" {
		body["callback_url"] = charge.CallbackURL
	}
	if len(charge.Metadata) > 0 {
		body["metadata"] = charge.Metadata
	}

	var res envelope[Checkout]
	if err := p.do(ctx, http.MethodPost, "/transaction/initialize", body, &res); err != nil {
		log.Error("Paystack initialize failed", zap.Error(err))
		return nil, &GatewayError{Op: "initialize", Err: err}
	}
	if res.Data.AuthorizationURL == "" {
		return nil, &GatewayError{Op: "initialize", Err: errors.New("response missing authorization_url")}
	}

	log.Info("Paystack transaction initialized")
	return &res.Data, nil
}

// ----------------- Verify -----------------

func (p *paystackGateway) Verify(ctx context.Context, reference string) (*Transaction, error) {
	log := logger.FromCtx(ctx).With(zap.String("reference", reference))

	var res envelope[Transaction]
	if err := p.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &res); err != nil {
		log.Error("Paystack verify failed", zap.Error(err))
		return nil, &GatewayError{Op: "verify", Err: err}
	}

	log.Info("Paystack transaction verified",
		zap.String("status", res.Data.Status),
		zap.String("gateway_response", res.Data.GatewayResponse),
	)
	return &res.Data, nil
}

func (p *paystackGateway) do(ctx context.Context, method, path string, in any, out interface{ ok() (bool, string) }) error {
	var reader io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return fmt.Errorf("decode response: %w", err)
	}

	ok, msg := out.ok()
	if resp.StatusCode >= http.StatusBadRequest || !ok {
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	return nil
}

func (e *envelope[T]) ok() (bool, string) {
	return e.Status, e.Message
}
