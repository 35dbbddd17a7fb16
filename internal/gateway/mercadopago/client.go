package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"app/internal/apperr"

	"github.com/google/uuid"
)

const defaultAPIBaseURL = "https://api.mercadopago.com"

type Config struct {
	AccessToken   string
	WebhookSecret string

	// falseにすると未設定シークレットで検証をスキップする（原本のfail-open挙動）
	RequireSignature bool

	// テスト用に差し替え可能
	APIBaseURL string
	HTTPClient *http.Client
}

// Client は決済ゲートウェイのREST APIをそのまま叩く薄いアダプタ。
// カード情報には触れない（tokenized済みの前提）。
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, http: hc}
}

type Payer struct {
	Email string `json:"email"`
}

type ChargeRequest struct {
	TransactionAmount float64        `json:"transaction_amount"`
	Token             string         `json:"token"`
	Description       string         `json:"description"`
	Installments      int            `json:"installments"`
	PaymentMethodID   string         `json:"payment_method_id"`
	IssuerID          string         `json:"issuer_id,omitempty"`
	Payer             Payer          `json:"payer"`
	NotificationURL   string         `json:"notification_url,omitempty"`
	ExternalReference string         `json:"external_reference"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

type Cardholder struct {
	Name string `json:"name"`
}

type Card struct {
	LastFourDigits  string      `json:"last_four_digits"`
	ExpirationMonth int         `json:"expiration_month"`
	ExpirationYear  int         `json:"expiration_year"`
	Cardholder      *Cardholder `json:"cardholder"`
}

// Payment はゲートウェイの応答。statusの語彙は
// approved / pending / in_process / それ以外（rejected扱い）。
type Payment struct {
	ID                int64          `json:"id"`
	Status            string         `json:"status"`
	StatusDetail      string         `json:"status_detail"`
	PaymentMethodID   string         `json:"payment_method_id"`
	ExternalReference string         `json:"external_reference"`
	Metadata          map[string]any `json:"metadata"`
	Card              *Card          `json:"card"`
}

type apiError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (c *Client) ensureConfigured() error {
	if c.cfg.AccessToken == "" {
		return apperr.Configuration("gateway_not_configured", "MERCADOPAGO_ACCESS_TOKEN not configured")
	}
	return nil
}

// Charge はトークン化済みカードに課金する。
// 拒否された決済はエラーではなくstatus=rejectedとして返る。
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (Payment, error) {
	if err := c.ensureConfigured(); err != nil {
		return Payment{}, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Payment{}, apperr.Wrap(err, apperr.KindInternal, "gateway_encode_failed", "failed to encode charge request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+"/v1/payments", bytes.NewReader(body))
	if err != nil {
		return Payment{}, apperr.Wrap(err, apperr.KindInternal, "gateway_request_failed", "failed to build charge request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	// ゲートウェイ側の二重課金防止
	httpReq.Header.Set("X-Idempotency-Key", uuid.NewString())

	return c.do(httpReq)
}

// FetchByID はWebhook reconciliation用に決済を取り直す。
func (c *Client) FetchByID(ctx context.Context, id string) (Payment, error) {
	if err := c.ensureConfigured(); err != nil {
		return Payment{}, err
	}

	u := c.cfg.APIBaseURL + "/v1/payments/" + url.PathEscape(id)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Payment{}, apperr.Wrap(err, apperr.KindInternal, "gateway_request_failed", "failed to build fetch request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	return c.do(httpReq)
}

func (c *Client) do(req *http.Request) (Payment, error) {
	res, err := c.http.Do(req)
	if err != nil {
		// タイムアウト等は結果不明。呼び出し側はWebhook経由の照合に委ねる
		return Payment{}, apperr.Wrap(err, apperr.KindGateway, "gateway_unreachable", "payment gateway request failed")
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return Payment{}, apperr.Wrap(err, apperr.KindGateway, "gateway_read_failed", "failed to read gateway response")
	}

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return Payment{}, apperr.Configuration("gateway_auth_failed", "payment gateway rejected credentials")
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var ae apiError
		if err := json.Unmarshal(data, &ae); err == nil && ae.Message != "" {
			return Payment{}, apperr.Gateway("gateway_error", ae.Message)
		}
		return Payment{}, apperr.Gateway("gateway_error", fmt.Sprintf("payment gateway returned status %d", res.StatusCode))
	}

	var p Payment
	if err := json.Unmarshal(data, &p); err != nil {
		return Payment{}, apperr.Wrap(err, apperr.KindGateway, "gateway_decode_failed", "failed to decode gateway response")
	}
	return p, nil
}
