package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"linkhub/internal/domain"
)

const linkedinProvider = "LINKEDIN"

// UnipileClient implementa Gateway contra la API de cuentas de Unipile.
type UnipileClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewUnipileClient construye un cliente apuntando al endpoint de cuentas.
func NewUnipileClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *UnipileClient {
	if baseURL == "" {
		baseURL = "https://api.unipile.com/v1"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &UnipileClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type connectRequest struct {
	Provider    string `json:"provider"`
	AccessToken string `json:"access_token,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
}

type connectResponse struct {
	AccountID       string `json:"account_id"`
	Name            string `json:"name,omitempty"`
	Username        string `json:"username,omitempty"`
	CheckpointToken string `json:"checkpoint_token,omitempty"`

	// Formato de error de Unipile, con variantes legadas.
	Type        string `json:"type,omitempty"`
	Title       string `json:"title,omitempty"`
	Detail      string `json:"detail,omitempty"`
	ErrorField  string `json:"error,omitempty"`
	Message     string `json:"message,omitempty"`
	Description string `json:"description,omitempty"`
}

// Link envía el intento de vinculación y normaliza la respuesta. El secreto
// viaja solo en el cuerpo del request; no se loguea ni se devuelve en errores.
func (c *UnipileClient) Link(ctx context.Context, req domain.LinkRequest) (AccountRef, error) {
	if err := req.Validate(); err != nil {
		return AccountRef{}, err
	}
	if c.apiKey == "" {
		return AccountRef{}, &UnavailableError{Err: fmt.Errorf("unipile api key not configured")}
	}

	body := connectRequest{Provider: linkedinProvider}
	switch req.Method {
	case domain.LinkMethodCookie:
		body.AccessToken = req.Cookie
	case domain.LinkMethodCredentials:
		body.Username = req.Username
		body.Password = req.Password
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return AccountRef{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/accounts", bytes.NewReader(payload))
	if err != nil {
		return AccountRef{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return AccountRef{}, &UnavailableError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return AccountRef{}, &UnavailableError{Err: err}
	}

	var parsed connectResponse
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			if resp.StatusCode >= 400 {
				return AccountRef{}, &UnavailableError{Err: fmt.Errorf("unipile status %d", resp.StatusCode)}
			}
			return AccountRef{}, fmt.Errorf("parse response: %w", err)
		}
	}

	if c.logger != nil {
		c.logger.Debug("unipile response",
			zap.Int("status", resp.StatusCode),
			zap.String("method", string(req.Method)),
			zap.String("error_type", parsed.Type),
		)
	}

	ref, err := c.normalize(resp.StatusCode, req.Method, parsed)
	if err != nil {
		return AccountRef{}, err
	}
	if ref.AccountID == "" {
		return AccountRef{}, fmt.Errorf("unipile response missing account_id")
	}
	return ref, nil
}

// normalize traduce la respuesta cruda a la taxonomía de errores del core.
func (c *UnipileClient) normalize(status int, method domain.LinkMethod, resp connectResponse) (AccountRef, error) {
	if strings.Contains(resp.Type, "checkpoint") || resp.CheckpointToken != "" {
		return AccountRef{}, &ChallengeRequiredError{ChallengeToken: resp.CheckpointToken}
	}

	if status == http.StatusOK || status == http.StatusCreated {
		name := resp.Name
		if name == "" {
			name = resp.Username
		}
		return AccountRef{AccountID: resp.AccountID, DisplayName: name}, nil
	}

	if status >= 500 || status == http.StatusTooManyRequests {
		return AccountRef{}, &UnavailableError{Err: fmt.Errorf("unipile status %d: %s", status, errorSummary(resp))}
	}

	// Un 2xx/3xx fuera de contrato no dice nada sobre el secreto presentado;
	// se trata como falla del proveedor, no como rechazo.
	if status < http.StatusBadRequest {
		return AccountRef{}, &UnavailableError{Err: fmt.Errorf("unexpected unipile status %d", status)}
	}

	// Cualquier otro 4xx es un rechazo del secreto presentado.
	if method == domain.LinkMethodCookie {
		return AccountRef{}, ErrInvalidCookie
	}
	return AccountRef{}, ErrInvalidCredentials
}

// errorSummary extrae el mejor mensaje disponible entre las variantes de error.
func errorSummary(resp connectResponse) string {
	if resp.Detail != "" {
		if resp.Title != "" {
			return resp.Title + ": " + resp.Detail
		}
		return resp.Detail
	}
	if resp.Title != "" {
		return resp.Title
	}
	if resp.ErrorField != "" {
		return resp.ErrorField
	}
	if resp.Description != "" {
		return resp.Description
	}
	if resp.Message != "" {
		return resp.Message
	}
	if resp.Type != "" {
		return resp.Type
	}
	return "unknown error"
}
