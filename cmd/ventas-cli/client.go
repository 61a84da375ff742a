package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type apiOptions struct {
	BaseURL string
	Token   string
	JSON    bool
}

// apiClient cliente de los endpoints administrativos.
type apiClient struct {
	http *resty.Client
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newAPIClient(opts *apiOptions) (*apiClient, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("falta el token: use --token o VENTAS_TOKEN")
	}
	return &apiClient{http: resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(30 * time.Second).
		SetAuthToken(opts.Token).
		SetHeader("Accept", "application/json"),
	}, nil
}

// do ejecuta la petición y devuelve el cuerpo crudo; las respuestas de error se
// convierten en error con el código de la API.
func (c *apiClient) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	req := c.http.R().SetContext(ctx).SetError(&apiError{})
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		if e, ok := resp.Error().(*apiError); ok && e.Code != "" {
			return nil, fmt.Errorf("HTTP %d %s: %s", resp.StatusCode(), e.Code, e.Message)
		}
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

type expirationReport struct {
	Count      int      `json:"count"`
	IDs        []string `json:"ids"`
	DurationMs int64    `json:"durationMs"`
}

type webhookRecord struct {
	ID               string    `json:"id"`
	Topic            string    `json:"topic"`
	ResourceID       string    `json:"resource_id"`
	ReceivedAt       time.Time `json:"received_at"`
	ProcessingStatus string    `json:"processing_status"`
	RetryCount       int       `json:"retry_count"`
	LastError        string    `json:"last_error"`
}

type webhookAck struct {
	RecordID  string `json:"record_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	SaleID    string `json:"sale_id"`
}

type confirmResult struct {
	Sale struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"sale"`
	AlreadyApproved bool `json:"already_approved"`
}
