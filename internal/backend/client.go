// Package backend is the typed client for the calling backend REST API
// (number mappings, call logs, SMS blasts, cost ledger). Every response is
// wrapped in a {success, data, error} envelope which the client unwraps.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/thetyagiayush/warhol-ringmaster/internal/config"
	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"github.com/thetyagiayush/warhol-ringmaster/internal/logger"
	"go.uber.org/zap"
)

// Client talks to the calling backend. It never retries; callers decide what
// a failure means for their own state.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a backend client from configuration.
// A zero timeout keeps the http.Client default.
func NewClient(cfg *config.BackendConfig, logger *zap.Logger) (*Client, error) {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout()}, logger)
}

// NewClientWithHTTP creates a backend client using the given http.Client
func NewClientWithHTTP(cfg *config.BackendConfig, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend base URL %q", cfg.BaseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger.Info("Calling backend client initialized",
		zap.String("base_url", u.Redacted()),
		zap.Duration("timeout", httpClient.Timeout),
	)

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// ListNumbers returns every number mapping
func (c *Client) ListNumbers(ctx context.Context) ([]domain.NumberMapping, error) {
	var numbers []domain.NumberMapping
	if err := c.doJSON(ctx, "list numbers", http.MethodGet, "/get-all-numbers", nil, &numbers); err != nil {
		return nil, err
	}
	if numbers == nil {
		numbers = []domain.NumberMapping{}
	}
	return numbers, nil
}

// AddNumber registers a number with its greeting audio and SMS text
func (c *Client) AddNumber(ctx context.Context, in domain.AddNumberInput) (*domain.NumberMapping, error) {
	body, contentType, err := encodeMultipart(map[string]string{
		"phone_number": in.PhoneNumber,
		"text_content": in.TextContent,
	}, in.Audio)
	if err != nil {
		return nil, &Error{Op: "add number", Kind: KindTransport, Err: err}
	}

	var mapping domain.NumberMapping
	if err := c.do(ctx, "add number", http.MethodPost, "/add-number", body, contentType, &mapping); err != nil {
		return nil, err
	}
	return &mapping, nil
}

// UpdateText replaces the follow-up SMS text of a mapping
func (c *Client) UpdateText(ctx context.Context, id int64, textContent string) (*domain.NumberMapping, error) {
	var mapping domain.NumberMapping
	path := fmt.Sprintf("/update-text/%d", id)
	if err := c.doJSON(ctx, "update text", http.MethodPut, path, domain.UpdateTextRequest{TextContent: textContent}, &mapping); err != nil {
		return nil, err
	}
	return &mapping, nil
}

// UpdateAudio replaces the greeting audio of a mapping
func (c *Client) UpdateAudio(ctx context.Context, id int64, audio *domain.AudioFile) (*domain.NumberMapping, error) {
	body, contentType, err := encodeMultipart(nil, audio)
	if err != nil {
		return nil, &Error{Op: "update audio", Kind: KindTransport, Err: err}
	}

	var mapping domain.NumberMapping
	path := fmt.Sprintf("/update-audio/%d", id)
	if err := c.do(ctx, "update audio", http.MethodPut, path, body, contentType, &mapping); err != nil {
		return nil, err
	}
	return &mapping, nil
}

// DeleteNumber removes a mapping
func (c *Client) DeleteNumber(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "delete number", http.MethodDelete, fmt.Sprintf("/delete-number/%d", id), nil, nil)
}

// ConfigureWebhook asks the backend to point the number's voice webhook at itself
func (c *Client) ConfigureWebhook(ctx context.Context, phoneNumber string) error {
	return c.doJSON(ctx, "configure webhook", http.MethodPost, "/configure-webhook",
		domain.ConfigureWebhookRequest{PhoneNumber: phoneNumber}, nil)
}

// ListCallLogs returns the full call history
func (c *Client) ListCallLogs(ctx context.Context) ([]domain.CallLogEntry, error) {
	var logs []domain.CallLogEntry
	if err := c.doJSON(ctx, "list call logs", http.MethodGet, "/get-logs", nil, &logs); err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []domain.CallLogEntry{}
	}
	return logs, nil
}

// SendBlast sends one message to one batch of recipients
func (c *Client) SendBlast(ctx context.Context, message string, phoneNumbers []string) (*domain.SendBlastResult, error) {
	var result domain.SendBlastResult
	req := domain.SendBlastRequest{Message: message, PhoneNumbers: phoneNumbers}
	if err := c.doJSON(ctx, "send blast", http.MethodPost, "/send-blast", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetCostBreakdown fetches the spend report, optionally bounded by dates
func (c *Client) GetCostBreakdown(ctx context.Context, req domain.CostBreakdownRequest) (*domain.CostBreakdown, error) {
	var breakdown domain.CostBreakdown
	if err := c.doJSON(ctx, "get cost breakdown", http.MethodPost, "/get-cost-breakdown", req, &breakdown); err != nil {
		return nil, err
	}
	return &breakdown, nil
}

// UpdateBudget sets the account's total budget
func (c *Client) UpdateBudget(ctx context.Context, totalBudget float64) (*domain.BudgetUpdate, error) {
	var update domain.BudgetUpdate
	req := domain.UpdateBudgetRequest{TotalBudget: totalBudget}
	if err := c.doJSON(ctx, "update budget", http.MethodPost, "/update-budget", req, &update); err != nil {
		return nil, err
	}
	return &update, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, payload, out interface{}) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return &Error{Op: op, Kind: KindTransport, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out interface{}) error {
	log := logger.WithBackendCall(c.logger, op, method, path)
	start := time.Now()
	err := c.roundTrip(ctx, log, op, method, path, body, contentType, out)
	requestDurationHist.WithLabelValues(op).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = string(KindTransport)
		if be, ok := err.(*Error); ok {
			outcome = string(be.Kind)
		}
		log.Warn("calling backend request failed",
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
	}
	requestsCounter.WithLabelValues(op, outcome).Inc()
	return err
}

func (c *Client) roundTrip(ctx context.Context, log *zap.Logger, op, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	log.Debug("calling backend request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var env domain.Envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		kind := KindDecode
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			kind = KindTransport
		}
		return &Error{Op: op, Kind: kind, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid response envelope: %w", err)}
	}

	if !env.Success || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Op: op, Kind: KindApplication, StatusCode: resp.StatusCode, Message: env.Error}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Op: op, Kind: KindDecode, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid response data: %w", err)}
	}
	return nil
}

// encodeMultipart builds a multipart body with the given text fields and,
// when audio is set, an audio_file part.
func encodeMultipart(fields map[string]string, audio *domain.AudioFile) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, name := range []string{"phone_number", "text_content"} {
		value, ok := fields[name]
		if !ok {
			continue
		}
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}

	if audio != nil {
		contentType := audio.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio_file"; filename=%q`, audio.Filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create audio part: %w", err)
		}
		if _, err := part.Write(audio.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write audio part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
