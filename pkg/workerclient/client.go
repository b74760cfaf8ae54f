// Package workerclient is the typed SDK an extraction worker embeds to
// pull work from the scheduler and push results back.
package workerclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rentradar/internal/models"
	"rentradar/internal/pkg/httpclient"
)

// Client talks to the scheduler's worker API.
type Client struct {
	http *httpclient.Client
}

// New creates a client for the scheduler at baseURL.
func New(baseURL, apiKey string) *Client {
	hc := httpclient.New().
		WithBaseURL(baseURL).
		WithHeader("Content-Type", "application/json").
		WithTimeout(60 * time.Second)
	if apiKey != "" {
		hc = hc.WithHeader("Token", apiKey)
	}
	return &Client{http: hc}
}

// Outcome mirrors the outcome-report payload.
type Outcome struct {
	Success      bool    `json:"success"`
	DurationMs   int     `json:"duration_ms"`
	PriceChanged bool    `json:"price_changed"`
	UnitsFound   int     `json:"units_found"`
	CostUSD      float64 `json:"cost_usd"`
	Error        string  `json:"error,omitempty"`
}

// CostReport mirrors the cost-ingest payload.
type CostReport struct {
	Date       string             `json:"date,omitempty"`
	Properties int                `json:"properties"`
	Requests   int                `json:"requests"`
	Tokens     int64              `json:"tokens"`
	CostUSD    float64            `json:"cost_usd"`
	Successes  int                `json:"successes"`
	ResponseMs int64              `json:"response_ms"`
	Errors     int                `json:"errors"`
	Breakdown  map[string]float64 `json:"breakdown,omitempty"`
}

type envelope struct {
	Status bool            `json:"status"`
	Msg    string          `json:"msg"`
	Obj    json.RawMessage `json:"obj"`
}

// Claim pulls up to batchSize jobs, optionally filtered by region. An
// empty slice means nothing is currently eligible.
func (c *Client) Claim(ctx context.Context, batchSize int, region string) ([]models.JobDescriptor, error) {
	env, err := c.post(ctx, "/api/queue/claim", map[string]interface{}{
		"batch_size": batchSize,
		"region":     region,
	}, "")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Jobs []models.JobDescriptor `json:"jobs"`
	}
	if err := json.Unmarshal(env.Obj, &payload); err != nil {
		return nil, fmt.Errorf("decode claim payload: %w", err)
	}
	return payload.Jobs, nil
}

// ReportOutcome reports one job outcome exactly once. A fresh idempotency
// key is attached per call; transport-level retries reuse it, so a
// redelivered report is dropped server-side instead of double-counted.
func (c *Client) ReportOutcome(ctx context.Context, jobID uint, outcome Outcome) error {
	path := fmt.Sprintf("/api/jobs/%d/outcome", jobID)
	_, err := c.post(ctx, path, outcome, uuid.NewString())
	return err
}

// RecordPrice feeds an observed listing price into the change log.
// Returns whether the price differed from the last recorded one.
func (c *Client) RecordPrice(ctx context.Context, externalID string, price float64) (bool, error) {
	env, err := c.post(ctx, "/api/prices", map[string]interface{}{
		"external_id": externalID,
		"price":       price,
	}, "")
	if err != nil {
		return false, err
	}

	var payload struct {
		Changed bool `json:"changed"`
	}
	if err := json.Unmarshal(env.Obj, &payload); err != nil {
		return false, fmt.Errorf("decode price payload: %w", err)
	}
	return payload.Changed, nil
}

// RecordCost merges an AI-spend delta into the ledger. Failures can be
// ignored by callers; the ledger never gates scraping.
func (c *Client) RecordCost(ctx context.Context, report CostReport) error {
	_, err := c.post(ctx, "/api/costs", report, "")
	return err
}

func (c *Client) post(ctx context.Context, path string, body interface{}, idempotencyKey string) (*envelope, error) {
	var env envelope
	req := c.http.Request().
		SetContext(ctx).
		SetBody(body).
		SetResult(&env)
	if idempotencyKey != "" {
		req.SetHeader("Idempotency-Key", idempotencyKey)
	}

	resp, err := req.Post(path)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	if resp.StatusCode() >= 500 {
		return nil, fmt.Errorf("POST %s: server error %d", path, resp.StatusCode())
	}
	if !env.Status {
		return nil, fmt.Errorf("POST %s: %s", path, env.Msg)
	}
	return &env, nil
}
