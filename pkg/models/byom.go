package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/HatiCode/autompg/pkg/vehicle"
)

// BYOMModel implements a model that delegates predictions to an external HTTP service.
// This allows serving the original scikit-learn pipeline (or any other runtime)
// next to this process, as long as the service implements the contract below.
//
// Request:
//
//	POST <endpoint>
//	{"columns": ["cylinders", ..., "power_to_weight"], "instances": [[4, 150, ...]]}
//
// Response:
//
//	{"predictions": [25.02]}
type BYOMModel struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
}

type byomRequest struct {
	Columns   []string    `json:"columns"`
	Instances [][]float64 `json:"instances"`
}

// NewBYOMModel creates a new BYOM model that delegates to an external HTTP service.
// Each prediction is bounded by timeout. A nil client gets a pooled default.
func NewBYOMModel(endpoint string, client *http.Client, timeout time.Duration) *BYOMModel {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		}
	}

	return &BYOMModel{
		endpoint: endpoint,
		client:   client,
		timeout:  timeout,
	}
}

// Name returns the model identifier.
func (m *BYOMModel) Name() string {
	return FormatBYOM
}

// Predict sends features to the external service and returns its first prediction.
func (m *BYOMModel) Predict(ctx context.Context, features vehicle.FeatureVector) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	body, err := json.Marshal(byomRequest{
		Columns:   vehicle.FeatureNames(),
		Instances: [][]float64{features.Slice()},
	})
	if err != nil {
		return 0, fmt.Errorf("byom: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("byom: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("byom: http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("byom: http %d: %s", resp.StatusCode, string(bodyBytes))
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("byom: read response: %w", err)
	}

	prediction := gjson.GetBytes(respBody, "predictions.0")
	if prediction.Type != gjson.Number {
		return 0, fmt.Errorf("byom: response has no numeric predictions[0]: %s", truncate(respBody, 256))
	}

	return prediction.Float(), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func decodeBYOM(doc gjson.Result, opts decodeOptions) (Model, error) {
	endpoint := doc.Get("endpoint").String()
	if endpoint == "" {
		return nil, fmt.Errorf("%w: byom artifact requires an endpoint", ErrInvalidArtifact)
	}

	timeout := opts.byomTimeout
	if raw := doc.Get("timeout").String(); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: invalid byom timeout %q", ErrInvalidArtifact, raw)
		}
		timeout = d
	}

	return NewBYOMModel(endpoint, opts.httpClient, timeout), nil
}
