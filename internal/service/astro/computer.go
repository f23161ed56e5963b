package astro

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/okulov/planettalk/backend/internal/config"
	"github.com/okulov/planettalk/backend/internal/logging"
	"github.com/okulov/planettalk/backend/internal/model/astro"
)

// ErrChartComputation wraps any failure of the chart collaborator so
// callers can surface it to the user without inspecting transport
// details.
var ErrChartComputation = errors.New("chart computation failed")

// Computer produces a birth chart for a parsed birth moment.
type Computer interface {
	Compute(ctx context.Context, moment astro.BirthMoment) (astro.Chart, error)
}

// HTTPComputer calls an external chart-computation API.
type HTTPComputer struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPComputer builds a Computer from the chart API configuration.
func NewHTTPComputer(cfg config.ChartConfig) *HTTPComputer {
	return &HTTPComputer{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

// Compute posts the birth moment and decodes the body-name to record
// mapping. Any transport, status or decode failure comes back wrapped
// as ErrChartComputation.
func (c *HTTPComputer) Compute(ctx context.Context, moment astro.BirthMoment) (astro.Chart, error) {
	payload, err := json.Marshal(moment)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrChartComputation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chart", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrChartComputation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChartComputation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logging.ErrorLogger.Error("chart api returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return nil, fmt.Errorf("%w: chart api status %d", ErrChartComputation, resp.StatusCode)
	}

	var chart astro.Chart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrChartComputation, err)
	}

	logging.AppLogger.Info("chart computed",
		zap.String("city", moment.City),
		zap.Int("bodies", len(chart)),
	)
	return chart, nil
}
