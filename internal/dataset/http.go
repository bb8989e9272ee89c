package dataset

import (
	"context"
	"fmt"
	"time"

	"forest-predictor/internal/storage"

	"github.com/go-resty/resty/v2"
)

// HTTPSource fetches labeled examples from a remote endpoint that answers
// GET with {"examples": [{"features": [...], "label": y}, ...]}.
type HTTPSource struct {
	url    string
	client *resty.Client
}

type examplesPayload struct {
	Examples []storage.Example `json:"examples"`
}

// NewHTTPSource creates a source for url with the given request timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetHeader("Accept", "application/json")

	return &HTTPSource{url: url, client: client}
}

func (s *HTTPSource) Name() string { return "http" }

func (s *HTTPSource) Load(ctx context.Context) (*Dataset, error) {
	var payload examplesPayload
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&payload).
		Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch training data: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch training data: %s: %s", resp.Status(), resp.String())
	}
	return FromExamples(payload.Examples)
}
