// Package facescore talks to the Face++ detect endpoint and turns its beauty
// attributes into a single attractiveness score.
package facescore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api-us.faceplusplus.com/facepp/v3"

	// allows 1080x1080 images
	maxImagePixels = "1166400"
)

var ErrNoFaceDetected = errors.New("No face detected in the image")

// UpstreamError is a non-2xx answer from the scoring service.
type UpstreamError struct {
	Status             int
	Body               string
	ConcurrencyLimited bool
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Face++ API error: %s", e.Body)
}

// Analysis is the score for the first face found in an image.
type Analysis struct {
	Score       float64
	MaleScore   float64
	FemaleScore float64
}

type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *fasthttp.Client
	logger    *zap.Logger

	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
}

type Option func(*Client)

// WithTimeout bounds every single attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetry sets how many times a failed call is retried after the first
// attempt.
func WithRetry(max int) Option {
	return func(c *Client) { c.maxRetries = max }
}

// WithBaseDelay sets the linear backoff step. Retry n waits n*d.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(baseURL, apiKey, apiSecret string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		http:       &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second, MaxConnsPerHost: 16},
		logger:     zap.NewNop(),
		timeout:    15 * time.Second,
		maxRetries: 3,
		baseDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze scores image. Every failure is retried up to the configured number
// of times; when retries run out the last error is returned.
func (c *Client) Analyze(ctx context.Context, image []byte) (*Analysis, error) {
	body, contentType, err := c.buildForm(image)
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}

	attempts := c.maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(attempt)
			c.logger.Warn("retrying face analysis",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := sleepWithContext(ctx, delay); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		analysis, err := c.detect(ctx, body, contentType)
		if err == nil {
			return analysis, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

func (c *Client) buildForm(image []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"api_key", c.apiKey},
		{"api_secret", c.apiSecret},
		{"return_attributes", "beauty"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("image_file", "image")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

type detectResponse struct {
	Faces []struct {
		Attributes *struct {
			Beauty *struct {
				MaleScore   float64 `json:"male_score"`
				FemaleScore float64 `json:"female_score"`
			} `json:"beauty"`
		} `json:"attributes"`
	} `json:"faces"`
}

func (c *Client) detect(ctx context.Context, body []byte, contentType string) (*Analysis, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + "/detect")
	req.Header.SetContentType(contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Max-Image-Pixels", maxImagePixels)
	req.SetBody(body)

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return nil, fmt.Errorf("face++ request failed: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		text := truncate(string(resp.Body()), 512)
		return nil, &UpstreamError{
			Status:             status,
			Body:               text,
			ConcurrencyLimited: strings.Contains(text, "CONCURRENCY_LIMIT_EXCEEDED"),
		}
	}

	var out detectResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Faces) == 0 || out.Faces[0].Attributes == nil || out.Faces[0].Attributes.Beauty == nil {
		return nil, ErrNoFaceDetected
	}

	beauty := out.Faces[0].Attributes.Beauty
	return &Analysis{
		Score:       (beauty.MaleScore + beauty.FemaleScore) / 2,
		MaleScore:   beauty.MaleScore,
		FemaleScore: beauty.FemaleScore,
	}, nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
