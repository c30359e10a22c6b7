// Package storeapi is a client for the external content and progress API.
//
// Every response body is validated against a JSON schema before it is
// decoded. Payloads that do not match are data-integrity errors. Requests
// are never retried: a failed write is reported to the learner, who decides
// whether to resubmit.
package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
)

// LearnerHeader carries the learner on whose behalf a request is made.
const LearnerHeader = "X-Learner-ID"

const maxBodyBytes = 4 << 20

// Client talks to the external API layer.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client. timeout bounds each request.
func New(baseURL, token string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("store api base URL is required")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type request struct {
	op        string
	method    string
	path      string
	learnerID string
	ifMatch   string
	body      any
	schema    *gojsonschema.Schema
	out       any
}

// do sends the request and decodes a validated response into r.out. A 204
// or empty body leaves r.out untouched and reports false.
func (c *Client) do(ctx context.Context, r request) (bool, error) {
	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return false, apperr.Wrap(apperr.KindInternal, r.op, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, r.op, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if r.learnerID != "" {
		req.Header.Set(LearnerHeader, r.learnerID)
	}
	if r.ifMatch != "" {
		req.Header.Set("If-Match", r.ifMatch)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return false, apperr.Transient(r.op, fmt.Errorf("%s %s: %w", r.method, r.path, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return false, apperr.Transient(r.op, fmt.Errorf("read response: %w", err))
	}

	slog.Debug("store api request",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := statusError(r.op, resp.StatusCode, data); err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 || r.out == nil {
		return false, nil
	}

	if r.schema != nil {
		if err := validate(r.op, r.schema, data); err != nil {
			return false, err
		}
	}
	if err := json.Unmarshal(data, r.out); err != nil {
		return false, apperr.Wrap(apperr.KindDataIntegrity, r.op, fmt.Errorf("decode response: %w", err))
	}
	return true, nil
}

// statusError maps a non-2xx status to an error kind.
func statusError(op string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	msg := errorMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	err := fmt.Errorf("store api returned %d: %s", status, msg)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.Wrap(apperr.KindUnauthorized, op, err)
	case status == http.StatusNotFound:
		return apperr.Wrap(apperr.KindNotFound, op, err)
	case status == http.StatusConflict || status == http.StatusPreconditionFailed:
		return apperr.Wrap(apperr.KindConflict, op, err)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return apperr.Wrap(apperr.KindInput, op, err)
	case status == http.StatusTooManyRequests || status >= 500:
		return apperr.Transient(op, err)
	default:
		return apperr.Wrap(apperr.KindInternal, op, err)
	}
}

func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}

func validate(op string, schema *gojsonschema.Schema, data []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return apperr.Wrap(apperr.KindDataIntegrity, op, fmt.Errorf("malformed payload: %w", err))
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return apperr.Wrap(apperr.KindDataIntegrity, op, errors.New("payload rejected: "+strings.Join(problems, "; ")))
}
