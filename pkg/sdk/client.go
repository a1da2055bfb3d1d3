package ragdex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 90 * time.Second

// Client calls the ragdex HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the Client.
type Option interface {
	apply(*Client)
}

type optionFunc func(*Client)

func (f optionFunc) apply(c *Client) { f(c) }

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *Client) {
		c.apiKey = key
	})
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *Client) {
		c.httpClient = hc
	})
}

// WithTimeout sets the per-request timeout. Default 90s; chat turns can chain
// several model calls.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *Client) {
		c.httpClient.Timeout = d
	})
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o.apply(c)
	}
	return c
}

// Chat runs one conversational turn. An empty sessionID starts a new
// conversation; the returned Turn carries the id to continue it.
func (c *Client) Chat(ctx context.Context, sessionID, message string) (Turn, error) {
	body := map[string]string{"message": message}
	if sessionID != "" {
		body["session_id"] = sessionID
	}
	var turn Turn
	if err := c.postJSON(ctx, "/api/v1/chat", body, &turn); err != nil {
		return Turn{}, err
	}
	return turn, nil
}

// Query asks for a single grounded answer without a session.
func (c *Client) Query(ctx context.Context, req QueryRequest) (QueryResult, error) {
	var result QueryResult
	if err := c.postJSON(ctx, "/api/v1/rag/query", req, &result); err != nil {
		return QueryResult{}, err
	}
	return result, nil
}

// Retrieve returns raw scored chunks for a query without generation.
func (c *Client) Retrieve(ctx context.Context, req RetrieveRequest) (RetrieveResult, error) {
	var result RetrieveResult
	if err := c.postJSON(ctx, "/api/v1/retrieve", req, &result); err != nil {
		return RetrieveResult{}, err
	}
	return result, nil
}

// Upload ingests one document. The filename extension selects the parser
// (.txt, .md, .html, .htm).
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := io.Copy(fw, content); err != nil {
		return UploadResult{}, fmt.Errorf("read content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("build multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/documents", &buf)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return UploadResult{}, err
	}
	return result, nil
}

// Reset drops the vector index and all stored chunks.
func (c *Client) Reset(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/v1/documents", http.NoBody)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Health fetches the service health report. A degraded service returns the
// report together with an *APIError carrying status 503.
func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return Health{}, err
	}

	var h Health
	if err := c.do(req, &h); err != nil {
		return h, err
	}
	return h, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ragdex: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("ragdex: read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Code = "unknown"
			apiErr.Message = strings.TrimSpace(string(body))
		}
		// Degraded health still carries a report worth decoding.
		if out != nil && resp.StatusCode == http.StatusServiceUnavailable {
			_ = json.Unmarshal(body, out)
		}
		return apiErr
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("ragdex: decode response: %w", err)
	}
	return nil
}
