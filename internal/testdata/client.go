package testdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL string
	// Token is sent as a bearer credential when set. The server decides
	// what an unauthenticated request may do.
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
	Logger     *slog.Logger
	// UserAgent defaults to "aqk-cli".
	UserAgent string
}

// Client talks to the orchestrator's testdata endpoints:
//
//	POST {base}/testdata/upload   multipart, one part per artifact
//	POST {base}/testdata/by-url   {"urls": {artifact: url}}
//	POST {base}/testdata/paste    {artifact: text}
//	GET  {base}/testdata/{id}     bundle metadata
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
	log       *slog.Logger
}

// NewClient returns a Client for cfg.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("orchestrator base URL is not configured")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid orchestrator base URL %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "aqk-cli"
	}
	return &Client{baseURL: base, token: strings.TrimSpace(cfg.Token), userAgent: ua, http: hc, log: log}, nil
}

// BaseURL returns the normalized orchestrator address.
func (c *Client) BaseURL() string { return c.baseURL }

// Upload sends files as one multipart request. Parts are named by artifact.
func (c *Client) Upload(ctx context.Context, files map[Artifact]File) (*IngestResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, a := range AllArtifacts {
		f, ok := files[a]
		if !ok {
			continue
		}
		name := f.Name
		if name == "" {
			name = string(a)
		}
		part, err := mw.CreateFormFile(string(a), name)
		if err != nil {
			return nil, &Error{Op: OpUpload, Kind: TransportFailure, Err: err}
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, &Error{Op: OpUpload, Kind: TransportFailure, Err: err}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, &Error{Op: OpUpload, Kind: TransportFailure, Err: err}
	}
	body, err := c.do(ctx, OpUpload, http.MethodPost, "/testdata/upload", mw.FormDataContentType(), &buf, "")
	if err != nil {
		return nil, err
	}
	return c.ingestResult(OpUpload, body)
}

// IngestURLs asks the server to fetch each artifact from a URL.
func (c *Client) IngestURLs(ctx context.Context, urls map[Artifact]string) (*IngestResult, error) {
	payload := struct {
		URLs map[Artifact]string `json:"urls"`
	}{URLs: urls}
	body, err := c.postJSON(ctx, OpURL, "/testdata/by-url", payload)
	if err != nil {
		return nil, err
	}
	return c.ingestResult(OpURL, body)
}

// Paste sends inline artifact content.
func (c *Client) Paste(ctx context.Context, texts map[Artifact]string) (*IngestResult, error) {
	body, err := c.postJSON(ctx, OpPaste, "/testdata/paste", texts)
	if err != nil {
		return nil, err
	}
	return c.ingestResult(OpPaste, body)
}

// Meta fetches the metadata of bundle id. It is a read with no side effects.
func (c *Client) Meta(ctx context.Context, id string) (*Bundle, error) {
	body, err := c.do(ctx, OpValidate, http.MethodGet, "/testdata/"+url.PathEscape(id), "", nil, id)
	if err != nil {
		return nil, err
	}
	b, err := parseBundle(body, id)
	if err != nil {
		return nil, &Error{Op: OpValidate, Kind: MalformedResponse, TestdataID: id, Err: err}
	}
	return b, nil
}

func (c *Client) ingestResult(op Op, body []byte) (*IngestResult, error) {
	res, err := parseIngestResult(body)
	if err != nil {
		return nil, &Error{Op: op, Kind: MalformedResponse, Err: err}
	}
	return res, nil
}

func (c *Client) postJSON(ctx context.Context, op Op, path string, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Op: op, Kind: TransportFailure, Err: err}
	}
	return c.do(ctx, op, http.MethodPost, path, "application/json", bytes.NewReader(b), "")
}

// do performs one request and funnels every failure through classify.
func (c *Client) do(ctx context.Context, op Op, method, path, contentType string, body io.Reader, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &Error{Op: op, Kind: TransportFailure, TestdataID: id, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("testdata request failed", "op", string(op), "path", path, "error", err)
		return nil, &Error{Op: op, Kind: TransportFailure, TestdataID: id, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.log.Debug("testdata request",
		"op", string(op),
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"token_present", c.token != "",
		"elapsed", time.Since(start))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classify(op, resp.StatusCode, data, id)
	}
	if err != nil {
		return nil, &Error{Op: op, Kind: TransportFailure, TestdataID: id, Err: err}
	}
	return data, nil
}
