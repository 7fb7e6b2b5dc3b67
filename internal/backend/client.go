package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/sozercan/vision-results/apimodels"
)

// Endpoints of the analysis backend.
const (
	AnalyzePath   = "/api/analyze"
	TranslatePath = "/api/translate"
	SpeakPath     = "/api/speak"
	SavePath      = "/api/save"
	UploadPath    = "/api/upload"
)

var ErrBackendStatus = errors.New("unexpected backend status")

// StatusError reports a non-2xx answer from the backend.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrBackendStatus
}

// Client talks JSON over HTTP to the image-analysis backend.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	slog.Info("Creating backend client", "baseURL", baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("backend URL cannot be empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend URL %q must be absolute", baseURL)
	}

	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Upload relays an image to the backend as the multipart field "file". The
// backend stores it and answers with the path to analyze.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (*apimodels.UploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", UploadPath, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", UploadPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(UploadPath), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", UploadPath, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var resp apimodels.UploadResponse
	if err := c.do(req, UploadPath, &resp, true); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Filepath == "" {
		return nil, fmt.Errorf("%s: upload rejected: %s", UploadPath, resp.Error)
	}
	slog.Info("Image uploaded", "filepath", resp.Filepath)
	return &resp, nil
}

// Analyze runs the analysis of an uploaded image and returns the raw
// analysis document.
func (c *Client) Analyze(ctx context.Context, filepath string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.postJSON(ctx, AnalyzePath, apimodels.AnalyzeRequest{Filepath: filepath}, &raw, true); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) Translate(ctx context.Context, text string, languages []string) (apimodels.TranslationMap, error) {
	var resp apimodels.TranslateResponse
	req := apimodels.TranslateRequest{Text: text, Languages: languages}
	if err := c.postJSON(ctx, TranslatePath, req, &resp, true); err != nil {
		return nil, err
	}
	if resp.Translations == nil {
		return nil, fmt.Errorf("%s: response has no translations", TranslatePath)
	}
	return resp.Translations, nil
}

func (c *Client) Speak(ctx context.Context, text, language string) (*apimodels.SpeakResponse, error) {
	var resp apimodels.SpeakResponse
	req := apimodels.SpeakRequest{Text: text, Language: language}
	if err := c.postJSON(ctx, SpeakPath, req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Save posts an analysis document. The backend reports failures in the body,
// so the body is decoded whatever the status.
func (c *Client) Save(ctx context.Context, result json.RawMessage) (*apimodels.SaveResponse, error) {
	var resp apimodels.SaveResponse
	if err := c.postJSON(ctx, SavePath, result, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Proxy forwards static resources (uploads, audio) to the backend.
func (c *Client) Proxy() http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(c.baseURL)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Error("Backend proxy failed", "path", r.URL.Path, "error", err)
		http.Error(w, "backend unavailable", http.StatusBadGateway)
	}
	return proxy
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.baseURL.String(), "/") + path
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any, requireOK bool) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, path, out, requireOK)
}

// do sends req and decodes the JSON answer into out. With requireOK a
// non-2xx status is a *StatusError.
func (c *Client) do(req *http.Request, path string, out any, requireOK bool) error {
	slog.Debug("Calling backend", "endpoint", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Backend request failed", "endpoint", path, "error", err)
		return fmt.Errorf("%s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}

	if requireOK && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		slog.Warn("Backend returned error status", "endpoint", path, "status", resp.StatusCode)
		return &StatusError{Endpoint: path, StatusCode: resp.StatusCode, Body: truncate(string(data), 200)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	slog.Debug("Backend call completed", "endpoint", path, "status", resp.StatusCode)
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "[truncated]"
	}
	return s
}
