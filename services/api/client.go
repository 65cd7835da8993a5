package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"shopfront/models"
)

// Mode selects the forced-logout behavior of the client. In strict mode a
// failed token refresh hard-resets the host (the production behavior); in
// relaxed mode only the forced-logout notification fires, which avoids
// clobbering state during development reload cycles.
type Mode string

const (
	ModeStrict  Mode = "strict"
	ModeRelaxed Mode = "relaxed"
)

// ParseMode maps a configuration string onto a Mode, defaulting to strict.
func ParseMode(s string) Mode {
	if s == string(ModeRelaxed) {
		return ModeRelaxed
	}
	return ModeStrict
}

// TokenSource provides the stored credential pair and accepts updates from
// the silent-refresh path.
type TokenSource interface {
	AccessToken() string
	RefreshToken() string
	SetAccessToken(token string) error
	Clear() error
}

// Envelope is the JSON wrapper every storefront endpoint responds with.
// Data holds the payload for successful calls; Message carries the
// server-side failure description. The refresh endpoint returns the new
// access token at the top level, and the cart count endpoint does the same
// with Count.
type Envelope struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message,omitempty"`
	Data        json.RawMessage   `json:"data,omitempty"`
	AccessToken string            `json:"accessToken,omitempty"`
	Count       int               `json:"count,omitempty"`
	Meta        *models.Pagination `json:"meta,omitempty"`
}

// Client wraps outgoing requests to the storefront API: it attaches the
// current bearer token, decodes the response envelope, and intercepts 401
// responses to attempt exactly one silent token refresh before giving up.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	mode       Mode
	logger     *slog.Logger

	onForcedLogout func()
	onHardReset    func()
}

// NewClient creates a storefront API client against the given base URL.
func NewClient(baseURL string, tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		mode:       ModeStrict,
		logger:     logger,
	}
}

// SetMode switches between strict and relaxed forced-logout behavior.
func (c *Client) SetMode(mode Mode) { c.mode = mode }

// OnForcedLogout registers the callback invoked after the client has cleared
// session state because a refresh was impossible or failed.
func (c *Client) OnForcedLogout(fn func()) { c.onForcedLogout = fn }

// OnHardReset registers the strict-mode callback fired after a forced logout.
// The host decides what a "full reload" means for it.
func (c *Client) OnHardReset(fn func()) { c.onHardReset = fn }

// Get issues a GET and unmarshals the envelope data into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.DoJSON(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body and unmarshals the envelope data into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with a JSON body and unmarshals the envelope data into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE and unmarshals the envelope data into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.DoJSON(ctx, http.MethodDelete, path, nil, out)
}

// DoJSON performs a request with an optional JSON body and decodes the
// envelope data into out when out is non-nil.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any) error {
	env, err := c.DoEnvelope(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeData(env, out)
}

// DoEnvelope performs a request with an optional JSON body and returns the
// raw response envelope. Callers that need top-level envelope fields
// (accessToken, count, meta) use this instead of DoJSON.
func (c *Client) DoEnvelope(ctx context.Context, method, path string, body any) (*Envelope, error) {
	var payload []byte
	contentType := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		payload = b
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, payload)
}

// DoMultipart performs a request with a multipart body: the given form
// fields plus, when filePath is non-empty, the file attached under
// fileField with its detected content type.
func (c *Client) DoMultipart(ctx context.Context, method, path string, fields map[string]string, fileField, filePath string, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("write form field: %w", err)
		}
	}
	if filePath != "" {
		if err := attachFile(w, fileField, filePath); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	env, err := c.do(ctx, method, path, w.FormDataContentType(), buf.Bytes())
	if err != nil {
		return err
	}
	return decodeData(env, out)
}

func attachFile(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detect file type: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filepath.Base(path)))
	h.Set("Content-Type", mt.String())
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copy upload file: %w", err)
	}
	return nil
}

// do sends the request, attaching the current access token when present.
// On a 401 it attempts a single token refresh and replays the request once
// with the new token; a replayed 401 is returned as-is. The body is kept as
// a byte slice so the replay reuses it verbatim.
func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) (*Envelope, error) {
	env, status, err := c.send(ctx, method, path, contentType, body, c.tokens.AccessToken())
	if err != nil {
		return nil, err
	}
	if status != http.StatusUnauthorized {
		return checkEnvelope(env, status)
	}

	original := &Error{StatusCode: status, Message: env.Message}

	refreshToken := c.tokens.RefreshToken()
	if refreshToken == "" {
		// No silent-refresh path: fail closed.
		c.forceLogout()
		return nil, original
	}

	newToken, err := c.refresh(ctx, refreshToken)
	if err != nil {
		c.logger.Warn("token refresh failed", "error", err)
		c.forceLogout()
		return nil, original
	}

	env, status, err = c.send(ctx, method, path, contentType, body, newToken)
	if err != nil {
		return nil, err
	}
	return checkEnvelope(env, status)
}

// send performs one HTTP round trip and decodes the response envelope.
func (c *Client) send(ctx context.Context, method, path, contentType string, body []byte, accessToken string) (*Envelope, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("storefront api request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	var env Envelope
	if len(respBody) > 0 {
		// Tolerate non-JSON bodies; the status code still decides the outcome.
		_ = json.Unmarshal(respBody, &env)
	}
	return &env, resp.StatusCode, nil
}

// refresh exchanges the refresh token for a new access token and persists
// it. It bypasses the 401 intercept so a rejected refresh cannot recurse.
func (c *Client) refresh(ctx context.Context, refreshToken string) (string, error) {
	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return "", fmt.Errorf("marshal refresh request: %w", err)
	}

	env, status, err := c.send(ctx, http.MethodPost, "/auth/refresh-token", "application/json", payload, "")
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 || !env.Success || env.AccessToken == "" {
		return "", &Error{StatusCode: status, Message: env.Message}
	}
	if err := c.tokens.SetAccessToken(env.AccessToken); err != nil {
		return "", fmt.Errorf("persist access token: %w", err)
	}
	return env.AccessToken, nil
}

// RefreshAccessToken is the manual form of the refresh the 401 intercept
// performs implicitly. It fails closed: a missing refresh token or a failed
// refresh call forces a full sign-out.
func (c *Client) RefreshAccessToken(ctx context.Context) error {
	refreshToken := c.tokens.RefreshToken()
	if refreshToken == "" {
		c.forceLogout()
		return ErrNoRefreshToken
	}
	if _, err := c.refresh(ctx, refreshToken); err != nil {
		c.forceLogout()
		return fmt.Errorf("token refresh failed: %w", err)
	}
	return nil
}

// forceLogout clears stored credentials, notifies the host, and in strict
// mode asks the host to hard-reset itself.
func (c *Client) forceLogout() {
	if err := c.tokens.Clear(); err != nil {
		c.logger.Error("clear credentials", "error", err)
	}
	if c.onForcedLogout != nil {
		c.onForcedLogout()
	}
	if c.mode == ModeStrict && c.onHardReset != nil {
		c.onHardReset()
	}
}

func checkEnvelope(env *Envelope, status int) (*Envelope, error) {
	if status < 200 || status >= 300 || !env.Success {
		return nil, &Error{StatusCode: status, Message: env.Message}
	}
	return env, nil
}

func decodeData(env *Envelope, out any) error {
	if out == nil || env.Data == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
