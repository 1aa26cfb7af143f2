package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/errs"
	"github.com/bascanada/loggate/pkg/sanitize"
	"github.com/bascanada/loggate/pkg/ty"
)

// maxErrorBody bounds how much of a backend error response is carried in a
// BackendError for diagnostics.
const maxErrorBody = 2000

// Auth injects a credential into an outbound request.
type Auth interface {
	Login(req *http.Request) error
}

// CookieAuth sets a single session cookie, the scheme both log backends use.
type CookieAuth struct {
	Name  string
	Value string
}

func (c CookieAuth) Login(req *http.Request) error {
	req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	return nil
}

// HttpClient executes requests against one backend base URL. The backend
// name flavors the errors it produces.
type HttpClient struct {
	backend string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient builds a client for one backend. The base URL is normalized:
// https is assumed when no scheme is given and trailing slashes are
// stripped.
func NewClient(backend, baseURL string, manager *ConnectionManager, opts ClientOptions, logger *zap.Logger) HttpClient {
	if baseURL != "" {
		if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
			baseURL = "https://" + baseURL
		}
		for strings.HasSuffix(baseURL, "/") {
			baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
	return HttpClient{
		backend: backend,
		baseURL: baseURL,
		client:  manager.Client(opts),
		logger:  logger.Named("http").With(zap.String("backend", backend)),
	}
}

// BaseURL returns the normalized base URL.
func (c HttpClient) BaseURL() string {
	return c.baseURL
}

// Underlying exposes the net/http client, used by tests to intercept
// traffic.
func (c HttpClient) Underlying() *http.Client {
	return c.client
}

// PostJson marshals body, POSTs it to path, and unmarshals a 2xx response
// into responseData. Non-2xx responses become *errs.BackendError carrying
// the status and a truncated body; 401/403 become *errs.AuthenticationError.
func (c HttpClient) PostJson(ctx context.Context, path string, headers ty.MS, body interface{}, responseData interface{}, auth Auth) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}
	if headers == nil {
		headers = ty.MS{}
	}
	headers["Content-Type"] = "application/json"
	return c.do(ctx, http.MethodPost, path, headers, &buf, responseData, auth)
}

// Get requests path with optional query parameters and unmarshals a 2xx
// response into responseData.
func (c HttpClient) Get(ctx context.Context, path string, queryParams ty.MS, responseData interface{}, auth Auth) error {
	if len(queryParams) > 0 {
		q := url.Values{}
		for k, v := range queryParams {
			q.Add(k, v)
		}
		path += "?" + q.Encode()
	}
	return c.do(ctx, http.MethodGet, path, ty.MS{"Accept": "application/json"}, nil, responseData, auth)
}

func (c HttpClient) do(ctx context.Context, method, path string, headers ty.MS, body io.Reader, responseData interface{}, auth Auth) error {
	fullURL := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if auth != nil {
		if err := auth.Login(req); err != nil {
			return err
		}
	}

	c.logger.Debug("outbound request",
		zap.String("method", method),
		zap.String("url", fullURL),
		zap.String("headers", maskHeaders(req.Header)))

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return &errs.AuthenticationError{
			Context: c.backend,
			Message: fmt.Sprintf("%s authentication failed (status %d), check your auth token", c.backend, res.StatusCode),
		}
	}
	if res.StatusCode >= 400 {
		return &errs.BackendError{
			Backend: c.backend,
			Status:  res.StatusCode,
			Body:    sanitize.ForLogging(string(resBody), maxErrorBody),
			Message: "request failed",
		}
	}

	if responseData == nil {
		return nil
	}
	if err := json.Unmarshal(resBody, responseData); err != nil {
		return &errs.BackendError{
			Backend: c.backend,
			Message: fmt.Sprintf("invalid JSON response: %v", err),
		}
	}
	return nil
}

// maskHeaders renders headers with sensitive values redacted, keeping the
// first characters so presence can be verified in debug logs.
func maskHeaders(h http.Header) string {
	parts := make([]string, 0, len(h))
	for k, vals := range h {
		v := ""
		if len(vals) > 0 {
			switch strings.ToLower(k) {
			case "authorization", "cookie", "x-auth-token":
				v = sanitize.MaskSecret(vals[0])
			default:
				v = vals[0]
			}
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k, v))
	}
	return strings.Join(parts, "; ")
}
