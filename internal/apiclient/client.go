// Package apiclient is a typed client for the spendlog REST API.
//
// Every response is decoded through the same envelope rules: a non-2xx
// status becomes an *Error carrying the server's message (or the status
// text), a 204 carries no payload, and a 2xx body with ok=false is still a
// failure. The payload is the "data" member when present, the bare body
// otherwise.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"spendlog/internal/core"
)

// ErrNotFound matches any *Error with status 404.
var ErrNotFound = errors.New("not found")

// Error is a failed API call.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the pooled default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    newHTTPClientWithPooling(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newHTTPClientWithPooling keeps a small pool of idle connections to the API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   2 * time.Minute,
	}
}

// ListExpenses fetches one page of expenses.
func (c *Client) ListExpenses(ctx context.Context, q core.ListQuery) (core.ExpensePage, error) {
	var page core.ExpensePage
	path := "/expenses"
	if v := q.Values(); len(v) > 0 {
		path += "?" + v.Encode()
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
		return core.ExpensePage{}, err
	}
	if page.Items == nil {
		page.Items = []core.Expense{}
	}
	return page, nil
}

// GetExpense fetches one expense. A missing id is reported as ErrNotFound.
func (c *Client) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	var e core.Expense
	if err := c.doJSON(ctx, http.MethodGet, "/expenses/"+url.PathEscape(id), nil, &e); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// CreateExpense posts a new expense. An empty category is sent as OTHER.
func (c *Client) CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	if in.Category == "" {
		in.Category = core.CategoryOther
	}
	var e core.Expense
	if err := c.doJSON(ctx, http.MethodPost, "/expenses", in, &e); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// UpdateExpense sends only the fields set in patch.
func (c *Client) UpdateExpense(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error) {
	var e core.Expense
	if err := c.doJSON(ctx, http.MethodPut, "/expenses/"+url.PathEscape(id), patch, &e); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/expenses/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Dashboard(ctx context.Context) (core.Dashboard, error) {
	var d core.Dashboard
	if err := c.doJSON(ctx, http.MethodGet, "/dashboard", nil, &d); err != nil {
		return core.Dashboard{}, err
	}
	return d, nil
}

// ExtractReceiptText uploads an image as the multipart "file" field and
// returns the recognised text.
func (c *Client) ExtractReceiptText(ctx context.Context, name string, image io.Reader) (string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(name)))
	ctype := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	h.Set("Content-Type", ctype)

	part, err := w.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/ocr/extract", buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out struct {
		Text string `json:"text"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

type envelope struct {
	OK    *bool           `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		// a non-JSON error page still yields the status text below
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	if env.OK != nil && !*env.OK && env.Error != "" {
		return &Error{Status: resp.StatusCode, Message: env.Error}
	}

	payload := raw
	if len(env.Data) > 0 {
		payload = env.Data
	}
	if len(bytes.TrimSpace(payload)) == 0 || string(bytes.TrimSpace(payload)) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
