// Package ocr sends receipt images to the OCR.space parse API.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const DefaultURL = "https://api.ocr.space/parse/image"

var (
	ErrNoAPIKey = errors.New("OCR API key not configured")
	// ErrUpstream wraps transport and decoding failures of the OCR service.
	ErrUpstream = errors.New("ocr upstream failure")
)

type Client struct {
	apiKey string
	url    string
	http   *http.Client
}

// New builds a client. An empty url selects DefaultURL.
func New(apiKey, url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey: strings.TrimSpace(apiKey),
		url:    url,
		http:   &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

type parseResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool `json:"IsErroredOnProcessing"`
	ErrorMessage          any  `json:"ErrorMessage"`
}

// ExtractText uploads the image and returns the recognised text: every
// non-blank parsed page, trimmed, joined by a blank line.
func (c *Client) ExtractText(ctx context.Context, filename, contentType string, image io.Reader) (string, error) {
	if !c.Configured() {
		return "", ErrNoAPIKey
	}

	body, ctype, err := encodeForm(filename, contentType, image)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s", ErrUpstream, resp.Status)
	}

	var parsed parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}

	texts := make([]string, 0, len(parsed.ParsedResults))
	for _, r := range parsed.ParsedResults {
		if t := strings.TrimSpace(r.ParsedText); t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 && parsed.IsErroredOnProcessing {
		return "", fmt.Errorf("%w: %s", ErrUpstream, errorMessage(parsed.ErrorMessage))
	}
	return strings.Join(texts, "\n\n"), nil
}

func encodeForm(filename, contentType string, image io.Reader) (*bytes.Buffer, string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, "", fmt.Errorf("copy image: %w", err)
	}
	for k, v := range map[string]string{"language": "eng", "isOverlayRequired": "false"} {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// errorMessage flattens OCR.space's ErrorMessage, which is a string or a list.
func errorMessage(v any) string {
	switch m := v.(type) {
	case string:
		return m
	case []any:
		parts := make([]string, 0, len(m))
		for _, p := range m {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, "; ")
	default:
		return "processing failed"
	}
}
