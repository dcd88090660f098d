// Package apiclient is the single shared client for the commerce backend REST API.
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
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const apiPrefix = "/api"

// TokenSource yields the Authorization value for the caller bound to ctx.
// An empty string means the request goes out anonymously.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// Option customises a single request.
type Option func(*http.Request)

func WithHeader(key, value string) Option {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

func WithQuery(values url.Values) Option {
	return func(r *http.Request) {
		q := r.URL.Query()
		for k, vs := range values {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		r.URL.RawQuery = q.Encode()
	}
}

// File is one part of a multipart upload.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        io.Reader
}

// Blob is a binary download.
type Blob struct {
	Data        []byte
	ContentType string
	Filename    string
}

func Get[T any](ctx context.Context, c *Client, path string, opts ...Option) (T, error) {
	return Send[T](ctx, c, http.MethodGet, path, nil, opts...)
}

// Send issues a request with an optional JSON body and decodes the JSON answer into T.
func Send[T any](ctx context.Context, c *Client, method, path string, body any, opts ...Option) (T, error) {
	var out T

	raw, err := c.roundTrip(ctx, method, path, body, opts...)
	if err != nil {
		return out, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Error().Err(err).Str("method", method).Str("path", path).Msg("Failed to decode backend response")
		return out, fmt.Errorf("failed to decode response from %s %s: %w", method, path, err)
	}
	return out, nil
}

// Do issues a request and discards the response body.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...Option) error {
	_, err := c.roundTrip(ctx, method, path, body, opts...)
	return err
}

// Upload posts files and plain fields as multipart/form-data.
func Upload[T any](ctx context.Context, c *Client, path string, files []File, fields map[string]string, opts ...Option) (T, error) {
	var out T

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return out, fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := mw.CreatePart(header)
		if err != nil {
			return out, fmt.Errorf("failed to create form part %s: %w", f.Name, err)
		}
		if _, err := io.Copy(part, f.Data); err != nil {
			return out, fmt.Errorf("failed to copy file %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return out, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, buf, mw.FormDataContentType(), opts...)
	if err != nil {
		return out, err
	}
	resp, err := c.execute(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("failed to read upload response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return out, nil
}

// Download fetches a binary resource such as a stored contract.
func (c *Client) Download(ctx context.Context, path string, opts ...Option) (*Blob, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "", opts...)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.execute(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read download body: %w", err)
	}

	blob := &Blob{Data: data, ContentType: resp.Header.Get("Content-Type")}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			blob.Filename = params["filename"]
		}
	}
	return blob, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, opts ...Option) ([]byte, error) {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, path, reader, contentType, opts...)
	if err != nil {
		return nil, err
	}

	resp, err := c.execute(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return raw, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string, opts ...Option) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request %s %s: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.AccessToken(ctx); token != "" {
			req.Header.Set("Authorization", token)
		}
	}
	for _, opt := range opts {
		opt(req)
	}
	return req, nil
}

// execute returns the response only for 2xx answers; the caller closes the body.
func (c *Client) execute(req *http.Request) (*http.Response, error) {
	requestID := req.Header.Get("X-Request-ID")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("request_id", requestID).
			Msg("Backend request failed")
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := parseError(resp.StatusCode, raw)
	apiErr.RequestID = requestID

	event := log.Error()
	if errors.Is(apiErr, ErrNotFound) {
		event = log.Warn()
	}
	event.Err(apiErr).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Msg("Backend responded with an error")

	return nil, apiErr
}
