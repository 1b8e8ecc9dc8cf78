package erpnext

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/ctxutil"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/envutil"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/httpx"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/logger"
)

// Client is the document-store contract consumed by every booking operation.
// All calls are synchronous request/response against the ERPNext REST API.
type Client interface {
	Create(ctx context.Context, doctype string, doc Document) (string, error)
	Get(ctx context.Context, doctype, name string) (Document, error)
	List(ctx context.Context, doctype string, filters Filters, fields []string) ([]Document, error)
	Update(ctx context.Context, doctype, name string, fields Document) error
	Submit(ctx context.Context, doctype, name string) error
	Cancel(ctx context.Context, doctype, name string) error
	Delete(ctx context.Context, doctype, name string) error
	RunMethod(ctx context.Context, method string, args any, out any) error
}

type Config struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:    strings.TrimSpace(os.Getenv("ERPNEXT_BASE_URL")),
		APIKey:     strings.TrimSpace(os.Getenv("ERPNEXT_API_KEY")),
		APISecret:  strings.TrimSpace(os.Getenv("ERPNEXT_API_SECRET")),
		Timeout:    envutil.Duration("ERPNEXT_TIMEOUT", 30*time.Second),
		MaxRetries: envutil.Int("ERPNEXT_MAX_RETRIES", 3),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing ERPNEXT_BASE_URL")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("missing ERPNEXT_API_KEY / ERPNEXT_API_SECRET")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "ERPNextClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		tracer:     otel.Tracer("erpnext-client"),
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	maxRetries int
	tracer     trace.Tracer
}

// resource API envelope: {"data": ...}
type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// method API envelope: {"message": ...}
type messageEnvelope struct {
	Message json.RawMessage `json:"message"`
}

func (c *client) Create(ctx context.Context, doctype string, doc Document) (string, error) {
	ctx, end := c.span(ctx, "Create", doctype, "")
	raw, err := c.do(ctx, http.MethodPost, c.resourceURL(doctype, ""), doc, false)
	if end(err); err != nil {
		return "", err
	}
	var out Document
	if err := unmarshalData(raw, &out); err != nil {
		return "", err
	}
	name := out.Str("name")
	if name == "" {
		return "", fmt.Errorf("erpnext: create %s returned no name", doctype)
	}
	return name, nil
}

func (c *client) Get(ctx context.Context, doctype, name string) (Document, error) {
	ctx, end := c.span(ctx, "Get", doctype, name)
	raw, err := c.do(ctx, http.MethodGet, c.resourceURL(doctype, name), nil, true)
	if end(err); err != nil {
		return nil, err
	}
	var out Document
	if err := unmarshalData(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) List(ctx context.Context, doctype string, filters Filters, fields []string) ([]Document, error) {
	ctx, end := c.span(ctx, "List", doctype, "")
	u, err := c.listURL(doctype, filters, fields)
	if err != nil {
		end(err)
		return nil, err
	}
	raw, err := c.do(ctx, http.MethodGet, u, nil, true)
	if end(err); err != nil {
		return nil, err
	}
	var out []Document
	if err := unmarshalData(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) Update(ctx context.Context, doctype, name string, fields Document) error {
	ctx, end := c.span(ctx, "Update", doctype, name)
	_, err := c.do(ctx, http.MethodPut, c.resourceURL(doctype, name), fields, false)
	end(err)
	return err
}

// Submit moves a draft document to docstatus 1. Forward-only: the store
// rejects a re-submit of an already-submitted document.
func (c *client) Submit(ctx context.Context, doctype, name string) error {
	return c.Update(ctx, doctype, name, Document{"docstatus": 1})
}

// Cancel moves a submitted document to docstatus 2. Cancelled financial
// documents keep their historical ledger rows.
func (c *client) Cancel(ctx context.Context, doctype, name string) error {
	ctx, end := c.span(ctx, "Cancel", doctype, name)
	err := c.runMethod(ctx, "frappe.client.cancel", map[string]any{
		"doctype": doctype,
		"name":    name,
	}, nil)
	end(err)
	return err
}

func (c *client) Delete(ctx context.Context, doctype, name string) error {
	ctx, end := c.span(ctx, "Delete", doctype, name)
	_, err := c.do(ctx, http.MethodDelete, c.resourceURL(doctype, name), nil, false)
	end(err)
	return err
}

func (c *client) RunMethod(ctx context.Context, method string, args any, out any) error {
	ctx, end := c.span(ctx, "RunMethod", method, "")
	err := c.runMethod(ctx, method, args, out)
	end(err)
	return err
}

func (c *client) runMethod(ctx context.Context, method string, args any, out any) error {
	raw, err := c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/api/method/"+method, args, false)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	var env messageEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("erpnext decode error: %w; raw=%s", err, truncate(raw))
	}
	if len(env.Message) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Message, out); err != nil {
		return fmt.Errorf("erpnext decode error: %w; raw=%s", err, truncate(raw))
	}
	return nil
}

func (c *client) resourceURL(doctype, name string) string {
	u := c.cfg.BaseURL + "/api/resource/" + url.PathEscape(doctype)
	if name != "" {
		u += "/" + url.PathEscape(name)
	}
	return u
}

func (c *client) listURL(doctype string, filters Filters, fields []string) (string, error) {
	q := url.Values{}
	// The list endpoint wants filters as [["field","op","value"],...].
	if len(filters) > 0 {
		triples := make([][]any, 0, len(filters))
		for field, v := range filters {
			if pair, ok := v.([]any); ok && len(pair) == 2 {
				triples = append(triples, []any{field, pair[0], pair[1]})
				continue
			}
			triples = append(triples, []any{field, "=", v})
		}
		b, err := json.Marshal(triples)
		if err != nil {
			return "", err
		}
		q.Set("filters", string(b))
	}
	if len(fields) > 0 {
		b, err := json.Marshal(fields)
		if err != nil {
			return "", err
		}
		q.Set("fields", string(b))
	}
	q.Set("order_by", "creation asc")
	q.Set("limit_page_length", "0")
	return c.resourceURL(doctype, "") + "?" + q.Encode(), nil
}

// do performs one store call. Reads retry on retryable failures; mutations
// never do — after a timeout their outcome is unknown and the caller must
// re-query before retrying.
func (c *client) do(ctx context.Context, method, urlStr string, body any, retryable bool) (json.RawMessage, error) {
	maxAttempts := 1
	if retryable {
		maxAttempts = c.maxRetries + 1
	}
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		raw, resp, err := c.doOnce(ctx, method, urlStr, body)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if attempt == maxAttempts-1 || !httpx.IsRetryableError(err) {
			return nil, err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("ERPNext request retrying",
			"url", urlStr,
			"attempt", attempt+1,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return nil, lastErr
}

func (c *client) doOnce(ctx context.Context, method, urlStr string, body any) (json.RawMessage, *http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, urlStr, reader)
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "token "+c.cfg.APIKey+":"+c.cfg.APISecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resp, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		he := &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		var parsed struct {
			ExcType   string `json:"exc_type"`
			Exception string `json:"exception"`
			Message   string `json:"message"`
		}
		if json.Unmarshal(raw, &parsed) == nil {
			he.ExcType = strings.TrimSpace(parsed.ExcType)
			he.Message = strings.TrimSpace(parsed.Message)
			if he.Message == "" {
				he.Message = strings.TrimSpace(parsed.Exception)
			}
		}
		return nil, resp, he
	}
	return raw, resp, nil
}

func (c *client) span(ctx context.Context, op, doctype, name string) (context.Context, func(error)) {
	ctx, sp := c.tracer.Start(ctx, "erpnext."+op,
		trace.WithAttributes(
			attribute.String("erpnext.doctype", doctype),
			attribute.String("erpnext.name", name),
		),
	)
	return ctx, func(err error) {
		if err != nil {
			sp.SetStatus(codes.Error, err.Error())
		}
		sp.End()
	}
}

func unmarshalData(raw json.RawMessage, out any) error {
	var env dataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("erpnext decode error: %w; raw=%s", err, truncate(raw))
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("erpnext decode error: %w; raw=%s", err, truncate(raw))
	}
	return nil
}

func truncate(raw []byte) string {
	s := string(raw)
	if len(s) > 2000 {
		return s[:2000] + "..."
	}
	return s
}
