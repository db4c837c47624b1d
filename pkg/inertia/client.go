// Package inertia speaks the page-over-the-wire protocol of the backend:
// every navigation is an XHR carrying X-Inertia headers and the answer is a
// JSON page object (component, props, url, version).
package inertia

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/bookings-admin/pkg/metrics"
)

const (
	HeaderInertia          = "X-Inertia"
	HeaderVersion          = "X-Inertia-Version"
	HeaderLocation         = "X-Inertia-Location"
	HeaderPartialComponent = "X-Inertia-Partial-Component"
	HeaderPartialData      = "X-Inertia-Partial-Data"

	maxErrorBody = 512
)

var tracer = otel.Tracer("bookings-admin/inertia")

// Visit describes one navigation request.
type Visit struct {
	Method string
	// URL is a backend path ("/bookings?page=2") or an absolute URL on the backend host.
	URL   string
	Query url.Values
	Data  url.Values
	// History hints. The synchronizer records them on the snapshot it applies.
	Replace        bool
	PreserveScroll bool
	PreserveState  bool
	// Only requests a partial reload of the named props for Component.
	Only      []string
	Component string
}

// File is one part of a multipart upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Visitor is the navigation side of the client; the query synchronizer depends on it.
type Visitor interface {
	Visit(ctx context.Context, v Visit) (*Page, error)
}

// Uploader posts multipart payloads.
type Uploader interface {
	Upload(ctx context.Context, path, field string, files []File) (*Page, error)
}

type Options struct {
	BaseURL    string
	Version    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logrus.Logger
	// Header is copied onto every request (session cookie, CSRF token).
	Header http.Header
}

// assetVersion is shared by every copy of a client made with WithHeader.
type assetVersion struct {
	mu sync.RWMutex
	v  string
}

func (a *assetVersion) get() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.v
}

func (a *assetVersion) set(v string) {
	a.mu.Lock()
	a.v = v
	a.mu.Unlock()
}

type Client struct {
	base    *url.URL
	version *assetVersion
	http    *http.Client
	logger  *logrus.Logger
	header  http.Header
}

func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "inertia: parse base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("inertia: base url %q must be absolute", opts.BaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	header := opts.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &Client{
		base:    base,
		version: &assetVersion{v: opts.Version},
		http:    httpClient,
		logger:  logger,
		header:  header,
	}, nil
}

// WithHeader returns a client sharing the transport but sending extra headers,
// used to carry a browser's session cookie on its own view.
func (c *Client) WithHeader(h http.Header) *Client {
	cp := *c
	cp.header = c.header.Clone()
	for k, vs := range h {
		for _, v := range vs {
			cp.header.Add(k, v)
		}
	}
	return &cp
}

func (c *Client) resolve(target string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return nil, errors.Wrapf(err, "inertia: parse target %q", target)
	}
	u := c.base.ResolveReference(ref)
	if ref.IsAbs() && u.Host != c.base.Host {
		return nil, errors.Errorf("inertia: target %q is not on backend host %s", target, c.base.Host)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			q[k] = append([]string(nil), vs...)
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

func (c *Client) Visit(ctx context.Context, v Visit) (*Page, error) {
	method := v.Method
	if method == "" {
		method = http.MethodGet
	}
	u, err := c.resolve(v.URL, v.Query)
	if err != nil {
		return nil, err
	}
	var body io.Reader
	if method != http.MethodGet && len(v.Data) > 0 {
		body = strings.NewReader(v.Data.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "inertia: build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if len(v.Only) > 0 && v.Component != "" {
		req.Header.Set(HeaderPartialComponent, v.Component)
		req.Header.Set(HeaderPartialData, strings.Join(v.Only, ","))
	}
	return c.do(ctx, req)
}

func (c *Client) Upload(ctx context.Context, path, field string, files []File) (*Page, error) {
	u, err := c.resolve(path, nil)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(field, f.Name)
		if err != nil {
			return nil, errors.Wrap(err, "inertia: create form file")
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, errors.Wrap(err, "inertia: write form file")
		}
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "inertia: close multipart writer")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), buf)
	if err != nil {
		return nil, errors.Wrap(err, "inertia: build request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	page, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if fields := page.Errors(); len(fields) > 0 {
		return page, &ValidationError{Fields: fields}
	}
	return page, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) (*Page, error) {
	ctx, span := tracer.Start(ctx, "inertia.visit", trace.WithAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.url", req.URL.String()),
	))
	defer span.End()

	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set(HeaderInertia, "true")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "text/html, application/xhtml+xml")
	if v := c.version.get(); v != "" {
		req.Header.Set(HeaderVersion, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		metrics.RecordVisit(req.Method, "error", time.Since(start))
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrapf(err, "inertia: %s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()
	metrics.RecordVisit(req.Method, strconv.Itoa(resp.StatusCode), time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	log := c.logger.WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.URL.Path,
		"status": resp.StatusCode,
	})

	if resp.StatusCode == http.StatusConflict {
		if loc := resp.Header.Get(HeaderLocation); loc != "" {
			log.Info("asset version changed")
			return nil, &VersionConflictError{Location: loc}
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "inertia: read response body")
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		if fields := validationFields(raw); len(fields) > 0 {
			return nil, &ValidationError{Fields: fields}
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, resp.Status)
		log.Warn("backend visit failed")
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(raw), maxErrorBody)}
	}
	if resp.Header.Get(HeaderInertia) == "" {
		log.Warn("backend answered without page object header")
	}

	page := &Page{}
	if err := json.Unmarshal(raw, page); err != nil {
		return nil, errors.Wrap(err, "inertia: decode page object")
	}
	if page.Version != "" {
		c.version.set(page.Version)
	}
	log.Debug("backend visit completed")
	return page, nil
}

// validationFields reads {"errors":{"field":["msg"]}} JSON bodies.
func validationFields(raw []byte) map[string]string {
	out := map[string]string{}
	if !gjson.ValidBytes(raw) {
		return out
	}
	gjson.GetBytes(raw, "errors").ForEach(func(k, v gjson.Result) bool {
		if v.IsArray() {
			if first := v.Get("0"); first.Exists() {
				out[k.String()] = first.String()
			}
		} else if v.Type == gjson.String {
			out[k.String()] = v.String()
		}
		return true
	})
	return out
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
