// Package network implements the Network Collector (orig §4.8): an
// http.RoundTripper wrapper that observes outbound HTTP/HTTPS traffic and
// emits a Network-variant LogEntry per request without ever re-entering
// itself.
//
// Grounded on internal/docker/http_client.go's transport-wrapping idiom,
// trimmed of the Docker-socket dialer and prometheus gauges (SDK-wide
// metrics live in internal/metrics instead). Go has no process-wide
// request-swizzling hook like the original platform collectors use, so
// instrumentation here is opt-in: the host application wraps its own
// http.Client.Transport with Wrap, rather than ProbySDK patching
// http.DefaultTransport for every caller in the process.
package network

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/redact"
)

type ctxKey int

// markerKey is the "per-request flag" orig §4.8 calls for: a RoundTrip
// that sees it already set is nested inside an already-instrumented
// request (e.g. an inner RoundTripper in the same chain), so it is passed
// through unlogged instead of double-counted.
const markerKey ctxKey = 0

// Config configures body-capture limits and the shared redactor. Redactor
// may be nil, in which case headers/URL/metadata pass through unredacted.
type Config struct {
	Redactor *redact.Redactor

	// MaxBodyBytes caps how much of the request/response body is kept
	// alongside the entry. Zero disables body capture entirely (orig
	// §4.8: "0 disables body capture").
	MaxBodyBytes int
}

// Collector implements engine.Collector. Start/Stop gate whether Wrap's
// returned RoundTripper actually observes traffic, so a host that wraps
// its client once at startup still stops paying attention when the
// collector is disabled mid-run.
type Collector struct {
	cfg    Config
	sink   func(model.LogEntry)
	active int32
}

// New builds a Collector. sink is the engine-provided ingestion callback
// (engine.CollectorFactory's contract).
func New(cfg Config, sink func(model.LogEntry)) *Collector {
	return &Collector{cfg: cfg, sink: sink}
}

func (c *Collector) Start() error { atomic.StoreInt32(&c.active, 1); return nil }
func (c *Collector) Stop() error  { atomic.StoreInt32(&c.active, 0); return nil }

// Wrap returns an http.RoundTripper that instruments next per orig §4.8.
// A nil next wraps http.DefaultTransport.
func (c *Collector) Wrap(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &roundTripper{collector: c, next: next}
}

type roundTripper struct {
	collector *Collector
	next      http.RoundTripper
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Context().Value(markerKey) != nil {
		return rt.next.RoundTrip(req)
	}
	req = req.WithContext(context.WithValue(req.Context(), markerKey, true))

	if atomic.LoadInt32(&rt.collector.active) == 0 {
		return rt.next.RoundTrip(req)
	}

	reqBody, capturedReq, bytesSent := rt.collector.captureRequestBody(req.Body)
	req.Body = reqBody

	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		rt.collector.sink(rt.collector.buildEntry(req, nil, err, duration, bytesSent, capturedReq, nil, 0))
		return resp, err
	}

	respBody, capturedResp, bytesReceived := rt.collector.captureResponseBody(resp.Body)
	resp.Body = respBody

	rt.collector.sink(rt.collector.buildEntry(req, resp, nil, duration, bytesSent, capturedReq, capturedResp, bytesReceived))
	return resp, nil
}

// captureRequestBody drains body (if any), returning a replacement reader
// that still yields the full content to the real transport, the slice
// truncated to MaxBodyBytes for the log entry, and the total byte count.
func (c *Collector) captureRequestBody(body io.ReadCloser) (io.ReadCloser, []byte, int64) {
	if body == nil {
		return nil, nil, 0
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return io.NopCloser(bytes.NewReader(nil)), nil, 0
	}
	return io.NopCloser(bytes.NewReader(data)), truncate(data, c.cfg.MaxBodyBytes), int64(len(data))
}

// captureResponseBody mirrors captureRequestBody for the response side.
// The caller still receives a fully readable body; only the captured
// slice used in the log entry is truncated.
func (c *Collector) captureResponseBody(body io.ReadCloser) (io.ReadCloser, []byte, int64) {
	if body == nil {
		return nil, nil, 0
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return io.NopCloser(bytes.NewReader(nil)), nil, 0
	}
	return io.NopCloser(bytes.NewReader(data)), truncate(data, c.cfg.MaxBodyBytes), int64(len(data))
}

func truncate(data []byte, max int) []byte {
	if max <= 0 || len(data) == 0 {
		return nil
	}
	if len(data) > max {
		return data[:max]
	}
	return data
}

func (c *Collector) buildEntry(req *http.Request, resp *http.Response, reqErr error, duration time.Duration, bytesSent int64, reqBody []byte, respBody []byte, bytesReceived int64) model.LogEntry {
	reqHeaders := flattenHeader(req.Header)
	var respHeaders map[string]string
	status := 0
	if resp != nil {
		status = resp.StatusCode
		respHeaders = flattenHeader(resp.Header)
	}

	url := req.URL.String()
	if c.cfg.Redactor != nil {
		url = c.cfg.Redactor.RedactURL(url)
		reqHeaders = c.cfg.Redactor.RedactHeaders(reqHeaders)
		respHeaders = c.cfg.Redactor.RedactHeaders(respHeaders)
	}

	errString := ""
	if reqErr != nil {
		errString = reqErr.Error()
	}

	extra := model.NewNetworkExtra(model.NetworkExtra{
		Method:          req.Method,
		URL:             url,
		Status:          status,
		RequestHeaders:  reqHeaders,
		ResponseHeaders: respHeaders,
		RequestBody:     reqBody,
		ResponseBody:    respBody,
		DurationMS:      float64(duration) / float64(time.Millisecond),
		BytesSent:       bytesSent,
		BytesReceived:   bytesReceived,
		Error:           errString,
	})

	level := levelForStatus(status, reqErr != nil)
	message := req.Method + " " + url
	return model.NewEntry(time.Now(), level, model.CategoryNetwork, message, model.SourceSite{}, nil, &extra)
}

// levelForStatus implements orig §4.8's status-to-level mapping: 2xx is
// info, 3xx/4xx is warning, 5xx or a missing status with a transport
// error is error, a missing status without an error is info.
func levelForStatus(status int, hadError bool) model.LogLevel {
	switch {
	case status == 0:
		if hadError {
			return model.LevelError
		}
		return model.LevelInfo
	case status >= 500:
		return model.LevelError
	case status >= 300:
		return model.LevelWarning
	default:
		return model.LevelInfo
	}
}

func flattenHeader(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
