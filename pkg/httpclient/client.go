// Package httpclient 可追踪、带有限重试的出站 HTTP 客户端
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ErrPermanent 表示对方明确拒绝（4xx）或请求本身无法构造，重试没有意义
var ErrPermanent = errors.New("permanent failure")

// StatusError 非 2xx 响应
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Config 客户端参数
type Config struct {
	Timeout        time.Duration // 单次尝试超时
	MaxAttempts    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	MaxBodyBytes   int64
}

// Request 一次出站请求
type Request struct {
	Method      string
	URL         string
	Body        []byte
	ContentType string
	Header      http.Header
}

// Response 最后一次尝试的结果，Attempts 为实际尝试次数
type Response struct {
	StatusCode int
	Body       []byte
	Attempts   int
}

// Client 可复用的客户端，并发安全
type Client struct {
	HTTPClient *http.Client
	Tracer     trace.Tracer
	cfg        Config
	sleep      func(ctx context.Context, d time.Duration) error
}

// New 创建客户端。超时交给每次请求的 context 控制。
func New(cfg Config) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = 500 * time.Millisecond
	}
	if cfg.BackoffMax < cfg.BackoffInitial {
		cfg.BackoffMax = cfg.BackoffInitial
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	return &Client{
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		Tracer: otel.Tracer("postback-platform/httpclient"),
		cfg:    cfg,
		sleep:  sleepContext,
	}
}

// Do 发送请求。网络错误、超时、408、429 和 5xx 会按指数退避重试，
// 其它 4xx 和无法构造的请求立即以 ErrPermanent 返回。返回的 Response 永远不为 nil。
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	resp := &Response{}
	backoff := c.cfg.BackoffInitial

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		resp.Attempts = attempt
		status, body, err := c.attempt(ctx, req, attempt)
		resp.StatusCode = status
		resp.Body = body

		if err == nil && status >= 200 && status < 300 {
			return resp, nil
		}
		if errors.Is(err, ErrPermanent) {
			return resp, err
		}
		if err == nil {
			err = &StatusError{StatusCode: status}
			if !retryableStatus(status) {
				return resp, fmt.Errorf("%w: %w", ErrPermanent, err)
			}
		}
		lastErr = err

		if ctx.Err() != nil || attempt == c.cfg.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, backoff); err != nil {
			break
		}
		backoff *= 2
		if backoff > c.cfg.BackoffMax {
			backoff = c.cfg.BackoffMax
		}
	}
	return resp, lastErr
}

func (c *Client) attempt(ctx context.Context, req Request, attempt int) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := c.Tracer.Start(ctx, "http "+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", req.URL),
		attribute.Int("http.attempt", attempt),
	)

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, nil, fmt.Errorf("%w: %w", ErrPermanent, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	res, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, nil, err
	}
	defer res.Body.Close()

	// 状态码已拿到，读 body 失败不影响判定
	data, _ := io.ReadAll(io.LimitReader(res.Body, c.cfg.MaxBodyBytes))
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))
	if res.StatusCode >= 400 {
		span.SetStatus(codes.Error, res.Status)
	}
	return res.StatusCode, data, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
