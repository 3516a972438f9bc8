package provider

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"github.com/xela07ax/runnerdeck/internal/domain"
	"github.com/xela07ax/runnerdeck/internal/infra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Лимит на тело ответа: самая жирная страница (100 раннеров) весит
// на порядки меньше.
const maxResponseBody = 1 << 20 // 1MB

// Auth — контекст аутентификации исходящего вызова.
type Auth interface {
	apply(req *http.Request)
}

// BearerAuth — токен в заголовке Authorization (GitHub).
type BearerAuth struct {
	Token string
}

func (a BearerAuth) apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.Token)
}

// BasicAuth — basic с токеном в роли пароля (Jira: email+token,
// Azure DevOps: пустой логин+PAT).
type BasicAuth struct {
	Username string
	Token    string
}

func (a BasicAuth) apply(req *http.Request) {
	req.SetBasicAuth(a.Username, a.Token)
}

// RawResponse — сырой результат HTTP-вызова. Возвращается и для
// статусов >= 400: решение о провале принимает вызывающий через Err().
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	url        string
}

// Err конвертирует статус >= 400 в StatusError, иначе nil.
func (r *RawResponse) Err() error {
	if r.StatusCode < 400 {
		return nil
	}
	body := string(r.Body)
	if len(body) > 256 {
		body = body[:256]
	}
	return &domain.StatusError{URL: r.url, StatusCode: r.StatusCode, Body: body}
}

// Call описывает один исходящий вызов.
type Call struct {
	Method  string
	URL     string
	Auth    Auth
	Headers map[string]string
	Timeout time.Duration
}

// Client — адаптер исходящих вызовов к одному провайдеру.
// Ровно одна попытка на вызов; перед вызовом — rate limiter,
// вокруг — circuit breaker, защищающий от долбёжки в лежащий апстрим.
// Сбой транспорта и отказ по статусу различаются типами ошибок.
type Client struct {
	provider string
	http     *http.Client
	limiter  *rate.Limiter
	cb       *gobreaker.CircuitBreaker
	metrics  *infra.Metrics
	logger   *zap.Logger
}

func NewClient(provider string, cfg infra.ProvidersConfig, metrics *infra.Metrics, logger *zap.Logger) *Client {
	if metrics == nil {
		metrics = infra.NewMetrics(nil)
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     60 * time.Second,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			state := 0.0
			if to == gobreaker.StateOpen {
				state = 1.0
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(state)
			logger.Warn("circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 20
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 10
	}

	return &Client{
		provider: provider,
		http:     &http.Client{Transport: transport},
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		cb:       cb,
		metrics:  metrics,
		logger:   logger.Named("client-" + provider),
	}
}

// Do выполняет один вызов. Повторов нет: ретраи — осознанный не-функционал,
// кэш выше по стеку и так гасит повторную нагрузку.
func (c *Client) Do(ctx context.Context, call Call) (*RawResponse, error) {
	// 1. Rate Limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.TransportError{URL: call.URL, Cause: err}
	}

	c.metrics.ProviderRequests.WithLabelValues(c.provider).Inc()
	start := time.Now()

	// 2. Circuit Breaker. Failure для брекера — только транспортный сбой:
	// ответ 4xx/5xx означает, что апстрим жив, и не должен размыкать цепь.
	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.doOnce(ctx, call)
	})

	status := "ok"
	if err != nil {
		status = "transport_error"
		c.metrics.ProviderErrors.WithLabelValues(c.provider, "transport").Inc()
	}
	c.metrics.ProviderRequestDuration.WithLabelValues(c.provider, status).Observe(time.Since(start).Seconds())

	if err != nil {
		if tErr, ok := err.(*domain.TransportError); ok {
			return nil, tErr
		}
		return nil, &domain.TransportError{URL: call.URL, Cause: err}
	}
	return result.(*RawResponse), nil
}

func (c *Client) doOnce(ctx context.Context, call Call) (*RawResponse, error) {
	timeout := call.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := call.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, call.URL, nil)
	if err != nil {
		return nil, &domain.TransportError{URL: call.URL, Cause: err}
	}

	for key, value := range call.Headers {
		req.Header.Set(key, value)
	}
	if call.Auth != nil {
		call.Auth.apply(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.TransportError{URL: call.URL, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &domain.TransportError{URL: call.URL, Cause: err}
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		url:        call.URL,
	}, nil
}
