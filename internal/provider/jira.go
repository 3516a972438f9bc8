package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xela07ax/runnerdeck/internal/domain"
	"github.com/xela07ax/runnerdeck/internal/infra"
	"go.uber.org/zap"
)

// Jira — статусные пробы work-tracking провайдера. Пагинации и кэша
// здесь нет: оба эндпоинта отдают один маленький документ.
type Jira struct {
	client  *Client
	timeout time.Duration
	logger  *zap.Logger
}

// ServiceStatus — ответ одного статусного эндпоинта (Jira или Confluence):
// либо сырой JSON сервиса, либо маркер ошибки.
type ServiceStatus struct {
	State json.RawMessage `json:"state,omitempty"`
	Error string          `json:"error,omitempty"`
}

func NewJira(cfg infra.ProvidersConfig, c *Client, logger *zap.Logger) *Jira {
	return &Jira{
		client:  c,
		timeout: cfg.ListTimeout,
		logger:  logger.Named("jira"),
	}
}

func (j *Jira) statusURL(baseURL, suffix string) string {
	return strings.TrimRight(baseURL, "/") + suffix
}

// Health — признак здоровья Jira: поле state в ответе /status
// должно быть строго "RUNNING". Любой транспортный сбой схлопывается
// в человекочитаемую причину, наружу ошибка не уходит.
func (j *Jira) Health(ctx context.Context, creds JiraCreds) domain.ProviderHealth {
	state, err := j.fetchState(ctx, creds, "/status")
	if err != nil {
		j.logger.Error("jira health check failed", zap.Error(err))
		return domain.ProviderHealth{Status: domain.HealthError, Reason: "Connection failed"}
	}
	if state != "RUNNING" {
		return domain.ProviderHealth{
			Status: domain.HealthError,
			Reason: fmt.Sprintf("State: %s", state),
		}
	}
	return domain.ProviderHealth{Status: domain.HealthOK}
}

// StatusDetail опрашивает и Jira (/status), и Confluence (/wiki/status),
// возвращая оба сырых ответа. Сбой одного сервиса не мешает второму.
func (j *Jira) StatusDetail(ctx context.Context, creds JiraCreds) map[string]ServiceStatus {
	result := make(map[string]ServiceStatus, 2)
	for name, suffix := range map[string]string{"jira": "/status", "confluence": "/wiki/status"} {
		raw, err := j.fetchRaw(ctx, creds, suffix)
		if err != nil {
			j.logger.Error("status probe failed", zap.String("service", name), zap.Error(err))
			result[name] = ServiceStatus{Error: err.Error()}
			continue
		}
		result[name] = ServiceStatus{State: raw}
	}
	return result
}

func (j *Jira) fetchRaw(ctx context.Context, creds JiraCreds, suffix string) (json.RawMessage, error) {
	url := j.statusURL(creds.BaseURL, suffix)
	resp, err := j.client.Do(ctx, Call{
		URL:     url,
		Auth:    BasicAuth{Username: creds.Email, Token: creds.Token},
		Headers: map[string]string{"Accept": "application/json"},
		Timeout: j.timeout,
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (j *Jira) fetchState(ctx context.Context, creds JiraCreds, suffix string) (string, error) {
	raw, err := j.fetchRaw(ctx, creds, suffix)
	if err != nil {
		return "", err
	}
	var body struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("jira: malformed status body: %w", err)
	}
	return body.State, nil
}
