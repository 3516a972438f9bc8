package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xela07ax/runnerdeck/internal/cache"
	"github.com/xela07ax/runnerdeck/internal/domain"
	"github.com/xela07ax/runnerdeck/internal/infra"
	"go.uber.org/zap"
)

const adoDefaultBaseURL = "https://dev.azure.com"

const adoAPIVersion = "7.0"

// AzureDevOps — клиент enterprise-devops провайдера. Его листинг
// агентов не сообщает занятость: busy добирается отдельным detail-вызовом
// по каждому агенту (includeAssignedRequest), всегда мимо кэша.
type AzureDevOps struct {
	baseURL       string
	client        *Client
	cache         *cache.TTL
	listTimeout   time.Duration
	detailTimeout time.Duration
	logger        *zap.Logger
}

// AgentPool — элемент списка пулов организации (для выбора в настройках).
type AgentPool struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func NewAzureDevOps(baseURL string, cfg infra.ProvidersConfig, c *Client, ttl *cache.TTL, logger *zap.Logger) *AzureDevOps {
	if baseURL == "" {
		baseURL = adoDefaultBaseURL
	}
	return &AzureDevOps{
		baseURL:       baseURL,
		client:        c,
		cache:         ttl,
		listTimeout:   cfg.ListTimeout,
		detailTimeout: cfg.DetailTimeout,
		logger:        logger.Named("azure-devops"),
	}
}

func adoAuth(pat string) Auth {
	// PAT идет как пароль при пустом логине — договоренность ADO API
	return BasicAuth{Username: "", Token: pat}
}

// valueEnvelope — стандартный конверт ADO API: {"count": n, "value": [...]}.
type valueEnvelope struct {
	Value []json.RawMessage `json:"value"`
}

func (a *AzureDevOps) getValue(ctx context.Context, url, pat string, timeout time.Duration) ([]json.RawMessage, error) {
	resp, err := a.client.Do(ctx, Call{URL: url, Auth: adoAuth(pat), Timeout: timeout})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var envelope valueEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("azure-devops: malformed response envelope: %w", err)
	}
	return envelope.Value, nil
}

// ListPools возвращает все agent pools организации (без кэша — вызывается
// только из настроек при выборе пулов).
func (a *AzureDevOps) ListPools(ctx context.Context, org, pat string) ([]AgentPool, error) {
	url := fmt.Sprintf("%s/%s/_apis/distributedtask/pools?api-version=%s", a.baseURL, org, adoAPIVersion)
	raw, err := a.getValue(ctx, url, pat, a.listTimeout)
	if err != nil {
		return nil, err
	}

	pools := make([]AgentPool, 0, len(raw))
	for _, item := range raw {
		var p AgentPool
		if err := json.Unmarshal(item, &p); err != nil {
			return nil, fmt.Errorf("azure-devops: malformed pool: %w", err)
		}
		pools = append(pools, p)
	}
	return pools, nil
}

// PoolAgents возвращает нормализованных агентов пула (через кэш),
// еще без busy — см. AgentBusy.
func (a *AzureDevOps) PoolAgents(ctx context.Context, org, pat string, poolID int64) ([]domain.Runner, error) {
	url := fmt.Sprintf("%s/%s/_apis/distributedtask/pools/%d/agents?api-version=%s", a.baseURL, org, poolID, adoAPIVersion)

	raw, err := a.cache.GetOrCompute(cache.Key("GET", url), func() ([]json.RawMessage, error) {
		a.logger.Info("fetching agents list", zap.String("org", org), zap.Int64("pool_id", poolID))
		return a.getValue(ctx, url, pat, a.listTimeout)
	})
	if err != nil {
		return nil, err
	}

	agents := make([]domain.Runner, 0, len(raw))
	for _, item := range raw {
		agent, err := normalizeADOAgent(item)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, nil
}

// AgentBusy делает detail-вызов по одному агенту: агент занят, если
// на нем висит assignedRequest. Вызов всегда мимо кэша — занятость
// должна быть свежей, и у него короткий таймаут.
func (a *AzureDevOps) AgentBusy(ctx context.Context, org, pat string, poolID, agentID int64) (bool, error) {
	url := fmt.Sprintf("%s/%s/_apis/distributedtask/pools/%d/agents/%d?api-version=7.1&includeAssignedRequest=true",
		a.baseURL, org, poolID, agentID)

	resp, err := a.client.Do(ctx, Call{URL: url, Auth: adoAuth(pat), Timeout: a.detailTimeout})
	if err != nil {
		return false, err
	}
	if err := resp.Err(); err != nil {
		return false, err
	}

	var detail struct {
		AssignedRequest json.RawMessage `json:"assignedRequest"`
	}
	if err := json.Unmarshal(resp.Body, &detail); err != nil {
		return false, fmt.Errorf("azure-devops: malformed agent detail: %w", err)
	}
	return len(detail.AssignedRequest) > 0, nil
}

// Verify — одна дешевая проба организации: листинг проектов.
// Используется и кнопкой verify в настройках, и health-композером.
func (a *AzureDevOps) Verify(ctx context.Context, org, pat string) error {
	url := fmt.Sprintf("%s/%s/_apis/projects?api-version=%s", a.baseURL, org, adoAPIVersion)
	resp, err := a.client.Do(ctx, Call{URL: url, Auth: adoAuth(pat), Timeout: a.listTimeout})
	if err != nil {
		return err
	}
	return resp.Err()
}

// normalizeADOAgent: id и name копируются, отсутствующий status
// считается offline, отсутствующий enabled — false. Busy здесь не
// определяется: листинг не знает о назначенных джобах.
func normalizeADOAgent(item json.RawMessage) (domain.Runner, error) {
	var src struct {
		ID      int64   `json:"id"`
		Name    string  `json:"name"`
		Status  *string `json:"status"`
		Enabled *bool   `json:"enabled"`
	}
	if err := json.Unmarshal(item, &src); err != nil {
		return domain.Runner{}, fmt.Errorf("azure-devops: malformed agent: %w", err)
	}

	status := domain.RunnerOffline
	if src.Status != nil {
		status = domain.RunnerStatus(*src.Status)
	}
	enabled := false
	if src.Enabled != nil {
		enabled = *src.Enabled
	}

	return domain.Runner{
		ID:      src.ID,
		Name:    src.Name,
		Status:  status,
		Busy:    false,
		Type:    domain.TypeSelfHosted,
		Enabled: &enabled,
	}, nil
}
