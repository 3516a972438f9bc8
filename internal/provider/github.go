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

const githubDefaultBaseURL = "https://api.github.com"

// Кастомные заголовки GitHub, по которым health-проба судит о токене.
const (
	headerTokenExpiration = "github-authentication-token-expiration"
	headerTokenScope      = "x-accepted-github-permissions"
)

// Формат времени в заголовке истечения токена: "2024-10-03 14:21:00 +0000"
const tokenExpirationLayout = "2006-01-02 15:04:05 -0700"

// GitHub — клиент Actions API: листинги runner groups и раннеров,
// нормализация в каноничную модель, health-проба.
type GitHub struct {
	baseURL string
	client  *Client
	cache   *cache.TTL
	timeout time.Duration
	logger  *zap.Logger
}

// RunnerGroup — элемент списка групп организации (для выбора в настройках).
type RunnerGroup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func NewGitHub(baseURL string, cfg infra.ProvidersConfig, c *Client, ttl *cache.TTL, logger *zap.Logger) *GitHub {
	if baseURL == "" {
		baseURL = githubDefaultBaseURL
	}
	return &GitHub{
		baseURL: baseURL,
		client:  c,
		cache:   ttl,
		timeout: cfg.ListTimeout,
		logger:  logger.Named("github"),
	}
}

func (g *GitHub) headers() map[string]string {
	return map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
}

func (g *GitHub) groupsURL(org string) string {
	return fmt.Sprintf("%s/orgs/%s/actions/runner-groups", g.baseURL, org)
}

// listingURL выбирает эндпоинт по классификации группы.
func (g *GitHub) listingURL(org string, group domain.MonitoredGroup) string {
	switch group.Kind {
	case domain.KindOrgHosted:
		return fmt.Sprintf("%s/orgs/%s/actions/hosted-runners", g.baseURL, org)
	case domain.KindGroupHosted:
		return fmt.Sprintf("%s/orgs/%s/actions/runner-groups/%d/hosted-runners", g.baseURL, org, group.ID)
	default:
		return fmt.Sprintf("%s/orgs/%s/actions/runner-groups/%d/runners", g.baseURL, org, group.ID)
	}
}

// ListGroups возвращает все runner groups организации (через кэш)
// плюс синтетическую группу org-hosted раннеров, чтобы vendor-раннеры
// вне групп тоже были доступны для мониторинга.
func (g *GitHub) ListGroups(ctx context.Context, creds GitHubCreds) ([]RunnerGroup, error) {
	raw, err := g.fetchCached(ctx, creds, g.groupsURL(creds.Org))
	if err != nil {
		return nil, err
	}

	groups := make([]RunnerGroup, 0, len(raw)+1)
	for _, item := range raw {
		var grp RunnerGroup
		if err := json.Unmarshal(item, &grp); err != nil {
			return nil, fmt.Errorf("github: malformed runner group: %w", err)
		}
		groups = append(groups, grp)
	}

	groups = append(groups, RunnerGroup{ID: domain.OrgHostedGroupID, Name: domain.OrgHostedGroupName})
	return groups, nil
}

// GroupRunners выбирает листинг по виду группы, гонит его через кэш
// и нормализует элементы в каноничные Runner.
func (g *GitHub) GroupRunners(ctx context.Context, creds GitHubCreds, group domain.MonitoredGroup) ([]domain.Runner, error) {
	raw, err := g.fetchCached(ctx, creds, g.listingURL(creds.Org, group))
	if err != nil {
		return nil, err
	}

	runners := make([]domain.Runner, 0, len(raw))
	for _, item := range raw {
		var r domain.Runner
		var convErr error
		if group.Kind == domain.KindSelfHosted {
			r, convErr = normalizeSelfHostedRunner(item)
		} else {
			r, convErr = normalizeHostedRunner(item)
		}
		if convErr != nil {
			return nil, convErr
		}
		runners = append(runners, r)
	}
	return runners, nil
}

// Health — одна дешевая проба без пагинации и мимо кэша: листинг групп
// годится только как валидация токена, тело не интересно — интересны
// кастомные заголовки с истечением и scope'ом токена.
func (g *GitHub) Health(ctx context.Context, creds GitHubCreds) domain.ProviderHealth {
	resp, err := g.client.Do(ctx, Call{
		URL:     g.groupsURL(creds.Org),
		Auth:    BearerAuth{Token: creds.Token},
		Headers: g.headers(),
		Timeout: g.timeout,
	})
	if err != nil {
		return domain.ProviderHealth{Status: domain.HealthError, Reason: err.Error()}
	}
	if err := resp.Err(); err != nil {
		return domain.ProviderHealth{Status: domain.HealthError, Reason: err.Error()}
	}

	expirationStr := resp.Header.Get(headerTokenExpiration)
	expiration, err := time.Parse(tokenExpirationLayout, expirationStr)
	if err != nil {
		return domain.ProviderHealth{
			Status: domain.HealthError,
			Reason: fmt.Sprintf("cannot parse token expiration header %q", expirationStr),
		}
	}

	valid := expiration.After(time.Now())
	return domain.ProviderHealth{
		Status:              domain.HealthOK,
		TokenIsValid:        &valid,
		TokenScope:          resp.Header.Get(headerTokenScope),
		TokenExpirationDate: expirationStr,
	}
}

// fetchCached — пагинированная выборка через TTL-кэш. Ключ — запрос
// до пагинации; ошибки выборки в кэш не попадают.
func (g *GitHub) fetchCached(ctx context.Context, creds GitHubCreds, url string) ([]json.RawMessage, error) {
	return g.cache.GetOrCompute(cache.Key("GET", url), func() ([]json.RawMessage, error) {
		g.logger.Info("fetching from github", zap.String("url", url))
		return g.client.FetchAll(ctx, url, BearerAuth{Token: creds.Token}, g.headers(), g.timeout)
	})
}

// normalizeSelfHostedRunner копирует id, name, status, busy как есть:
// схема self-hosted раннеров уже совпадает с каноничной.
func normalizeSelfHostedRunner(item json.RawMessage) (domain.Runner, error) {
	var src struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Status string `json:"status"`
		Busy   bool   `json:"busy"`
	}
	if err := json.Unmarshal(item, &src); err != nil {
		return domain.Runner{}, fmt.Errorf("github: malformed self-hosted runner: %w", err)
	}
	return domain.Runner{
		ID:     src.ID,
		Name:   src.Name,
		Status: domain.RunnerStatus(src.Status),
		Busy:   src.Busy,
		Type:   domain.TypeSelfHosted,
	}, nil
}

// normalizeHostedRunner: у vendor-раннеров только "Ready" означает
// "свободен и на связи". Любой другой статус (Provisioning, Shutdown...)
// дашборд показывает как offline+busy — машина существует, но занята
// жизненным циклом, а не джобой.
func normalizeHostedRunner(item json.RawMessage) (domain.Runner, error) {
	var src struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(item, &src); err != nil {
		return domain.Runner{}, fmt.Errorf("github: malformed hosted runner: %w", err)
	}

	ready := src.Status == "Ready"
	status := domain.RunnerOffline
	if ready {
		status = domain.RunnerOnline
	}
	return domain.Runner{
		ID:     src.ID,
		Name:   src.Name,
		Status: status,
		Busy:   !ready,
		Type:   domain.TypeGitHubHosted,
	}, nil
}
