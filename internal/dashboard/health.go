package dashboard

import (
	"context"
	"errors"

	"github.com/xela07ax/runnerdeck/internal/domain"
	"github.com/xela07ax/runnerdeck/internal/provider"
	"go.uber.org/zap"
)

// Composer собирает композитный health-отчет: по одной дешевой пробе
// на провайдера, без пагинации и мимо кэша. Провайдер без кредов
// получает not_configured без единого сетевого вызова; недоступный —
// error с причиной. Сам отчет не фейлится никогда.
type Composer struct {
	store  ConfigSource
	dec    provider.Decryptor
	github *provider.GitHub
	jira   *provider.Jira
	ado    *provider.AzureDevOps
	logger *zap.Logger
}

func NewComposer(
	store ConfigSource,
	dec provider.Decryptor,
	github *provider.GitHub,
	jira *provider.Jira,
	ado *provider.AzureDevOps,
	logger *zap.Logger,
) *Composer {
	return &Composer{
		store:  store,
		dec:    dec,
		github: github,
		jira:   jira,
		ado:    ado,
		logger: logger.Named("health"),
	}
}

func (c *Composer) Compose(ctx context.Context) *domain.HealthReport {
	c.logger.Info("performing comprehensive health check")

	report := &domain.HealthReport{
		AzureDevOps: []domain.ADOOrgHealth{},
	}

	settings, err := c.store.GetConfig(ctx)
	if err != nil {
		// Без настроек пробовать нечего: отчет честно говорит, что
		// ни один провайдер не сконфигурирован.
		c.logger.Error("failed to load settings", zap.Error(err))
		settings = map[string]string{}
	}

	report.GitHub = c.githubHealth(ctx, settings)
	report.Jira = c.jiraHealth(ctx, settings)
	report.AzureDevOps = c.adoHealth(ctx)

	return report
}

func (c *Composer) githubHealth(ctx context.Context, settings map[string]string) domain.ProviderHealth {
	creds, err := provider.GitHubCredsFromSettings(settings, c.dec)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return domain.ProviderHealth{Status: domain.HealthNotConfigured}
		}
		return domain.ProviderHealth{Status: domain.HealthError, Reason: err.Error()}
	}

	health := c.github.Health(ctx, creds)
	if health.Status == domain.HealthError {
		c.logger.Error("github health check failed", zap.String("reason", health.Reason))
	}
	return health
}

func (c *Composer) jiraHealth(ctx context.Context, settings map[string]string) domain.ProviderHealth {
	creds, err := provider.JiraCredsFromSettings(settings, c.dec)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return domain.ProviderHealth{Status: domain.HealthNotConfigured}
		}
		return domain.ProviderHealth{Status: domain.HealthError, Reason: err.Error()}
	}

	return c.jira.Health(ctx, creds)
}

func (c *Composer) adoHealth(ctx context.Context) []domain.ADOOrgHealth {
	configs, err := c.store.ListADOConfigs(ctx)
	if err != nil {
		c.logger.Error("failed to load ado configs", zap.Error(err))
		return []domain.ADOOrgHealth{}
	}

	statuses := make([]domain.ADOOrgHealth, 0, len(configs))
	for _, cfg := range configs {
		status := domain.ADOOrgHealth{Organization: cfg.Organization}

		pat, err := provider.ADOPATFromConfig(&cfg, c.dec)
		if err != nil {
			status.Status = domain.HealthNotConfigured
			statuses = append(statuses, status)
			continue
		}

		if err := c.ado.Verify(ctx, cfg.Organization, pat); err != nil {
			c.logger.Error("ado health check failed",
				zap.String("org", cfg.Organization),
				zap.Error(err))
			status.Status = domain.HealthError
			status.Reason = "Connection failed or invalid token"
		} else {
			status.Status = domain.HealthOK
		}
		statuses = append(statuses, status)
	}
	return statuses
}
