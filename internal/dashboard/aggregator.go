package dashboard

import (
	"context"

	"github.com/xela07ax/runnerdeck/internal/domain"
	"github.com/xela07ax/runnerdeck/internal/provider"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ConfigSource — требования агрегатора к хранилищу конфигурации.
// Реализуется postgres.Store; ядро видит конфигурацию только на чтение.
type ConfigSource interface {
	GetConfig(ctx context.Context) (map[string]string, error)
	ListMonitoredGroups(ctx context.Context) ([]domain.MonitoredGroup, error)
	ListADOConfigs(ctx context.Context) ([]domain.ADOConfig, error)
}

// Aggregator собирает дашборд по всем провайдерам. Сам вызов
// BuildXxx никогда не фейлится целиком: сбой одной группы/пула/агента
// превращается в маркер ошибки внутри payload'а, соседи продолжают
// обрабатываться.
type Aggregator struct {
	store   ConfigSource
	dec     provider.Decryptor
	github  *provider.GitHub
	ado     *provider.AzureDevOps
	workers int
	logger  *zap.Logger
}

func NewAggregator(
	store ConfigSource,
	dec provider.Decryptor,
	github *provider.GitHub,
	ado *provider.AzureDevOps,
	detailWorkers int,
	logger *zap.Logger,
) *Aggregator {
	if detailWorkers <= 0 {
		detailWorkers = 8
	}
	return &Aggregator{
		store:   store,
		dec:     dec,
		github:  github,
		ado:     ado,
		workers: detailWorkers,
		logger:  logger.Named("aggregator"),
	}
}

// BuildGitHubDashboard опрашивает наблюдаемые runner groups по порядку
// конфигурации. Группы без данных (ошибка листинга) попадают в ответ
// с маркером ошибки — молча не исчезает ничего.
func (a *Aggregator) BuildGitHubDashboard(ctx context.Context) *domain.GitHubDashboard {
	settings, err := a.store.GetConfig(ctx)
	if err != nil {
		a.logger.Error("failed to load settings", zap.Error(err))
		return &domain.GitHubDashboard{Error: "configuration is unavailable"}
	}

	creds, err := provider.GitHubCredsFromSettings(settings, a.dec)
	if err != nil {
		return &domain.GitHubDashboard{Error: "organization has not been configured"}
	}

	groups, err := a.store.ListMonitoredGroups(ctx)
	if err != nil {
		a.logger.Error("failed to load monitored groups", zap.Error(err))
		return &domain.GitHubDashboard{Error: "configuration is unavailable"}
	}
	if len(groups) == 0 {
		// Пустая конфигурация — не ошибка
		return &domain.GitHubDashboard{Groups: []domain.GroupPayload{}}
	}

	payload := make([]domain.GroupPayload, 0, len(groups))
	for _, group := range groups {
		entry := domain.GroupPayload{GroupID: group.ID, GroupName: group.Name}

		runners, err := a.github.GroupRunners(ctx, creds, group)
		if err != nil {
			a.logger.Error("failed to fetch group runners",
				zap.Int64("group_id", group.ID),
				zap.String("group_name", group.Name),
				zap.Error(err))
			entry.Error = "Unable to fetch runners from GitHub API"
		} else {
			entry.RunnersData = &domain.RunnersData{
				TotalCount: len(runners),
				Runners:    runners,
			}
		}
		payload = append(payload, entry)
	}

	return &domain.GitHubDashboard{Groups: payload}
}

// BuildADODashboard собирает организации Azure DevOps. Для каждого пула —
// листинг агентов плюс обогащение busy через detail-вызовы. Детали
// фанатся ограниченным пулом воркеров, результат пишется по индексу,
// так что порядок агентов остается порядком листинга.
func (a *Aggregator) BuildADODashboard(ctx context.Context) *domain.ADODashboard {
	configs, err := a.store.ListADOConfigs(ctx)
	if err != nil {
		a.logger.Error("failed to load ado configs", zap.Error(err))
		return &domain.ADODashboard{Organizations: []domain.ADOOrgPayload{}}
	}

	orgs := make([]domain.ADOOrgPayload, 0, len(configs))
	for _, cfg := range configs {
		org := domain.ADOOrgPayload{
			ID:    cfg.ID,
			Name:  cfg.Organization,
			Pools: make([]domain.ADOPoolPayload, 0, len(cfg.MonitoredPools)),
		}

		pat, err := provider.ADOPATFromConfig(&cfg, a.dec)
		if err != nil {
			// Креды организации мертвы — помечаем все её пулы, но
			// продолжаем со следующей организацией.
			a.logger.Warn("ado credentials unavailable", zap.String("org", cfg.Organization), zap.Error(err))
			for _, pool := range cfg.MonitoredPools {
				org.Pools = append(org.Pools, domain.ADOPoolPayload{
					ID: pool.PoolID, Name: pool.Name, Error: "Credentials are not configured",
				})
			}
			orgs = append(orgs, org)
			continue
		}

		for _, pool := range cfg.MonitoredPools {
			org.Pools = append(org.Pools, a.buildPool(ctx, cfg.Organization, pat, pool))
		}
		orgs = append(orgs, org)
	}

	return &domain.ADODashboard{Organizations: orgs}
}

func (a *Aggregator) buildPool(ctx context.Context, org, pat string, pool domain.ADOPool) domain.ADOPoolPayload {
	entry := domain.ADOPoolPayload{ID: pool.PoolID, Name: pool.Name}

	agents, err := a.ado.PoolAgents(ctx, org, pat, pool.PoolID)
	if err != nil {
		a.logger.Error("failed to fetch agents list",
			zap.String("org", org),
			zap.String("pool", pool.Name),
			zap.Error(err))
		entry.Error = "Failed to fetch agent list"
		return entry
	}

	a.enrichBusy(ctx, org, pat, pool.PoolID, agents)

	entry.AgentsData = &domain.AgentsData{
		TotalCount: len(agents),
		Agents:     agents,
	}
	return entry
}

// enrichBusy добирает занятость по каждому агенту. Сбой одного
// detail-вызова не трогает соседей: его агент остается busy=false.
func (a *Aggregator) enrichBusy(ctx context.Context, org, pat string, poolID int64, agents []domain.Runner) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i := range agents {
		g.Go(func() error {
			busy, err := a.ado.AgentBusy(gctx, org, pat, poolID, agents[i].ID)
			if err != nil {
				a.logger.Error("could not fetch agent details",
					zap.Int64("agent_id", agents[i].ID),
					zap.Error(err))
				agents[i].Busy = false
				return nil // Изолируем сбой: никогда не роняем группу
			}
			agents[i].Busy = busy
			return nil
		})
	}

	// Воркеры не возвращают ошибок — Wait только для синхронизации.
	_ = g.Wait()
}
