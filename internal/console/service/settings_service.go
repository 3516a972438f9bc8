package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xela07ax/runnerdeck/internal/cache"
	"github.com/xela07ax/runnerdeck/internal/domain"
	"github.com/xela07ax/runnerdeck/internal/provider"
	"go.uber.org/zap"
)

// SettingsRepository — требования сервиса настроек к хранилищу.
type SettingsRepository interface {
	GetConfig(ctx context.Context) (map[string]string, error)
	UpsertSetting(ctx context.Context, key, value string) error
	ListMonitoredGroups(ctx context.Context) ([]domain.MonitoredGroup, error)
	ReplaceMonitoredGroups(ctx context.Context, groups []domain.MonitoredGroup) error
	ListADOConfigs(ctx context.Context) ([]domain.ADOConfig, error)
	GetADOConfig(ctx context.Context, id int64) (*domain.ADOConfig, error)
	CreateADOConfig(ctx context.Context, organization, encryptedPAT string) (int64, error)
	UpdateADOPAT(ctx context.Context, id int64, encryptedPAT string) error
	DeleteADOConfig(ctx context.Context, id int64) error
	ReplaceMonitoredPools(ctx context.Context, configID int64, pools []domain.ADOPool) error
}

// Encryptor — шифрование секретов перед записью и расшифровка при чтении.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encoded string) (string, error)
}

var (
	ErrValidation = errors.New("validation failed")
	ErrDuplicate  = errors.New("configuration already exists")
)

// SettingsService — вся запись конфигурации и кредов проходит здесь.
// Инвариант: каждая успешная запись синхронно сбрасывает кэш ответов
// провайдеров — смена токена/организации обесценивает закэшированные URL.
type SettingsService struct {
	repo   SettingsRepository
	box    Encryptor
	cache  *cache.TTL
	github *provider.GitHub
	ado    *provider.AzureDevOps
	logger *zap.Logger
}

func NewSettingsService(
	repo SettingsRepository,
	box Encryptor,
	ttl *cache.TTL,
	github *provider.GitHub,
	ado *provider.AzureDevOps,
	logger *zap.Logger,
) *SettingsService {
	return &SettingsService{
		repo:   repo,
		box:    box,
		cache:  ttl,
		github: github,
		ado:    ado,
		logger: logger.Named("settings-service"),
	}
}

// SettingsView — безопасная проекция настроек: сами токены наружу
// не уходят, только факт их наличия.
type SettingsView struct {
	Organization   string `json:"organization"`
	GitHubTokenSet bool   `json:"github_token_set"`
	JiraBaseURL    string `json:"jira_base_url"`
	JiraEmail      string `json:"jira_email"`
	JiraTokenSet   bool   `json:"jira_token_set"`
}

func (s *SettingsService) GetSettings(ctx context.Context) (*SettingsView, error) {
	config, err := s.repo.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsView{
		Organization:   config[domain.SettingOrganization],
		GitHubTokenSet: config[domain.SettingGitHubToken] != "",
		JiraBaseURL:    config[domain.SettingJiraBaseURL],
		JiraEmail:      config[domain.SettingJiraEmail],
		JiraTokenSet:   config[domain.SettingJiraToken] != "",
	}, nil
}

// SaveGitHub сохраняет организацию и (опционально) новый токен.
func (s *SettingsService) SaveGitHub(ctx context.Context, org, token string) error {
	if org == "" {
		return fmt.Errorf("%w: organization name is required", ErrValidation)
	}
	if err := s.repo.UpsertSetting(ctx, domain.SettingOrganization, org); err != nil {
		return err
	}
	if token != "" {
		encrypted, err := s.box.Encrypt(token)
		if err != nil {
			return err
		}
		if err := s.repo.UpsertSetting(ctx, domain.SettingGitHubToken, encrypted); err != nil {
			return err
		}
	}

	s.invalidate()
	return nil
}

// SaveJira сохраняет base URL и email; токен — только если передан новый.
func (s *SettingsService) SaveJira(ctx context.Context, baseURL, email, token string) error {
	if err := s.repo.UpsertSetting(ctx, domain.SettingJiraBaseURL, baseURL); err != nil {
		return err
	}
	if err := s.repo.UpsertSetting(ctx, domain.SettingJiraEmail, email); err != nil {
		return err
	}
	if token != "" {
		encrypted, err := s.box.Encrypt(token)
		if err != nil {
			return err
		}
		if err := s.repo.UpsertSetting(ctx, domain.SettingJiraToken, encrypted); err != nil {
			return err
		}
	}

	s.invalidate()
	return nil
}

// GroupSelection — ответ выбора групп: что доступно у провайдера
// и что уже под наблюдением.
type GroupSelection struct {
	AvailableGroups []provider.RunnerGroup `json:"available_groups"`
	MonitoredIDs    []int64                `json:"monitored_ids"`
}

func (s *SettingsService) ListRunnerGroups(ctx context.Context) (*GroupSelection, error) {
	settings, err := s.repo.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	creds, err := provider.GitHubCredsFromSettings(settings, s.box)
	if err != nil {
		return nil, err
	}

	available, err := s.github.ListGroups(ctx, creds)
	if err != nil {
		return nil, err
	}

	monitored, err := s.repo.ListMonitoredGroups(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(monitored))
	for _, g := range monitored {
		ids = append(ids, g.ID)
	}

	return &GroupSelection{AvailableGroups: available, MonitoredIDs: ids}, nil
}

// SaveRunnerGroups заменяет выбор наблюдаемых групп. Флаг hosted,
// не выставленный клиентом явно, выводится из исторического имени
// группы — совместимость со старыми сохранениями.
func (s *SettingsService) SaveRunnerGroups(ctx context.Context, groups []domain.MonitoredGroup) error {
	for i := range groups {
		if !groups[i].Hosted && groups[i].Name == "Premium Runners" {
			groups[i].Hosted = true
		}
	}
	if err := s.repo.ReplaceMonitoredGroups(ctx, groups); err != nil {
		return err
	}

	s.invalidate()
	return nil
}

func (s *SettingsService) ListADOOrgs(ctx context.Context) ([]domain.ADOConfig, error) {
	return s.repo.ListADOConfigs(ctx)
}

// AddADOOrg регистрирует организацию Azure DevOps. Имя уникально:
// повторная регистрация отклоняется до обращения к базе.
func (s *SettingsService) AddADOOrg(ctx context.Context, organization, pat string) (int64, error) {
	if organization == "" || pat == "" {
		return 0, fmt.Errorf("%w: both organization name and PAT token are required", ErrValidation)
	}

	existing, err := s.repo.ListADOConfigs(ctx)
	if err != nil {
		return 0, err
	}
	for _, cfg := range existing {
		if cfg.Organization == organization {
			return 0, fmt.Errorf("%w: organization %q", ErrDuplicate, organization)
		}
	}

	encrypted, err := s.box.Encrypt(pat)
	if err != nil {
		return 0, err
	}
	id, err := s.repo.CreateADOConfig(ctx, organization, encrypted)
	if err != nil {
		return 0, err
	}

	s.invalidate()
	return id, nil
}

func (s *SettingsService) UpdateADOPAT(ctx context.Context, id int64, pat string) error {
	if pat == "" {
		return fmt.Errorf("%w: no new PAT token was provided", ErrValidation)
	}
	encrypted, err := s.box.Encrypt(pat)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateADOPAT(ctx, id, encrypted); err != nil {
		return err
	}

	s.invalidate()
	return nil
}

func (s *SettingsService) DeleteADOOrg(ctx context.Context, id int64) error {
	if err := s.repo.DeleteADOConfig(ctx, id); err != nil {
		return err
	}

	s.invalidate()
	return nil
}

// PoolSelection — доступные пулы организации и уже наблюдаемые.
type PoolSelection struct {
	AvailablePools []provider.AgentPool `json:"available_pools"`
	MonitoredIDs   []int64              `json:"monitored_ids"`
}

func (s *SettingsService) ListADOPools(ctx context.Context, configID int64) (*PoolSelection, error) {
	cfg, pat, err := s.adoCreds(ctx, configID)
	if err != nil {
		return nil, err
	}

	available, err := s.ado.ListPools(ctx, cfg.Organization, pat)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(cfg.MonitoredPools))
	for _, p := range cfg.MonitoredPools {
		ids = append(ids, p.PoolID)
	}
	return &PoolSelection{AvailablePools: available, MonitoredIDs: ids}, nil
}

func (s *SettingsService) SaveADOPools(ctx context.Context, configID int64, pools []domain.ADOPool) error {
	if err := s.repo.ReplaceMonitoredPools(ctx, configID, pools); err != nil {
		return err
	}

	s.invalidate()
	return nil
}

// VerifyADO — проверка соединения по кнопке в настройках.
func (s *SettingsService) VerifyADO(ctx context.Context, configID int64) error {
	cfg, pat, err := s.adoCreds(ctx, configID)
	if err != nil {
		return err
	}
	return s.ado.Verify(ctx, cfg.Organization, pat)
}

func (s *SettingsService) adoCreds(ctx context.Context, configID int64) (*domain.ADOConfig, string, error) {
	cfg, err := s.repo.GetADOConfig(ctx, configID)
	if err != nil {
		return nil, "", err
	}
	pat, err := provider.ADOPATFromConfig(cfg, s.box)
	if err != nil {
		return nil, "", err
	}
	return cfg, pat, nil
}

func (s *SettingsService) invalidate() {
	// Синхронно, до ответа клиенту: следующий опрос дашборда обязан
	// идти к провайдерам с новыми кредами.
	s.cache.Clear()
}
