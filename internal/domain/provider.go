package domain

import "time"

// Ключи настроек в таблице settings. Значения токенов лежат в базе
// только в зашифрованном виде (см. infra/secrets).
const (
	SettingOrganization = "ORGANIZATION"
	SettingGitHubToken  = "API_GITHUB_TOKEN"
	SettingJiraBaseURL  = "JIRA_BASE_URL"
	SettingJiraEmail    = "JIRA_EMAIL"
	SettingJiraToken    = "JIRA_API_TOKEN"
)

// EncryptedSettings требуют шифрования перед записью.
var EncryptedSettings = map[string]bool{
	SettingGitHubToken: true,
	SettingJiraToken:   true,
}

// ADOConfig — одна организация Azure DevOps с её PAT и списком
// наблюдаемых пулов. Организация уникальна в рамках провайдера.
type ADOConfig struct {
	ID             int64     `json:"id"`
	Organization   string    `json:"organization"`
	EncryptedPAT   string    `json:"-"` // Никогда не отдаем наружу
	MonitoredPools []ADOPool `json:"monitored_pools,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ADOPool — один agent pool, выбранный для мониторинга.
// PoolID уникален в рамках своей организации.
type ADOPool struct {
	PoolID int64  `json:"id"`
	Name   string `json:"name"`
}

// GroupPayload — вклад одной runner group в дашборд.
// Поле Error заполняется вместо RunnersData при сбое листинга:
// упавшая группа показывается явно, а не исчезает молча.
type GroupPayload struct {
	GroupID     int64        `json:"group_id"`
	GroupName   string       `json:"group_name"`
	RunnersData *RunnersData `json:"runners_data,omitempty"`
	Error       string       `json:"error,omitempty"`
}

type RunnersData struct {
	TotalCount int      `json:"total_count"`
	Runners    []Runner `json:"runners"`
}

// GitHubDashboard — ответ /api/dashboard-data. Группы идут в порядке конфигурации.
type GitHubDashboard struct {
	Groups []GroupPayload `json:"groups"`
	Error  string         `json:"error,omitempty"`
}

// ADOOrgPayload — вклад одной организации Azure DevOps в дашборд.
type ADOOrgPayload struct {
	ID    int64            `json:"id"`
	Name  string           `json:"name"`
	Pools []ADOPoolPayload `json:"pools"`
}

type ADOPoolPayload struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	AgentsData *AgentsData `json:"agents_data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type AgentsData struct {
	TotalCount int      `json:"total_count"`
	Agents     []Runner `json:"agents"`
}

// ADODashboard — ответ /api/azure-devops/dashboard-data.
type ADODashboard struct {
	Organizations []ADOOrgPayload `json:"organizations"`
}
