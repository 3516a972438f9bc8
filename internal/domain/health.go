package domain

type HealthState string

const (
	HealthOK            HealthState = "ok"
	HealthError         HealthState = "error"
	HealthNotConfigured HealthState = "not_configured"
)

// ProviderHealth — под-отчет одного провайдера. Диагностические поля
// GitHub (срок жизни токена, выданный scope) заполняются из кастомных
// заголовков ответа и присутствуют только у него.
type ProviderHealth struct {
	Status HealthState `json:"status"`
	Reason string      `json:"reason,omitempty"`

	TokenIsValid        *bool  `json:"token_is_valid,omitempty"`
	TokenScope          string `json:"token_scope,omitempty"`
	TokenExpirationDate string `json:"token_expiration_date,omitempty"`
}

// ADOOrgHealth — результат пробы одной организации Azure DevOps.
type ADOOrgHealth struct {
	Organization string      `json:"organization"`
	Status       HealthState `json:"status"`
	Reason       string      `json:"reason,omitempty"`
}

// HealthReport — композитный отчет /health. Всегда заполняется целиком:
// недоступный провайдер попадает сюда со статусом error, но никогда
// не роняет сам отчет.
type HealthReport struct {
	GitHub      ProviderHealth `json:"github"`
	Jira        ProviderHealth `json:"jira"`
	AzureDevOps []ADOOrgHealth `json:"azure_devops"`
}
