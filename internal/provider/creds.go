package provider

import (
	"fmt"

	"github.com/xela07ax/runnerdeck/internal/domain"
)

// Decryptor расшифровывает секреты из хранилища настроек.
// Реализуется infra/secrets.Box; в тестах подменяется заглушкой.
type Decryptor interface {
	Decrypt(encoded string) (string, error)
}

// GitHubCreds — организация + уже расшифрованный токен.
type GitHubCreds struct {
	Org   string
	Token string
}

// JiraCreds — базовый URL + basic-auth пара (email, токен).
type JiraCreds struct {
	BaseURL string
	Email   string
	Token   string
}

// GitHubCredsFromSettings лениво собирает креды из настроек.
// Отсутствие организации или токена — ErrNotConfigured до любого
// сетевого вызова; нерасшифровываемый токен приравнивается к отсутствию.
func GitHubCredsFromSettings(settings map[string]string, dec Decryptor) (GitHubCreds, error) {
	org := settings[domain.SettingOrganization]
	encrypted := settings[domain.SettingGitHubToken]
	if org == "" || encrypted == "" {
		return GitHubCreds{}, domain.ErrNotConfigured
	}

	token, err := dec.Decrypt(encrypted)
	if err != nil || token == "" {
		return GitHubCreds{}, fmt.Errorf("github token: %w", domain.ErrNotConfigured)
	}
	return GitHubCreds{Org: org, Token: token}, nil
}

// JiraCredsFromSettings — аналогично: все три поля обязательны.
func JiraCredsFromSettings(settings map[string]string, dec Decryptor) (JiraCreds, error) {
	baseURL := settings[domain.SettingJiraBaseURL]
	email := settings[domain.SettingJiraEmail]
	encrypted := settings[domain.SettingJiraToken]
	if baseURL == "" || email == "" || encrypted == "" {
		return JiraCreds{}, domain.ErrNotConfigured
	}

	token, err := dec.Decrypt(encrypted)
	if err != nil || token == "" {
		return JiraCreds{}, fmt.Errorf("jira token: %w", domain.ErrNotConfigured)
	}
	return JiraCreds{BaseURL: baseURL, Email: email, Token: token}, nil
}

// ADOPATFromConfig расшифровывает PAT организации Azure DevOps.
func ADOPATFromConfig(cfg *domain.ADOConfig, dec Decryptor) (string, error) {
	if cfg.EncryptedPAT == "" {
		return "", domain.ErrNotConfigured
	}
	pat, err := dec.Decrypt(cfg.EncryptedPAT)
	if err != nil || pat == "" {
		return "", fmt.Errorf("ado pat for %s: %w", cfg.Organization, domain.ErrNotConfigured)
	}
	return pat, nil
}
