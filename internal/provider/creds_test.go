package provider

import (
	"errors"
	"testing"

	"github.com/xela07ax/runnerdeck/internal/domain"
)

type stubDec struct{ fail bool }

func (d stubDec) Decrypt(encoded string) (string, error) {
	if d.fail {
		return "", errors.New("bad ciphertext")
	}
	return encoded, nil
}

func TestGitHubCredsFromSettings(t *testing.T) {
	full := map[string]string{
		domain.SettingOrganization: "acme",
		domain.SettingGitHubToken:  "tok",
	}

	creds, err := GitHubCredsFromSettings(full, stubDec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.Org != "acme" || creds.Token != "tok" {
		t.Fatalf("unexpected creds: %+v", creds)
	}

	// Любое отсутствующее поле — ErrNotConfigured, не сетевой вызов
	for _, missing := range []string{domain.SettingOrganization, domain.SettingGitHubToken} {
		partial := map[string]string{}
		for k, v := range full {
			if k != missing {
				partial[k] = v
			}
		}
		if _, err := GitHubCredsFromSettings(partial, stubDec{}); !errors.Is(err, domain.ErrNotConfigured) {
			t.Fatalf("missing %s: want ErrNotConfigured, got %v", missing, err)
		}
	}

	// Нерасшифровываемый токен приравнивается к отсутствию
	if _, err := GitHubCredsFromSettings(full, stubDec{fail: true}); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("undecryptable token: want ErrNotConfigured, got %v", err)
	}
}

func TestJiraCredsFromSettings(t *testing.T) {
	full := map[string]string{
		domain.SettingJiraBaseURL: "https://jira.example.com",
		domain.SettingJiraEmail:   "ops@example.com",
		domain.SettingJiraToken:   "tok",
	}

	creds, err := JiraCredsFromSettings(full, stubDec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.BaseURL != "https://jira.example.com" || creds.Email != "ops@example.com" {
		t.Fatalf("unexpected creds: %+v", creds)
	}

	for _, missing := range []string{domain.SettingJiraBaseURL, domain.SettingJiraEmail, domain.SettingJiraToken} {
		partial := map[string]string{}
		for k, v := range full {
			if k != missing {
				partial[k] = v
			}
		}
		if _, err := JiraCredsFromSettings(partial, stubDec{}); !errors.Is(err, domain.ErrNotConfigured) {
			t.Fatalf("missing %s: want ErrNotConfigured, got %v", missing, err)
		}
	}
}

func TestADOPATFromConfig(t *testing.T) {
	cfg := &domain.ADOConfig{Organization: "myorg", EncryptedPAT: "pat"}

	pat, err := ADOPATFromConfig(cfg, stubDec{})
	if err != nil || pat != "pat" {
		t.Fatalf("got %q, %v", pat, err)
	}

	if _, err := ADOPATFromConfig(&domain.ADOConfig{Organization: "x"}, stubDec{}); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("empty PAT: want ErrNotConfigured, got %v", err)
	}
	if _, err := ADOPATFromConfig(cfg, stubDec{fail: true}); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("undecryptable PAT: want ErrNotConfigured, got %v", err)
	}
}
