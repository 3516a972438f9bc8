package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации всего сервиса.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// AppConfig — общеприкладные мелочи (версия в /version и т.д.).
type AppConfig struct {
	Version string `mapstructure:"version"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// AuthConfig содержит пути к RSA ключам, настройки JWT и ключ
// шифрования секретов (токены провайдеров в базе).
type AuthConfig struct {
	PublicKeyPath  string        `mapstructure:"public_key_path"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	PublicKey      []byte
	PrivateKey     []byte
	// SecretsKey — base64 от 32 байт, приходит только через ENV (SECRETS_KEY)
	SecretsKey string
}

// CacheConfig управляет TTL-кэшем ответов провайдеров.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// ProvidersConfig — сетевые рамки исходящих вызовов к провайдерам.
type ProvidersConfig struct {
	ListTimeout   time.Duration `mapstructure:"list_timeout"`   // Листинги и health-пробы
	DetailTimeout time.Duration `mapstructure:"detail_timeout"` // Массовые per-agent детали
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	RateBurst     int           `mapstructure:"rate_burst"`
	DetailWorkers int           `mapstructure:"detail_workers"` // Параллелизм ADO-деталей

	// Отключение проверки TLS для on-prem Jira с самоподписанным
	// сертификатом. По умолчанию выключено.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. ENV перекрывает файл: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Ключевой материал из файла ИЛИ напрямую из ENV (Docker/K8s)
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")
	cfg.Auth.PrivateKey = loadKeyResource(cfg.Auth.PrivateKeyPath, "AUTH_PRIVATE_KEY_DATA")
	cfg.Auth.SecretsKey = os.Getenv("SECRETS_KEY")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.version", "local-dev")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("providers.list_timeout", 10*time.Second)
	v.SetDefault("providers.detail_timeout", 5*time.Second)
	v.SetDefault("providers.rate_per_second", 20)
	v.SetDefault("providers.rate_burst", 10)
	v.SetDefault("providers.detail_workers", 8)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

// loadKeyResource — универсальный хелпер: ключ либо прилетает напрямую
// в ENV (PEM), либо читается из файла по пути из конфига.
func loadKeyResource(path string, envDataKey string) []byte {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
