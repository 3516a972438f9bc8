package cache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/xela07ax/runnerdeck/internal/infra"
	"go.uber.org/zap"
)

type entry struct {
	payload    []json.RawMessage
	capturedAt time.Time
}

// TTL — процессный кэш дорогих пагинированных выборок.
// Ключ — идентичность запроса (метод + полный URL до пагинации).
// Запись валидна пока now - capturedAt < ttl; чтение не продлевает
// жизнь записи (чистый TTL, не LRU). Экземпляр внедряется явно,
// глобального состояния нет — тесты собирают собственные изолированные кэши.
type TTL struct {
	mu      sync.RWMutex
	entries map[string]entry

	ttl     time.Duration
	now     func() time.Time // Подменяется в тестах
	metrics *infra.Metrics
	logger  *zap.Logger
}

func New(ttl time.Duration, metrics *infra.Metrics, logger *zap.Logger) *TTL {
	if metrics == nil {
		metrics = infra.NewMetrics(nil)
	}
	return &TTL{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		metrics: metrics,
		logger:  logger.Named("ttl-cache"),
	}
}

// Key собирает каноничный ключ записи.
func Key(method, url string) string {
	return method + " " + url
}

// GetOrCompute возвращает живую запись либо вызывает compute.
// Ошибки compute никогда не кэшируются: следующий вызов повторит выборку.
// Одновременные промахи по одному ключу не сериализуются — окно
// thundering-herd допустимо, пространство ключей маленькое и операторское.
func (c *TTL) GetOrCompute(key string, compute func() ([]json.RawMessage, error)) ([]json.RawMessage, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Sub(e.capturedAt) < c.ttl {
		c.metrics.CacheHits.Inc()
		c.logger.Debug("cache hit", zap.String("key", key))
		return e.payload, nil
	}

	c.metrics.CacheMisses.Inc()
	payload, err := compute()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = entry{payload: payload, capturedAt: c.now()}
	c.mu.Unlock()

	return payload, nil
}

// Clear сбрасывает кэш целиком. Вызывается синхронно при любой записи
// настроек или кредов: смена токена или организации меняет смысл
// закэшированного URL, не меняя саму строку URL.
func (c *TTL) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.logger.Info("provider response cache cleared")
}
