package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/runnerdeck/internal/console/handler"
	"github.com/xela07ax/runnerdeck/internal/infra"
	"github.com/xela07ax/runnerdeck/internal/infra/auth"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// Интерфейс для проверки токенов (RS256)
	// Реализуется через embedding BaseValidator в AuthService
	authValidator auth.TokenValidator

	// Обработчики бизнес-доменов
	authHandler     *handler.AuthHandler      // /auth/*
	dashHandler     *handler.DashboardHandler // дашборды и Jira-статус
	systemHandler   *handler.SystemHandler    // /health, /version
	settingsHandler *handler.SettingsHandler  // настройки и runner groups
	adoHandler      *handler.ADOHandler       // организации и пулы Azure DevOps

	metricsRegistry *prometheus.Registry
}

// NewConsoleServer инициализирует сервер консоли со всеми зависимостями
func NewConsoleServer(
	cfg *infra.Config,
	logger *zap.Logger,
	validator auth.TokenValidator,
	authH *handler.AuthHandler,
	dashH *handler.DashboardHandler,
	systemH *handler.SystemHandler,
	settingsH *handler.SettingsHandler,
	adoH *handler.ADOHandler,
	registry *prometheus.Registry,
) *ConsoleServer {
	s := &ConsoleServer{
		router:          chi.NewRouter(),
		logger:          logger.Named("console-api"),
		cfg:             cfg,
		authValidator:   validator,
		authHandler:     authH,
		dashHandler:     dashH,
		systemHandler:   systemH,
		settingsHandler: settingsH,
		adoHandler:      adoH,
		metricsRegistry: registry,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TracingMiddleware)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	// Дашборды читают все, как и в исходном инструменте: это мониторинг
	// для команды, а не секретные данные. Запись — только под токеном.
	r.Group(func(r chi.Router) {
		r.Post("/auth/setup", s.authHandler.Setup)
		r.Post("/auth/token", s.authHandler.Login)

		r.Get("/health", s.systemHandler.GetHealth)
		r.Get("/version", s.systemHandler.GetVersion)

		r.Get("/api/dashboard-data", s.dashHandler.GetGitHubDashboard)
		r.Get("/api/azure-devops/dashboard-data", s.dashHandler.GetADODashboard)
		r.Get("/api/jira-confluence", s.dashHandler.GetJiraConfluenceStatus)

		if s.metricsRegistry != nil {
			r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metricsRegistry, promhttp.HandlerOpts{}))
		}
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))

		// Настройки провайдеров
		r.Route("/api/settings", func(r chi.Router) {
			r.Get("/", s.settingsHandler.GetSettings)
			r.Put("/github", s.settingsHandler.SaveGitHub)
			r.Put("/jira", s.settingsHandler.SaveJira)
		})

		// Выбор наблюдаемых runner groups
		r.Route("/api/runner-groups", func(r chi.Router) {
			r.Get("/", s.settingsHandler.ListRunnerGroups)
			r.Post("/", s.settingsHandler.SaveRunnerGroups)
		})

		// Организации и пулы Azure DevOps
		r.Route("/api/azure-devops", func(r chi.Router) {
			r.Get("/", s.adoHandler.ListOrgs)
			r.Post("/", s.adoHandler.AddOrg)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", s.adoHandler.UpdatePAT)
				r.Delete("/", s.adoHandler.DeleteOrg)
				r.Get("/pools", s.adoHandler.ListPools)
				r.Post("/pools", s.adoHandler.SavePools)
				r.Post("/verify", s.adoHandler.Verify)
			})
		})
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
