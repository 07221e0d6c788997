package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/devguard/internal/handler"
	"github.com/xela07ax/devguard/internal/infra"
	"github.com/xela07ax/devguard/internal/infra/auth"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const apiVersion = "1.0.0"

type Server struct {
	router  *chi.Mux
	logger  *zap.Logger
	cfg     *infra.Config
	metrics *infra.Metrics
	tokens  *auth.Tokens
	started time.Time

	// Лимитер публичных auth-эндпоинтов (логин, регистрация)
	authLimiter *rate.Limiter

	// Обработчики бизнес-доменов
	authHandler       *handler.AuthHandler       // /api/auth
	deviceHandler     *handler.DeviceHandler     // /api/device
	approvalHandler   *handler.ApprovalHandler   // заявки в обоих периметрах
	managementHandler *handler.ManagementHandler // /api/management
}

// New собирает сервер со всеми зависимостями и маршрутами.
func New(
	cfg *infra.Config,
	logger *zap.Logger,
	metrics *infra.Metrics,
	promReg *prometheus.Registry,
	tokens *auth.Tokens,
	authH *handler.AuthHandler,
	deviceH *handler.DeviceHandler,
	approvalH *handler.ApprovalHandler,
	managementH *handler.ManagementHandler,
) *Server {
	s := &Server{
		router:            chi.NewRouter(),
		logger:            logger.Named("http"),
		cfg:               cfg,
		metrics:           metrics,
		tokens:            tokens,
		started:           time.Now(),
		authLimiter:       rate.NewLimiter(rate.Limit(cfg.Server.AuthRateLimit), cfg.Server.AuthRateBurst),
		authHandler:       authH,
		deviceHandler:     deviceH,
		approvalHandler:   approvalH,
		managementHandler: managementH,
	}

	s.routes(promReg)
	return s
}

func (s *Server) routes(promReg *prometheus.Registry) {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observeRequests)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Group(func(r chi.Router) {
		r.Get("/", s.handleInfo)
		r.Get("/health", s.handleHealth)
		r.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

		// Auth-эндпоинты под токен-бакетом (защита от перебора паролей)
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimitAuth)
			r.Post("/api/auth/login", s.authHandler.Login)
			r.Post("/api/auth/register", s.authHandler.Register)
			r.Post("/api/device/register", s.deviceHandler.Register)
		})
	})

	// --- 3. ПЕРИМЕТР УСТРОЙСТВ (device-токен) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.DeviceMiddleware(s.tokens, s.logger))

		r.Route("/api/device", func(r chi.Router) {
			r.Get("/policies", s.deviceHandler.GetPolicies)
			r.Get("/urls", s.deviceHandler.GetURLs)
			r.Post("/heartbeat", s.deviceHandler.Heartbeat)
			r.Post("/violations", s.deviceHandler.ReportViolation)
			r.Post("/violations/batch", s.deviceHandler.ReportViolationsBatch)

			// Жизненный цикл заявок, сторона устройства
			r.Post("/requests", s.approvalHandler.Submit)
			r.Get("/requests", s.approvalHandler.ListMine)
			r.Get("/requests/{request_id}", s.approvalHandler.CheckStatus)
		})
	})

	// --- 4. АДМИНСКИЙ ПЕРИМЕТР (admin-токен) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.AdminMiddleware(s.tokens, s.logger))

		r.Get("/api/auth/verify", s.authHandler.Verify)

		r.Route("/api/management", func(r chi.Router) {
			// Флот
			r.Get("/devices", s.managementHandler.ListDevices)
			r.Get("/devices/{device_id}/apps", s.managementHandler.ListInstalledApps)
			r.Put("/devices/{device_id}/settings", s.managementHandler.UpdateSettings)

			// Политики приложений и URL
			r.Post("/policies/apps", s.managementHandler.SetAppPolicy)
			r.Get("/policies/urls", s.managementHandler.ListBlockedURLs)
			r.Post("/policies/urls", s.managementHandler.AddBlockedURL)
			r.Delete("/policies/urls/{id}", s.managementHandler.RemoveBlockedURL)

			// Заявки: очередь решений + само решение
			r.Get("/requests", s.approvalHandler.ListPending)
			r.Put("/requests/{id}", s.approvalHandler.Resolve)

			// Нарушения
			r.Get("/violations", s.managementHandler.ListViolations)
		})
	})
}

// observeRequests пишет структурный access-лог и метрики длительности.
func (s *Server) observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)

		s.metrics.TotalRequests.WithLabelValues(route, r.Method).Inc()
		s.metrics.RequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).
			Observe(elapsed.Seconds())

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) rateLimitAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authLimiter.Allow() {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok","message":"DevGuard Backend API","version":"` + apiVersion + `"}`))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	uptime := strconv.FormatInt(int64(time.Since(s.started).Seconds()), 10)
	_, _ = w.Write([]byte(`{"status":"healthy","uptime_seconds":` + uptime + `}`))
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
