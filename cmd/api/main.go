package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-lapak/internal/cart"
	"github.com/noah-isme/backend-lapak/internal/catalog"
	"github.com/noah-isme/backend-lapak/internal/checkout"
	"github.com/noah-isme/backend-lapak/internal/common"
	"github.com/noah-isme/backend-lapak/internal/config"
	"github.com/noah-isme/backend-lapak/internal/coupon"
	"github.com/noah-isme/backend-lapak/internal/health"
	"github.com/noah-isme/backend-lapak/internal/obs"
	"github.com/noah-isme/backend-lapak/internal/order"
	"github.com/noah-isme/backend-lapak/internal/promo"
	"github.com/noah-isme/backend-lapak/internal/ratelimit"
	"github.com/noah-isme/backend-lapak/internal/resilience"
	"github.com/noah-isme/backend-lapak/internal/security"
	"github.com/noah-isme/backend-lapak/internal/shipping"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "lapak")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "lapak-api",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: cfg.TracingSampleRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "lapak-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	validate := validator.New()

	promoSvc := &promo.Service{
		Store:  &promo.Store{Pool: pool},
		Cache:  promo.NewCache(redisClient, cfg.PromoCacheTTL),
		Logger: logger,
	}
	promoHandler := &promo.Handler{Svc: promoSvc, Validate: validate}

	catalogStore := &catalog.Store{Pool: pool}
	catalogSvc := &catalog.Service{
		Store:  catalogStore,
		Cache:  catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Promos: promoSvc,
	}
	catalogHandler := &catalog.Handler{Svc: catalogSvc, DefaultLimit: cfg.DefaultPageLimit}

	outbound := func() resilience.HTTPClient {
		return resilience.HTTPClient{
			Client:      &http.Client{Timeout: cfg.OutboundTimeout},
			Breaker:     resilience.NewBreaker(cfg.BreakerThreshold, 0.5, cfg.BreakerCooldown),
			MaxAttempts: cfg.HTTPRetryMax + 1,
			Timeout:     cfg.OutboundTimeout,
		}
	}

	var couponValidator coupon.Validator
	if cfg.CouponServiceURL != "" {
		couponValidator = coupon.Client{
			BaseURL: cfg.CouponServiceURL,
			APIKey:  cfg.CouponAPIKey,
			HTTP:    outbound(),
		}
	} else {
		logger.Warn().Msg("COUPON_SERVICE_URL not set, using mock coupon validator")
		couponValidator = coupon.MockValidator{Percents: map[string]int32{
			"WELCOME10": 1000,
			"HEMAT5":    500,
		}}
	}

	var shippingClient shipping.Client
	if cfg.ShippingServiceURL != "" {
		shippingClient = shipping.HTTPClient{
			BaseURL: cfg.ShippingServiceURL,
			APIKey:  cfg.ShippingAPIKey,
			HTTP:    outbound(),
		}
	} else {
		logger.Warn().Msg("SHIPPING_SERVICE_URL not set, using mock shipping rates")
		shippingClient = shipping.MockClient{}
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	cartStore := &cart.Store{Pool: pool}
	cartSvc := &cart.Service{
		Store:   cartStore,
		Catalog: catalogStore,
		Promos:  promoSvc,
		Coupons: couponValidator,
		Guard:   coupon.NewGuard(),
		TTL:     cfg.CartTTL,
		Logger:  logger,
	}
	cartHandler := &cart.Handler{
		Svc:      cartSvc,
		Shipping: shippingClient,
		Catalog:  catalogStore,
		Origin:   cfg.ShippingOriginCode,
		Validate: validate,
	}

	// Coupon validation fans out to an external service on every attempt, so
	// the endpoint gets its own per-client rate limit.
	couponLimiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:coupon"},
		Config: ratelimit.Config{
			Key:    func(r *http.Request) string { return common.ClientIP(r) },
			Window: time.Minute,
			Max:    30,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate limiter degraded, allowing request")
		},
	}

	orderStore := &order.Store{DB: pool}
	orderHandler := &order.Handler{Store: orderStore}

	checkoutSvc := &checkout.Service{
		Pool:     pool,
		Carts:    cartStore,
		Orders:   orderStore,
		Promos:   promoSvc,
		Coupons:  couponValidator,
		Currency: cfg.CurrencyCode,
		Logger:   logger,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc, Validate: validate}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.IsProduction(), HSTSMaxAge: 31536000}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{slug}", catalogHandler.ProductDetail)

		v.Get("/promotions/active", promoHandler.Active)

		v.Route("/carts", func(c chi.Router) {
			c.Get("/{cartID}", cartHandler.Get)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/", cartHandler.Ensure)
				g.Post("/merge", cartHandler.Merge)
				g.Post("/{cartID}/items", cartHandler.AddItem)
				g.Patch("/{cartID}/items/{itemID}", cartHandler.UpdateItem)
				g.Delete("/{cartID}/items/{itemID}", cartHandler.RemoveItem)
				g.With(couponLimiter.Middleware).Post("/{cartID}/apply-coupon", cartHandler.ApplyCoupon)
				g.Delete("/{cartID}/coupon", cartHandler.RemoveCoupon)
				g.Post("/{cartID}/quote/shipping", cartHandler.QuoteShipping)
			})
		})

		v.With(idem.Middleware).Post("/checkout", checkoutHandler.Create)

		v.Get("/orders", orderHandler.List)
		v.Get("/orders/{orderID}", orderHandler.Get)
		v.With(idem.Middleware).Post("/orders/{orderID}/cancel", orderHandler.Cancel)

		v.Route("/admin/promotions", func(admin chi.Router) {
			admin.Post("/", promoHandler.AdminCreate)
			admin.Put("/{id}", promoHandler.AdminUpdate)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	health.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
