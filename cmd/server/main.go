package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tailor-be/internal/auth"
	"tailor-be/internal/cache"
	"tailor-be/internal/config"
	"tailor-be/internal/db"
	"tailor-be/internal/logger"
	"tailor-be/internal/measurement"
	"tailor-be/internal/metrics"
	"tailor-be/internal/middleware"
	"tailor-be/internal/notify"
	"tailor-be/internal/order"
	"tailor-be/internal/payment"
	"tailor-be/internal/payment/webhook"
	"tailor-be/internal/product"
	"tailor-be/internal/transport"
	"tailor-be/internal/user"

	"go.uber.org/zap"
)

var (
	initDBFunc      = db.InitDB
	startServerFunc = serve
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	transport.ExposeInternalErrors(cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database := initDBFunc(cfg)
	defer database.Close()

	c := newCache(ctx, cfg)
	publisher, closePublisher := newPublisher(cfg)
	defer closePublisher()

	router := newServer(ctx, cfg, database, c, publisher)

	logger.L().Info("HTTP server running", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
	return startServerFunc(ctx, ":"+cfg.AppPort, router)
}

// newCache falls back to a no-op cache when Redis is absent or unreachable.
func newCache(ctx context.Context, cfg *config.Config) cache.Cache {
	if cfg.RedisAddr == "" {
		logger.L().Info("REDIS_ADDR not set, product cache disabled")
		return cache.Noop{}
	}
	client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.L().Warn("redis unavailable, product cache disabled", zap.Error(err))
		return cache.Noop{}
	}
	return cache.NewRedisCache(client, "tailor")
}

func newPublisher(cfg *config.Config) (notify.Publisher, func()) {
	if cfg.RabbitMQURL == "" {
		logger.L().Info("RABBITMQ_URL not set, notifications are logged only")
		return notify.LogPublisher{}, func() {}
	}
	pub, err := notify.NewRabbitPublisher(cfg.RabbitMQURL, cfg.MailQueue)
	if err != nil {
		logger.L().Warn("rabbitmq unavailable, notifications are logged only", zap.Error(err))
		return notify.LogPublisher{}, func() {}
	}
	return pub, func() { _ = pub.Close() }
}

type handlers struct {
	users        *user.Handler
	google       *user.GoogleHandler
	measurements *measurement.Handler
	products     *product.Handler
	orders       *order.Handler
	payments     *payment.Handler
	webhooks     *webhook.Handler

	authenticate func(http.Handler) http.Handler
	health       http.HandlerFunc
	metrics      http.HandlerFunc
}

func newServer(ctx context.Context, cfg *config.Config, database *sql.DB, c cache.Cache, publisher notify.Publisher) http.Handler {
	issuer := auth.NewIssuer(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	cookies := auth.CookieWriter{
		Secure:     cfg.CookieSecure,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}

	userRepo := user.NewRepository(database)
	verifications := user.NewVerificationRepository(database)
	go purgeExpired(ctx, verifications, time.Hour)

	userSvc := user.NewService(userRepo, verifications, issuer, publisher, user.Options{
		SessionPolicy: cfg.SessionPolicy,
		ClientURL:     cfg.ClientURL,
	})
	userHandler := user.NewHandler(userSvc, cookies)

	measurementRepo := measurement.NewRepository(database)
	productRepo := product.NewRepository(database)
	orderRepo := order.NewRepository(database)

	orderSvc := order.NewService(orderRepo, productRepo, measurementRepo)
	paymentSvc := payment.NewService(
		payment.NewRepository(database),
		payment.NewPaystackGateway(cfg.PaystackSecretKey, cfg.PaystackBaseURL),
		orderRepo,
		publisher,
		payment.Options{
			MinAmount:   cfg.PaystackMinAmount,
			MaxAmount:   cfg.PaystackMaxAmount,
			CallbackURL: cfg.PaystackCallbackURL,
		},
	)

	reg := metrics.NewRegistry()
	limiter := middleware.NewRateLimiter(cfg.InternalServiceKey)
	go limiter.Sweep(ctx, time.Minute)

	googleHandler := user.NewGoogleHandler(user.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		StateSecret:  cfg.JWTAccessSecret,
	}, userHandler)

	mux := setupRouter(handlers{
		users:        userHandler,
		google:       googleHandler,
		measurements: measurement.NewHandler(measurement.NewService(measurementRepo)),
		products:     product.NewHandler(product.NewService(productRepo, c, cfg.CacheTTL)),
		orders:       order.NewHandler(orderSvc),
		payments:     payment.NewHandler(paymentSvc),
		webhooks:     webhook.NewHandler(paymentSvc, cfg.PaystackSecretKey),
		authenticate: middleware.VerifyJWT(issuer, userSvc),
		health:       healthHandler(database),
		metrics:      metrics.Handler(reg),
	})

	// outermost first
	var h http.Handler = mux
	h = limiter.Middleware(h)
	h = middleware.CountRequests(reg)(h)
	h = middleware.Logging(h)
	h = logger.RequestIDMiddleware(h)
	h = middleware.Recover(h)
	return h
}

func setupRouter(h handlers) *http.ServeMux {
	mux := http.NewServeMux()

	authed := func(fn http.HandlerFunc) http.Handler {
		return h.authenticate(fn)
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return h.authenticate(middleware.RequireAdmin(fn))
	}

	mux.HandleFunc("GET /health", h.health)
	mux.Handle("GET /api/admin/metrics", admin(h.metrics))

	// ---------- users ----------
	mux.HandleFunc("POST /api/users/signup", h.users.Signup)
	mux.HandleFunc("POST /api/users/login", h.users.Login)
	mux.HandleFunc("POST /api/users/refresh", h.users.Refresh)
	mux.HandleFunc("POST /api/users/logout", h.users.Logout)
	mux.HandleFunc("GET /api/users/verify-email/{token}", h.users.VerifyEmail)
	mux.HandleFunc("POST /api/users/resend-verification", h.users.ResendVerification)
	mux.HandleFunc("POST /api/users/forgot-password", h.users.ForgotPassword)
	mux.HandleFunc("POST /api/users/reset-password/{token}", h.users.ResetPassword)
	mux.Handle("GET /api/users/profile", authed(h.users.GetProfile))
	mux.Handle("PATCH /api/users/profile", authed(h.users.UpdateProfile))
	mux.Handle("DELETE /api/users/account", authed(h.users.DeleteAccount))

	if h.google != nil && h.google.Enabled() {
		mux.HandleFunc("GET /api/auth/google", h.google.Start)
		mux.HandleFunc("GET /api/auth/google/callback", h.google.Callback)
	}

	// ---------- measurements ----------
	mux.Handle("POST /api/users/addMeasurement", authed(h.measurements.Create))
	mux.Handle("GET /api/users/getMeasurements", authed(h.measurements.List))
	mux.Handle("GET /api/users/getMeasurement/{id}", authed(h.measurements.Get))
	mux.Handle("PATCH /api/users/updateMeasurement/{id}", authed(h.measurements.Update))
	mux.Handle("DELETE /api/users/deleteMeasurement/{id}", authed(h.measurements.Delete))

	// ---------- orders ----------
	mux.Handle("POST /api/users/createOrder", authed(h.orders.Create))
	mux.Handle("GET /api/users/getOrders", authed(h.orders.List))
	mux.Handle("GET /api/users/getOrder/{id}", authed(h.orders.Get))
	mux.Handle("PATCH /api/users/updateOrder/{id}", authed(h.orders.Update))
	mux.Handle("DELETE /api/users/deleteOrder/{id}", authed(h.orders.Delete))
	mux.Handle("GET /api/admin/orders", admin(h.orders.AdminList))
	mux.Handle("PATCH /api/admin/orders/{id}/status", admin(h.orders.UpdateStatus))

	// ---------- products ----------
	mux.HandleFunc("GET /api/products", h.products.List)
	mux.HandleFunc("GET /api/products/{id}", h.products.Get)
	mux.Handle("POST /api/products", admin(h.products.Create))
	mux.Handle("PATCH /api/products/{id}", admin(h.products.Update))
	mux.Handle("DELETE /api/products/{id}", admin(h.products.Delete))

	// ---------- payments ----------
	mux.Handle("POST /api/paystack/initialize", authed(h.payments.Initialize))
	mux.Handle("GET /api/paystack/verify/{reference}", authed(h.payments.Verify))
	mux.Handle("GET /api/paystack/payments", authed(h.payments.List))
	mux.HandleFunc("POST /api/paystack/webhook/paystack", h.webhooks.Paystack)

	return mux
}

type expirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// purgeExpired drops stale verification tokens on every tick until ctx ends.
func purgeExpired(ctx context.Context, store expirer, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpired(ctx)
			if err != nil {
				logger.L().Warn("failed to purge expired verifications", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.L().Info("purged expired verifications", zap.Int64("count", n))
			}
		}
	}
}

type pinger interface {
	PingContext(ctx context.Context) error
}

func healthHandler(database pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := database.PingContext(ctx); err != nil {
			logger.FromCtx(r.Context()).Warn("health check failed", zap.Error(err))
			transport.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "DEGRADED"})
			return
		}
		transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	}
}

// serve runs until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
