package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"chofertours/api/mailer"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	adminCookieName          = "chofer_admin_session"
	adminSessionDuration     = 24 * time.Hour
	maxUploadBytes           = 5 * 1024 * 1024
	maxImportBytes           = 10 * 1024 * 1024
	shortDescriptionMaxChars = 150
	defaultCategory          = "Tour"
	searchMinQueryChars      = 2
	searchDefaultLimit       = 8
	searchMaxLimit           = 50
	importHeaderRowOffset    = 2
	devCORSOriginLocalhost   = "http://localhost:3000"
	devCORSOriginLoopback    = "http://127.0.0.1:3000"
	trustedProxyLoopbackIPv4 = "127.0.0.1"
	trustedProxyLoopbackIPv6 = "::1"
)

var (
	bulkActions = []string{"activate", "deactivate", "feature", "unfeature", "promote", "unpromote", "delete"}

	allowedImageTypes = map[string]struct{}{
		"image/jpeg": {},
		"image/png":  {},
		"image/webp": {},
	}

	// Legacy BIFF .xls is not accepted: the XLSX reader only handles the
	// OOXML format.
	allowedImportExtensions = map[string]struct{}{
		".csv":  {},
		".xlsx": {},
	}

	bookingStatuses = []string{"pending", "confirmed", "cancelled"}
)

type Config struct {
	Addr             string
	Env              string
	DatabaseURL      string
	DataRoot         string
	PublicBaseURL    string
	AppSigningSecret string
	AdminUsername    string
	AdminPassword    string
	ResendAPIKey     string
	MailFromAddress  string
	BookingEmailTo   string
}

type App struct {
	cfg    *Config
	db     *sql.DB
	log    *slog.Logger
	mailer *mailer.Mailer

	adminPasswordHash []byte

	// test hooks for handlers; wired to the store methods in main
	listTours          func(ctx context.Context, activeOnly bool) ([]Tour, error)
	getTourByID        func(ctx context.Context, id string) (*Tour, error)
	getTourBySlug      func(ctx context.Context, slug string) (*Tour, error)
	createTour         func(ctx context.Context, tour Tour) (*Tour, error)
	updateTour         func(ctx context.Context, tour Tour) (*Tour, error)
	deleteTour         func(ctx context.Context, id string) error
	tourHasBookings    func(ctx context.Context, id string) (bool, error)
	anyTourHasBookings func(ctx context.Context, ids []string) (bool, error)
	bulkUpdateTours    func(ctx context.Context, action string, ids []string) (int, error)
	bulkDeleteTours    func(ctx context.Context, ids []string) (int, error)
	searchTours        func(ctx context.Context, term string, limit int) ([]Tour, error)

	createBooking  func(ctx context.Context, booking Booking) (*Booking, error)
	bookingByRef   func(ctx context.Context, reference string) (*Booking, error)
	listBookings   func(ctx context.Context) ([]Booking, error)
	createTransfer func(ctx context.Context, transfer Transfer) (*Transfer, error)
	listTransfers  func(ctx context.Context) ([]Transfer, error)
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		panic(err)
	}

	adminHash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}

	var mailProvider mailer.Provider
	if cfg.ResendAPIKey != "" {
		mailProvider = mailer.NewResendProvider(cfg.ResendAPIKey)
		logger.Info("mailer initialized", "provider", "resend")
	} else {
		mailProvider = mailer.NewLogProvider(logger)
		logger.Info("mailer initialized", "provider", "log")
	}

	app := &App{
		cfg:               cfg,
		db:                db,
		log:               logger,
		mailer:            mailer.New(mailProvider, cfg.MailFromAddress),
		adminPasswordHash: adminHash,
	}
	app.wireStore()

	logger.Info("runtime configuration", "env", cfg.Env, "addr", cfg.Addr, "data_root", cfg.DataRoot)

	if err := app.runMigrations(ctx); err != nil {
		panic(err)
	}

	if err := os.MkdirAll(filepath.Join(cfg.DataRoot, "uploads", "tours"), 0o755); err != nil {
		panic(err)
	}

	router := app.newRouter()

	app.log.Info("starting gin API", "addr", cfg.Addr)
	if err := router.Run(cfg.Addr); err != nil {
		panic(err)
	}
}

// wireStore binds the handler-facing hooks to the real database store.
func (a *App) wireStore() {
	a.listTours = a.storeListTours
	a.getTourByID = a.storeGetTourByID
	a.getTourBySlug = a.storeGetTourBySlug
	a.createTour = a.storeCreateTour
	a.updateTour = a.storeUpdateTour
	a.deleteTour = a.storeDeleteTour
	a.tourHasBookings = a.storeTourHasBookings
	a.anyTourHasBookings = a.storeAnyTourHasBookings
	a.bulkUpdateTours = a.storeBulkUpdateTours
	a.bulkDeleteTours = a.storeBulkDeleteTours
	a.searchTours = a.storeSearchTours

	a.createBooking = a.storeCreateBooking
	a.bookingByRef = a.storeGetBookingByReference
	a.listBookings = a.storeListBookings
	a.createTransfer = a.storeCreateTransfer
	a.listTransfers = a.storeListTransfers
}

func (a *App) newRouter() *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies([]string{trustedProxyLoopbackIPv4, trustedProxyLoopbackIPv6}); err != nil {
		panic(err)
	}
	r.Use(gin.Recovery())
	r.Use(a.loggingMiddleware())
	r.Use(a.corsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if a.cfg.DataRoot != "" {
		r.Static("/uploads", filepath.Join(a.cfg.DataRoot, "uploads"))
	}

	api := r.Group("/api/v1")
	{
		api.GET("/tours", a.publicToursHandler)
		api.GET("/tours/search", a.searchToursHandler)
		api.POST("/bookings", a.createBookingHandler)
		api.GET("/bookings/:reference/pass", a.bookingWalletPassHandler)
		api.POST("/transfers", a.createTransferHandler)

		auth := api.Group("/admin/auth")
		{
			auth.POST("/login", a.adminLoginHandler)
			auth.POST("/logout", a.adminLogoutHandler)
			auth.GET("/session", a.adminSessionHandler)
		}

		admin := api.Group("/admin")
		admin.Use(a.requireAdminSession())
		{
			admin.GET("/tours", a.adminListToursHandler)
			admin.POST("/tours", a.adminCreateTourHandler)
			admin.GET("/tours/export", a.adminExportToursHandler)
			admin.POST("/tours/import", a.adminImportToursHandler)
			admin.POST("/tours/bulk", a.adminBulkToursHandler)
			admin.GET("/tours/:id", a.adminGetTourHandler)
			admin.PUT("/tours/:id", a.adminUpdateTourHandler)
			admin.PATCH("/tours/:id", a.adminToggleTourHandler)
			admin.DELETE("/tours/:id", a.adminDeleteTourHandler)

			admin.POST("/upload", a.adminUploadImageHandler)
			admin.DELETE("/upload", a.adminDeleteImageHandler)

			admin.GET("/bookings", a.adminListBookingsHandler)
			admin.GET("/transfers", a.adminListTransfersHandler)
		}
	}

	return r
}

func loadConfig() (*Config, error) {
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		host := valueFromEnvKeys("PGHOST", "POSTGRES_HOST")
		if host == "" {
			host = "127.0.0.1"
		}
		port := valueFromEnvKeys("PGPORT", "POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		dbname := valueFromEnvKeys("PGDATABASE", "POSTGRES_DB")
		user := valueFromEnvKeys("PGUSER", "POSTGRES_USER")
		password := valueFromEnvKeys("PGPASSWORD", "POSTGRES_PASSWORD")
		sslmode := valueFromEnvKeys("PGSSLMODE", "POSTGRES_SSLMODE")
		if sslmode == "" {
			sslmode = "disable"
		}
		if dbname != "" && user != "" {
			databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, dbname, sslmode)
		}
	}
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or PG*/POSTGRES_* variables must be configured")
	}

	secret := strings.TrimSpace(os.Getenv("APP_SIGNING_SECRET"))
	if len(secret) < 16 {
		return nil, fmt.Errorf("APP_SIGNING_SECRET must be at least 16 characters")
	}

	adminUser := strings.TrimSpace(os.Getenv("ADMIN_USERNAME"))
	adminPassword := strings.TrimSpace(os.Getenv("ADMIN_PASSWORD"))
	if adminUser == "" || adminPassword == "" {
		return nil, fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be configured")
	}

	publicBase := strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL"))
	if publicBase == "" {
		publicBase = "https://choferemlondres.com"
	}
	publicBase = strings.TrimRight(publicBase, "/")

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "development"
	}

	return &Config{
		Addr:             valueOrDefault("GIN_ADDR", ":8080"),
		Env:              env,
		DatabaseURL:      databaseURL,
		DataRoot:         valueOrDefault("DATA_ROOT", "/var/lib/chofertours"),
		PublicBaseURL:    publicBase,
		AppSigningSecret: secret,
		AdminUsername:    adminUser,
		AdminPassword:    adminPassword,
		ResendAPIKey:     strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		MailFromAddress:  valueOrDefault("MAIL_FROM_ADDRESS", "bookings@choferemlondres.com"),
		BookingEmailTo:   valueOrDefault("BOOKING_EMAIL_TO", "ops@choferemlondres.com"),
	}, nil
}

func valueOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func valueFromEnvKeys(keys ...string) string {
	for _, key := range keys {
		value := strings.TrimSpace(os.Getenv(key))
		if value != "" {
			return value
		}
	}
	return ""
}

func (a *App) runMigrations(ctx context.Context) error {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return err
	}

	if _, err := a.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		var exists bool
		if err := a.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, file).Scan(&exists); err != nil {
			return err
		}
		if exists {
			continue
		}

		content, err := migrationFiles.ReadFile(filepath.Join("migrations", file))
		if err != nil {
			return err
		}

		tx, err := a.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, file); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		a.log.Info("applied migration", "file", file)
	}

	return nil
}

func (a *App) isProduction() bool {
	return strings.EqualFold(a.cfg.Env, "production")
}

func (a *App) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}

func (a *App) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := strings.TrimSpace(c.GetHeader("Origin"))
		if a.isAllowedCORSOrigin(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (a *App) isAllowedCORSOrigin(origin string) bool {
	if origin == "" || a.cfg == nil {
		return false
	}
	if a.cfg.PublicBaseURL != "" && origin == a.cfg.PublicBaseURL {
		return true
	}
	if !strings.EqualFold(a.cfg.Env, "development") {
		return false
	}
	return origin == devCORSOriginLocalhost || origin == devCORSOriginLoopback
}

func writeAPIError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Code, "message": apiErr.Message})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Erro interno do servidor"})
}

func containsString(list []string, value string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}
