package bootstrap

import (
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/adapter/in/http"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/config"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/infra/middleware"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/logger"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/ratelimit"
)

// NewAPI builds the HTTP/WebSocket surface on top of a fresh dependency set.
func NewAPI(cfg *config.Config, deps *Dependencies) (*fiber.App, error) {
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Logger()

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		Prefork:               false,
		StrictRouting:         false,
		CaseSensitive:         false,

		ReadBufferSize:  16384,
		WriteBufferSize: 16384,

		// go-json in place of encoding/json for serialization throughput
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit:   10 * 1024 * 1024,
		Concurrency: 256 * 1024,

		ServerHeader:       "",
		DisableDefaultDate: true,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// CORS. AllowCredentials:true requires explicit origins, never "*".
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
			allowCredentials = false
		} else {
			allowOrigins = "http://localhost:3000,http://localhost:5173"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders:    "X-Request-ID",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}))

	// Health checks (no auth)
	healthHandler := http.NewHealthHandlerWithDeps(deps.DB, deps.Redis, deps.MongoDB)
	healthHandler.Register(app)

	// Per-IP throttle on the intake surface
	limiter := ratelimit.NewSlidingWindowLimiter(deps.Redis, &ratelimit.Config{
		RequestsPerSecond: cfg.IntakeRatePerSec,
		BurstSize:         cfg.IntakeBurst,
	})
	app.Use("/api", middleware.RateLimit(limiter))

	// Message intake and history replay
	messageHandler := http.NewMessageHandler(deps.IngestService, deps.Pipeline)
	messageHandler.Register(app)

	// Live dashboard feed
	wsHandler := http.NewWSHandler(deps.Hub, zlog)
	wsHandler.Register(app)

	logger.Info("API server initialized")

	return app, nil
}
