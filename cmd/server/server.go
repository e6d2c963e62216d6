package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toolbridge/internal/config"
	"toolbridge/internal/handlers"
	"toolbridge/internal/llm"
	"toolbridge/internal/logging"
	"toolbridge/internal/mcp"
	"toolbridge/internal/preflight"
	"toolbridge/internal/services"
	"toolbridge/internal/tools"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

// catalogTimeout bounds the single startup listing call
const catalogTimeout = 30 * time.Second

func loadConfig() (*config.Config, error) {
	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Init(cfg.Environment)
	log.Printf("📋 Configuration loaded (Port: %s, Model: %s, Tool server: %s)", cfg.Port, cfg.LLMModel, cfg.MCPURL)
	return cfg, nil
}

// loadCatalog performs the one catalog listing of the process lifetime
func loadCatalog(client *mcp.Client) (*tools.Catalog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	log.Printf("🔌 Loading tool catalog from %s...", client.URL())
	catalog, err := tools.LoadCatalog(ctx, client)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Loaded %d tools", catalog.Len())
	return catalog, nil
}

// buildApp wires every component. It fails if the tool catalog cannot be
// loaded, before any listener exists.
func buildApp(cfg *config.Config, reg prometheus.Registerer) (*fiber.App, error) {
	mcpClient := mcp.NewClient(cfg.MCPURL, cfg.MCPHeaders)

	catalog, err := loadCatalog(mcpClient)
	if err != nil {
		return nil, err
	}

	metrics := services.NewMetrics(reg)
	policy := tools.NewPermissiveSchema()
	registry := tools.NewRegistry(catalog, mcpClient, policy)
	invoker := llm.NewOpenAIInvoker(llm.Config{
		BaseURL:           cfg.LLMBaseURL,
		APIKey:            cfg.LLMAPIKey,
		Model:             cfg.LLMModel,
		Temperature:       float32(cfg.LLMTemperature),
		MaxTokens:         cfg.LLMMaxTokens,
		MaxToolIterations: cfg.LLMMaxToolIterations,
	})

	if results := preflight.NewChecker(cfg, catalog, invoker).RunAll(context.Background()); preflight.HasFailures(results) {
		return nil, errors.New("pre-flight checks failed")
	}

	chatService := services.NewChatService(services.NewPromptAssembler(catalog), invoker, registry, metrics)
	toolService := services.NewToolService(mcpClient, catalog, policy, metrics)
	log.Printf("✅ Chat pipeline ready (%d tools bound, model %s)", registry.Count(), cfg.LLMModel)

	// No read, write or idle timeouts: a local model may take minutes to answer
	app := fiber.New(fiber.Config{
		AppName: "toolbridge " + Version,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return uuid.New().String() },
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept",
		AllowCredentials: cfg.AllowedOrigins != "*",
	}))

	// Prometheus metrics middleware
	prom := fiberprometheus.NewWithRegistry(reg, "toolbridge", "http", "", nil)
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	// Routes
	app.Get("/health", handlers.NewHealthHandler(catalog).Handle)
	app.Post("/chat", handlers.NewChatHandler(chatService).Handle)
	app.Post("/run-tool", handlers.NewToolsHandler(toolService).RunTool)

	return app, nil
}

func runServer(cfg *config.Config) error {
	log.Println("🚀 Starting toolbridge...")

	app, err := buildApp(cfg, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	log.Printf("✅ Server listening on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
