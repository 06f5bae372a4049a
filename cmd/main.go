package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"

	"datatalk-backend/config"
	"datatalk-backend/internal/controller"
	"datatalk-backend/internal/dashboard"
	"datatalk-backend/internal/elasticsearch"
	"datatalk-backend/internal/handler"
	"datatalk-backend/internal/intent"
	"datatalk-backend/internal/kafka"
	"datatalk-backend/internal/llm"
	"datatalk-backend/internal/orchestrator"
	"datatalk-backend/internal/postgres"
	"datatalk-backend/internal/scheduler"
	"datatalk-backend/internal/service"
	"datatalk-backend/internal/store"
)

// @title           DataTalk API
// @version         1.0
// @description     Conversational analysis of uploaded tabular datasets: ask questions in plain language and get answers, charts and filter definitions.

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

// @tag.name         datasets
// @tag.description  Dataset upload, summaries, filters and chart recomputation

// @tag.name         chat
// @tag.description  Questions and chat history

// @tag.name         dashboards
// @tag.description  Saved chart collections

func main() {
	var wg sync.WaitGroup

	app := fx.New(
		// Core Dependencies
		fx.Provide(
			NewConfig,
		),
		// Infrastructure Dependencies
		fx.Provide(
			NewGinEngine,
			llm.NewGeminiClient,
			NewSessionStore,
			NewQuerySearcher,
			kafka.NewQueryProducer,
			dashboard.NewDashboardRepository,
		),
		// Analysis pipeline
		fx.Provide(
			NewClassifier,
			intent.NewLLMReferenceResolver,
			intent.NewContextRetriever,
			NewOrchestrator,
		),
		// Services and controllers
		fx.Provide(
			service.NewDatasetService,
			service.NewChatService,
			service.NewDashboardService,
			controller.NewDatasetController,
			controller.NewChatController,
			controller.NewDashboardController,
		),
		fx.Invoke(
			RegisterAPIRoutes,
			RegisterScheduler,
			func(lc fx.Lifecycle, cfg *config.Config) error {
				return startQueryHistoryConsumer(lc, cfg, &wg)
			},
		),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 2*time.Minute) // Elasticsearch connect retries can take up to 90s
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	<-app.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	log.Info().Msg("Shutting down application...")
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown due to error or timeout")
	}

	log.Info().Msg("Waiting for background goroutines to finish...")
	wg.Wait()
	log.Info().Msg("All background processes finished. Exiting.")
}

func NewConfig() (*config.Config, error) {
	return config.NewConfig()
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(limitBody(cfg.Server.MaxBodyBytes))

	allowOrigins := cfg.Server.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(allowOrigins),
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	return r
}

func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func RegisterAPIRoutes(
	lifecycle fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	datasetController *controller.DatasetController,
	chatController *controller.ChatController,
	dashboardController *controller.DashboardController,
) {
	if datasetController != nil {
		controller.RegisterDatasetRoutes(router, datasetController)
	} else {
		log.Warn().Msg("DatasetController not provided, skipping dataset API routes.")
	}
	if chatController != nil {
		controller.RegisterChatRoutes(router, chatController)
	} else {
		log.Warn().Msg("ChatController not provided, skipping chat API routes.")
	}
	if dashboardController != nil {
		controller.RegisterDashboardRoutes(router, dashboardController)
	} else {
		log.Warn().Msg("DashboardController not provided, skipping dashboard API routes.")
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Starting HTTP server on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("HTTP server ListenAndServe error")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Shutting down HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}

// --- Factory Functions ---

func NewSessionStore(lc fx.Lifecycle, cfg *config.Config) (store.SessionStore, error) {
	switch cfg.Session.Store {
	case "postgres":
		return postgres.NewSessionStore(lc, cfg)
	case "", "memory":
		log.Info().Msg("Using in-memory session store")
		return store.NewInMemorySessionStore(), nil
	default:
		log.Warn().Str("store", cfg.Session.Store).Msg("Unknown session store, falling back to memory")
		return store.NewInMemorySessionStore(), nil
	}
}

// NewQuerySearcher returns nil when Elasticsearch is disabled; the retriever
// then falls back to the session's own history.
func NewQuerySearcher(cfg *config.Config) (intent.QuerySearcher, error) {
	if !cfg.Elasticsearch.Enabled {
		return nil, nil
	}
	return elasticsearch.NewQuerySearcher(cfg)
}

func NewClassifier(client llm.Client) intent.Classifier {
	return intent.NewLLMClassifier(client)
}

func NewOrchestrator(
	client llm.Client,
	classifier intent.Classifier,
	resolver intent.ReferenceResolver,
	retriever intent.Retriever,
) *orchestrator.Orchestrator {
	registry := orchestrator.NewRegistry(handler.Defaults(client)...)
	log.Info().Strs("handlers", registry.Names()).Msg("Handler registry built")
	return orchestrator.New(registry, classifier, resolver, retriever)
}

// --- Invoker Functions ---

func RegisterScheduler(lc fx.Lifecycle, cfg *config.Config, sessions store.SessionStore) error {
	_, err := scheduler.NewScheduler(lc, cfg, sessions)
	return err
}

// startQueryHistoryConsumer runs the Kafka to Elasticsearch indexer when both
// ends are enabled.
func startQueryHistoryConsumer(lc fx.Lifecycle, cfg *config.Config, wg *sync.WaitGroup) error {
	if !cfg.Kafka.Enabled || !cfg.Elasticsearch.Enabled {
		log.Info().Msg("Query history indexing disabled")
		return nil
	}
	consumer, err := kafka.NewQueryConsumer(lc, cfg)
	if err != nil {
		return err
	}
	queryStore, err := elasticsearch.NewQueryStore(lc, cfg)
	if err != nil {
		return err
	}
	consumerService := service.NewQueryHistoryConsumerService(consumer, queryStore, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info().Msg("Starting query history consumer goroutine")
			wg.Add(1)
			go consumerService.Run(ctx, wg)
			return nil
		},
		OnStop: func(context.Context) error {
			log.Info().Msg("Signaling query history consumer goroutine to stop...")
			cancel()
			return nil
		},
	})
	return nil
}
