package main

import (
	"log"
	"time"

	"scenariochat/ai"
	"scenariochat/cache"
	"scenariochat/config"
	"scenariochat/db"
	_ "scenariochat/docs" // Swagger docs
	"scenariochat/executor"
	"scenariochat/handlers"
	"scenariochat/scenario"
	"scenariochat/workflow"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func main() {
	cfg := config.GetConfig()

	// Initialize database
	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Initialize cache
	appCache := cache.New()

	// Initialize model client
	aiClient, err := ai.New(cfg.ModelAPIKey, cfg.ModelName, cfg.ModelAPIURL, appCache)
	if err != nil {
		log.Fatalf("Failed to initialize model client: %v", err)
	}

	// Initialize scenario registry
	scenarios, err := scenario.NewStore(cfg.ScenariosDir, cfg.SQLServer)
	if err != nil {
		log.Fatalf("Failed to initialize scenario store: %v", err)
	}
	defer scenarios.Close()

	if infos, err := scenarios.List(); err == nil {
		log.Printf("Loaded %d scenarios from %s", len(infos), cfg.ScenariosDir)
	}

	runner := executor.NewRunner(cfg.PythonBin, time.Duration(cfg.ScriptTimeoutS)*time.Second)
	engine := workflow.NewEngine(scenarios, database, aiClient, runner)

	// Initialize handlers
	h := handlers.New(engine, database, scenarios)

	// Setup Gin router
	r := gin.Default()

	// CORS configuration - allow all origins, headers, and methods
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Accept", "Origin", "Cache-Control", "X-Requested-With", "X-User-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS", "HEAD"}
	corsConfig.MaxAge = 24 * time.Hour
	r.Use(cors.New(corsConfig))

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Routes
	r.GET("/health", h.HealthHandler)
	r.POST("/api/chat", h.ChatHandler)

	// Thread routes
	r.GET("/api/chat/threads", h.ListThreadsHandler)
	r.POST("/api/chat/threads", h.CreateThreadHandler)
	r.GET("/api/chat/threads/:id", h.GetThreadHandler)
	r.DELETE("/api/chat/threads/:id", h.DeleteThreadHandler)

	// Scenario routes
	r.GET("/api/scenarios", h.ListScenariosHandler)
	r.GET("/api/scenarios/:id/schema", h.GetSchemaHandler)
	r.GET("/api/scenarios/:id/files", h.ListFilesHandler)
	r.GET("/api/scenarios/:id/files/:name", h.ServeFileHandler)
	r.DELETE("/api/scenarios/:id/files/:name", h.DeleteFileHandler)
	r.GET("/api/scenarios/:id/groups", h.ListGroupsHandler)

	// Serve static files (for React app)
	r.Static("/static", "./frontend/build/static")
	r.StaticFile("/", "./frontend/build/index.html")
	r.NoRoute(func(c *gin.Context) {
		c.File("./frontend/build/index.html")
	})

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
