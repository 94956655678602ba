package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estatechat/internal/config"
	"estatechat/internal/handler"
	"estatechat/internal/repository"
	"estatechat/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	log.Printf("EstateChat Property Matching Engine")
	log.Printf("Version: %s", Version)
	log.Printf("Build Time: %s", BuildTime)
	log.Printf("Git Commit: %s", GitCommit)
	log.Println("")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Initialize database connection
	db, err := repository.Connect(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("✅ Connected to PostgreSQL database")

	// Initialize repositories
	conversationRepo := repository.NewConversationRepository(db)
	propertyRepo := repository.NewPropertyRepository(db)
	leadRepo := repository.NewLeadRepository(db)

	// Initialize OpenAI client
	var openaiClient *service.OpenAIClient
	if cfg.OpenAI.Enabled {
		openaiClient = service.NewOpenAIClient(&cfg.OpenAI)
		log.Printf("✅ OpenAI client initialized")
		log.Printf("   - API Base: %s", cfg.OpenAI.APIBase)
		log.Printf("   - Chat model: %s", cfg.OpenAI.ChatModel)
		log.Printf("   - Embedding model: %s", cfg.OpenAI.EmbeddingModel)
	} else {
		log.Println("⚠️  OpenAI is disabled - preference extraction and reply generation will fall back to defaults")
		log.Println("   Set OPENAI_API_KEY environment variable to enable AI features")
	}

	// Initialize services
	extractor := service.NewAIPreferenceExtractor(openaiClient)
	ranker := service.NewRanker(
		cfg.Ranking.WeightText,
		cfg.Ranking.WeightPrice,
		cfg.Ranking.WeightRecency,
	)
	searchService := service.NewSmartSearchService(
		propertyRepo,
		ranker,
		openaiClient,
		cfg.Chat.MaxCandidates,
		cfg.Chat.MaxLaunchCandidates,
	)
	completionProvider := service.NewOpenAICompletionProvider(
		openaiClient,
		cfg.Chat.FallbackReply,
		time.Duration(cfg.Chat.CompletionTimeout)*time.Second,
		cfg.Chat.TranscriptWindowSize,
	)
	chatService := service.NewChatService(
		conversationRepo,
		leadRepo,
		propertyRepo,
		extractor,
		searchService,
		completionProvider,
	)
	analyticsService := service.NewAnalyticsService(conversationRepo, propertyRepo)

	log.Println("✅ Services initialized")

	// Initialize handlers
	chatHandler := handler.NewChatHandler(chatService, cfg.Chat.MaxMessageLength, cfg.Chat.MaxSessionIDLength)
	adminHandler := handler.NewAdminHandler(chatService, analyticsService, propertyRepo)

	// Setup Gin router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.AllowedOrigins}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "X-Admin-Key"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":     "healthy",
			"service":    "estatechat-engine",
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		// Chat endpoints
		apiV1.POST("/chat/message", chatHandler.SendMessage)
		apiV1.GET("/chat/history/:sessionId", chatHandler.GetHistory)
		apiV1.POST("/chat/lead", chatHandler.CaptureLead)

		// Admin endpoints
		admin := apiV1.Group("/admin", handler.AdminKeyMiddleware(cfg.Admin.APIKey))
		{
			admin.GET("/conversations", adminHandler.ListConversations)
			admin.DELETE("/conversations/:id", adminHandler.DeleteConversation)
			admin.GET("/stats", adminHandler.GetStats)
			admin.POST("/embeddings/batch", adminHandler.BatchUpdateEmbeddings)
		}
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("🚀 Starting server on %s", addr)
	log.Printf("📝 API base: http://localhost:%d/api/v1", cfg.Server.Port)

	// Graceful shutdown
	go func() {
		if err := router.Run(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	log.Println("✅ Server stopped")
}
