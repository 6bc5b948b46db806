package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"anonchat/internal/auth"
	"anonchat/internal/config"
	"anonchat/internal/db"
	"anonchat/internal/handlers"
	"anonchat/internal/middleware"
	"anonchat/internal/observability"
	"anonchat/internal/presence"
	"anonchat/internal/rabbitmq"
	"anonchat/internal/repositories"
	"anonchat/internal/storage"
	"anonchat/internal/telemetry"
	"anonchat/internal/ws"
)

func main() {
	cfg := config.Load()

	shutdownTracing, err := observability.InitTracing(context.Background(), "anonchat", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	if amqpPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err == nil {
		observability.SetPublisher(amqpPublisher)
		defer amqpPublisher.Close()
	}

	audit := telemetry.NewAuditEmitter(publisher, "audit.anonchat", "anonchat", cfg.Environment)

	lastSeen := presence.NewStore(cfg.RedisAddr, cfg.RedisPassword)
	defer lastSeen.Close()

	blobStore, err := storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("failed to init upload storage: %v", err)
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)

	profileRepo := repositories.NewProfileRepo(database)
	roomRepo := repositories.NewRoomRepo(database)
	chatRepo := repositories.NewPrivateChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	notifRepo := repositories.NewNotificationRepo(database)
	reportRepo := repositories.NewReportRepo(database)
	blogRepo := repositories.NewBlogRepo(database)
	adminRepo := repositories.NewAdminRepo(database)

	if err := roomRepo.SeedDefaults(context.Background()); err != nil {
		log.Fatalf("failed to seed default rooms: %v", err)
	}

	feedHub := ws.NewHub()
	presenceHub := ws.NewPresenceHub()
	sweeperStop := make(chan struct{})
	go presenceHub.RunSweeper(30*time.Second, sweeperStop)
	defer close(sweeperStop)

	authHandler := handlers.NewAuthHandler(profileRepo, tokens)
	profileHandler := handlers.NewProfileHandler(profileRepo, lastSeen, presenceHub, feedHub)
	roomHandler := handlers.NewRoomHandler(roomRepo, messageRepo, profileRepo, feedHub)
	chatHandler := handlers.NewChatHandler(chatRepo, messageRepo, profileRepo, notifRepo, feedHub)
	notifHandler := handlers.NewNotificationHandler(notifRepo)
	reportHandler := handlers.NewReportHandler(reportRepo, profileRepo, audit)
	uploadHandler := handlers.NewUploadHandler(blobStore, cfg.MaxUploadSize)
	blogHandler := handlers.NewBlogHandler(blogRepo)
	adminHandler := handlers.NewAdminHandler(adminRepo, reportRepo, profileRepo, notifRepo, blogRepo, roomRepo, lastSeen, tokens, feedHub, audit)

	feedWS := ws.NewFeedWebSocketHandler(feedHub, chatRepo, tokens)
	presenceWS := ws.NewPresenceWebSocketHandler(presenceHub, lastSeen, tokens)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("anonchat"))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.CORSOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID", "X-Device-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	userAuth := middleware.AuthMiddleware(tokens, auth.ScopeUser)
	adminAuth := middleware.AuthMiddleware(tokens, auth.ScopeAdmin)

	api := router.Group("/api")
	{
		api.POST("/auth/anonymous", authHandler.CreateSession)
		api.POST("/auth/resume", authHandler.ResumeSession)
		api.GET("/auth/suggest", authHandler.SuggestUsername)
		api.GET("/auth/check", authHandler.CheckUsername)

		api.GET("/users", userAuth, profileHandler.ListUsers)
		api.GET("/users/:user_id", userAuth, profileHandler.GetUser)
		api.GET("/me", userAuth, profileHandler.Me)
		api.PATCH("/me/username", userAuth, profileHandler.UpdateUsername)
		api.POST("/me/heartbeat", userAuth, profileHandler.Heartbeat)
		api.DELETE("/me", userAuth, profileHandler.DeleteMe)

		api.GET("/rooms", userAuth, roomHandler.ListRooms)
		api.GET("/rooms/:room_id", userAuth, roomHandler.GetRoom)
		api.GET("/rooms/:room_id/messages", userAuth, roomHandler.ListMessages)
		api.POST("/rooms/:room_id/messages", userAuth, roomHandler.SendMessage)

		api.GET("/chats", userAuth, chatHandler.ListChats)
		api.POST("/chats", userAuth, chatHandler.StartChat)
		api.GET("/chats/:chat_id", userAuth, chatHandler.GetChat)
		api.GET("/chats/:chat_id/messages", userAuth, chatHandler.ListMessages)
		api.POST("/chats/:chat_id/messages", userAuth, chatHandler.SendMessage)
		api.POST("/chats/:chat_id/read", userAuth, chatHandler.MarkRead)
		api.POST("/chats/:chat_id/touch", userAuth, chatHandler.Touch)
		api.POST("/chats/:chat_id/block", userAuth, chatHandler.Block)
		api.POST("/chats/:chat_id/unblock", userAuth, chatHandler.Unblock)

		api.GET("/notifications", userAuth, notifHandler.List)
		api.POST("/notifications/:notification_id/read", userAuth, notifHandler.MarkRead)

		api.POST("/reports", userAuth, reportHandler.Create)
		api.GET("/reports", userAuth, reportHandler.ListMine)

		api.POST("/uploads", userAuth, uploadHandler.Upload)

		api.GET("/blog", blogHandler.ListPosts)
		api.GET("/blog/:post_id", blogHandler.GetPost)
	}

	admin := router.Group("/admin")
	{
		admin.POST("/login", adminHandler.Login)
		admin.GET("/stats", adminAuth, adminHandler.Stats)
		admin.GET("/reports", adminAuth, adminHandler.ListReports)
		admin.PATCH("/reports/:report_id", adminAuth, adminHandler.ResolveReport)
		admin.POST("/users/:user_id/ban", adminAuth, adminHandler.BanUser)
		admin.POST("/users/:user_id/unban", adminAuth, adminHandler.UnbanUser)
		admin.POST("/broadcast", adminAuth, adminHandler.Broadcast)
		admin.POST("/rooms", adminAuth, adminHandler.CreateRoom)
		admin.DELETE("/rooms/:room_id", adminAuth, adminHandler.DeleteRoom)
		admin.GET("/blog", adminAuth, adminHandler.ListPosts)
		admin.POST("/blog", adminAuth, adminHandler.CreatePost)
		admin.PUT("/blog/:post_id", adminAuth, adminHandler.UpdatePost)
		admin.DELETE("/blog/:post_id", adminAuth, adminHandler.DeletePost)
		admin.GET("/admins", adminAuth, adminHandler.ListAdmins)
		admin.POST("/admins", adminAuth, adminHandler.CreateAdmin)
		admin.PATCH("/admins/:admin_id", adminAuth, adminHandler.SetAdminActive)
	}

	router.GET("/ws/feed", feedWS.Handle)
	router.GET("/ws/presence", presenceWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Static("/files", blobStore.Dir())

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugEndpoints)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
