package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-client/internal/actions"
	"chat-client/internal/config"
	"chat-client/internal/db"
	"chat-client/internal/handlers"
	"chat-client/internal/middleware"
	"chat-client/internal/observability"
	"chat-client/internal/rabbitmq"
	"chat-client/internal/realtime"
	"chat-client/internal/repositories"
	"chat-client/internal/session"
	"chat-client/internal/store"
	syncpkg "chat-client/internal/sync"
	"chat-client/internal/telemetry"
)

// loader exposes the reload operations the sync manager needs.
type loader struct {
	*actions.Chats
	*actions.Messages
}

func main() {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Fatalf("init tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("shutdown tracer: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer database.Close()

	rtClient, err := realtime.Dial(ctx, cfg.RealtimeURL)
	if err != nil {
		log.Fatalf("connect realtime gateway: %v", err)
	}
	defer rtClient.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AuditExchange)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, "chat.audit.events", "chat-client", cfg.Environment)

	cache, err := store.NewFileCache(cfg.CacheDir)
	if err != nil {
		log.Fatalf("open side cache: %v", err)
	}
	st := store.New(cache)
	st.LoadCachedProfiles()

	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	userRepo := repositories.NewUserRepo(database)
	codeRepo := repositories.NewFriendCodeRepo(database)

	chatActions := actions.NewChats(chatRepo, codeRepo, userRepo, st, rtClient, audit)
	userActions := actions.NewUsers(userRepo, st, rtClient, cache, audit)
	messageActions := actions.NewMessages(messageRepo, st, rtClient, chatActions)

	manager := syncpkg.NewManager(rtClient, st, loader{chatActions, messageActions})
	sess := session.New(st, chatActions, userActions, cache, manager, cfg.PollInterval)

	begin := func() {
		manager.Start(ctx)
		sess.StartPolling(ctx)
		if err := chatActions.LoadChats(ctx); err != nil {
			log.Printf("initial chat load: %v", err)
		}
	}
	if sess.TryRestore(ctx) {
		begin()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("chat-client"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.NewSessionHandler(userActions, st, begin, func(c *gin.Context) {
		sess.Logout(c.Request.Context())
	}).RegisterRoutes(router)

	authed := router.Group("/", middleware.RequireSession(st))
	handlers.NewChatHandler(chatActions, manager, st).RegisterRoutes(authed)
	handlers.NewMessageHandler(messageActions, st).RegisterRoutes(authed)
	handlers.NewUserHandler(userActions, st).RegisterRoutes(authed)

	if cfg.DebugRoutes {
		router.POST("/debug/audit", func(c *gin.Context) {
			user, _ := st.CurrentUser()
			audit.Emit(c.Request.Context(), "debug_ping", user.Username, "", "manual audit test")
			c.Status(http.StatusAccepted)
		})
	}

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}
	go func() {
		log.Printf("local API listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	sess.StopPolling()
	manager.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown http server: %v", err)
	}
}
