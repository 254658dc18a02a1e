package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/castilh0s-archives/chatbot-example/cmd/mainconfig"
	"github.com/castilh0s-archives/chatbot-example/internal/api/router"
	"github.com/castilh0s-archives/chatbot-example/internal/bot"
	"github.com/castilh0s-archives/chatbot-example/internal/channels/messenger"
	"github.com/castilh0s-archives/chatbot-example/internal/colors"
	appconfig "github.com/castilh0s-archives/chatbot-example/internal/config"
	"github.com/castilh0s-archives/chatbot-example/internal/nlu"
	"github.com/castilh0s-archives/chatbot-example/internal/notify"
	"github.com/castilh0s-archives/chatbot-example/internal/observability/metrics"
	"github.com/castilh0s-archives/chatbot-example/internal/queue"
	"github.com/castilh0s-archives/chatbot-example/internal/session"
	"github.com/castilh0s-archives/chatbot-example/internal/weather"
	"github.com/castilh0s-archives/chatbot-example/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting chatbot server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Messenger transport and profile lookup.
	fbClient := messenger.NewClient(cfg.FBPageToken)
	if cfg.GraphAPIBase != "" {
		fbClient.SetGraphAPIBase(cfg.GraphAPIBase)
	}

	// Session registry, backed by Redis when configured.
	var store session.Store
	if cfg.SessionStore == "redis" && cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		store = session.NewRedisStore(redisClient, "chatbot", nil)
		logger.Info("using redis session store", "addr", cfg.RedisAddr)
	} else {
		store = session.NewMemoryStore()
	}
	registry := session.NewRegistry(store, bot.NewProfileAdapter(fbClient), logger)

	// Color preference store, Postgres when configured.
	var colorStore bot.ColorStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		colorStore = colors.NewPostgresStore(db)
	} else {
		colorStore = colors.NewMemoryStore()
		logger.Warn("DATABASE_URL not set, using in-memory color store")
	}

	// Weather lookup.
	var weatherService bot.WeatherService
	if cfg.WeatherAPIKey != "" {
		client := weather.NewClient(cfg.WeatherAPIKey)
		if cfg.WeatherBaseURL != "" {
			client.SetBaseURL(cfg.WeatherBaseURL)
		}
		weatherService = client
	}

	// AWS config is needed for the SQS queue and the SES email sender.
	var awsAvailable bool
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Warn("AWS config unavailable", "error", err)
	} else {
		awsAvailable = true
	}

	// Email side channel.
	var emailSender notify.EmailSender
	switch cfg.EmailProvider {
	case "ses":
		if awsAvailable {
			if s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
				FromEmail: cfg.EmailFrom,
				FromName:  cfg.EmailFromName,
			}, logger); s != nil {
				emailSender = s
			}
		}
	default:
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			emailSender = s
		}
	}
	if emailSender == nil {
		emailSender = notify.NewStubEmailSender(logger)
		logger.Warn("email sender not configured, using stub")
	}
	var emailService bot.EmailNotifier
	if svc := notify.NewService(emailSender, cfg.EmailTo, "", logger); svc != nil {
		emailService = svc
	}

	// NLU client.
	detector := nlu.NewClient(cfg.DialogflowProjectID, cfg.DialogflowLanguage, cfg.DialogflowAccessToken)
	if cfg.DialogflowBaseURL != "" {
		detector.SetBaseURL(cfg.DialogflowBaseURL)
	}

	// The pipeline.
	pipelineMetrics := metrics.NewPipelineMetrics(nil)
	gateway := bot.NewSendGateway(fbClient, pipelineMetrics, logger)
	scheduler := bot.NewScheduler(gateway, logger)
	resolver := bot.NewResolver(scheduler, gateway, weatherService, colorStore, emailService, logger,
		bot.WithInterval(cfg.MessageInterval))
	handler := bot.NewHandler(registry, detector, gateway, scheduler, resolver, logger,
		bot.WithPacingInterval(cfg.MessageInterval),
		bot.WithProfileWait(cfg.ProfileWait),
		bot.WithMetrics(pipelineMetrics))

	// Inbound queue between the webhook and the pipeline workers.
	var queueClient queue.Client
	if cfg.UseMemoryQueue || !awsAvailable {
		queueClient = queue.NewMemoryQueue(256)
	} else {
		queueClient = queue.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.InboundQueueURL)
	}
	publisher := queue.NewPublisher(queueClient, logger)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	worker := queue.NewWorker(queueClient, handler, logger,
		queue.WithWorkers(cfg.WorkerCount),
		queue.WithBatchSize(cfg.QueueBatchSize))
	worker.Start(workerCtx)

	webhook := messenger.NewWebhookHandler(cfg.FBVerifyToken, cfg.FBAppSecret, func(evt messenger.InboundEvent) {
		if err := publisher.Publish(context.Background(), evt); err != nil {
			logger.Error("failed to enqueue inbound event", "sender_id", evt.SenderID, "error", err)
		}
	})

	r := router.New(&router.Config{
		Logger:         logger,
		Webhook:        webhook,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	stopWorkers()
	worker.Wait()
	scheduler.Wait()

	logger.Info("server stopped")
}
