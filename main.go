package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/versecraft/versecraft/handlers"
	"github.com/versecraft/versecraft/internal/config"
	"github.com/versecraft/versecraft/internal/content"
	"github.com/versecraft/versecraft/internal/database"
	"github.com/versecraft/versecraft/internal/notifications"
	"github.com/versecraft/versecraft/internal/reviews"
	"github.com/versecraft/versecraft/internal/sessions"
	"github.com/versecraft/versecraft/internal/storage"
	"github.com/versecraft/versecraft/internal/users"
	"github.com/versecraft/versecraft/pkg/logger"
	"github.com/versecraft/versecraft/pkg/mailer"
	"github.com/versecraft/versecraft/pkg/metrics"
	"github.com/versecraft/versecraft/pkg/middleware"
	"github.com/versecraft/versecraft/pkg/validation"
)

var startTime = time.Now()

func main() {
	// logging first (LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v mailgun=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Mail.MailgunDomain != "")

	validation.Init()

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowCredentials = false
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	ctx := context.Background()

	// Redis early: sessions prefer it, and the rate limiter can use it
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// MongoDB with retry/backoff to tolerate startup races
	const maxAttempts = 5
	backoff := time.Second
	var client *mongo.Client
	var errConn error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if errConn == nil {
			break
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	if errConn != nil {
		logger.Fatalf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
	}
	defer func() { _ = client.Disconnect(ctx) }()
	db := client.Database(cfg.MongoDB.Database)

	// sessions: Redis when available, Mongo otherwise
	var sessionsSvc *sessions.Service
	if redisClient != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(redisClient, "session:"))
		logger.Infof("Using Redis for session storage")
	} else {
		sessionsSvc = sessions.NewService(sessions.NewMongoRepository(db.Collection("sessions")))
		logger.Infof("Using MongoDB for session storage")
	}

	// outbound mail: Mailgun when configured, a logging mock otherwise
	var sender mailer.Sender
	if cfg.Mail.MailgunDomain != "" && cfg.Mail.MailgunAPIKey != "" {
		sender = mailer.NewMailgun(cfg.Mail.MailgunDomain, cfg.Mail.MailgunAPIKey, cfg.Mail.From)
	} else {
		logger.Warnf("Mailgun not configured; password reset mail will only be logged")
		sender = mailer.NewMock()
	}

	// image storage is optional; uploads are skipped without it
	var uploader handlers.Uploader
	if minioCfg := storage.LoadMinIOConfig(); minioCfg.Endpoint != "" {
		store, err := storage.NewMinIOStorage(minioCfg)
		if err != nil {
			logger.Warnf("failed to initialize MinIO storage: %v", err)
		} else {
			uploader = store
			logger.Infof("Connected to MinIO: %s bucket=%s", minioCfg.Endpoint, minioCfg.Bucket)
		}
	}

	userRepo := users.NewMongoRepository(db.Collection("users"))
	contentRepo := content.NewMongoRepository(db.Collection("content"))
	reviewRepo := reviews.NewMongoRepository(db.Collection("reviews"))
	notifRepo := notifications.NewMongoRepository(db.Collection("notifications"))

	usersSvc := users.NewService(userRepo, users.Options{
		AdminSignupCode: cfg.Admin.SignupCode,
		TokenSecret:     cfg.JWT.Secret,
		ResetTTL:        cfg.JWT.ResetTTL,
		Mailer:          sender,
	})
	reviewsSvc := reviews.NewService(reviewRepo, contentRepo)
	contentSvc := content.NewService(contentRepo, reviewsSvc)
	notifsSvc := notifications.NewService(notifRepo, userRepo)

	// session cookie -> current user, then per-user rate limiting and
	// the unread badge
	resolver := &handlers.SessionUserResolver{Sessions: sessionsSvc, Users: usersSvc}
	r.Use(middleware.CurrentUserMiddleware(resolver, cfg.Session.CookieName))
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}
	r.Use(handlers.UnreadBadgeMiddleware(notifsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when the datastores answer
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		deps["mongo"] = client.Ping(pingCtx, nil) == nil
		if !deps["mongo"] {
			ready = false
		}
		if redisClient != nil {
			deps["redis"] = redisClient.Ping(pingCtx).Err() == nil
			if !deps["redis"] {
				ready = false
			}
		}
		deps["storage"] = uploader != nil

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	handlers.NewAuthHandler(cfg, usersSvc, sessionsSvc, uploader).Register(r)
	handlers.NewContentHandler(contentSvc, reviewsSvc, notifsSvc, uploader).Register(r, handlers.NewReviewHandler(reviewsSvc, contentSvc))
	handlers.NewUsersHandler(usersSvc, contentSvc, notifsSvc, uploader).Register(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Starting versecraft on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
