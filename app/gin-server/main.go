package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yoockh/yoodesk/config"
	"github.com/yoockh/yoodesk/internal/api/handlers"
	"github.com/yoockh/yoodesk/internal/api/middleware"
	"github.com/yoockh/yoodesk/internal/api/routes"
	"github.com/yoockh/yoodesk/internal/cache"
	"github.com/yoockh/yoodesk/internal/logger"
	"github.com/yoockh/yoodesk/internal/metrics"
	"github.com/yoockh/yoodesk/internal/models"
	"github.com/yoockh/yoodesk/internal/providers/kb"
	"github.com/yoockh/yoodesk/internal/providers/llm"
	mongorepo "github.com/yoockh/yoodesk/internal/repositories/mongo"
	pgrepo "github.com/yoockh/yoodesk/internal/repositories/postgres"
	"github.com/yoockh/yoodesk/internal/services"
	"github.com/yoockh/yoodesk/internal/workers"
)

// jobRunner is what main needs from either worker pool.
type jobRunner interface {
	services.JobQueue
	Start(ctx context.Context) error
	Wait()
}

func main() {
	os.Exit(run())
}

// run owns every resource so its deferred cleanup completes before main exits.
func run() int {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Errorf("config: %v", err)
		return 1
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := config.OpenDatabase(cfg)
	if err != nil {
		log.Errorf("database init error: %v", err)
		return 1
	}
	if err := pgrepo.AutoMigrate(db); err != nil {
		log.Errorf("database migrate error: %v", err)
		return 1
	}
	log.WithField("driver", cfg.DBDriver).Info("database connected")

	// Redis (optional)
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = config.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Errorf("redis init error: %v", err)
			return 1
		}
		defer rdb.Close()
		log.Info("redis connected")
	}

	var (
		kv     cache.Cache
		locker cache.Locker
	)
	if rdb != nil {
		kv = cache.NewRedisCache(rdb, "yoodesk:")
		locker = cache.NewRedisLocker(rdb, log)
	} else {
		mem, err := cache.NewMemoryCache(1024)
		if err != nil {
			log.Errorf("cache init error: %v", err)
			return 1
		}
		kv = mem
		locker = cache.NewMemoryLocker()
	}

	// Mongo job log (optional)
	var runs workers.JobRecorder
	if cfg.MongoURI != "" {
		mc, err := config.NewMongo(cfg.MongoURI)
		if err != nil {
			log.Errorf("mongo init error: %v", err)
			return 1
		}
		defer func() { _ = mc.Disconnect(context.Background()) }()
		mdb := mc.Database(cfg.MongoDB)
		if err := config.EnsureMongoIndexes(mdb); err != nil {
			log.WithError(err).Warn("mongo index setup failed")
		}
		runs = mongorepo.NewJobRunRepo(mdb, cfg.JobRunTTL)
		log.Info("mongo connected")
	}

	// Language model
	scorer, err := llm.New(ctx, llm.Options{
		Provider:       cfg.LLMProvider,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		OpenAIModel:    cfg.OpenAIModel,
		VertexProject:  cfg.VertexProject,
		VertexLocation: cfg.VertexLocation,
		VertexModel:    cfg.VertexModel,
	})
	if err != nil {
		log.WithError(err).Warn("llm provider unavailable, AI features disabled")
		scorer = llm.Noop{}
	}
	defer scorer.Close()

	// Workers. Handlers are filled in once the services exist.
	dispatcher := &workers.Dispatcher{
		Logger:     log,
		Runs:       runs,
		JobTimeout: 2*cfg.LLMTimeout + 30*time.Second,
	}
	var pool jobRunner
	if rdb != nil {
		pool = workers.NewStreamPool(rdb, dispatcher, workers.StreamOptions{
			Stream:     cfg.JobStream,
			Group:      cfg.JobGroup,
			NumWorkers: cfg.WorkerCount,
		}, log)
	} else {
		pool = workers.NewPool(dispatcher, cfg.WorkerCount, cfg.WorkerQueueSize)
	}

	// Repositories
	users := pgrepo.NewUserRepo(db)
	profiles := pgrepo.NewProfileRepo(db)
	convos := pgrepo.NewConversationRepo(db)
	messages := pgrepo.NewMessageRepo(db)
	assignments := pgrepo.NewAssignmentRepo(db)

	// Services
	directory := services.NewExpertDirectory(profiles, kv, cfg.ExpertCacheTTL, log)
	matcher := services.NewMatcher(scorer, cfg.LLMTimeout, log)
	summaries := services.NewSummaryService(convos, messages, scorer, locker, pool, cfg.LLMTimeout, log)
	views := services.NewViewBuilder(messages, summaries)

	authSvc := services.NewAuthService(users, services.AuthOptions{Secret: cfg.JWTSecret, TokenTTL: cfg.JWTTTL})
	profileSvc := services.NewProfileService(profiles, directory)
	assignSvc := services.NewAssignmentService(convos, messages, assignments, directory, matcher, views, log)
	convSvc := services.NewConversationService(convos, views, pool, log)
	msgSvc := services.NewMessageService(convos, messages, pool, log)
	feedSvc := services.NewFeedService(convos, messages, views)
	faqSvc := services.NewFAQService(convos, messages, profiles, kb.NewHTTPFetcher(cfg.KBFetchTimeout), scorer, cfg.LLMTimeout, log)

	dispatcher.Handlers = map[string]workers.Handler{
		models.JobAutoAssign: func(ctx context.Context, j models.Job) error {
			return assignSvc.AutoAssign(ctx, j.ConversationID)
		},
		models.JobSummaryRegenerate: func(ctx context.Context, j models.Job) error {
			return summaries.Regenerate(ctx, j.ConversationID)
		},
		models.JobFAQRespond: func(ctx context.Context, j models.Job) error {
			return faqSvc.AutoRespond(ctx, j.MessageID)
		},
	}

	// HTTP
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.RequestLogger(log), metrics.Middleware())

	routes.RegisterRoutes(r, routes.Deps{
		Auth:         authSvc,
		AuthHandler:  handlers.NewAuthHandler(authSvc),
		Conversation: handlers.NewConversationHandler(convSvc),
		Message:      handlers.NewMessageHandler(msgSvc),
		Expert:       handlers.NewExpertHandler(assignSvc, profileSvc),
		Updates:      handlers.NewUpdatesHandler(feedSvc),
		HealthChecker: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := pool.Start(gctx); err != nil {
			return err
		}
		pool.Wait()
		return nil
	})
	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server stopped with error")
		return 1
	}
	log.Info("server stopped")
	return 0
}
