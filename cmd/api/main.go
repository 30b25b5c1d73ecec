package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/edupulse/learning-center-api/api/swagger"
	"github.com/edupulse/learning-center-api/internal/handler"
	"github.com/edupulse/learning-center-api/internal/repository"
	"github.com/edupulse/learning-center-api/internal/router"
	"github.com/edupulse/learning-center-api/internal/service"
	"github.com/edupulse/learning-center-api/pkg/cache"
	"github.com/edupulse/learning-center-api/pkg/config"
	"github.com/edupulse/learning-center-api/pkg/database"
	"github.com/edupulse/learning-center-api/pkg/jobs"
	"github.com/edupulse/learning-center-api/pkg/logger"
	"github.com/edupulse/learning-center-api/pkg/storage"
)

// @title Learning Center API
// @version 1.0.0
// @description Role-based API for a learning center: accounts, groups, lessons, homework and the daily leaderboard.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}

	store, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	homeworkRepo := repository.NewHomeworkRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	leaderboardRepo := repository.NewLeaderboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Leaderboard.CacheTTL, logr, cfg.Leaderboard.CacheEnabled)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, userRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, userRepo, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, studentRepo, teacherRepo, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, validate, logr)
	homeworkSvc := service.NewHomeworkService(homeworkRepo, lessonRepo, store, validate, logr)
	ratingSvc := service.NewRatingService(ratingRepo, homeworkRepo, lessonRepo, validate, logr)
	leaderboardSvc := service.NewLeaderboardService(leaderboardRepo, cacheSvc, metricsSvc, logr)

	h := router.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Students:    handler.NewStudentHandler(studentSvc),
		Teachers:    handler.NewTeacherHandler(teacherSvc),
		Groups:      handler.NewGroupHandler(groupSvc),
		Lessons:     handler.NewLessonHandler(lessonSvc, teacherSvc),
		Homeworks:   handler.NewHomeworkHandler(homeworkSvc, studentSvc, teacherSvc, cfg.Uploads.MaxFileSizeBytes),
		Ratings:     handler.NewRatingHandler(ratingSvc, teacherSvc, studentSvc),
		Leaderboard: handler.NewLeaderboardHandler(leaderboardSvc),
		Metrics:     handler.NewMetricsHandler(metricsSvc, db),
	}

	r := router.New(cfg, logr, authSvc, metricsSvc, h)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startRecalcLoop(ctx, cfg.Leaderboard.RecalcInterval, leaderboardSvc, logr)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// startRecalcLoop keeps today's leaderboard fresh without waiting for an
// admin to trigger recalculation. Each tick enqueues one job so a slow
// rebuild never overlaps with the next one.
func startRecalcLoop(ctx context.Context, interval time.Duration, leaderboardSvc *service.LeaderboardService, logr *zap.Logger) {
	if interval <= 0 {
		return
	}

	queue := jobs.NewQueue("leaderboard-recalc", func(ctx context.Context, job jobs.Job) error {
		day, ok := job.Payload.(time.Time)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		_, err := leaderboardSvc.Calculate(ctx, day)
		return err
	}, jobs.QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 10 * time.Second, Logger: logr})
	queue.Start(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				queue.Stop()
				return
			case <-ticker.C:
				job := jobs.Job{ID: fmt.Sprintf("recalc-%d", time.Now().UnixNano()), Type: "leaderboard.calculate", Payload: time.Now().UTC()}
				if err := queue.Enqueue(job); err != nil {
					logr.Sugar().Warnw("failed to enqueue leaderboard recalculation", "error", err)
				}
			}
		}
	}()
}
