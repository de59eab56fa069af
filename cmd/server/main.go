package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hunter-web/internal/auth"
	"hunter-web/internal/config"
	apphttp "hunter-web/internal/http"
	"hunter-web/internal/logging"
	"hunter-web/internal/mirror"
	"hunter-web/internal/repository/sqlstore"
	"hunter-web/internal/service"
	"hunter-web/internal/site"
	"hunter-web/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		logrus.Fatalf("setup logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlstore.Open(cfg.Database.Driver, cfg.DataSource())
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	sqlstore.SetMigrationLogger(logger.WithField("component", "migrate"))
	if err := db.Migrate(ctx); err != nil {
		logger.Fatalf("migrate database: %v", err)
	}

	secret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			logger.Fatalf("generate jwt secret: %v", err)
		}
		logger.Warn("auth.jwtsecret is empty, using a random secret; sessions will not survive a restart")
	}
	sessions, err := auth.NewSessions(secret, cfg.TokenTTL())
	if err != nil {
		logger.Fatalf("setup sessions: %v", err)
	}

	st, err := site.New(cfg.Site.BaseDir)
	if err != nil {
		logger.Fatalf("setup site: %v", err)
	}
	chunks, err := storage.NewLocalStore(cfg.Upload.Dir)
	if err != nil {
		logger.Fatalf("setup upload dir: %v", err)
	}

	userService := service.NewUserService(sqlstore.NewUserRepository(db))
	uploadService := service.NewUploadService(sqlstore.NewUploadRepository(db), chunks)

	var (
		storageSvc storage.Service
		manager    mirror.Manager
	)
	if cfg.StorageEnabled() {
		s3Svc, err := buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}
		storageSvc = s3Svc

		manager = mirror.NewManager(mirror.Config{
			Bucket:        cfg.Storage.Bucket,
			KeyPrefix:     cfg.Storage.KeyPrefix,
			MaxConcurrent: cfg.Mirror.MaxConcurrent,
			Logger:        logger,
		}, uploadService, storageSvc)
		if err := manager.Start(ctx); err != nil {
			logger.Fatalf("start mirror manager: %v", err)
		}
		if err := manager.Resume(ctx); err != nil {
			logger.Warnf("resume mirrors: %v", err)
		}
	} else {
		logger.Info("storage bucket not set, uploads stay local")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.Deps{
		Users:         userService,
		Uploads:       uploadService,
		Sessions:      sessions,
		Site:          st,
		Mirror:        manager,
		Storage:       storageSvc,
		Bucket:        cfg.Storage.Bucket,
		KeyPrefix:     cfg.Storage.KeyPrefix,
		MaxConcurrent: cfg.Server.MaxConcurrent,
		Logger:        logger,
	})
	handler.RegisterRoutes(router)

	srv := apphttp.NewServer(apphttp.ServerConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, router)

	go func() {
		logger.Infof("%s listening on %s, serving %s", cfg.App.Name, cfg.Server.Addr, st.Root())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if manager != nil {
		manager.Shutdown()
	}

	logger.Info("bye")
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*storage.S3Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
