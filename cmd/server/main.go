package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dynexia/portal/internal/auth"
	"github.com/dynexia/portal/internal/config"
	"github.com/dynexia/portal/internal/db"
	"github.com/dynexia/portal/internal/gate"
	"github.com/dynexia/portal/internal/models"
	"github.com/dynexia/portal/internal/server"
	"github.com/dynexia/portal/internal/storage"
)

const subjectCacheTTL = 5 * time.Minute

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := newLogger(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	database, err := db.ConnectAndMigrate(cfg.DatabaseDSN, log)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}

	blobs, err := newBlobStore(cfg)
	if err != nil {
		log.Fatal("storage init failed", zap.Error(err))
	}

	cached := auth.NewCachedResolver(dbSubjectResolver(database), subjectCacheTTL)
	auth.SetSubjectResolver(cached.Resolve)

	handler := server.NewRouter(server.Deps{
		Cfg:        cfg,
		DB:         database,
		Log:        log,
		Blobs:      blobs,
		Invalidate: cached.Invalidate,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown incomplete", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newBlobStore(cfg config.Config) (storage.BlobStore, error) {
	if cfg.StorageDriver == "minio" {
		return storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	}
	return storage.NewFileStore(cfg.StoragePath, "/uploads")
}

// dbSubjectResolver verifies the user still exists on every resolve so stale
// sessions for deleted accounts stop working; the cached wrapper keeps the
// lookup off the hot path.
func dbSubjectResolver(database *gorm.DB) auth.SubjectResolver {
	return func(ctx context.Context, uid uint) (gate.Subject, bool) {
		var user models.User
		if err := database.WithContext(ctx).First(&user, uid).Error; err != nil {
			return gate.Subject{}, false
		}
		return gate.Subject{UserID: user.ID, Admin: user.IsAdmin()}, true
	}
}
