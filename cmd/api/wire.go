package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/hummingbird/service/internal/config"
	"github.com/hummingbird/service/internal/db"
	"github.com/hummingbird/service/internal/media"
	"github.com/hummingbird/service/internal/storage"
)

func newLogger(level, format string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetLevel(lvl)
	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", format)
	}
	return log, nil
}

// closers releases resources in reverse order of acquisition.
type closers []func() error

func (c *closers) add(fn func() error) { *c = append(*c, fn) }

func (c *closers) close(log logrus.FieldLogger) {
	for i := len(*c) - 1; i >= 0; i-- {
		if err := (*c)[i](); err != nil {
			log.WithError(err).Warn("close failed")
		}
	}
}

func openRepository(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, c *closers) (media.Repository, error) {
	switch cfg.MetadataBackend {
	case config.MetadataPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		c.add(func() error { pool.Close(); return nil })
		return media.NewRetryingRepository(media.NewPostgresRepository(pool), nil), nil

	case config.MetadataRedis:
		repo := media.NewRedisRepository(media.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		c.add(repo.Close)
		if err := repo.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		log.WithField("addr", cfg.RedisAddr).Info("connected to redis")
		return media.NewRetryingRepository(repo, nil), nil

	case config.MetadataMemory:
		if cfg.IsProduction() {
			return nil, fmt.Errorf("the memory metadata backend is not allowed in production")
		}
		log.Warn("using in-memory metadata store; descriptors are lost on restart")
		return media.NewMemoryRepository(), nil
	}
	return nil, fmt.Errorf("unknown metadata backend %q", cfg.MetadataBackend)
}

func openStorage(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, c *closers) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageMinio:
		s, err := storage.NewMinioStorage(ctx, storage.MinioConfig{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			Bucket:    cfg.StorageBucket,
			Region:    cfg.StorageRegion,
			UseSSL:    cfg.StorageUseSSL,
			URLTTL:    cfg.SignedURLTTL,
		}, log)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.StorageGCS:
		s, err := storage.NewGCSStorage(ctx, cfg.StorageBucket, cfg.SignedURLTTL)
		if err != nil {
			return nil, err
		}
		c.add(s.Close)
		return s, nil

	case config.StorageDisk:
		log.WithField("dir", cfg.StorageDiskDir).Warn("using local disk storage")
		s, err := storage.NewDiskStorage(cfg.StorageDiskDir, cfg.StoragePublicBase, cfg.SignedURLTTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}
