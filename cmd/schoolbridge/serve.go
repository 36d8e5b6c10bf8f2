package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schoolbridge/internal/db"
	"schoolbridge/internal/explore"
	"schoolbridge/internal/fallback"
	"schoolbridge/internal/server"
	"schoolbridge/internal/session"
	"schoolbridge/internal/storage"
	"schoolbridge/internal/store"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	conversationMaxIdle    = 2 * time.Hour
	conversationPruneEvery = 10 * time.Minute
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	config, err := loadConfig(cCtx)
	if err != nil {
		return err
	}

	var src fallback.Source = fallback.NewStatic()
	if config.DatabaseURL != "" {
		pool, err := db.Connect(ctx, config)
		if err != nil {
			return err
		}
		defer pool.Close()

		snapshotRepo := store.NewSnapshotRepository(pool)
		src = fallback.NewLayered(fallback.NewSnapshots(snapshotRepo), fallback.NewStatic())
		logger.Info("serving fallback data from snapshots")
	}

	authn, client := newBackend(config, logger, src)

	var (
		jwkCache *jwk.Cache
		jwksURL  = config.JWKSURL
	)
	if jwksURL != "" {
		jwkCache, err = jwk.NewCache(ctx, httprc.NewClient())
		if err != nil {
			return fmt.Errorf("failed to initialize jwk cache: %w", err)
		}

		err = jwkCache.Register(ctx, jwksURL)
		if err != nil {
			return fmt.Errorf("failed to register jwks url with cache: %w", err)
		}
	}

	var images server.ImageStore
	if config.S3BucketName != "" {
		awsConfig, err := loadAWSConfig(ctx)
		if err != nil {
			return err
		}

		images = storage.NewS3ImageStore(s3.NewFromConfig(awsConfig), config.S3BucketName, awsConfig.Region, config.S3PublicBaseURL)
	}

	hashKey, blockKey, err := cookieKeys(config, logger)
	if err != nil {
		return err
	}
	sessions := session.NewCookieCodec(config.CookieName, config.SessionMaxAgeSec, config.Environment == "production", hashKey, blockKey)

	conversations := explore.NewRegistry(client, logger)
	go pruneConversations(ctx, conversations, logger)

	srv, err := server.New(
		config,
		logger,
		client,
		authn,
		conversations,
		images,
		sessions,
		jwkCache,
		jwksURL,
	)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).WithField("api", client.BaseURL()).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}

func pruneConversations(ctx context.Context, registry *explore.Registry, logger logrus.FieldLogger) {
	ticker := time.NewTicker(conversationPruneEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := registry.Prune(conversationMaxIdle); removed > 0 {
				logger.WithField("removed", removed).Debug("pruned idle conversations")
			}
		}
	}
}
