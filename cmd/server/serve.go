package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcAdapter "github.com/Abdurahmanit/GroupProject/property-service/internal/adapter/grpc"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/adapter/httpapi"
	natsAdapter "github.com/Abdurahmanit/GroupProject/property-service/internal/adapter/messaging/nats"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/adapter/repository/cache"
	mongoRepo "github.com/Abdurahmanit/GroupProject/property-service/internal/adapter/repository/mongodb"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/adapter/storage/local"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/adapter/storage/s3"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/asset"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/usecase"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/mailer"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/tracer"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the gRPC health server and the metrics endpoint",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

var ensureIndexesCmd = &cobra.Command{
	Use:   "ensure-indexes",
	Short: "Create the MongoDB indexes listing search relies on and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		appLogger := logger.NewLogger()
		cfg, err := config.LoadConfig(appLogger)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		mongoClient, err := connectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		defer mongoClient.Disconnect(context.Background())

		repo := mongoRepo.NewListingRepository(mongoClient.Database(cfg.MongoDatabase), appLogger)
		return repo.EnsureIndexes(ctx)
	},
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	return client, nil
}

func serve(ctx context.Context) error {
	appLogger := logger.NewLogger()
	defer appLogger.Sync()
	appLogger.Info("Application starting...", zap.String("service_name", serviceName))

	cfg, err := config.LoadConfig(appLogger)
	if err != nil {
		appLogger.Error("Failed to load configuration", zap.Error(err))
		return err
	}
	appLogger.Info("Configuration loaded successfully",
		zap.String("http_port", cfg.HTTPPort),
		zap.String("grpc_port", cfg.GRPCPort),
		zap.String("storage_backend", cfg.StorageBackend),
		zap.String("prometheus_port", cfg.PrometheusMetricsPort),
	)

	tp := tracer.InitTracer(cfg.ServiceName, cfg.OTExporterOTLPEndpoint, appLogger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	metricsManager := metrics.NewMetricsManager(cfg.ServiceName)

	mongoClient, err := connectMongo(ctx, cfg.MongoURI)
	if err != nil {
		appLogger.Error("MongoDB unavailable", zap.Error(err))
		return err
	}
	defer func() {
		appLogger.Info("Disconnecting from MongoDB...")
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			appLogger.Error("Error disconnecting from MongoDB", zap.Error(err))
		}
	}()
	db := mongoClient.Database(cfg.MongoDatabase)

	listingRepo := mongoRepo.NewListingRepository(db, appLogger)
	if err := listingRepo.EnsureIndexes(ctx); err != nil {
		appLogger.Warn("Continuing without ensured indexes", zap.Error(err))
	}
	userRepo := mongoRepo.NewUserRepository(db, appLogger)

	opts := []usecase.Option{usecase.WithMetrics(metricsManager), usecase.WithMaxImages(cfg.MaxImagesPerRequest)}

	redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB, appLogger)
	if err != nil {
		appLogger.Warn("Redis unavailable, serving without cache", zap.Error(err))
	} else {
		defer redisClient.Close()
		opts = append(opts, usecase.WithCache(cache.NewListingCache(redisClient, cfg.CacheTTL, appLogger)))
	}

	natsPublisher, err := natsAdapter.NewPublisher(cfg.NATSURL, appLogger, serviceName)
	if err != nil {
		appLogger.Warn("NATS unavailable, listing events will not be published", zap.Error(err))
	} else {
		defer natsPublisher.Close()
		opts = append(opts, usecase.WithEvents(natsPublisher))
	}

	if cfg.SMTPHost != "" {
		opts = append(opts, usecase.WithNotifier(mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)))
	} else {
		appLogger.Info("SMTP_HOST not set, listing notifications disabled")
	}

	images, uploads, err := buildImageManager(ctx, cfg, metricsManager, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize image storage", zap.Error(err))
		return err
	}

	listingUsecase := usecase.NewListingUsecase(listingRepo, userRepo, images, appLogger, opts...)
	listingHandler := httpapi.NewListingHandler(listingUsecase, cfg.MaxImagesPerRequest, cfg.MaxUploadBytes, appLogger)
	router := httpapi.NewRouter(listingHandler, httpapi.RouterConfig{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins(),
		UploadsPrefix:  cfg.UploadPublicPrefix,
		Uploads:        uploads,
		Metrics:        metricsManager,
	}, appLogger)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrors := make(chan error, 2)
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", cfg.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("http server: %w", err)
		}
	}()

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		appLogger.Error("Failed to listen for gRPC", zap.String("port", cfg.GRPCPort), zap.Error(err))
		return err
	}
	grpcSrv, stopGRPC := grpcAdapter.NewGRPCServer(appLogger)
	go func() {
		appLogger.Info("Starting gRPC server", zap.String("port", cfg.GRPCPort))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serverErrors <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	go func() {
		if err := metrics.StartMetricsServer(cfg.PrometheusMetricsPort, appLogger, metricsManager); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Prometheus metrics server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case runErr = <-serverErrors:
		appLogger.Error("Server failed, shutting down", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	stopGRPC()

	appLogger.Info("Application shutting down...")
	return runErr
}

// buildImageManager wires the active backend plus, when configured, the other
// one for deleting images stored before a backend switch. The returned handler
// serves local files and is always non-nil.
func buildImageManager(ctx context.Context, cfg *config.Config, mm *metrics.MetricsManager, appLogger *logger.Logger) (*asset.Manager, http.Handler, error) {
	localStorage, err := local.NewOSStorage(cfg.UploadDir, cfg.UploadPublicPrefix, appLogger)
	if err != nil {
		return nil, nil, err
	}

	var remote *s3.S3Storage
	if cfg.StorageBackend == config.StorageS3 || cfg.S3Configured() {
		remote, err = s3.NewS3Storage(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOObjectPrefix, cfg.MinIOUseSSL, appLogger)
		if err != nil {
			if cfg.StorageBackend == config.StorageS3 {
				return nil, nil, err
			}
			appLogger.Warn("Object storage unavailable, remote images cannot be deleted", zap.Error(err))
			remote = nil
		}
	}

	classifier := asset.Classifier{
		LocalPrefix:  cfg.UploadPublicPrefix,
		Bucket:       cfg.MinIOBucket,
		ObjectPrefix: cfg.MinIOObjectPrefix,
	}
	opts := []asset.Option{asset.WithConcurrency(cfg.UploadConcurrency), asset.WithMetrics(mm)}

	var manager *asset.Manager
	if cfg.StorageBackend == config.StorageS3 {
		manager = asset.NewManager(remote, classifier, appLogger, append(opts, asset.WithBackend(localStorage))...)
	} else {
		if remote != nil {
			opts = append(opts, asset.WithBackend(remote))
		}
		manager = asset.NewManager(localStorage, classifier, appLogger, opts...)
	}
	appLogger.Info("Image storage initialized", zap.String("active_backend", string(manager.ActiveKind())))
	return manager, localStorage.Handler(), nil
}
