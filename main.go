package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"folio/config"
	"folio/cron"
	"folio/database"
	migrationRepo "folio/database/repository/migration"
	sectionRepo "folio/database/repository/section"
	"folio/handlers"
	"folio/middleware"
	"folio/routes"
	"folio/services/migration"
	"folio/services/ordering"
	"folio/services/schema"
	"folio/services/sections"
	"folio/services/snapshot"
	"folio/services/storage"
	"folio/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// backend bundles the live-store pieces selected by STORE_BACKEND.
type backend struct {
	repo     sectionRepo.SectionRepository
	markers  migrationRepo.MigrationRepository
	feed     sections.ChangeFeed
	sessions sections.SessionTracker
	mongo    *mongo.Client
	redis    []*redis.Client
}

func main() {
	config.LoadConfig()
	utils.InitializeLogger()
	logger := utils.GetLogger()
	defer utils.SyncLogger()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	be := openBackend(ctx, logger)
	snap := snapshot.NewCached(snapshotSource(ctx, logger))
	normalizer := schema.NewNormalizer(schema.WithLogger(logger.Named("schema")))

	store := sections.NewStore(be.repo, normalizer, snap,
		sections.WithFeed(be.feed),
		sections.WithSessions(be.sessions),
		sections.WithMigrationMarkers(be.markers),
		sections.WithLogger(logger.Named("sections")),
	)
	layout := ordering.NewManager(store, logger.Named("ordering"))
	coordinator := migration.NewCoordinator(be.repo, be.markers, normalizer, snap, logger.Named("migration"),
		migration.WithNotifier(store))

	objectStore, err := openObjectStore(ctx)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize object storage: %v", err)
	}
	uploads := storage.NewUploadManager(objectStore, config.AppConfig.MaxUploadConcurrency, logger.Named("uploads"))

	// Background migrations need the task queue, which lives in Redis.
	var queue handlers.MigrationEnqueuer
	var worker *asynq.Server
	if config.UsesRedis() {
		enqueuer := cron.NewMigrationEnqueuer(cron.RedisOpt())
		defer enqueuer.Close()
		queue = enqueuer
		worker = cron.InitMigrationWorker(ctx, coordinator, logger.Named("worker"))
	}

	utils.StartHealthMonitor(ctx, time.Minute, be.redis, be.mongo)

	sectionHandler := handlers.NewSectionHandler(store, layout)
	layoutHandler := handlers.NewLayoutHandler(store, layout)
	adminHandler := handlers.NewAdminHandler(coordinator, queue)
	uploadHandler := handlers.NewUploadHandler(ctx, uploads)

	handlerBundle := &handlers.HandlerBundle{
		Verifier:      tokenVerifier(ctx, logger),
		DefaultUserID: config.AppConfig.DefaultUserID,
		RatePerMin:    config.AppConfig.MaxRequestsPerMin,

		// Section endpoints.
		ListSectionsHandler: sectionHandler.ListSectionsHandler,
		GetSectionHandler:   sectionHandler.GetSectionHandler,
		WriteFieldHandler:   sectionHandler.WriteFieldHandler,
		DeleteFieldHandler:  sectionHandler.DeleteFieldHandler,
		StreamHandler:       sectionHandler.StreamHandler,

		// Layout endpoints.
		GetLayoutHandler: layoutHandler.GetLayoutHandler,
		MoveHandler:      layoutHandler.MoveHandler,
		ToggleHandler:    layoutHandler.ToggleHandler,
		SaveHandler:      layoutHandler.SaveHandler,

		// Admin endpoints.
		MigrateHandler: adminHandler.MigrateHandler,

		// Upload endpoints.
		UploadFilesHandler:  uploadHandler.UploadFilesHandler,
		UploadStatusHandler: uploadHandler.UploadStatusHandler,
		RetryUploadHandler:  uploadHandler.RetryUploadHandler,
	}

	router := gin.New()
	if err := router.SetTrustedProxies(config.AppConfig.TrustedProxies); err != nil {
		logger.Fatal("invalid trusted proxies", zap.Strings("proxies", config.AppConfig.TrustedProxies), zap.Error(err))
	}
	router.Use(utils.ErrorHandler())
	router.Use(handlers.RequestLogger(logger.Named("http")))
	routes.RegisterRoutes(router, handlerBundle)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	if worker != nil {
		worker.Shutdown()
	}
	if err := database.CloseDB(shutdownCtx); err != nil {
		logger.Warn("main: failed to disconnect MongoDB", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

func openBackend(ctx context.Context, logger *zap.Logger) backend {
	ttl := config.AppConfig.SessionTTL

	switch config.AppConfig.StoreBackend {
	case "memory":
		logger.Warn("using in-memory section store; data is lost on restart")
		return backend{
			repo:     sectionRepo.NewMemorySectionRepo(),
			markers:  migrationRepo.NewMemoryMigrationRepo(),
			feed:     sections.NewMemoryFeed(),
			sessions: sections.NewMemorySessions(ttl),
		}

	case "firestore":
		client, err := utils.FirestoreClient(ctx)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		utils.InitRedis()
		repo := sectionRepo.NewFirestoreSectionRepo(client)
		return backend{
			repo:     repo,
			markers:  migrationRepo.NewFirestoreMigrationRepo(client),
			feed:     repo,
			sessions: sections.NewRedisSessions(utils.GetSessionClient(), ttl),
			redis:    utils.RedisClients(),
		}

	default:
		db := database.InitDB()
		utils.InitRedis()
		repo, err := sectionRepo.NewMongoSectionRepo(db)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		markers, err := migrationRepo.NewMongoMigrationRepo(db)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		return backend{
			repo:     repo,
			markers:  markers,
			feed:     sections.NewRedisChangeFeed(utils.GetCacheClient(), logger.Named("feed")),
			sessions: sections.NewRedisSessions(utils.GetSessionClient(), ttl),
			mongo:    database.MongoClient,
			redis:    utils.RedisClients(),
		}
	}
}

func snapshotSource(ctx context.Context, logger *zap.Logger) snapshot.Source {
	switch config.AppConfig.SnapshotSource {
	case "file":
		return snapshot.FileSource{Path: config.AppConfig.SnapshotPath}
	case "bucket":
		client, err := utils.StorageClient(ctx)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		return snapshot.BucketSource{
			Client: client,
			Bucket: config.AppConfig.SnapshotBucket,
			Object: config.AppConfig.SnapshotObject,
		}
	default:
		return snapshot.EmbeddedSource{}
	}
}

func openObjectStore(ctx context.Context) (storage.ObjectStore, error) {
	if config.AppConfig.StorageBackend == "firebase" {
		client, err := utils.StorageClient(ctx)
		if err != nil {
			return nil, err
		}
		return storage.NewFirebaseStore(client, config.AppConfig.FirebaseBucket), nil
	}
	cld, err := utils.Cloudinary()
	if err != nil {
		return nil, err
	}
	return cld, nil
}

func tokenVerifier(ctx context.Context, logger *zap.Logger) middleware.TokenVerifier {
	if config.AppConfig.AuthProvider == "firebase" {
		client, err := utils.FirebaseAuthClient(ctx)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		return middleware.FirebaseVerifier{Client: client}
	}
	if config.AppConfig.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set; every request is served read-only")
		return nil
	}
	return middleware.JWTVerifier{Secret: []byte(config.AppConfig.JWTSecret)}
}
