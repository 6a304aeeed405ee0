package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	httpctx "github.com/dtroode/flashcards-server/internal/api/http/context"
	"github.com/dtroode/flashcards-server/internal/api/http/router"
	httpServer "github.com/dtroode/flashcards-server/internal/api/http/server"
	"github.com/dtroode/flashcards-server/internal/config"
	"github.com/dtroode/flashcards-server/internal/logger"
	"github.com/dtroode/flashcards-server/internal/model"
	"github.com/dtroode/flashcards-server/internal/repository/filesystem"
	"github.com/dtroode/flashcards-server/internal/repository/postgres"
	"github.com/dtroode/flashcards-server/internal/server"
	"github.com/dtroode/flashcards-server/internal/service"
	"github.com/dtroode/flashcards-server/internal/session"
	"github.com/dtroode/flashcards-server/internal/storage/local"
	storage "github.com/dtroode/flashcards-server/internal/storage/minio"
	"github.com/dtroode/flashcards-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	if os.Getenv("PRODUCTION") != "true" {
		// .env is optional in development
		_ = godotenv.Load()
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	userStore, documentStore, closeDB := openRepositories(ctx, cfg, logger)
	defer closeDB()

	imageStorage := openStorage(ctx, cfg, logger)

	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.TTL)
	sessions := session.NewManager(cfg.Session.TTL, logger)
	ctxMgr := httpctx.NewManager()

	documents := service.NewDocuments(documentStore, cfg.DefaultDomains, logger)
	images := service.NewImages(documents, imageStorage, logger)
	authService := service.NewAuth(userStore, documents, imageStorage, sessions, images, tokenManager, cfg.BcryptCost, logger)

	r := router.New(router.Services{
		Auth:       authService,
		Flashcards: service.NewFlashcards(documents, imageStorage, logger),
		Catalog:    service.NewCatalog(documents, imageStorage, logger),
		Images:     images,
		Practice:   service.NewPractice(documents, sessions, session.RandomShuffler(), logger),
	}, tokenManager, ctxMgr, cfg.HTTP.AllowedOrigins, logger)

	srv := httpServer.NewHTTPServer(r.Register(), cfg.HTTP.Address())
	sl := server.NewSecurityLayer(cfg.HTTP)

	logAppVersion()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server on", "address", srv.Address(), "https", cfg.HTTP.EnableHTTPS)
		return srv.Start(sl)
	})
	g.Go(func() error {
		return sessions.Run(gctx, cfg.Session.CleanupInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("received interruption signal, shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop server %s: %w", srv.Address(), err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err.Error())
	}
	logger.Info("shutdown complete")
}

// openRepositories returns the user and document stores of the configured
// backend and a function releasing them.
func openRepositories(ctx context.Context, cfg *config.Config, logger *logger.Logger) (model.UserStore, model.DocumentStore, func()) {
	switch cfg.DocumentBackend {
	case config.BackendPostgres:
		db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
		if err != nil {
			logger.Fatal("failed to initialize database", "error", err.Error())
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close database", "error", err.Error())
			}
		}
		return postgres.NewUserRepository(db), postgres.NewDocumentRepository(db), closeDB
	default:
		return filesystem.NewUserRepository(cfg.DataDir), filesystem.NewDocumentRepository(cfg.DataDir), func() {}
	}
}

func openStorage(ctx context.Context, cfg *config.Config, logger *logger.Logger) model.Storage {
	if cfg.ImageBackend == config.BackendMinio {
		minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
			Secure: cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Fatal("failed to create minio client", "error", err.Error())
		}
		client, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
		if err != nil {
			logger.Fatal("failed to initialize storage client", "error", err.Error())
		}
		return client
	}

	s, err := local.NewStorage(filepath.Join(cfg.DataDir, "users"))
	if err != nil {
		logger.Fatal("failed to initialize image directory", "error", err.Error())
	}
	return s
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
