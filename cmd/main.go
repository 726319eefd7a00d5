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

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lexbridge-backend/internal/data/db"
	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	"github.com/yungbote/lexbridge-backend/internal/http/handlers"
	"github.com/yungbote/lexbridge-backend/internal/pdf"
	"github.com/yungbote/lexbridge-backend/internal/platform/envutil"
	"github.com/yungbote/lexbridge-backend/internal/platform/gcp"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
	"github.com/yungbote/lexbridge-backend/internal/server"
	"github.com/yungbote/lexbridge-backend/internal/services"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}

func run(log *logger.Logger) error {
	pg, err := db.NewPostgresService(log)
	if err != nil {
		return err
	}
	if err := pg.AutoMigrateAll(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	gdb := pg.DB()

	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		return err
	}

	userRepo := repos.NewUserRepo(gdb, log)
	caseRepo := repos.NewCaseRepo(gdb, log)
	documentRepo := repos.NewDocumentRepo(gdb, log)
	configRepo := repos.NewBatesConfigRepo(gdb, log)
	registryRepo := repos.NewBatesRegistryRepo(gdb, log)
	exhibitRepo := repos.NewExhibitRepo(gdb, log)
	packageRepo := repos.NewExhibitPackageRepo(gdb, log)

	stamper := pdf.NewStamper(log)
	runTx := services.GormTxRunner(gdb)

	batesSvc := services.NewBatesService(log, runTx, configRepo, registryRepo, documentRepo, userRepo, caseRepo, bucket, stamper)
	exhibitSvc := services.NewExhibitService(log, runTx, exhibitRepo, packageRepo, documentRepo, caseRepo, bucket, stamper)
	documentSvc := services.NewDocumentService(log, documentRepo, caseRepo, bucket)
	caseSvc := services.NewCaseService(log, caseRepo)

	jwtSecret := os.Getenv("JWT_SECRET_KEY")
	if jwtSecret == "" {
		return errors.New("missing env var JWT_SECRET_KEY")
	}

	router := server.NewRouter(server.RouterConfig{
		Log:       log,
		JWTSecret: jwtSecret,
		Health:    handlers.NewHealthHandler(gdb),
		Bates:     handlers.NewBatesHandler(log, batesSvc),
		Exhibits:  handlers.NewExhibitHandler(log, exhibitSvc),
		Documents: handlers.NewDocumentHandler(log, documentSvc),
		Cases:     handlers.NewCaseHandler(log, caseSvc),
	})

	port := envutil.GetEnv("PORT", "8080", log)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
