package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/secondarymetabolites/crispy-service/internal/blob"
	"github.com/secondarymetabolites/crispy-service/internal/config"
	"github.com/secondarymetabolites/crispy-service/internal/kvstore"
	"github.com/secondarymetabolites/crispy-service/internal/metrics"
	"github.com/secondarymetabolites/crispy-service/internal/queue"
	"github.com/secondarymetabolites/crispy-service/internal/repository"
	"github.com/secondarymetabolites/crispy-service/internal/service"
	transport "github.com/secondarymetabolites/crispy-service/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the public and worker-facing HTTP servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cfg *config.Config) error {
	ctx := context.Background()

	log.Printf("Starting crispy-service")
	log.Printf("External HTTP port: %d", cfg.HTTPPort)
	log.Printf("Internal HTTP port: %d", cfg.InternalPort)
	log.Printf("Store: %s (%s)", cfg.StoreDriver, cfg.StoreDSN)
	log.Printf("Blobs: %s", cfg.BlobDriver)

	store, err := kvstore.Open(kvstore.Driver(cfg.StoreDriver), cfg.StoreDSN)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	blobs, err := blob.Open(ctx, blob.Config{
		Driver:    blob.Driver(cfg.BlobDriver),
		Root:      cfg.BlobRoot,
		Bucket:    cfg.BlobS3Bucket,
		Region:    cfg.BlobS3Region,
		Endpoint:  cfg.BlobS3Endpoint,
		PathStyle: cfg.BlobS3PathStyle,
	})
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}

	m := metrics.New()
	svc := service.New(repository.New(store), queue.New(store), blobs, m, cfg.NewsFeedURL)

	externalServer := transport.NewExternalServer(svc, m)
	internalServer := transport.NewInternalServer(svc)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := externalServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start external server: %v", err)
		}
	}()
	go func() {
		addr := fmt.Sprintf(":%d", cfg.InternalPort)
		if err := internalServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start internal server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down crispy-service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := externalServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Failed to shutdown external server gracefully: %v", err)
	}
	if err := internalServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Failed to shutdown internal server gracefully: %v", err)
	}

	log.Println("crispy-service stopped")
	return nil
}
