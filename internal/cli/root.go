package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/devassist/proposal-analyzer/internal/application"
	apphistory "github.com/devassist/proposal-analyzer/internal/application/history"
	"github.com/devassist/proposal-analyzer/internal/config"
	faildomain "github.com/devassist/proposal-analyzer/internal/domain/faillog"
	historydomain "github.com/devassist/proposal-analyzer/internal/domain/history"
	"github.com/devassist/proposal-analyzer/internal/infra/backend"
	"github.com/devassist/proposal-analyzer/internal/infra/localstore"
	minioStore "github.com/devassist/proposal-analyzer/internal/infra/storage"
	"github.com/devassist/proposal-analyzer/internal/infra/transport"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "devassist",
	Short: "DevAssist Pro — analyze commercial proposals against technical specifications",
	Long: `devassist submits a technical specification and one or more commercial
proposals to the DevAssist analysis backend, follows job progress live, and
keeps completed analyses in a history that survives backend outages.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config.yaml")
}

func Execute() {
	// .env is optional
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the wired services behind the commands.
type app struct {
	cfg      *config.Config
	backend  *backend.Client
	progress *transport.Client
	history  *apphistory.Service
	failures faildomain.Repository
	kv       *localstore.SQLiteKV
}

func openApp(ctx context.Context) (*app, error) {
	path := cfgPath
	if path == "" {
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}

	var cfg *config.Config
	var err error
	switch {
	case path != "":
		cfg, err = config.Load(path)
	default:
		cfg, err = config.Load("config.yaml")
		if os.IsNotExist(err) {
			cfg, err = config.Default(), nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("config load error: %w", err)
	}

	storagePath := cfg.StoragePath()
	if err := os.MkdirAll(filepath.Dir(storagePath), 0o755); err != nil {
		return nil, err
	}
	kv, err := localstore.OpenSQLite(ctx, storagePath)
	if err != nil {
		return nil, fmt.Errorf("local store error: %w", err)
	}

	bcli := backend.New(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Timeout())

	var artifacts historydomain.ArtifactStore
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			// archive is best-effort; the flow works without it
			log.Printf("minio init error (archive disabled): %v", err)
		} else {
			artifacts = store
		}
	}

	return &app{
		cfg:      cfg,
		backend:  bcli,
		progress: transport.New(cfg.WebSocketURL(), cfg.Backend.APIKey),
		history: &apphistory.Service{
			Remote:    backend.NewHistoryRepository(bcli),
			Local:     localstore.NewHistoryRepository(kv),
			Artifacts: artifacts,
			Clock:     application.SystemClock{},
		},
		failures: localstore.NewFaillogRepository(kv),
		kv:       kv,
	}, nil
}

func (a *app) Close() {
	if a.kv != nil {
		a.kv.Close()
	}
}
