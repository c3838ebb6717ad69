package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"planner/internal/apply"
	"planner/internal/config"
	"planner/internal/overlay"
	"planner/internal/task"
)

var (
	flagConfig string
	flagBase   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "planner",
		Short: "planner — a personal task list layered over a read-only base dataset",
		Long: "planner keeps your edits in a local overlay on top of an externally\n" +
			"supplied base dataset, and can apply model-suggested edits under a\n" +
			"risk-tiered auto-apply policy.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config JSON/JSONC")
	rootCmd.PersistentFlags().StringVar(&flagBase, "base", "", "Path to the base dataset JSON")

	rootCmd.AddCommand(
		listCmd(),
		addCmd(),
		editCmd(),
		doneCmd(),
		undoCmd(),
		deleteCmd(),
		todayCmd(),
		deferCmd(),
		suggestCmd(),
		exportCmd(),
		importCmd(),
		backupCmd(),
		statsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "planner: %v\n", err)
		os.Exit(1)
	}
}

// app 每次命令执行的装配结果 / app is the per-invocation wiring
type app struct {
	cfg     config.Config
	store   overlay.Store
	base    *task.BaseDataset
	applier *apply.Applier
}

// newApp 加载配置、打开后端、读取基础数据集并建立 applier。
// newApp loads config, opens the backend, reads the base dataset, and builds
// the applier.
func newApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open overlay store: %w", err)
	}

	basePath := flagBase
	if basePath == "" {
		basePath = cfg.Base.Path
	}
	base, err := task.LoadBase(basePath)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		store:   store,
		base:    base,
		applier: apply.New(store, base),
	}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
}

func openStore(cfg config.StorageConfig) (overlay.Store, error) {
	switch cfg.Backend {
	case "file":
		return overlay.NewFileStore(filepath.Join(cfg.BaseDir, "overlay.json"))
	case "redis":
		return overlay.NewRedisStore(cfg.RedisURL)
	default:
		return overlay.NewSQLiteStore(filepath.Join(cfg.BaseDir, "planner.db"))
	}
}
