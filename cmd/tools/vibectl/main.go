// Command vibectl inspects and seeds a VibeCheck store from the terminal.
// Pebble holds an exclusive lock, so stop the API server before pointing
// vibectl at the same STORAGE_PATH.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/vibecheck/backend/internal/config"
	"github.com/zhouzirui/vibecheck/backend/internal/storage"
)

var (
	storageDriver string
	storagePath   string
	verbose       bool

	cfg    *config.Config
	logger *zap.Logger
	store  *storage.Store
)

var rootCmd = &cobra.Command{
	Use:           "vibectl",
	Short:         "Inspect and seed VibeCheck message storage",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cmd.Flags().Changed("driver") {
			cfg.Storage.Driver = storageDriver
		}
		if cmd.Flags().Changed("path") {
			cfg.Storage.Path = storagePath
		}

		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger = zap.NewNop()
		}
		if err != nil {
			return err
		}

		store, err = openStore(cfg.Storage)
		return err
	},
}

func openStore(sc config.StorageConfig) (*storage.Store, error) {
	switch sc.Driver {
	case "memory":
		return storage.New(storage.NewMemoryKV(), logger), nil
	case "pebble":
		kv, err := storage.OpenPebble(sc.Path)
		if err != nil {
			return nil, fmt.Errorf("open pebble at %s: %w", sc.Path, err)
		}
		return storage.New(kv, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storageDriver, "driver", "", "storage driver override (memory|pebble)")
	rootCmd.PersistentFlags().StringVar(&storagePath, "path", "", "pebble directory override")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log storage activity")

	rootCmd.AddCommand(inboxCmd, sendCmd, deleteCmd, analyzeCmd, shareCmd)
}

// execute runs one command line and always releases the store, which
// cobra's post-run hooks skip when RunE fails.
func execute(ctx context.Context, args []string, out io.Writer) error {
	defer func() {
		if store != nil {
			_ = store.Close()
			store = nil
		}
	}()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	return rootCmd.ExecuteContext(ctx)
}

func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
