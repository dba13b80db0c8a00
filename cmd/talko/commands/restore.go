package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/talko/pkg/backup"
	"github.com/marmos91/talko/pkg/config"
)

var restoreInput string

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the chat store from a backup",
	Long: `Restore the chat store from a JSON archive created by "talko backup".

The configured store must be empty: restored records keep their original
ids. Sources starting with s3:// download from S3-compatible object
storage.

Examples:
  # Restore from a local file
  talko restore --input /tmp/talko-backup.json

  # Restore from S3
  talko restore --input s3://backups/talko/daily.json --s3-region eu-west-1`,
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().StringVarP(&restoreInput, "input", "i", "", "Input path or s3://bucket/key (required)")
	addS3Flags(restoreCmd)
	_ = restoreCmd.MarkFlagRequired("input")
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	source, err := backup.ParseTarget(ctx, restoreInput, s3Options())
	if err != nil {
		return err
	}

	store, err := config.CreateChatStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open chat store: %w", err)
	}
	defer func() { _ = store.Close() }()

	startTime := time.Now()
	manifest, err := backup.Restore(ctx, store, source)
	if err != nil {
		return err
	}

	fmt.Printf("Restore completed successfully\n")
	fmt.Printf("  Source:   %s\n", source)
	fmt.Printf("  Store:    %s\n", cfg.Database.Type)
	fmt.Printf("  Users:    %d\n", manifest.Users)
	fmt.Printf("  Chats:    %d\n", manifest.Chats)
	fmt.Printf("  Messages: %d\n", manifest.Messages)
	fmt.Printf("  Duration: %s\n", time.Since(startTime).Round(time.Millisecond))

	return nil
}
