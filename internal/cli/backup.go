package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newsflow/newsflow-go/internal/backup"
)

var (
	backupIncremental bool
	backupKeep        int
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create and manage backup snapshots",
	Long: `Snapshot the database to local files or S3.

Subcommands:
  create   Create a snapshot (default)
  list     List snapshots
  verify   Check a snapshot's integrity
  cleanup  Delete old snapshots

Examples:
  newsflow backup
  newsflow backup create --incremental
  newsflow backup cleanup --keep 5`,
	RunE: runBackupCreate,
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a snapshot",
	RunE:  runBackupCreate,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots",
	RunE:  runBackupList,
}

var backupVerifyCmd = &cobra.Command{
	Use:   "verify <id>",
	Short: "Check a snapshot's integrity",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupVerify,
}

var backupCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete old snapshots",
	RunE:  runBackupCleanup,
}

func init() {
	backupCmd.Flags().BoolVar(&backupIncremental, "incremental", false, "only articles newer than the last snapshot")
	backupCreateCmd.Flags().BoolVar(&backupIncremental, "incremental", false, "only articles newer than the last snapshot")
	backupCleanupCmd.Flags().IntVar(&backupKeep, "keep", 5, "snapshots to keep")

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupVerifyCmd)
	backupCmd.AddCommand(backupCleanupCmd)
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, err := newBackupService()
	if err != nil {
		return err
	}

	typ := backup.TypeFull
	if backupIncremental {
		typ = backup.TypeIncremental
	}

	snap, err := svc.Create(ctx, typ)
	if err != nil {
		return fmt.Errorf("create backup: %w", err)
	}

	fmt.Printf("Created %s snapshot %s\n", snap.Type, snap.ID)
	fmt.Printf("  Articles: %d, Keywords: %d, Targets: %d, Jobs: %d, History: %d\n",
		snap.Articles, snap.Keywords, snap.Targets, snap.Jobs, snap.History)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, err := newBackupService()
	if err != nil {
		return err
	}

	snaps, err := svc.List(ctx)
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}

	if len(snaps) == 0 {
		fmt.Println("No snapshots.")
		return nil
	}

	fmt.Printf("Snapshots (%d):\n\n", len(snaps))
	for _, s := range snaps {
		fmt.Printf("- %s  %s  %-11s  %d articles\n",
			s.CreatedAt.Format(time.DateTime), s.ID, s.Type, s.Articles)
	}
	return nil
}

func runBackupVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, err := newBackupService()
	if err != nil {
		return err
	}

	if err := svc.Verify(ctx, args[0]); err != nil {
		if errors.Is(err, backup.ErrChecksumMismatch) {
			fmt.Println("CORRUPT: checksum mismatch")
			return err
		}
		return fmt.Errorf("verify backup: %w", err)
	}

	fmt.Println("OK")
	return nil
}

func runBackupCleanup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, err := newBackupService()
	if err != nil {
		return err
	}

	n, err := svc.Cleanup(ctx, backupKeep)
	if err != nil {
		return fmt.Errorf("cleanup backups: %w", err)
	}

	fmt.Printf("Deleted %d snapshots.\n", n)
	return nil
}
