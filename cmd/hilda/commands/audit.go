package commands

import (
	"context"
	"fmt"

	"github.com/mbyx/hilda/internal/config"
	"github.com/mbyx/hilda/internal/filter"
	"github.com/mbyx/hilda/internal/printer"
	"github.com/mbyx/hilda/internal/store"
	"github.com/mbyx/hilda/internal/timespec"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	auditConfigPath string
	auditLimit      int
	auditJSON       bool
	auditSince      string
	auditUntil      string
	auditCommand    string
	auditAuthor     string
	auditChannel    string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recorded command invocations",
	Long: `List the audit trail of command invocations, newest first.

Requires a redis section in the configuration file; records are read
from the instance's namespace.

Time Filters:
  --since  - Show invocations after this time (duration or RFC3339)
  --until  - Show invocations before this time

Content Filters:
  --command - Filter by command name (glob pattern: "mv", "p*")
  --author  - Filter by invoking user (exact match)
  --channel - Filter by channel name (exact match)

Examples:
  # Last 20 invocations
  hilda audit

  # Who has been deleting messages this week?
  hilda audit --command=rm --since=168h

  # Everything, as JSONL for piping to jq
  hilda audit --limit=0 --json | jq 'select(.author=="amy")'`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVarP(&auditConfigPath, "config", "c", "hilda.yml", "Path to configuration file")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "Maximum records to show (0 = all)")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Output line-delimited JSON instead of a table")

	// Time-based filters
	auditCmd.Flags().StringVar(&auditSince, "since", "", "Show invocations after time (duration or RFC3339)")
	auditCmd.Flags().StringVar(&auditUntil, "until", "", "Show invocations before time (duration or RFC3339)")

	// Content-based filters
	auditCmd.Flags().StringVar(&auditCommand, "command", "", "Filter by command name (glob pattern)")
	auditCmd.Flags().StringVar(&auditAuthor, "author", "", "Filter by invoking user (exact match)")
	auditCmd.Flags().StringVar(&auditChannel, "channel", "", "Filter by channel name (exact match)")

	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(auditConfigPath)
	if err != nil {
		return printer.Error("failed to load configuration", err.Error(), nil)
	}
	if cfg.Redis == nil {
		return printer.Error(
			"audit records are disabled",
			"The configuration has no redis section, so invocations are not persisted.",
			[]string{"Add a redis section to " + auditConfigPath},
		)
	}

	sinceMS, untilMS, err := timespec.ParseRange(auditSince, auditUntil)
	if err != nil {
		return printer.Error("invalid time filter", err.Error(), nil)
	}
	criteria := filter.Criteria{
		SinceTimestampMs: sinceMS,
		UntilTimestampMs: untilMS,
		CommandGlob:      auditCommand,
		Author:           auditAuthor,
		Channel:          auditChannel,
	}

	client, err := store.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Instance)
	if err != nil {
		return fmt.Errorf("failed to create audit store: %w", err)
	}
	defer client.Close()

	ctx := context.Background()

	// With filters active the limit applies after filtering, so fetch
	// everything and trim at the end.
	fetchLimit := auditLimit
	if criteria.HasFilters() {
		fetchLimit = 0
	}
	records, err := client.ListRecords(ctx, fetchLimit)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	records = criteria.Apply(records)
	if auditLimit > 0 && len(records) > auditLimit {
		records = records[:auditLimit]
	}

	if auditJSON {
		return store.FormatJSONL(cmd.OutOrStdout(), records)
	}
	store.FormatTable(cmd.OutOrStdout(), records, cfg.Instance)
	return nil
}
