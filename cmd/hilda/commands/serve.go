package commands

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/mbyx/hilda/internal/audit"
	"github.com/mbyx/hilda/internal/bot"
	"github.com/mbyx/hilda/internal/config"
	"github.com/mbyx/hilda/internal/platform"
	"github.com/mbyx/hilda/internal/platform/discord"
	"github.com/mbyx/hilda/internal/printer"
	"github.com/mbyx/hilda/internal/sheet"
	"github.com/mbyx/hilda/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot against Discord",
	Long: `Connect to the Discord gateway and serve chat commands until
interrupted.

The bot token is read from the environment variable named by token_env
in the configuration file (default HILDA_BOT_TOKEN). The template sheet
is loaded once at startup; a missing or unreadable sheet is fatal.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "hilda.yml", "Path to configuration file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return printer.Error(
			"failed to load configuration",
			err.Error(),
			[]string{fmt.Sprintf("Check that %s exists and is valid YAML", serveConfigPath)},
		)
	}

	sh, err := sheet.Load(cfg.Sheet)
	if err != nil {
		return printer.Error(
			"failed to load template sheet",
			err.Error(),
			[]string{fmt.Sprintf("Check the sheet path in %s (currently %q)", serveConfigPath, cfg.Sheet)},
		)
	}

	token, err := cfg.Token()
	if err != nil {
		return printer.Error(
			"bot token missing",
			err.Error(),
			[]string{fmt.Sprintf("export %s=<token> before running serve", cfg.TokenEnv)},
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var auditStore *store.Client
	if cfg.Redis != nil {
		auditStore, err = store.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Instance)
		if err != nil {
			return fmt.Errorf("failed to create audit store: %w", err)
		}
		defer auditStore.Close()

		if err := auditStore.Ping(ctx); err != nil {
			return printer.Error(
				"cannot reach Redis",
				err.Error(),
				[]string{fmt.Sprintf("Check redis.addr in %s (currently %q)", serveConfigPath, cfg.Redis.Addr)},
			)
		}
		log.Printf("[Serve] audit store connected (instance %q)", cfg.Instance)
	} else {
		printer.Warning("no redis configured, audit records are disabled\n")
	}

	client := discord.New(token)
	writer := audit.NewWriter(sh, client, client, auditStore, cfg.AuditChannel)

	b := bot.New(bot.Options{
		Prefix:         cfg.Prefix,
		Sheet:          sh,
		Messenger:      client,
		Directory:      client,
		Audit:          writer,
		RunningLocally: cfg.RunningLocally,
		BackupDir:      cfg.BackupDir,
	})

	gateway := discord.NewGateway(client, func(msg *platform.Message) {
		b.HandleMessage(ctx, msg)
	})

	log.Printf("[Serve] connecting to Discord (prefix %q, %d templates loaded)", cfg.Prefix, sh.Len())
	if err := gateway.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("gateway session ended: %w", err)
	}
	log.Printf("[Serve] shutting down")
	return nil
}
