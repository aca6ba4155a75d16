package commands

import (
	"fmt"
	"strings"

	"github.com/mbyx/hilda/internal/bot"
	"github.com/mbyx/hilda/internal/config"
	"github.com/mbyx/hilda/internal/printer"
	"github.com/mbyx/hilda/internal/sheet"
	"github.com/spf13/cobra"
)

var (
	checkConfigPath string
	checkSheetPath  string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and template sheet",
	Long: `Validate the configuration file and the template sheet without
connecting to Discord.

Fails if any built-in command lacks an announcement template, since
those commands would run silently. A sheet without the message template
("@msg:") cannot repost messages and also fails the check.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkConfigPath, "config", "c", "hilda.yml", "Path to configuration file")
	checkCmd.Flags().StringVar(&checkSheetPath, "sheet", "", "Validate this sheet instead of the configured one")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(checkConfigPath)
	if err != nil {
		return printer.Error("configuration is invalid", err.Error(), nil)
	}
	printer.Success("configuration valid (instance %q, prefix %q)\n", cfg.Instance, cfg.Prefix)

	sheetPath := cfg.Sheet
	if checkSheetPath != "" {
		sheetPath = checkSheetPath
	}

	sh, err := sheet.Load(sheetPath)
	if err != nil {
		return printer.Error("template sheet is unreadable", err.Error(), nil)
	}
	printer.Success("sheet %s parsed (%d templates)\n", sheetPath, sh.Len())

	if _, err := sh.Get(bot.MessageTemplate); err != nil {
		return printer.Error(
			"sheet is missing the message template",
			"Reposted messages are formatted with the @msg: template; without it cp, mv, bobbin and save cannot run.",
			[]string{"Add an @msg: section to " + sheetPath},
		)
	}

	var missing []string
	for _, name := range bot.BuiltinCommands {
		if _, err := sh.Get(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return printer.Error(
			"sheet is missing command templates",
			fmt.Sprintf("Commands without a template run silently, with no audit announcement: %s", strings.Join(missing, ", ")),
			[]string{"Add the missing @name: sections to " + sheetPath},
		)
	}
	printer.Success("all %d commands have an announcement template\n", len(bot.BuiltinCommands))

	if cfg.Redis == nil {
		printer.Printf("audit records: disabled (no redis section)\n")
	} else {
		printer.Printf("audit records: %s (db %d)\n", cfg.Redis.Addr, cfg.Redis.DB)
	}
	return nil
}
