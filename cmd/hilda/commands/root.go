package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hilda",
	Short: "Hilda - Template-driven chat housekeeping bot",
	Long: `Hilda is a chat bot for channel housekeeping: copying, moving,
pinning, archiving and pruning messages, with every action announced
through operator-editable templates from a sheet file.

Channel targets accept a composite "Server@channel" form so commands
can reach across servers the bot is a member of.`,
	Version: version,

	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
