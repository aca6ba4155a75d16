package commands

import (
	"fmt"
	"strings"

	"github.com/mbyx/hilda/internal/printer"
	"github.com/mbyx/hilda/internal/sheet"
	"github.com/spf13/cobra"
)

var (
	renderSheetPath string
	renderSets      []string
)

var renderCmd = &cobra.Command{
	Use:   "render TEMPLATE",
	Short: "Preview a template offline",
	Long: `Render a single template from the sheet with placeholder values
supplied on the command line, without connecting to anything.

Examples:
  # Preview the mv announcement
  hilda render mv --set author=amy --set amt=3 --set channel=general

  # Preview against a sheet that is not yet deployed
  hilda render rm --sheet drafts/sheet.md --set members=everyone`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderSheetPath, "sheet", "sheet.md", "Path to the template sheet")
	renderCmd.Flags().StringArrayVar(&renderSets, "set", nil, "Placeholder value as key=value (repeatable)")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	sh, err := sheet.Load(renderSheetPath)
	if err != nil {
		return printer.Error("failed to load sheet", err.Error(), nil)
	}

	body, err := sh.Get(args[0])
	if err != nil {
		return printer.Error(
			fmt.Sprintf("no template named %q", args[0]),
			fmt.Sprintf("The sheet defines: %s", strings.Join(sh.Names(), ", ")),
			nil,
		)
	}

	values := sheet.Values{}
	for _, set := range renderSets {
		key, value, found := strings.Cut(set, "=")
		if !found {
			return printer.Error(
				"invalid --set value",
				fmt.Sprintf("%q is not of the form key=value", set),
				nil,
			)
		}
		values[key] = value
	}

	fmt.Fprintln(cmd.OutOrStdout(), sheet.Render(body, values))
	return nil
}
