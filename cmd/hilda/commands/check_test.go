package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullSheet = `@msg:
**{author}**: {content}

@bobbin:
{author} wound {amt} messages onto a thread

@pin:
{author} pinned {amt} messages

@cp:
{author} copied {amt} messages to {new_channel}

@mv:
{author} moved {amt} messages to {new_channel}

@save:
{author} saved a backup of {channel}

@rm:
{author} removed {amt} messages by {members}
`

func writeCheckFixture(t *testing.T, sheetContent string) (configPath, sheetPath string) {
	t.Helper()
	dir := t.TempDir()

	sheetPath = filepath.Join(dir, "sheet.md")
	require.NoError(t, os.WriteFile(sheetPath, []byte(sheetContent), 0644))

	configPath = filepath.Join(dir, "hilda.yml")
	config := fmt.Sprintf("version: \"1.0\"\ninstance: hilda-test\nsheet: %s\n", sheetPath)
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0644))
	return configPath, sheetPath
}

// runCheckCmd drives runCheck through the package-level flag state.
func runCheckCmd(t *testing.T, configPath, sheetPath string) error {
	t.Helper()
	checkConfigPath = configPath
	checkSheetPath = sheetPath
	t.Cleanup(func() {
		checkConfigPath = "hilda.yml"
		checkSheetPath = ""
	})
	return runCheck(checkCmd, nil)
}

func TestCheck_ValidConfigAndSheet(t *testing.T) {
	configPath, _ := writeCheckFixture(t, fullSheet)

	err := runCheckCmd(t, configPath, "")
	assert.NoError(t, err)
}

func TestCheck_MissingCommandTemplates(t *testing.T) {
	configPath, _ := writeCheckFixture(t, testSheet)

	err := runCheckCmd(t, configPath, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing command templates")
}

func TestCheck_MissingConfig(t *testing.T) {
	err := runCheckCmd(t, "/nonexistent/hilda.yml", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is invalid")
}

func TestCheck_MissingMessageTemplate(t *testing.T) {
	configPath, _ := writeCheckFixture(t, "@mv:\nmoved stuff\n")

	err := runCheckCmd(t, configPath, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing the message template")
}

func TestCheck_SheetFlagOverridesConfig(t *testing.T) {
	configPath, _ := writeCheckFixture(t, "@mv:\nmoved stuff\n")

	// The configured sheet has no @msg: section; the override does.
	override := writeSheet(t, fullSheet)
	err := runCheckCmd(t, configPath, override)
	assert.NoError(t, err)
}

func TestCheck_UnreadableSheet(t *testing.T) {
	configPath, sheetPath := writeCheckFixture(t, fullSheet)
	require.NoError(t, os.Remove(sheetPath))

	err := runCheckCmd(t, configPath, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template sheet is unreadable")
}
