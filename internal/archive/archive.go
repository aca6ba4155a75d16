// Package archive writes channel backups to local files for the save
// command. Backups only make sense when hilda runs on a machine the
// invoking user can reach, so the bot gates the command behind its
// running-locally setting.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mbyx/hilda/internal/sheet"
)

// backupNameTemplate names backup files; it renders through the same
// placeholder substitution sheet templates use.
const backupNameTemplate = "Backup of {guild}@{channel} at {date}"

// DateLayout is the timestamp format used in backup names and in the
// {date} placeholder of formatted messages.
const DateLayout = "2006-01-02 15:04:05"

// BackupName returns the file name for a backup of guild@channel taken at
// the given time.
func BackupName(guild, channel string, at time.Time) string {
	return sheet.Render(backupNameTemplate, sheet.Values{
		"guild":   guild,
		"channel": channel,
		"date":    at.Format(DateLayout),
	})
}

// Write stores formatted message entries in dir under name, each entry
// followed by a blank line. Returns the full path of the written file.
func Write(dir, name string, entries []string) (string, error) {
	var b strings.Builder
	for _, entry := range entries {
		b.WriteString(entry)
		b.WriteString("\n\n")
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}
	return path, nil
}
