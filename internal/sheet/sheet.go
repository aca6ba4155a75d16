// Package sheet loads hilda's formatting sheet and renders its templates.
//
// A sheet is a plain text file of named message templates:
//
//	@commandName:
//	Formatting, in Markdown.
//	Multiline!
//
//	@nextCommand:
//	Hello, {author}!
//
// A header is any line whose trimmed form starts with '@' and ends with ':'.
// Every other line belongs to the most recent header. Anything inside {} is
// a placeholder filled in at render time (see Render).
//
// The sheet is loaded once at startup and never reloaded. Consumers receive
// it by explicit injection; there is no package-level instance.
package sheet

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Sheet is an immutable mapping from template name to template body.
// Safe for unsynchronized concurrent reads.
type Sheet struct {
	entries map[string]string
}

// Load reads and parses a sheet from a file. A missing or unreadable file
// is a startup precondition failure for the bot.
func Load(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheet %s: %w", path, err)
	}
	return s, nil
}

// Parse reads the sectioned sheet format.
//
// Lines before the first header accumulate under the empty name, which no
// command can ever look up. A malformed header (say "@foo" without the
// trailing colon) is not an error: it simply isn't recognized as a header
// and becomes body text of the current section. Re-declaring a header
// re-opens its section and appends to the existing body.
func Parse(r io.Reader) (*Sheet, error) {
	entries := make(map[string]string)
	name := ""

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "@") && strings.HasSuffix(line, ":") {
			name = line[1 : len(line)-1]
			// Lookups on a header-only section must still succeed.
			if _, ok := entries[name]; !ok {
				entries[name] = ""
			}
			continue
		}
		entries[name] += line + "\n"
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sheet: %w", err)
	}

	for k, v := range entries {
		entries[k] = strings.TrimSpace(v)
	}

	return &Sheet{entries: entries}, nil
}

// ParseString parses a sheet held in memory. Parsing a string cannot fail.
func ParseString(s string) *Sheet {
	parsed, _ := Parse(strings.NewReader(s))
	return parsed
}

// Get returns the template body for name. Exact match only; there is no
// case-insensitive or partial-name fallback. An empty body is legal and
// distinct from the name being absent.
func (s *Sheet) Get(name string) (string, error) {
	body, ok := s.entries[name]
	if !ok {
		return "", &TemplateNotFoundError{Name: name}
	}
	return body, nil
}

// Names returns the defined template names in sorted order. The empty name
// collecting pre-header text is excluded.
func (s *Sheet) Names() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of named templates, excluding the empty name.
func (s *Sheet) Len() int {
	return len(s.Names())
}

// TemplateNotFoundError indicates a template name has no sheet entry.
// Callers writing audit messages treat this as "no format text available"
// and skip the message rather than fail the command.
type TemplateNotFoundError struct {
	Name string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("no template named %q in sheet", e.Name)
}

// IsTemplateNotFound checks if an error is a TemplateNotFoundError.
func IsTemplateNotFound(err error) bool {
	var notFound *TemplateNotFoundError
	return errors.As(err, &notFound)
}
