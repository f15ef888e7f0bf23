// Package format holds small output and filesystem helpers shared across
// commands.
package format

import (
	"os"
	"strings"
)

// FileUserReadWrite is the permission set for files imageleek creates.
const FileUserReadWrite = 0o600

// WriteLines writes the given lines to path as UTF-8 text, one per line,
// with a trailing newline.
func WriteLines(path string, lines []string) error {
	data := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(path, []byte(data), FileUserReadWrite)
}
