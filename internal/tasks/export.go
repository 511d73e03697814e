package tasks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// RenderChecklist formats tasks as a markdown checklist in the given order.
func RenderChecklist(title string, tasks []Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if len(tasks) == 0 {
		b.WriteString("_No tasks._\n")
		return b.String()
	}
	for _, task := range tasks {
		mark := " "
		if task.Completed {
			mark = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s <!-- id:%d -->\n", mark, task.Title, task.ID)
	}
	return b.String()
}

// ExportChecklist writes the checklist to path, creating parent directories.
// It reports whether the file was newly created. Existing files are
// overwritten unless keepExisting is set.
func ExportChecklist(fs afero.Fs, path, title string, tasks []Task, keepExisting bool) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, fmt.Errorf("export path is required")
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return false, fmt.Errorf("create export dir: %w", err)
	}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return false, fmt.Errorf("stat export file: %w", err)
	}
	if exists && keepExisting {
		return false, nil
	}

	if err := afero.WriteFile(fs, path, []byte(RenderChecklist(title, tasks)), os.FileMode(0o600)); err != nil {
		return false, fmt.Errorf("write export file: %w", err)
	}
	return !exists, nil
}
