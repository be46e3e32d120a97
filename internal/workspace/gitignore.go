package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	sentinelStart = "# abuild:start"
	sentinelEnd   = "# abuild:end"
)

// UpdateGitignore writes (or refreshes) the abuild section of
// <dir>/.gitignore, leaving the rest of the file alone.
func UpdateGitignore(dir, outputDir string) error {
	path := filepath.Join(dir, ".gitignore")
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	updated := applySection(string(existing), generateSection(outputDir))
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// RemoveGitignoreSection deletes the abuild section, and the file if
// nothing else is left in it.
func RemoveGitignoreSection(dir string) error {
	path := filepath.Join(dir, ".gitignore")
	existing, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	rest := removeSection(string(existing))
	if strings.TrimSpace(rest) == "" {
		return os.Remove(path)
	}
	return os.WriteFile(path, []byte(rest), 0o644)
}

// generateSection returns the sentinel-wrapped ignore block.
func generateSection(outputDir string) string {
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	lines := []string{
		sentinelStart,
		"# build outputs and undo history, managed by abuild",
		"/" + strings.Trim(filepath.ToSlash(outputDir), "/") + "/",
		"/" + StateDirName + "/",
		sentinelEnd,
	}
	return strings.Join(lines, "\n")
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if len(content) > 0 {
		content += "\n"
	}
	return content + section + "\n"
}

func removeSection(content string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)
	if start < 0 || end < start {
		return content
	}
	before := strings.TrimRight(content[:start], "\n")
	after := strings.TrimLeft(content[end+len(sentinelEnd):], "\n")
	switch {
	case before == "":
		return after
	case after == "":
		return before + "\n"
	}
	return before + "\n\n" + after
}
