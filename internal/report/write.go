package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/retention-cli/internal/audit"
	"github.com/KaramelBytes/retention-cli/internal/utils"
)

// Supported output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatXLSX     = "xlsx"
)

// File names written into the reports directory.
const (
	MarkdownFile = "insights_summary.md"
	JSONFile     = "audit_report.json"
	XLSXFile     = "audit_report.xlsx"
)

// DefaultFormats are rendered when none are configured.
var DefaultFormats = []string{FormatMarkdown, FormatJSON}

// Write renders r in each format into dir and returns the written paths.
func Write(r *audit.Report, dir string, formats []string) ([]string, error) {
	if r == nil {
		return nil, fmt.Errorf("no audit report to render")
	}
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure reports dir: %w", err)
	}
	var paths []string
	for _, format := range formats {
		var (
			name string
			data []byte
			err  error
		)
		switch strings.ToLower(strings.TrimSpace(format)) {
		case FormatMarkdown, "md":
			name, data = MarkdownFile, []byte(Markdown(r))
		case FormatJSON:
			name = JSONFile
			data, err = JSON(r)
		case FormatXLSX:
			name = XLSXFile
			data, err = XLSX(r)
		default:
			return paths, fmt.Errorf("unsupported report format: %s", format)
		}
		if err != nil {
			return paths, fmt.Errorf("render %s: %w", format, err)
		}
		path := filepath.Join(dir, name)
		if err := utils.SafeWriteFile(path, data); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
