// Package toon implements TOON (Token-Oriented Object Notation) encoding
// of build plans and reports.
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/abuild/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// EncodePlan converts a build plan into TOON format.
func EncodePlan(p *model.Plan) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("project: %s", encodeValue(p.Project)))
	parts = append(parts, fmt.Sprintf("profile: %s", encodeValue(p.Profile)))

	var unitRows [][]string
	for i := range p.Units {
		u := &p.Units[i]
		unitRows = append(unitRows, []string{
			u.Path,
			u.Type,
			u.Compiler,
			u.Output,
			strings.Join(u.Args, " "),
		})
	}
	parts = append(parts, formatTabular("units", []string{"path", "type", "compiler", "output", "args"}, unitRows))

	var binRows [][]string
	for i := range p.Binaries {
		b := &p.Binaries[i]
		binRows = append(binRows, []string{
			b.Name,
			b.Entry,
			b.Compiler,
			b.Output,
			strings.Join(b.Args, " "),
		})
	}
	parts = append(parts, formatTabular("binaries", []string{"name", "entry", "compiler", "output", "args"}, binRows))

	if len(p.Skipped) > 0 {
		var skipRows [][]string
		for _, path := range p.Skipped {
			skipRows = append(skipRows, []string{path})
		}
		parts = append(parts, formatTabular("skipped", []string{"path"}, skipRows))
	}

	return strings.Join(parts, "\n")
}

// EncodeReport converts a build report into TOON format. Durations are
// rendered in milliseconds.
func EncodeReport(r *model.Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("project: %s", encodeValue(r.Project)))
	parts = append(parts, fmt.Sprintf("profile: %s", encodeValue(r.Profile)))

	var rows [][]string
	for i := range r.Steps {
		s := &r.Steps[i]
		rows = append(rows, []string{
			s.Key,
			s.Output,
			string(s.Status),
			fmt.Sprintf("%d", s.Duration.Milliseconds()),
		})
	}
	parts = append(parts, formatTabular("steps", []string{"key", "output", "status", "ms"}, rows))

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
