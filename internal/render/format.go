package render

import (
	"path"
	"regexp"
	"strings"

	"mvdan.cc/gofumpt/format"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// format normalises generated code by file type. Failures are logged and
// the input is returned unchanged; a malformed artifact is still written so
// it can be inspected.
func (r *Renderer) format(filePath, code string) string {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".go":
		formatted, err := format.Source([]byte(code), format.Options{})
		if err != nil {
			r.logger.Warn("gofumpt failed", "file", filePath, "error", err)
			return code
		}
		return string(formatted)
	case ".ts", ".tsx":
		code = NormalizeWhitespace(code)
		diags, err := Lint(filePath, []byte(code))
		if err != nil {
			r.logger.Warn("lint failed", "file", filePath, "error", err)
		}
		for _, d := range diags {
			r.logger.Warn("generated code", "file", filePath, "diagnostic", d.String())
		}
		return code
	}
	return code
}

// NormalizeWhitespace strips trailing spaces, collapses runs of blank
// lines and ends the text with exactly one newline.
func NormalizeWhitespace(code string) string {
	lines := strings.Split(code, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	code = strings.Join(lines, "\n")
	code = blankRuns.ReplaceAllString(code, "\n\n")
	return strings.TrimSpace(code) + "\n"
}
