// Package output provides consistent CLI output formatting for search
// results and status messages.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/rankfuse/internal/fusion"
)

// Writer provides formatted output for the CLI.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer. Colors are enabled only when out is a terminal.
func New(out io.Writer) *Writer {
	useColor := false
	if f, ok := out.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Writer{out: out, styles: GetStyles(!useColor)}
}

// NewPlain creates a Writer with colors disabled.
func NewPlain(out io.Writer) *Writer {
	return &Writer{out: out, styles: NoColorStyles()}
}

// Success prints a success message.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Success(msg string) {
	_, _ = fmt.Fprintf(w.out, "%s\n", w.styles.Success.Render("✓ "+msg))
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	_, _ = fmt.Fprintf(w.out, "%s\n", w.styles.Warning.Render("! "+msg))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	_, _ = fmt.Fprintf(w.out, "%s\n", w.styles.Error.Render("✗ "+msg))
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Infof prints a plain formatted line.
func (w *Writer) Infof(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format+"\n", args...)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Results renders fused search results as a human-readable list:
// rank, path:line, match type, score, then a trimmed content snippet.
func (w *Writer) Results(query string, results []fusion.SearchResult) {
	if len(results) == 0 {
		_, _ = fmt.Fprintf(w.out, "No results for %q\n", query)
		return
	}

	_, _ = fmt.Fprintf(w.out, "%s\n\n",
		w.styles.Header.Render(fmt.Sprintf("%d results for %q", len(results), query)))

	for i, r := range results {
		location := r.FilePath
		if r.LineNumber > 0 {
			location = fmt.Sprintf("%s:%d", r.FilePath, r.LineNumber)
		}
		_, _ = fmt.Fprintf(w.out, "%2d. %s  %s %s\n",
			i+1,
			w.styles.Path.Render(location),
			w.styles.Type.Render("["+string(r.MatchType)+"]"),
			w.styles.Score.Render(fmt.Sprintf("score=%.4f", r.Score)))

		if snippet := firstLine(r.Content); snippet != "" {
			_, _ = fmt.Fprintf(w.out, "    %s\n", w.styles.Dim.Render(snippet))
		}
	}
}

// ResultsJSON renders results as indented JSON for machine consumption.
func (w *Writer) ResultsJSON(results []fusion.SearchResult) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// firstLine returns the first non-empty line of content, trimmed and capped.
func firstLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 120 {
			line = line[:120] + "…"
		}
		return line
	}
	return ""
}
