package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"ferrite/internal/diag"
	"ferrite/internal/source"
)

// Severity colors are created with color forced on; PrettyOpts.Color decides
// whether they apply, independent of the global tty sniffing.
var (
	errColor  = newForced(color.FgRed, color.Bold)
	warnColor = newForced(color.FgYellow, color.Bold)
	infoColor = newForced(color.FgCyan, color.Bold)
	noteColor = newForced(color.FgBlue)
	spotColor = newForced(color.FgGreen, color.Bold)
)

func newForced(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	c.EnableColor()
	return c
}

func paint(c *color.Color, enabled bool, s string) string {
	if !enabled {
		return s
	}
	return c.Sprint(s)
}

func severityLabel(sev diag.Severity, colored bool) string {
	switch sev {
	case diag.SevError:
		return paint(errColor, colored, sev.String())
	case diag.SevWarning:
		return paint(warnColor, colored, sev.String())
	default:
		return paint(infoColor, colored, sev.String())
	}
}

// Pretty renders diagnostics for humans, one per paragraph:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//	    <source line>
//	    ^~~~
//	  note: <message>
//
// It walks bag.Items() as stored; callers sort the bag first.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		writeHeader(w, fs, d.Primary, severityLabel(d.Severity, opts.Color), d.Code.ID(), d.Message, opts)
		if opts.Context {
			writeContext(w, fs, d.Primary, opts)
		}
		if opts.ShowNotes {
			for _, n := range d.Notes {
				writeHeader(w, fs, n.Span, paint(noteColor, opts.Color, "note"), "", n.Msg, opts)
				if opts.Context {
					writeContext(w, fs, n.Span, opts)
				}
			}
		}
	}
}

func writeHeader(w io.Writer, fs *source.FileSet, sp source.Span, label, code, msg string, opts PrettyOpts) {
	path, lc := fs.Position(sp)
	loc := "<unknown>"
	if path != "" {
		loc = fmt.Sprintf("%s:%d:%d", formatPath(path, opts.PathMode), lc.Line, lc.Col)
	}
	if code != "" {
		fmt.Fprintf(w, "%s: %s %s: %s\n", loc, label, code, msg)
		return
	}
	fmt.Fprintf(w, "  %s: %s (%s)\n", label, msg, loc)
}

// writeContext prints the first line the span touches with a caret underline.
// The caret offset is measured in display cells so wide runes line up.
func writeContext(w io.Writer, fs *source.FileSet, sp source.Span, opts PrettyOpts) {
	f := fs.Get(sp.File)
	if f == nil || int(sp.Start) >= len(f.Content) {
		return
	}
	lc := f.LineColAt(sp.Start)
	line := f.Line(lc.Line)
	if line == nil {
		return
	}

	before := string(line[:min(int(lc.Col)-1, len(line))])
	pad := strings.Repeat(" ", runewidth.StringWidth(before))

	spanLen := int(sp.End - sp.Start)
	lineRest := len(line) - len(before)
	width := runewidth.StringWidth(string(line[len(before):min(len(before)+min(spanLen, lineRest), len(line))]))
	marker := "^"
	if width > 1 {
		marker += strings.Repeat("~", width-1)
	}

	fmt.Fprintf(w, "    %s\n", string(line))
	fmt.Fprintf(w, "    %s%s\n", pad, paint(spotColor, opts.Color, marker))
}
