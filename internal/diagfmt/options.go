package diagfmt

import "path/filepath"

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto keeps the path the way the file set recorded it.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	ShowNotes bool
	// Context prints the offending source line with a caret underline.
	Context bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // add line/col alongside byte offsets
	PathMode         PathMode
	Max              int // output truncation; the bag itself is untouched
	IncludeNotes     bool
}

func formatPath(path string, mode PathMode) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	case PathModeBasename:
		return filepath.Base(path)
	default:
		return path
	}
}
