package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ferrite/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "ferrite",
	Short: "Ferrite front-end signature resolver",
	Long:  `Ferrite resolves the type signatures and constraint sets of pre-parsed compilation units`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show per unit")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves the tri-state --color flag against the output's tty-ness.
func useColor(mode string, out *os.File) bool {
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(out)
	}
}
