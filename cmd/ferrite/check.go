package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ferrite/internal/diagfmt"
	"ferrite/internal/driver"
	"ferrite/internal/project"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [snapshot.mp ...]",
	Short: "Resolve signatures for every unit and report diagnostics",
	Long: `Check loads unit snapshots, resolves the type signature and constraint set of
every declaration, and reports diagnostics. Without arguments it reads the
units from the nearest ferrite.toml.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	checkCmd.Flags().Int("jobs", 0, "max parallel workers across units (0=auto)")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("context", false, "show source lines under each diagnostic")
	checkCmd.Flags().Bool("disk-cache", false, "reuse cached results for unchanged snapshots")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	switch format {
	case "pretty", "json":
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	showContext, err := cmd.Flags().GetBool("context")
	if err != nil {
		return fmt.Errorf("failed to get context flag: %w", err)
	}
	useDiskCache, err := cmd.Flags().GetBool("disk-cache")
	if err != nil {
		return fmt.Errorf("failed to get disk-cache flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	colorMode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	units, opts, err := resolveCheckInputs(args, jobs, maxDiagnostics, useDiskCache)
	if err != nil {
		return err
	}

	results, err := driver.CheckUnits(cmd.Context(), units, opts)
	if err != nil {
		return err
	}

	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	errorCount := 0
	switch format {
	case "json":
		if err := writeCheckJSON(cmd, results, pathMode, withNotes); err != nil {
			return err
		}
		for _, r := range results {
			errorCount += r.Bag.ErrorCount()
		}
	default:
		prettyOpts := diagfmt.PrettyOpts{
			Color:     useColor(colorMode, os.Stderr),
			PathMode:  pathMode,
			ShowNotes: withNotes,
			Context:   showContext,
		}
		for _, r := range results {
			diagfmt.Pretty(os.Stderr, r.Bag, r.Files, prettyOpts)
			errorCount += r.Bag.ErrorCount()
			if !quiet {
				summarizeUnit(cmd, r)
			}
		}
	}

	if errorCount > 0 {
		cmd.SilenceUsage = true
		return fmt.Errorf("check failed with %d error(s)", errorCount)
	}
	return nil
}

// resolveCheckInputs maps explicit snapshot paths or the manifest to units.
func resolveCheckInputs(args []string, jobs, maxDiagnostics int, useDiskCache bool) ([]driver.UnitInput, driver.CheckOptions, error) {
	opts := driver.CheckOptions{Jobs: jobs, MaxDiagnostics: maxDiagnostics}

	var units []driver.UnitInput
	if len(args) > 0 {
		for _, path := range args {
			name := strings.TrimSuffix(strings.TrimSuffix(path, ".mp"), ".snapshot")
			units = append(units, driver.UnitInput{Name: name, Path: path})
		}
	} else {
		m, ok, err := project.LoadManifest(".")
		if err != nil {
			return nil, opts, err
		}
		if !ok {
			return nil, opts, fmt.Errorf("no %s found\nplease pass unit snapshots explicitly, e.g.:\n  ferrite check build/core.mp", project.ManifestName)
		}
		units = driver.UnitsFromManifest(m)
		if opts.Jobs == 0 {
			opts.Jobs = m.Config.Check.Jobs
		}
		if m.Config.Check.MaxDiagnostics > 0 {
			opts.MaxDiagnostics = m.Config.Check.MaxDiagnostics
		}
	}

	if useDiskCache {
		cache, err := driver.OpenDiskCache("ferrite")
		if err != nil {
			return nil, opts, fmt.Errorf("failed to open disk cache: %w", err)
		}
		opts.Cache = cache
	}
	return units, opts, nil
}

func summarizeUnit(cmd *cobra.Command, r driver.UnitResult) {
	status := "ok"
	if r.Bag.HasErrors() {
		status = "FAILED"
	}
	suffix := ""
	if r.Cached {
		suffix = " (cached)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "unit %s: %s, %d scheme(s), %d diagnostic(s)%s\n",
		r.Name, status, r.Schemes, r.Bag.Len(), suffix)
}

type unitReportJSON struct {
	Unit        string                    `json:"unit"`
	Cached      bool                      `json:"cached"`
	Schemes     int                       `json:"schemes"`
	Diagnostics diagfmt.DiagnosticsOutput `json:"diagnostics"`
}

func writeCheckJSON(cmd *cobra.Command, results []driver.UnitResult, pathMode diagfmt.PathMode, withNotes bool) error {
	jsonOpts := diagfmt.JSONOpts{
		IncludePositions: true,
		PathMode:         pathMode,
		IncludeNotes:     withNotes,
	}
	reports := make([]unitReportJSON, 0, len(results))
	for _, r := range results {
		reports = append(reports, unitReportJSON{
			Unit:        r.Name,
			Cached:      r.Cached,
			Schemes:     r.Schemes,
			Diagnostics: diagfmt.BuildDiagnosticsOutput(r.Bag, r.Files, jsonOpts),
		})
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}
