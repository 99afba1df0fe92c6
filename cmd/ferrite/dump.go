package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ferrite/internal/ast"
	"ferrite/internal/collect"
	"ferrite/internal/diag"
	"ferrite/internal/driver"
	"ferrite/internal/source"
	"ferrite/internal/types"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <snapshot.mp>",
	Short: "Resolve one unit and print every declaration's signature",
	Long: `Dump resolves a single unit snapshot and prints the type scheme, constraint
count, and enum discriminants of every top-level declaration. Useful for
inspecting what the resolver computed.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

type declDumpJSON struct {
	Kind       string            `json:"kind"`
	Name       string            `json:"name"`
	Type       string            `json:"type,omitempty"`
	Predicates int               `json:"predicates"`
	Variants   []variantDumpJSON `json:"variants,omitempty"`
}

type variantDumpJSON struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func runDump(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	snap, _, _, err := driver.ReadSnapshotFile(args[0])
	if err != nil {
		return err
	}

	bag := diag.NewBag(maxDiagnostics)
	in := types.NewInterner()
	c := collect.New(snap.Store, in, diag.BagReporter{Bag: bag})
	c.Unit()
	bag.Sort()

	dumps := buildDump(c, snap.Store, in)

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(dumps); err != nil {
			return err
		}
	} else {
		writeDumpPretty(out, snap.Unit, dumps)
	}

	if bag.HasErrors() {
		cmd.SilenceUsage = true
		return fmt.Errorf("unit %s resolved with %d error(s)", snap.Unit, bag.ErrorCount())
	}
	return nil
}

func buildDump(c *collect.Context, store *ast.Store, in *types.Interner) []declDumpJSON {
	opts := types.RenderOpts{
		Strings: store.Strings,
		DeclName: func(id ast.DeclID) string {
			if name := store.Name(id); name != source.NoStringID {
				return store.Strings.MustLookup(name)
			}
			return fmt.Sprintf("<%s>", store.Kind(id))
		},
	}

	var dumps []declDumpJSON
	for _, id := range store.TopLevel {
		d := declDumpJSON{
			Kind: store.Kind(id).String(),
			Name: opts.DeclName(id),
		}
		if scheme, ok := c.SchemeOf(id); ok {
			d.Type = in.Render(scheme.Ty, opts)
		}
		if preds, ok := c.Predicates(id); ok {
			d.Predicates = len(preds.All())
		}
		if store.Kind(id) == ast.DeclEnum {
			en := store.Enum(id)
			for _, vid := range en.Variants {
				if bits, ok := c.Discriminant(vid); ok {
					d.Variants = append(d.Variants, variantDumpJSON{
						Name:  opts.DeclName(vid),
						Value: en.Repr.Render(bits),
					})
				}
			}
		}
		dumps = append(dumps, d)
	}
	return dumps
}

func writeDumpPretty(w io.Writer, unit string, dumps []declDumpJSON) {
	fmt.Fprintf(w, "unit %s: %d top-level declaration(s)\n", unit, len(dumps))
	for _, d := range dumps {
		if d.Type != "" {
			fmt.Fprintf(w, "  %s %s: %s", d.Kind, d.Name, d.Type)
		} else {
			fmt.Fprintf(w, "  %s %s", d.Kind, d.Name)
		}
		if d.Predicates > 0 {
			fmt.Fprintf(w, "  [%d predicate(s)]", d.Predicates)
		}
		fmt.Fprintln(w)
		for _, v := range d.Variants {
			fmt.Fprintf(w, "    %s = %s\n", v.Name, v.Value)
		}
	}
}
