package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vdiff/internal/errors"
	"github.com/vango-dev/vdiff/internal/fixture"
	"github.com/vango-dev/vdiff/pkg/memdom"
	"github.com/vango-dev/vdiff/pkg/protocol"
	"github.com/vango-dev/vdiff/pkg/render"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

func diffCmd(flags *globalFlags) *cobra.Command {
	var (
		showHTML bool
		wire     bool
	)

	cmd := &cobra.Command{
		Use:   "diff <old.yaml> <new.yaml> | diff <steps.yaml>",
		Short: "Diff tree fixtures and apply the patches",
		Long: `Diff two YAML tree fixtures, or every consecutive pair of documents in
a single multi-document fixture. The patches are printed and applied to an
in-memory live tree rendered from the old tree; the result must serialize
to the same HTML as the new tree.

Examples:
  vdiff diff old.yaml new.yaml
  vdiff diff steps.yaml --html
  vdiff diff old.yaml new.yaml --wire`,
		Args: rangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			logger := flags.logger(cmd, cfg)

			trees, err := loadSteps(args)
			if err != nil {
				return err
			}
			if len(trees) < 2 {
				return errors.New("E401").
					WithDetail(fmt.Sprintf("%s holds %d tree(s); diffing needs at least two", args[0], len(trees)))
			}

			w := cmd.OutOrStdout()
			engine := vdom.NewEngine(memdom.NewDocument(), func(any, bool) {}, vdom.WithLogger(logger))
			root := engine.Render(trees[0])
			for i := 1; i < len(trees); i++ {
				old, next := trees[i-1], trees[i]
				patches := vdom.Diff(old, next)

				fmt.Fprintf(w, "step %d: %d patch(es)\n", i, len(patches))
				writePatches(w, patches, 1)
				if wire {
					payload, err := protocol.EncodePatches(&protocol.PatchesFrame{Seq: uint64(i), Patches: patches}, protocol.DropHandlers())
					if err != nil {
						warn(w, "not encodable: %v", err)
					} else {
						info(w, "wire: %d bytes", len(payload))
					}
				}

				root = engine.Apply(root, old, patches)
				got := root.(*memdom.Node).OuterHTML()
				want, err := render.HTML(next)
				if err != nil {
					return err
				}
				if got != want {
					return errors.New("E001").
						WithDetail(fmt.Sprintf("step %d: applied tree\n  %s\ndiffers from\n  %s", i, got, want))
				}
				if showHTML {
					info(w, "%s", got)
				}
			}
			success(w, "%d step(s) applied", len(trees)-1)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showHTML, "html", false, "Print the live tree HTML after every step")
	cmd.Flags().BoolVar(&wire, "wire", false, "Print the encoded size of every patch list")
	return cmd
}

// rangeArgs is cobra.RangeArgs with a coded error.
func rangeArgs(min, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < min || len(args) > max {
			return errors.New("E401").
				WithDetail(fmt.Sprintf("%s accepts between %d and %d arguments, got %d", cmd.Name(), min, max, len(args))).
				WithSuggestion("Usage: vdiff " + cmd.Use)
		}
		return nil
	}
}

// loadSteps reads two single-tree fixtures, or all documents of one file.
func loadSteps(args []string) ([]vdom.VNode, error) {
	if len(args) == 1 {
		return fixture.LoadAll(args[0])
	}
	trees := make([]vdom.VNode, 0, len(args))
	for _, path := range args {
		tree, err := fixture.Load(path)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	return trees, nil
}

// writePatches prints one line per patch, nested patches indented.
func writePatches(w io.Writer, patches []vdom.Patch, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, p := range patches {
		fmt.Fprintf(w, "%s@%d %s%s\n", indent, p.Index, p.Op.Code(), describeOp(p.Op))
		switch op := p.Op.(type) {
		case *vdom.RedrawNested:
			writePatches(w, op.Patches, depth+1)
		case *vdom.KeyedReorder:
			writePatches(w, op.Patches, depth+1)
		case *vdom.KeyedRemove:
			writePatches(w, op.Patches, depth+1)
		}
	}
}

func describeOp(op vdom.Op) string {
	switch op := op.(type) {
	case *vdom.Redraw:
		html, err := render.HTML(op.Node)
		if err != nil {
			return " " + op.Node.Kind().String()
		}
		return " " + html
	case *vdom.UpdateText:
		return fmt.Sprintf(" %q", op.Text)
	case *vdom.UpdateFacts:
		return " " + describeFacts(op.Diff)
	case *vdom.AppendChildren:
		return fmt.Sprintf(" from=%d count=%d", op.From, len(op.Children))
	case *vdom.RemoveChildren:
		return fmt.Sprintf(" from=%d count=%d", op.From, op.Count)
	case *vdom.RemapTagger:
		return fmt.Sprintf(" taggers=%d", len(op.Taggers))
	case *vdom.KeyedReorder:
		var parts []string
		for _, ins := range op.Inserts {
			parts = append(parts, fmt.Sprintf("%s→%d", ins.Entry.Key, ins.Position))
		}
		for _, ins := range op.EndInserts {
			parts = append(parts, ins.Entry.Key+"→end")
		}
		if len(parts) == 0 {
			return ""
		}
		return " inserts=[" + strings.Join(parts, " ") + "]"
	case *vdom.KeyedRemove:
		if op.Entry.State == vdom.EntryMoved {
			return " move " + op.Entry.Key
		}
		return " " + op.Entry.Key
	}
	return ""
}

func describeFacts(d vdom.FactsDiff) string {
	var parts []string
	add := func(kind string, keys []string) {
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, kind+":"+k)
		}
	}
	add("style", changedKeys(d.Styles))
	add("event", changedKeys(d.Events))
	add("attr", changedKeys(d.Attributes))
	add("attrNS", changedKeys(d.AttributesNS))
	add("prop", changedKeys(d.Properties))
	return strings.Join(parts, " ")
}

func changedKeys[T any](m map[string]vdom.Change[T]) []string {
	keys := make([]string, 0, len(m))
	for k, c := range m {
		if c.Remove {
			k = "-" + k
		}
		keys = append(keys, k)
	}
	return keys
}
