package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vdiff/internal/errors"
	"github.com/vango-dev/vdiff/pkg/memdom"
	"github.com/vango-dev/vdiff/pkg/protocol"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

type profile struct {
	Name       string
	ListSize   int
	Iterations int
}

var profiles = map[string]profile{
	"fast":     {Name: "fast", ListSize: 100, Iterations: 200},
	"standard": {Name: "standard", ListSize: 1000, Iterations: 500},
	"stress":   {Name: "stress", ListSize: 5000, Iterations: 1000},
}

type benchConfig struct {
	Profile    string
	ListSize   int
	Iterations int
	Seed       int64
	JSONOutput string
}

func benchCmd() *cobra.Command {
	cfg := benchConfig{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark diff and apply over synthetic keyed lists",
		Long: `Benchmark the differ and the patch applier. Every iteration applies one
random edit (swap, move, insert, remove, rename or shuffle) to a keyed
list, diffs the old and new trees and applies the patches to an in-memory
live tree.

Profiles:
  fast      100 items, 200 iterations
  standard  1000 items, 500 iterations
  stress    5000 items, 1000 iterations

Examples:
  vdiff bench
  vdiff bench --profile=stress
  vdiff bench --size=250 --iterations=50 --json=-`,
		Args: rangeArgs(0, 0),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := cfg.resolve()
			if err != nil {
				return err
			}
			report, err := runBench(resolved)
			if err != nil {
				return err
			}
			if resolved.JSONOutput != "" {
				return writeJSON(cmd.OutOrStdout(), resolved.JSONOutput, report)
			}
			writeSummary(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Profile, "profile", "fast", "Workload profile: fast, standard or stress")
	cmd.Flags().IntVar(&cfg.ListSize, "size", 0, "Override the list size")
	cmd.Flags().IntVar(&cfg.Iterations, "iterations", 0, "Override the iteration count")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", 1, "Random seed")
	cmd.Flags().StringVar(&cfg.JSONOutput, "json", "", "Write a JSON report to this path (- for stdout)")
	return cmd
}

func (c benchConfig) resolve() (benchConfig, error) {
	p, ok := profiles[c.Profile]
	if !ok {
		return c, errors.New("E401").WithDetail("unknown profile " + strconv.Quote(c.Profile))
	}
	if c.ListSize == 0 {
		c.ListSize = p.ListSize
	}
	if c.Iterations == 0 {
		c.Iterations = p.Iterations
	}
	if c.ListSize < 1 || c.Iterations < 1 {
		return c, errors.New("E401").WithDetail("--size and --iterations must be positive")
	}
	return c, nil
}

// workload mutates a keyed list one random edit at a time.
type workload struct {
	rng   *rand.Rand
	items []string
	next  int
	ops   map[string]int
}

func newWorkload(size int, seed int64) *workload {
	w := &workload{rng: rand.New(rand.NewSource(seed)), ops: make(map[string]int)}
	for w.next < size {
		w.items = append(w.items, w.key())
	}
	return w
}

func (w *workload) key() string {
	w.next++
	return "item-" + strconv.Itoa(w.next)
}

func (w *workload) view() vdom.VNode {
	kids := make([]vdom.KeyedChild, len(w.items))
	for i, item := range w.items {
		kids[i] = vdom.K(item, vdom.Li(vdom.Class("row"), vdom.Span(item)))
	}
	return vdom.Div(vdom.ID("bench"), vdom.KeyedUl(kids))
}

func (w *workload) mutate() {
	n := len(w.items)
	op := w.rng.Intn(6)
	if n < 2 {
		op = 2
	}
	switch op {
	case 0:
		i, j := w.rng.Intn(n), w.rng.Intn(n)
		w.items[i], w.items[j] = w.items[j], w.items[i]
		w.ops["swap"]++
	case 1:
		from, to := w.rng.Intn(n), w.rng.Intn(n-1)
		item := w.items[from]
		w.items = append(w.items[:from], w.items[from+1:]...)
		w.items = append(w.items[:to], append([]string{item}, w.items[to:]...)...)
		w.ops["move"]++
	case 2:
		at := w.rng.Intn(n + 1)
		w.items = append(w.items[:at], append([]string{w.key()}, w.items[at:]...)...)
		w.ops["insert"]++
	case 3:
		at := w.rng.Intn(n)
		w.items = append(w.items[:at], w.items[at+1:]...)
		w.ops["remove"]++
	case 4:
		w.items[w.rng.Intn(n)] = w.key()
		w.ops["rename"]++
	default:
		// Shuffle a short window; full shuffles are mostly redraws.
		lo := w.rng.Intn(n)
		hi := lo + 8
		if hi > n {
			hi = n
		}
		window := w.items[lo:hi]
		w.rng.Shuffle(len(window), func(i, j int) { window[i], window[j] = window[j], window[i] })
		w.ops["shuffle"]++
	}
}

func runBench(cfg benchConfig) (benchReport, error) {
	wl := newWorkload(cfg.ListSize, cfg.Seed)
	engine := vdom.NewEngine(memdom.NewDocument(), func(any, bool) {})

	tree := wl.view()
	renderStart := time.Now()
	root := engine.Render(tree)
	renderTime := time.Since(renderStart)

	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	diffs := make([]time.Duration, 0, cfg.Iterations)
	applies := make([]time.Duration, 0, cfg.Iterations)
	var patchCount, wireBytes int
	start := time.Now()
	for i := 0; i < cfg.Iterations; i++ {
		wl.mutate()
		next := wl.view()

		t0 := time.Now()
		patches := vdom.Diff(tree, next)
		t1 := time.Now()
		root = engine.Apply(root, tree, patches)
		t2 := time.Now()

		diffs = append(diffs, t1.Sub(t0))
		applies = append(applies, t2.Sub(t1))
		patchCount += len(patches)

		payload, err := protocol.EncodePatches(&protocol.PatchesFrame{Seq: uint64(i + 1), Patches: patches})
		if err != nil {
			return benchReport{}, errors.New("E202").Wrap(err)
		}
		wireBytes += len(payload)
		tree = next
	}
	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	if got := root.(*memdom.Node).ChildAt(0).ChildCount(); got != len(wl.items) {
		return benchReport{}, errors.New("E102").
			WithDetail(fmt.Sprintf("live list has %d items, expected %d", got, len(wl.items)))
	}

	return benchReport{
		Version: version,
		Workload: workloadInfo{
			Profile:    cfg.Profile,
			ListSize:   cfg.ListSize,
			Iterations: cfg.Iterations,
			Seed:       cfg.Seed,
			Edits:      wl.ops,
		},
		RenderMS: ms(renderTime),
		DiffMS:   latency(diffs),
		ApplyMS:  latency(applies),
		Throughput: throughputInfo{
			CyclesPerSec:   float64(cfg.Iterations) / elapsed.Seconds(),
			PatchesPerEdit: float64(patchCount) / float64(cfg.Iterations),
			WireBytes:      float64(wireBytes) / float64(cfg.Iterations),
		},
		GC: gcInfo{
			AllocMB: float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			NumGC:   after.NumGC - before.NumGC,
		},
	}, nil
}

type benchReport struct {
	Version    string         `json:"version"`
	Workload   workloadInfo   `json:"workload"`
	RenderMS   float64        `json:"render_ms"`
	DiffMS     latencyInfo    `json:"diff_ms"`
	ApplyMS    latencyInfo    `json:"apply_ms"`
	Throughput throughputInfo `json:"throughput"`
	GC         gcInfo         `json:"gc"`
}

type workloadInfo struct {
	Profile    string         `json:"profile"`
	ListSize   int            `json:"list_size"`
	Iterations int            `json:"iterations"`
	Seed       int64          `json:"seed"`
	Edits      map[string]int `json:"edits"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	CyclesPerSec   float64 `json:"cycles_per_sec"`
	PatchesPerEdit float64 `json:"patches_per_edit"`
	WireBytes      float64 `json:"wire_bytes_per_edit"`
}

type gcInfo struct {
	AllocMB float64 `json:"alloc_mb"`
	NumGC   uint32  `json:"num_gc"`
}

func latency(samples []time.Duration) latencyInfo {
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return latencyInfo{
		Min: ms(percentile(sorted, 0)),
		P50: ms(percentile(sorted, 0.50)),
		P95: ms(percentile(sorted, 0.95)),
		P99: ms(percentile(sorted, 0.99)),
		Max: ms(percentile(sorted, 1)),
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== vdiff benchmark ===")
	fmt.Fprintf(w, "Profile: %s\n", report.Workload.Profile)
	fmt.Fprintf(w, "List size: %d\n", report.Workload.ListSize)
	fmt.Fprintf(w, "Iterations: %d\n", report.Workload.Iterations)
	fmt.Fprintf(w, "Initial render: %.3f ms\n", report.RenderMS)
	fmt.Fprintln(w)

	for _, row := range []struct {
		name string
		l    latencyInfo
	}{{"diff", report.DiffMS}, {"apply", report.ApplyMS}} {
		fmt.Fprintf(w, "%s (ms): min %.3f  p50 %.3f  p95 %.3f  p99 %.3f  max %.3f\n",
			row.name, row.l.Min, row.l.P50, row.l.P95, row.l.P99, row.l.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Throughput: %.1f cycles/s\n", report.Throughput.CyclesPerSec)
	fmt.Fprintf(w, "Patches per edit: %.2f\n", report.Throughput.PatchesPerEdit)
	fmt.Fprintf(w, "Wire bytes per edit: %.1f\n", report.Throughput.WireBytes)
	fmt.Fprintf(w, "Allocated: %.2f MB in %d GCs\n", report.GC.AllocMB, report.GC.NumGC)
}

func writeJSON(stdout io.Writer, path string, report benchReport) error {
	out := stdout
	if path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
