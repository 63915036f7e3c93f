package journal

import (
	"fmt"

	vderrors "github.com/vango-dev/vdiff/internal/errors"
	"github.com/vango-dev/vdiff/pkg/memdom"
	"github.com/vango-dev/vdiff/pkg/protocol"
	"github.com/vango-dev/vdiff/pkg/render"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

// Divergence describes a replayed cycle whose result did not match the
// recorded tree.
type Divergence struct {
	Key  uint64
	Seq  uint64
	Want string
	Got  string
	// Err is set when applying the patches failed outright.
	Err error
}

// Report summarizes a replay.
type Report struct {
	// Runs counts initial draws, each of which starts a fresh live tree.
	Runs        int
	Cycles      int
	Patches     int
	Divergences []Divergence
}

// OK reports whether every cycle reproduced its recorded tree.
func (r *Report) OK() bool { return len(r.Divergences) == 0 }

// Replay rebuilds the recorded cycles on an in-memory DOM. Each initial
// draw is rendered from its stored tree; every later cycle applies its
// stored patches to the live tree built so far, diffing against the
// previous stored tree, and the result is compared with the HTML of the
// cycle's own tree.
//
// A divergent cycle is reported and the live tree is rebuilt from the
// recorded tree, so one failure does not cascade into the following
// cycles. Corrupt records abort the replay.
func Replay(j *Journal) (*Report, error) {
	rp := &replayer{
		engine: vdom.NewEngine(memdom.NewDocument(), func(any, bool) {}),
		report: &Report{},
	}
	if err := j.Iterate(0, 0, rp.step); err != nil {
		return rp.report, err
	}
	return rp.report, nil
}

type replayer struct {
	engine *vdom.Engine
	report *Report
	tree   vdom.VNode
	root   vdom.Node
}

func (rp *replayer) step(e Entry) error {
	tree, err := protocol.DecodeVNode(e.Tree)
	if err != nil {
		return vderrors.New("E211").Wrap(fmt.Errorf("entry %d tree: %w", e.Key, err))
	}
	want, err := render.HTML(tree)
	if err != nil {
		return vderrors.New("E211").Wrap(fmt.Errorf("entry %d tree: %w", e.Key, err))
	}

	if e.Seq == 0 || rp.root == nil {
		rp.report.Runs++
		rp.mount(tree)
		return nil
	}

	pf, err := protocol.DecodePatches(e.Patches)
	if err != nil {
		return vderrors.New("E211").Wrap(fmt.Errorf("entry %d patches: %w", e.Key, err))
	}
	rp.report.Cycles++
	rp.report.Patches += len(pf.Patches)

	root, err := rp.apply(pf.Patches)
	if err != nil {
		rp.diverged(Divergence{Key: e.Key, Seq: e.Seq, Want: want, Err: err}, tree)
		return nil
	}
	got := root.(*memdom.Node).OuterHTML()
	if got != want {
		rp.diverged(Divergence{Key: e.Key, Seq: e.Seq, Want: want, Got: got}, tree)
		return nil
	}
	rp.tree, rp.root = tree, root
	return nil
}

func (rp *replayer) mount(tree vdom.VNode) {
	rp.tree = tree
	rp.root = rp.engine.Render(tree)
}

func (rp *replayer) apply(patches []vdom.Patch) (root vdom.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = vderrors.FromPanic(r, "E001")
		}
	}()
	return rp.engine.Apply(rp.root, rp.tree, patches), nil
}

func (rp *replayer) diverged(d Divergence, tree vdom.VNode) {
	if d.Err == nil {
		d.Err = vderrors.New("E212")
	}
	rp.report.Divergences = append(rp.report.Divergences, d)
	rp.mount(tree)
}
