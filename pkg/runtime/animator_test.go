package runtime

import "testing"

func TestAnimator(t *testing.T) {
	type step struct {
		op    string // "async", "sync" or "frame"
		draws int    // total draws after the step
		state animState
	}

	tests := []struct {
		name  string
		steps []step
	}{
		{
			name: "async changes coalesce into one frame",
			steps: []step{
				{"async", 0, pendingRequest},
				{"async", 0, pendingRequest},
				{"async", 0, pendingRequest},
				{"frame", 1, extraRequest},
				{"frame", 1, noRequest},
				{"frame", 1, noRequest},
			},
		},
		{
			name: "sync change draws immediately",
			steps: []step{
				{"sync", 1, noRequest},
				{"frame", 1, noRequest},
			},
		},
		{
			name: "sync change supersedes a pending frame",
			steps: []step{
				{"async", 0, pendingRequest},
				{"sync", 1, extraRequest},
				{"frame", 1, noRequest},
			},
		},
		{
			name: "change during the extra frame draws again",
			steps: []step{
				{"async", 0, pendingRequest},
				{"frame", 1, extraRequest},
				{"async", 1, pendingRequest},
				{"frame", 2, extraRequest},
				{"frame", 2, noRequest},
			},
		},
		{
			name: "frames without changes do nothing",
			steps: []step{
				{"frame", 0, noRequest},
				{"frame", 0, noRequest},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			draws := 0
			a := &animator{draw: func(bool) { draws++ }}
			for i, s := range tc.steps {
				switch s.op {
				case "async":
					a.change(false)
				case "sync":
					a.change(true)
				case "frame":
					a.frame()
				}
				if draws != s.draws || a.state != s.state {
					t.Fatalf("step %d (%s): draws=%d state=%v; want draws=%d state=%v",
						i, s.op, draws, a.state, s.draws, s.state)
				}
			}
		})
	}
}

func TestAnimatorSyncFlag(t *testing.T) {
	var flags []bool
	a := &animator{draw: func(sync bool) { flags = append(flags, sync) }}
	a.change(true)
	a.change(false)
	a.frame()
	if len(flags) != 2 || !flags[0] || flags[1] {
		t.Errorf("draw flags = %v; want [true false]", flags)
	}
}
