package runtime

// animState tracks frame requests between draws.
type animState uint8

const (
	// noRequest: the tree is current and no frame is wanted.
	noRequest animState = iota
	// pendingRequest: state changed since the last draw; the next frame draws.
	pendingRequest
	// extraRequest: a draw just happened; one more frame is watched so that
	// changes landing in the same frame are picked up without a new request.
	extraRequest
)

func (s animState) String() string {
	switch s {
	case noRequest:
		return "noRequest"
	case pendingRequest:
		return "pendingRequest"
	case extraRequest:
		return "extraRequest"
	default:
		return "unknown"
	}
}

// animator coalesces state changes into at most one draw per frame.
type animator struct {
	state animState
	// wantFrame is set while the next frame should run step.
	wantFrame bool
	draw      func(sync bool)
}

// change records that new state is available.
func (a *animator) change(sync bool) {
	if sync {
		a.draw(true)
		if a.state == pendingRequest {
			a.state = extraRequest
		}
		return
	}
	if a.state == noRequest {
		a.wantFrame = true
	}
	a.state = pendingRequest
}

// frame handles one frame callback.
func (a *animator) frame() {
	if !a.wantFrame {
		return
	}
	a.wantFrame = false
	if a.state == extraRequest {
		a.state = noRequest
		return
	}
	a.wantFrame = true
	a.draw(false)
	a.state = extraRequest
}
