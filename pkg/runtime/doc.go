// Package runtime drives a vdom tree from application state.
//
// A Program owns the state, the last drawn tree and the live root. Changes
// are recorded with Update or arrive as messages through Dispatch, and are
// drawn at most once per frame:
//
//	p := runtime.New(doc, model{}, update, view)
//	go p.Run(ctx)
//
// Frames come from a FrameScheduler. TickerScheduler is the default;
// ManualScheduler lets tests step frames explicitly.
//
// A change flagged as synchronous, such as a message from a handler that
// stopped propagation, is drawn immediately and the pending frame is
// skipped. A cycle whose view panics is logged, counted and dropped; the
// previous tree stays live and the next change diffs against it.
//
// Each draw records Prometheus metrics and OpenTelemetry spans named
// vdiff.cycle, vdiff.diff and vdiff.apply.
package runtime
