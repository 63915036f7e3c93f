// Package devserver serves a running program for debugging.
//
// The server keeps the last observed cycle and exposes it over HTTP:
// /snapshot returns the HTML of the live tree, /metrics the Prometheus
// metrics and /journal the recorded cycles. /ws streams protocol frames:
// a FrameSnapshot on connect and after every initial draw, then one
// FramePatches per cycle. A peer holding the snapshot tree can decode each
// batch and apply it against its copy to follow the program.
//
//	srv := devserver.New(devserver.Options{Addr: cfg.Dev.Addr})
//	p := runtime.New(doc, init, update, view, runtime.WithObserver(srv.Observer()))
//	srv.SetProgram(p)
//	go p.Run(ctx)
//	err := srv.ListenAndServe(ctx)
package devserver
