// Package errors provides coded, structured errors for vdiff.
//
// Every error carries a registered code (e.g. "E102") that maps to a
// category, a short message and a longer explanation. Errors raised while
// reading input files can carry the file position and the lines around it.
//
// # Error Categories
//
//   - diff: render cycle failures
//   - patch: broken patching invariants (raised as panics by pkg/vdom)
//   - protocol: wire encoding and decoding
//   - config: configuration and fixture files
//   - cli: command-line usage and I/O
//
// # Usage
//
//	err := errors.New("E312").
//	    WithLocation("fixtures/list.yaml", 12, 5).
//	    WithSuggestion("Use `el: div` or `text: hello`")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E312: Invalid fixture node
//	//
//	//   fixtures/list.yaml:12:5
//	//   ...
//
// Errors compare by code with errors.Is:
//
//	errors.Is(err, errors.New("E312")) // true
package errors
