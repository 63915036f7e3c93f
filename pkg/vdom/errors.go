package vdom

import (
	"fmt"

	"github.com/vango-dev/vdiff/internal/errors"
)

// internalError builds the panic value for a broken patching invariant.
// Such panics indicate a bug in the differ or a live tree modified behind
// the engine's back; they are never part of normal control flow.
func internalError(code, where string, detail any) *errors.Error {
	return errors.New(code).WithDetail(fmt.Sprintf("%s: %v", where, detail))
}
