package dispatch

import (
	stderrors "errors"

	"github.com/goliatone/go-errors"
)

// Text codes attached to errors raised by the execution engine. A rejected
// execution deliberately has no code: it is a silent no-op, observable only
// through the unit's running/enabled state.
const (
	ErrCodeActionFailed  = "ACTION_FAILED"
	ErrCodeActionPanic   = "ACTION_PANIC"
	ErrCodeMarshalFailed = "MARSHAL_FAILED"
	ErrCodeNoLoop        = "NO_UI_LOOP"
	ErrCodeNilAction     = "NIL_ACTION"
	ErrCodeInvalidMode   = "INVALID_MODE"
)

// WrapError wraps err with a text code and message, keeping the source
// chain intact for errors.Is/As. A nil err produces a fresh error.
func WrapError(textCode, msg string, err error) *errors.Error {
	if err == nil {
		return errors.New(msg, errors.CategoryHandler).WithTextCode(textCode)
	}
	return errors.Wrap(err, errors.CategoryHandler, msg).
		WithTextCode(textCode)
}

func wrapMarshalError(err error) *errors.Error {
	return errors.Wrap(err, errors.CategoryExternal, "ui marshal failed").
		WithTextCode(ErrCodeMarshalFailed)
}

func errNoLoop(mode Mode) *errors.Error {
	return errors.New("no ui loop configured for mode "+mode.String(), errors.CategoryConflict).
		WithTextCode(ErrCodeNoLoop)
}

// ErrorCode extracts the text code from an engine error, or "" for foreign
// errors.
func ErrorCode(err error) string {
	var ge *errors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// IsMarshalFailure reports whether err came from a failed UI-thread marshal
// rather than from the action itself.
func IsMarshalFailure(err error) bool {
	code := ErrorCode(err)
	return code == ErrCodeMarshalFailed || code == ErrCodeNoLoop
}
