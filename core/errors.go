package core

import (
	"errors"
	"fmt"
)

// ContractError is a contract-level failure carried across the call boundary as an ExitCode.
// Codes 1..7 are well-known, 8..255 are reserved and anything above 255 is contract-defined.
type ContractError uint64

const (
	ErrBadInput       ContractError = 1
	ErrBadOutput      ContractError = 2
	ErrForbidden      ContractError = 3
	ErrNotFound       ContractError = 4
	ErrConflict       ContractError = 5
	ErrInternalError  ContractError = 6
	ErrNotImplemented ContractError = 7
)

var contractErrorNames = map[ContractError]string{
	ErrBadInput:       "bad input",
	ErrBadOutput:      "bad output",
	ErrForbidden:      "forbidden",
	ErrNotFound:       "not found",
	ErrConflict:       "conflict",
	ErrInternalError:  "internal error",
	ErrNotImplemented: "not implemented",
}

// NewCustomError returns a contract-defined error. Codes up to 255 are not custom.
func NewCustomError(code uint64) (ContractError, bool) {
	if code <= 255 {
		return 0, false
	}
	return ContractError(code), true
}

func (e ContractError) Error() string {
	if name, ok := contractErrorNames[e]; ok {
		return "contract error: " + name
	}
	if e.IsCustom() {
		return fmt.Sprintf("contract error: custom code %d", uint64(e))
	}
	return fmt.Sprintf("contract error: unknown code %d", uint64(e))
}

func (e ContractError) IsCustom() bool { return e > 255 }

func (e ContractError) ExitCode() ExitCode { return ExitCode(e) }

// ExitCode is what a native method returns. Zero means success.
type ExitCode uint64

const ExitOK ExitCode = 0

// Err converts the code back into a ContractError, or nil on success.
func (c ExitCode) Err() error {
	if c == ExitOK {
		return nil
	}
	return ContractError(c)
}

// ExitCodeOf maps an error to an exit code. Errors that are not contract errors map to
// ErrInternalError.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitOK
	}
	var ce ContractError
	if errors.As(err, &ce) {
		return ce.ExitCode()
	}
	return ErrInternalError.ExitCode()
}
