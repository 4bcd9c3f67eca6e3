package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrPrecondition = errors.New("precondition failed")

	ErrInsufficientLuck  = fmt.Errorf("%w: insufficient luck", ErrPrecondition)
	ErrSaveSlotsFull     = fmt.Errorf("%w: all save slots are taken", ErrPrecondition)
	ErrRestoreNotAllowed = fmt.Errorf("%w: only the latest save can be restored in this mode", ErrPrecondition)
	ErrPartyNotActive    = fmt.Errorf("%w: party is not active", ErrPrecondition)
)
