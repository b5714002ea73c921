package history

import "errors"

var (
	ErrNotFound        = errors.New("history entry not found")
	ErrAlreadyFinished = errors.New("history entry already finished")
	ErrUnknownVersion  = errors.New("unknown history record version")
	ErrUnknownKind     = errors.New("unknown history record kind")
	ErrWrongTag        = errors.New("record does not belong to history")
)
