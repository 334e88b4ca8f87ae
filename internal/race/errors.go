package race

import "errors"

var (
	ErrUnknownRacer     = errors.New("unknown racer")
	ErrUnknownItem      = errors.New("unknown item")
	ErrNoItemHeld       = errors.New("no item held")
	ErrSelfRelationship = errors.New("cannot set relationship to self")
)
