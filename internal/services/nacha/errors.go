package nacha

import "errors"

var (
	ErrFieldOverflow   = errors.New("nacha: value does not fit field")
	ErrInvalidField    = errors.New("nacha: invalid field")
	ErrRecordLength    = errors.New("nacha: bad record length")
	ErrControlMismatch = errors.New("nacha: control totals do not match entries")
	ErrInvalidOrigin   = errors.New("nacha: invalid originator settings")
	ErrMalformedFile   = errors.New("nacha: malformed file")
)
