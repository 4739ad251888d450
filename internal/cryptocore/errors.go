package cryptocore

import "errors"

var (
	ErrInvalidPubKey   = errors.New("cryptocore: invalid public key")
	ErrZeroScalar      = errors.New("cryptocore: derived scalar is zero")
	ErrPointAtInfinity = errors.New("cryptocore: point addition yields infinity")
	ErrBadEntropySize  = errors.New("cryptocore: entropy must be 32 bytes")
)
