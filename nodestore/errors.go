package nodestore

import "errors"

var (
	ErrUnknownKind  = errors.New("nodestore: unknown store kind")
	ErrCorruptValue = errors.New("nodestore: stored node value is not 32 bytes")
)
