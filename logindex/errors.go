package logindex

import "errors"

var (
	ErrInvalidParams = errors.New("logindex: invalid parameters")
	// ErrInvalidTreeNode is returned for generalized indices that fall
	// outside the log index tree layout.
	ErrInvalidTreeNode = errors.New("logindex: invalid log index tree node")
	// ErrRowCapacityExhausted is returned when every mapping layer up to
	// Params.MaxMappingLayers selects a full row. Nothing is written when this
	// is returned, but the entry it was for has not been added either and the
	// state can not usefully continue.
	ErrRowCapacityExhausted = errors.New("logindex: filter map row capacity exhausted on every mapping layer")
	ErrTooManyTopics        = errors.New("logindex: log has more than 4 topics")
	ErrEntryTooLarge        = errors.New("logindex: entry count exceeds the values per map")
	ErrNotLogEntry          = errors.New("logindex: index entry has no log payload")
	ErrEntryNotAdded        = errors.New("logindex: entry index is at or beyond next entry")
	ErrInvalidSnapshot      = errors.New("logindex: invalid snapshot")
	ErrIndexFull            = errors.New("logindex: epoch history is full")
	ErrInvalidHeader        = errors.New("logindex: block header has no number")
)
