package archive

import "errors"

var (
	ErrBlobNotFound    = errors.New("archive: blob not found")
	ErrBlobPathInvalid = errors.New("archive: blob path is not a snapshot or seal path")
	ErrSnapshotEntry   = errors.New("archive: snapshot entry count does not match its blob path")
)
