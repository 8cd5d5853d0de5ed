package archive

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

const (
	V1IndexPrefix = "v1/logindex"

	SnapshotBlobNameFmt = "%016d.snap"
	SealBlobNameFmt     = "%016d.sth" // Signed Tree Head
	SnapshotExt         = "snap"
	SealExt             = "sth"

	// IndexInstanceN versions the layout below an index name, so a change of
	// index parameters can start a fresh series of blobs
	IndexInstanceN = 0
)

// IndexSnapshotPrefix returns the path to the snapshot blobs of the named
// index
func IndexSnapshotPrefix(name string) string {
	return fmt.Sprintf("%s/%s/%d/snapshots/", V1IndexPrefix, name, IndexInstanceN)
}

// IndexSealPrefix returns the path to the signed roots of the named index
func IndexSealPrefix(name string) string {
	return fmt.Sprintf("%s/%s/%d/seals/", V1IndexPrefix, name, IndexInstanceN)
}

// IndexSnapshotPath returns the blob path of the snapshot taken at nextEntry.
// Blob names sort lexically, so the entry count is zero padded.
func IndexSnapshotPath(name string, nextEntry uint64) string {
	return IndexSnapshotPrefix(name) + fmt.Sprintf(SnapshotBlobNameFmt, nextEntry)
}

func IndexSealPath(name string, nextEntry uint64) string {
	return IndexSealPrefix(name) + fmt.Sprintf(SealBlobNameFmt, nextEntry)
}

// ParseBlobNumber recovers the entry count from a snapshot or seal blob path
func ParseBlobNumber(blobPath string) (uint64, error) {
	base := path.Base(blobPath)
	number, ext, ok := strings.Cut(base, ".")
	if !ok || (ext != SnapshotExt && ext != SealExt) {
		return 0, fmt.Errorf("%w: %s", ErrBlobPathInvalid, blobPath)
	}
	n, err := strconv.ParseUint(number, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrBlobPathInvalid, blobPath, err)
	}
	return n, nil
}
