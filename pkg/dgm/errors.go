package dgm

import "errors"

// ErrDiskIndexFail reports that Commit could not find a free disk slot to
// flush into.
var ErrDiskIndexFail = errors.New("dgm: no free disk slot for commit")

// ErrNoCompactionTarget reports that Compact found nothing worth merging.
var ErrNoCompactionTarget = errors.New("dgm: no compaction target")

// ErrManifestCorrupt reports a root manifest that failed to parse.
var ErrManifestCorrupt = errors.New("dgm: corrupt root manifest")

// ErrClosed reports an operation attempted after Close.
var ErrClosed = errors.New("dgm: closed")
