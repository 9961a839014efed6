package fs

import (
	"os"
)

// Real implements [FS] against the operating system's filesystem. It is what
// [cmd/dgmkv] wires up in production; every other [FS] caller in the engine
// (robt.Build, dlog.Open, dgm.Open) is agnostic to which
// implementation it receives.
//
// All methods are pure passthroughs to the [os] package with identical
// behavior and error semantics, except [Real.Exists], which is a small
// convenience built on top of [os.Stat].
type Real struct{}

// NewReal returns a new [Real] filesystem.
func NewReal() *Real {
	return &Real{}
}

// Open is a passthrough wrapper for [os.Open], used for read-only access to
// an already-published index or journal file.
func (r *Real) Open(path string) (File, error) {
	return os.Open(path)
}

// Create is a passthrough wrapper for [os.Create].
func (r *Real) Create(path string) (File, error) {
	return os.Create(path)
}

// OpenFile is a passthrough wrapper for [os.OpenFile]. The WAL shard writer
// uses this with O_APPEND|O_CREATE to grow a journal segment in place.
func (r *Real) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(path, flag, perm)
}

// ReadFile is a passthrough wrapper for [os.ReadFile]. robt.Open uses this to
// read a whole index (and, if configured, value-log) shard resident.
func (r *Real) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile is a passthrough wrapper for [os.WriteFile].
func (r *Real) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

// ReadDir is a passthrough wrapper for [os.ReadDir], used to discover
// existing shard/journal files under a level or WAL directory on startup.
func (r *Real) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

// MkdirAll is a passthrough wrapper for [os.MkdirAll], used before
// publishing the first file into a shard directory.
func (r *Real) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Stat is a passthrough wrapper for [os.Stat].
func (r *Real) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// Exists reports whether path exists, built on [os.Stat]. Returns (true,
// nil) if it exists, (false, nil) if it does not, and (false, err) for any
// other Stat failure (e.g. a permission error).
func (r *Real) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, err
}

// Remove is a passthrough wrapper for [os.Remove], used to drop a superseded
// shard or a rotated-out journal segment after a compaction commits.
func (r *Real) Remove(path string) error {
	return os.Remove(path)
}

// RemoveAll is a passthrough wrapper for [os.RemoveAll].
func (r *Real) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// Rename is a passthrough wrapper for [os.Rename], the primitive
// [AtomicWriter] relies on to publish a file atomically.
func (r *Real) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

var _ FS = (*Real)(nil)
