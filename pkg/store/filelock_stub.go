//go:build !unix

package store

import "os"

// lockFile is a no-op on non-Unix platforms; writers in one process are still
// serialized by the path mutex.
func lockFile(f *os.File) error { return nil }

// unlockFile is the counterpart to lockFile.
func unlockFile(f *os.File) error { return nil }
