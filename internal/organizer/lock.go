package organizer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"sortdir/internal/faults"
)

// LockPath returns the lock file guarding root.
func LockPath(lockDir, root string) string {
	sum := sha256.Sum256([]byte(root))
	return filepath.Join(lockDir, hex.EncodeToString(sum[:])[:16]+".lock")
}

// acquireLock takes the per-root lock without waiting. A held lock is a
// precondition failure.
func acquireLock(lockDir, root string) (*flock.Flock, error) {
	path := LockPath(lockDir, root)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, faults.Wrap(faults.ErrPrecondition, "lock", "acquire", path, err)
	}
	if !ok {
		return nil, faults.Wrap(faults.ErrPrecondition, "lock", "acquire",
			fmt.Sprintf("another sortdir run is organizing %s", root), nil)
	}
	return lock, nil
}
