package run

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	orcherrors "github.com/glidepath/glidepath/internal/errors"
)

// Lock is a per-environment run lock backed by an exclusively-created file.
// Two concurrent runs against the same environment are an unsupported hazard
// (last-writer-wins on the cloud resources), so the second invocation is
// refused up front.
type Lock struct {
	path string
}

// LockPath returns the lock file path for an environment.
func LockPath(environment string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("glidepath-%s.lock", environment))
}

// AcquireLock creates the lock file exclusively. When the file already exists
// the holder recorded inside it is reported back to the user.
func AcquireLock(environment string) (*Lock, error) {
	path := LockPath(environment)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			holder := "unknown holder"
			if content, readErr := os.ReadFile(path); readErr == nil && len(content) > 0 {
				holder = string(content)
			}
			return nil, orcherrors.ErrRunLocked(environment, holder)
		}
		return nil, fmt.Errorf("failed to create lock file %s: %w", path, err)
	}
	defer f.Close()

	username := "unknown"
	if u, uerr := user.Current(); uerr == nil {
		username = u.Username
	}
	fmt.Fprintf(f, "%s pid=%d started=%s", username, os.Getpid(), time.Now().Format(time.RFC3339))

	return &Lock{path: path}, nil
}

// Release removes the lock file. Releasing twice is harmless.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	_ = os.Remove(l.path)
}
