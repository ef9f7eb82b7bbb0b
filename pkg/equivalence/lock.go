package equivalence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/errors"
)

// acquireLock creates path exclusively, retrying until timeout. Lock files
// older than staleAge are assumed abandoned and removed.
func acquireLock(ctx context.Context, path string, timeout, staleAge time.Duration, logger *zerolog.Logger) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", filepath.Dir(path), err)
	}

	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, constants.FilePermissions)
		if err == nil {
			_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
			_ = f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, errors.WrapIO("lock", path, err)
		}

		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) > staleAge {
			logger.Warn().Str("lock", path).Dur("age", time.Since(info.ModTime())).Msg("Removing stale cache lock")
			_ = os.Remove(path)
			continue
		}

		if time.Now().After(deadline) {
			return nil, errors.WrapIO("lock", path, errors.ErrLockTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, errors.WrapIO("lock", path, ctx.Err())
		case <-time.After(constants.LockRetryInterval):
		}
	}
}
