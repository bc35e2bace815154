package runner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	filesystem "github.com/adnsv/go-utils/fs"
)

// rename is swapped out in tests to simulate a cross-device move.
var rename = os.Rename

// deliver moves srcFN to dstFN, replacing any existing file. When a plain
// rename is not possible, the file is copied into a temporary in the
// destination directory and renamed over dstFN, so a partially written dstFN
// is never observable.
func deliver(srcFN, dstFN string) error {
	err := rename(srcFN, dstFN)
	if err == nil {
		return nil
	}
	if !filesystem.FileExists(srcFN) {
		return err
	}
	return copyReplace(srcFN, dstFN)
}

func copyReplace(srcFN, dstFN string) (err error) {
	src, err := os.Open(srcFN)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dstFN), "."+filepath.Base(dstFN)+".*")
	if err != nil {
		return err
	}
	tmpFN := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpFN)
		}
	}()

	if _, err = io.Copy(tmp, src); err != nil {
		return fmt.Errorf("copying %s: %w", srcFN, err)
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpFN, 0644); err != nil {
		return err
	}
	if err = os.Rename(tmpFN, dstFN); err != nil {
		return err
	}
	// the scratch copy goes away with the scratch directory anyway
	src.Close()
	os.Remove(srcFN)
	return nil
}
