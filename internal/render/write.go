package render

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
)

type file struct {
	path string
	data []byte
}

// tempName returns a hidden sibling of path, unique per call.
func tempName(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
}

// writeAll stages every file under a temporary name and renames the
// staged files into place only once all of them are written. On failure
// the staged files are removed and existing outputs are left as they
// were.
func writeAll(files []file) error {
	staged := make([]string, 0, len(files))
	cleanup := func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}

	for _, f := range files {
		tmp := tempName(f.path)
		if err := os.WriteFile(tmp, f.data, 0o644); err != nil {
			_ = os.Remove(tmp)
			cleanup()
			return ioError(f.path, err)
		}
		staged = append(staged, tmp)
	}

	for i, f := range files {
		if err := os.Rename(staged[i], f.path); err != nil {
			cleanup()
			return ioError(f.path, err)
		}
	}
	return nil
}

func ioError(path string, err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	return errs.New(errs.PhaseWrite, errs.KindIO).
		Cause(err).
		Detail("writing %s", path).
		Build()
}
