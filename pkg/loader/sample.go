package loader

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

//go:embed sample
var sampleFS embed.FS //nolint:gochecknoglobals // embedded starter pipeline

// Sample returns the starter pipeline shipped with the binary.
func Sample() (fsys fs.FS) {
	fsys, _ = fs.Sub(sampleFS, "sample")
	return fsys
}

// WriteSample copies the starter pipeline into dir. Existing files are never overwritten.
func WriteSample(dir string) (written []string, err error) {
	fsys := Sample()

	err = fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, walkErr error) (err error) {
		if walkErr != nil {
			return walkErr
		}

		target := filepath.Join(dir, filepath.FromSlash(name))
		if d.IsDir() {
			err = os.MkdirAll(target, 0750)
			if err != nil {
				err = errors.Wrapf(err, "failed to create %s", target)
			}
			return err
		}

		_, err = os.Stat(target)
		if err == nil {
			return nil
		}

		var data []byte
		data, err = fs.ReadFile(fsys, name)
		if err != nil {
			err = errors.Wrapf(err, "failed to read sample %s", name)
			return err
		}

		err = os.WriteFile(target, data, 0600)
		if err != nil {
			err = errors.Wrapf(err, "failed to write %s", target)
			return err
		}

		written = append(written, target)
		return err
	})

	return written, err
}
