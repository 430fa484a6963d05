package diagnostics

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// PackageDirectory tars and gzips dir into outPath. Adapted from a
// directory-to-tarball walker; unlike its source it always gzips since the
// diagnostics artifact is always downloaded compressed.
func PackageDirectory(dir, outPath string) error {
	if _, err := os.Stat(dir); err != nil {
		return errors.Wrapf(err, "unable to stat directory %v", dir)
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return errors.Wrapf(err, "creating archive %v", outPath)
	}
	defer outFile.Close()

	gzw := gzip.NewWriter(outFile)
	defer gzw.Close()
	tw := tar.NewWriter(gzw)
	defer tw.Close()

	return filepath.Walk(dir, func(file string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if filepath.Clean(file) == filepath.Clean(dir) {
			return nil
		}
		if !fi.Mode().IsRegular() && !fi.Mode().IsDir() {
			return nil
		}

		header, err := tar.FileInfoHeader(fi, fi.Name())
		if err != nil {
			return errors.Wrapf(err, "creating header for %v", fi.Name())
		}
		header.Name = strings.TrimPrefix(path.Clean(filepath.ToSlash(strings.TrimPrefix(file, dir))), "/")
		if err := tw.WriteHeader(header); err != nil {
			return errors.Wrapf(err, "writing header for %v", header.Name)
		}
		if !fi.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(file)
		if err != nil {
			return errors.Wrapf(err, "opening %v", file)
		}
		defer f.Close()

		_, err = io.Copy(tw, f)
		return errors.Wrapf(err, "writing %v into archive", file)
	})
}
