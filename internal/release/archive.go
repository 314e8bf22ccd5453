package release

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path"
	"time"
)

func open(e entry) (io.ReadCloser, int64, error) {
	if e.source == "" {
		return io.NopCloser(bytes.NewReader(e.data)), int64(len(e.data)), nil
	}
	f, err := os.Open(e.source)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

func writeTarGz(dest, prefix string, entries []entry) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	now := time.Now()

	if err := tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeDir,
		Name:     prefix + "/",
		Mode:     0o755,
		ModTime:  now,
	}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := addTar(tw, prefix, e, now); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return f.Close()
}

func addTar(tw *tar.Writer, prefix string, e entry, now time.Time) error {
	r, size, err := open(e)
	if err != nil {
		return err
	}
	defer r.Close()
	if err := tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     path.Join(prefix, e.name),
		Mode:     int64(e.mode.Perm()),
		Size:     size,
		ModTime:  now,
	}); err != nil {
		return err
	}
	_, err = io.Copy(tw, r)
	return err
}

// writeZip creates a zip archive at dest with every entry under prefix/.
func writeZip(dest, prefix string, entries []entry) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, e := range entries {
		if err := addZip(w, prefix, e); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return f.Close()
}

func addZip(w *zip.Writer, prefix string, e entry) error {
	r, _, err := open(e)
	if err != nil {
		return err
	}
	defer r.Close()

	header := &zip.FileHeader{
		Name:     path.Join(prefix, e.name),
		Method:   zip.Deflate,
		Modified: time.Now(),
	}
	header.SetMode(e.mode.Perm())
	writer, err := w.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(writer, r)
	return err
}
