// Package fsutil holds small filesystem helpers shared by the executor and
// the restore driver.
package fsutil

import (
	"io"
	"os"
)

// CopyFile copies the contents of src to dst, then applies src's
// modification time and permission bits to dst, mirroring shutil.copy2's
// semantics in the original implementation. dst is created if it doesn't
// exist and truncated if it does.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	modTime := info.ModTime()
	return os.Chtimes(dst, modTime, modTime)
}
