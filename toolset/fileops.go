package toolset

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/calvinalkan/fs-sandbox/sandbox"
)

// Delete removes a regular file.
func (ts *Toolset) Delete(path string) (string, error) {
	r, err := ts.sb.GetPathConfig(path, sandbox.OpWrite)
	if err != nil {
		return "", err
	}

	_, err = statRegular(r)
	if err != nil {
		return "", err
	}

	err = os.Remove(r.HostPath)
	if err != nil {
		return "", ioError("delete", r.VirtualPath, err)
	}

	ts.logf("delete %s", r.VirtualPath)

	return "Deleted " + r.VirtualPath, nil
}

// Move renames a regular file. Both paths must be writable and destination
// must not exist. Moves across host filesystems fall back to copy and remove.
func (ts *Toolset) Move(source, destination string) (string, error) {
	src, dst, info, err := ts.prepareTransfer(source, destination, sandbox.OpWrite)
	if err != nil {
		return "", err
	}

	err = renameNoReplace(src.HostPath, dst.HostPath)
	if errors.Is(err, syscall.EXDEV) {
		err = copyFileExclusive(src.HostPath, dst.HostPath, info.Mode().Perm())
		if err == nil {
			err = os.Remove(src.HostPath)
		}
	}

	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", destinationExists(dst)
		}

		return "", ioError("move", src.VirtualPath, err)
	}

	ts.logf("move %s -> %s", src.VirtualPath, dst.VirtualPath)

	return fmt.Sprintf("Moved %s to %s", src.VirtualPath, dst.VirtualPath), nil
}

// Copy copies a regular file. source must be readable, destination writable
// and not existing.
func (ts *Toolset) Copy(source, destination string) (string, error) {
	src, dst, info, err := ts.prepareTransfer(source, destination, sandbox.OpRead)
	if err != nil {
		return "", err
	}

	err = copyFileExclusive(src.HostPath, dst.HostPath, info.Mode().Perm())
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", destinationExists(dst)
		}

		return "", ioError("copy", src.VirtualPath, err)
	}

	ts.logf("copy %s -> %s", src.VirtualPath, dst.VirtualPath)

	return fmt.Sprintf("Copied %s to %s", src.VirtualPath, dst.VirtualPath), nil
}

// prepareTransfer resolves both ends of a move or copy, runs the suffix and
// size checks of both mounts and creates the destination's parent.
func (ts *Toolset) prepareTransfer(source, destination string, srcOp sandbox.Op) (sandbox.Resolved, sandbox.Resolved, fs.FileInfo, error) {
	var none sandbox.Resolved

	src, err := ts.sb.GetPathConfig(source, srcOp)
	if err != nil {
		return none, none, nil, err
	}

	dst, err := ts.sb.GetPathConfig(destination, sandbox.OpWrite)
	if err != nil {
		return none, none, nil, err
	}

	info, err := statRegular(src)
	if err != nil {
		return none, none, nil, err
	}

	err = checkSuffixAndSize(src)
	if err != nil {
		return none, none, nil, err
	}

	err = dst.CheckSuffix()
	if err != nil {
		return none, none, nil, err
	}

	err = dst.CheckContentSize(info.Size())
	if err != nil {
		return none, none, nil, err
	}

	_, err = os.Lstat(dst.HostPath)
	if err == nil {
		return none, none, nil, destinationExists(dst)
	}

	err = os.MkdirAll(filepath.Dir(dst.HostPath), 0o755)
	if err != nil {
		return none, none, nil, ioError("create parent of", dst.VirtualPath, err)
	}

	return src, dst, info, nil
}

func destinationExists(dst sandbox.Resolved) error {
	return fmt.Errorf("destination already exists: '%s': %w", dst.VirtualPath, fs.ErrExist)
}

// copyFileExclusive copies src to a new file dst, failing if dst exists.
func copyFileExclusive(src, dst string, perm fs.FileMode) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}

	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := out.Close()
		if err == nil {
			err = closeErr
		}

		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	_, err = io.Copy(out, in)

	return err
}
