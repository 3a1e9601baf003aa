package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// CheckFileReadable verifies that path names a readable regular file.
// Failures wrap ErrInputNotFound.
func CheckFileReadable(name, path string) Result {
	fail := func(detail string) Result {
		return Result{
			Name:   name,
			Detail: detail,
			Err:    fmt.Errorf("%w: %s '%s' not found", ErrInputNotFound, name, path),
		}
	}
	if path == "" {
		return fail("no path given")
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fail(fmt.Sprintf("%s (error: does not exist)", path))
		}
		return fail(fmt.Sprintf("%s (error: stat: %v)", path, err))
	}
	if !info.Mode().IsRegular() {
		return fail(fmt.Sprintf("%s (error: is not a regular file)", path))
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return fail(fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err))
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d bytes, read ok)", path, info.Size())}
}

// CheckDirectoryAccess verifies that the directory exists and is writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (write ok)", path)}
}
