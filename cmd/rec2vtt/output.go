package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

// lockedOutput is a destination file written through a temporary sibling.
// The destination only appears once Commit succeeds.
type lockedOutput struct {
	*os.File
	path      string
	lock      *flock.Flock
	committed bool
}

// openLockedFile prepares path for writing while holding an exclusive lock on
// path+".lock". A second rec2vtt writing the same file fails fast.
func openLockedFile(path string) (*lockedOutput, error) {
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("output %s is being written by another rec2vtt process", path)
	}
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
		return nil, fmt.Errorf("create output: %w", err)
	}
	if err := file.Chmod(0o644); err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
		return nil, fmt.Errorf("create output: %w", err)
	}
	return &lockedOutput{File: file, path: path, lock: lock}, nil
}

// Commit syncs the temporary file and moves it onto the destination path.
func (o *lockedOutput) Commit() error {
	if err := o.Sync(); err != nil {
		return fmt.Errorf("sync output: %w", err)
	}
	if err := o.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(o.Name(), o.path); err != nil {
		return fmt.Errorf("publish output %s: %w", o.path, err)
	}
	o.committed = true
	return nil
}

// Release drops the temporary file unless it was committed, then frees the lock.
func (o *lockedOutput) Release() {
	if !o.committed {
		_ = o.Close()
		_ = os.Remove(o.Name())
	}
	_ = o.lock.Unlock()
	_ = os.Remove(o.lock.Path())
}

// trackOutput is where the cue track goes: the command's stdout or a locked
// file that is published on Commit.
type trackOutput struct {
	io.Writer
	file *lockedOutput
}

func (t *trackOutput) Commit() error {
	if t.file == nil {
		return nil
	}
	return t.file.Commit()
}

func (t *trackOutput) Release() {
	if t.file != nil {
		t.file.Release()
	}
}

// openTrackOutput returns the track destination: the command's stdout when
// path is empty or "-", otherwise a locked file.
func openTrackOutput(cmd *cobra.Command, path string) (*trackOutput, error) {
	if path == "" || path == "-" {
		return &trackOutput{Writer: cmd.OutOrStdout()}, nil
	}
	file, err := openLockedFile(path)
	if err != nil {
		return nil, err
	}
	return &trackOutput{Writer: file, file: file}, nil
}
