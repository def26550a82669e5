// Package report writes command output files.
//
// Files are replaced whole: data goes to a temporary file next to the
// destination, is flushed to disk, and is renamed over the target. A reader
// never sees a partially written file, and a failed write leaves the previous
// contents in place.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Marshal encodes data as JSON, indenting with two spaces when pretty is set.
func Marshal(data any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// File is one destination of a WriteAll call.
type File struct {
	Path string
	Data []byte
}

// Staged is a file written to a temporary name beside its destination and
// not yet renamed into place.
type Staged struct {
	path string
	tmp  string
}

// Stage writes data to a synced temporary file in the directory of path.
// The parent directory must already exist. Nothing at path changes until
// Commit.
func Stage(path string, data []byte) (_ *Staged, err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return nil, fmt.Errorf("sync %s: %w", path, err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return nil, fmt.Errorf("chmod %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", path, err)
	}
	return &Staged{path: path, tmp: tmp.Name()}, nil
}

// Commit renames the temporary file over the destination. On failure the
// temporary file is removed and the destination is untouched.
func (s *Staged) Commit() error {
	if err := os.Rename(s.tmp, s.path); err != nil {
		os.Remove(s.tmp)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	s.tmp = ""
	return nil
}

// Discard removes the temporary file of an uncommitted stage.
func (s *Staged) Discard() {
	if s.tmp != "" {
		os.Remove(s.tmp)
		s.tmp = ""
	}
}

// WriteFile atomically replaces path with data, creating it if absent.
func WriteFile(path string, data []byte) error {
	s, err := Stage(path, data)
	if err != nil {
		return err
	}
	return s.Commit()
}

// WriteAll stages every file before renaming any of them, so a failure to
// write one leaves all destinations as they were. Renames run in order; put
// the file whose replacement matters most last.
func WriteAll(files ...File) error {
	staged := make([]*Staged, 0, len(files))
	defer func() {
		for _, s := range staged {
			s.Discard()
		}
	}()

	for _, f := range files {
		s, err := Stage(f.Path, f.Data)
		if err != nil {
			return err
		}
		staged = append(staged, s)
	}
	for _, s := range staged {
		if err := s.Commit(); err != nil {
			return err
		}
	}
	return nil
}
