// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package storage provides the append-only, durable-on-sync sink the
// datalogger records into.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Failure classes. Errors returned by this package wrap exactly one of them.
var (
	ErrMount = errors.New("storage not mounted")
	ErrOpen  = errors.New("storage target cannot be opened")
	ErrWrite = errors.New("storage write failed")
	ErrSync  = errors.New("storage sync failed")
)

// Storage is a removable medium holding named append-only targets.
type Storage interface {
	// Mount checks that the medium is present and writable.
	Mount() error
	// Open opens name for appending, creating it if needed.
	Open(name string) (Sink, error)
}

// Sink is an open append-mode target. Data is durable once Sync returns.
type Sink interface {
	Size() (int64, error)
	Write(p []byte) error
	Sync() error
	Close() error
}

const probeName = ".datalogger_probe"

// Dir is a Storage backed by a directory where the medium is mounted.
type Dir struct {
	Path string
}

// NewDir returns a Storage rooted at path.
func NewDir(path string) *Dir {
	return &Dir{Path: path}
}

// Mount reports ErrMount unless Path is a directory a file can be created in.
func (d *Dir) Mount() error {
	fi, err := os.Stat(d.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMount, d.Path, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrMount, d.Path)
	}

	probe := filepath.Join(d.Path, probeName)
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %s not writable: %v", ErrMount, d.Path, err)
	}
	f.Close()
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("%w: %s: remove probe: %v", ErrMount, d.Path, err)
	}
	return nil
}

// Open opens name under Path in append mode.
func (d *Dir) Open(name string) (Sink, error) {
	path := filepath.Join(d.Path, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}
	return &fileSink{f: f}, nil
}

type fileSink struct {
	f *os.File
}

func (s *fileSink) Size() (int64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat %s: %v", ErrOpen, s.f.Name(), err)
	}
	return fi.Size(), nil
}

func (s *fileSink) Write(p []byte) error {
	if _, err := s.f.Write(p); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, s.f.Name(), err)
	}
	return nil
}

func (s *fileSink) Sync() error {
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSync, s.f.Name(), err)
	}
	return nil
}

func (s *fileSink) Close() error {
	syncErr := s.Sync()
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrSync, s.f.Name(), err)
	}
	return syncErr
}
