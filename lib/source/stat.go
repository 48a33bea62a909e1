// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/samcmill/wassail-sub000/lib/document"
)

type statConfiguration struct {
	Path string `json:"path"`
}

// FileStatus is the data of the stat collector. Times are seconds
// since the epoch; Mode includes the file type bits.
type FileStatus struct {
	Path    string `json:"path"`
	Device  uint64 `json:"device"`
	Mode    uint32 `json:"mode"`
	Nlink   uint64 `json:"nlink"`
	Inode   uint64 `json:"inode"`
	UID     uint32 `json:"uid"`
	GID     uint32 `json:"gid"`
	Rdev    uint64 `json:"rdev"`
	Atime   int64  `json:"atime"`
	Mtime   int64  `json:"mtime"`
	Ctime   int64  `json:"ctime"`
	Size    int64  `json:"size"`
	Blocks  int64  `json:"blocks"`
	Blksize int64  `json:"blksize"`
}

// Stat records the status of one file, following symlinks.
type Stat struct {
	common
	Path   string
	status FileStatus
}

// NewStat returns a stat collector for path.
func NewStat(path string, opts ...Option) *Stat {
	s := &Stat{Path: path}
	s.init("stat", true, opts)
	return s
}

// Status returns the collected file status.
func (s *Stat) Status() FileStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Stat) Evaluate(ctx context.Context, force bool) error {
	if s.Path == "" {
		return fmt.Errorf("%s: %w: path", s.name, ErrMissingInput)
	}
	return s.evaluate(ctx, force, false, func(context.Context) error {
		var stat unix.Stat_t
		if err := unix.Stat(s.Path, &stat); err != nil {
			return fmt.Errorf("stat %s: %w", s.Path, err)
		}
		s.status = FileStatus{
			Path:    s.Path,
			Device:  uint64(stat.Dev),
			Mode:    uint32(stat.Mode),
			Nlink:   uint64(stat.Nlink),
			Inode:   uint64(stat.Ino),
			UID:     stat.Uid,
			GID:     stat.Gid,
			Rdev:    uint64(stat.Rdev),
			Atime:   int64(stat.Atim.Sec),
			Mtime:   int64(stat.Mtim.Sec),
			Ctime:   int64(stat.Ctim.Sec),
			Size:    stat.Size,
			Blocks:  int64(stat.Blocks),
			Blksize: int64(stat.Blksize),
		}
		return nil
	})
}

func (s *Stat) ToDocument() (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	configuration := statConfiguration{Path: s.Path}
	return encode(&s.common, &configuration, &s.status)
}

func (s *Stat) FromDocument(doc document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var configuration statConfiguration
	var status FileStatus
	if err := decode(&s.common, doc, &configuration, &status); err != nil {
		return err
	}
	s.Path = configuration.Path
	if s.Path == "" {
		s.Path = status.Path
	}
	s.status = status
	return nil
}
