// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/result"
)

// permissionBits covers the rwx bits of user, group, and other plus
// setuid, setgid, and sticky.
const permissionBits = 0o7777

// Permissions checks the permission bits of a file.
type Permissions struct {
	Mode      uint32
	Templates Templates
	Logger    *slog.Logger
}

// NewPermissions returns a permissions check expecting mode, for
// example 0o600.
func NewPermissions(mode uint32) *Permissions {
	return &Permissions{
		Mode: mode & permissionBits,
		Templates: Templates{
			Brief:       "Checking permissions on '%[1]s'",
			DetailYes:   "Observed permissions of %[2]s do not match expected %[3]s",
			DetailMaybe: "Unable to check permissions: '%[1]v'",
			DetailNo:    "Observed permissions of %[2]s match expected %[3]s",
		},
	}
}

var permissionReaders = map[string]func(document.Document) (uint32, error){
	"stat": func(doc document.Document) (uint32, error) {
		return document.Get[uint32](doc, "/data/mode")
	},
}

func (p *Permissions) Name() string { return "file/permissions" }

func (p *Permissions) Check(doc document.Document) (*result.Result, error) {
	read, ok := permissionReaders[doc.Name()]
	if !ok {
		return nil, unrecognized(p.Name(), doc, permissionReaders)
	}
	mode, err := read(doc)
	mode &= permissionBits

	engine := NewRulesEngine(p.Templates)
	engine.Logger = p.Logger
	engine.AddRule(func(document.Document) (bool, error) {
		if errors.Is(err, document.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	})
	engine.AddRule(func(document.Document) (bool, error) {
		return mode == p.Mode&permissionBits, nil
	})
	path := document.GetOr(doc, "/data/path", "")
	return engine.CheckWith(doc, path, octal(mode), octal(p.Mode))
}

func octal(mode uint32) string {
	return fmt.Sprintf("%04o", mode&permissionBits)
}
