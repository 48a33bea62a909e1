// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"io/fs"
	"testing"
)

func TestToolErrorWrapsCause(t *testing.T) {
	err := Internal("reading suite: %w", fs.ErrNotExist)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("errors.Is lost the cause: %v", err)
	}
	if err.Category != CategoryInternal {
		t.Errorf("category = %q", err.Category)
	}
	if err.Error() != "reading suite: file does not exist" {
		t.Errorf("Error() = %q", err.Error())
	}

	var toolError *ToolError
	wrapped := errors.Join(errors.New("first"), Validation("unknown source %q", "bogus"))
	if !errors.As(wrapped, &toolError) || toolError.Category != CategoryValidation {
		t.Errorf("errors.As did not find the validation error in %v", wrapped)
	}
}
