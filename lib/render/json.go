// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"encoding/json"
	"io"

	"github.com/samcmill/wassail-sub000/lib/result"
)

// JSON writes the tree rooted at root as indented JSON.
func JSON(w io.Writer, root *result.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(root)
}
