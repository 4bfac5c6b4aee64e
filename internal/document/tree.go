// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package document

import (
	"fmt"
	"strings"
)

// patchTree folds key paths into a nested patch object. A path may not be
// both a value and a parent of other paths.
type patchTree struct {
	children map[string]*patchTree
	value    interface{}
	leaf     bool
}

func (t *patchTree) insert(parts []string, value interface{}) error {
	node := t
	for i, part := range parts {
		if node.leaf {
			return fmt.Errorf("%q is already assigned a value", strings.Join(parts[:i], pathSeparator))
		}
		if node.children == nil {
			node.children = make(map[string]*patchTree)
		}

		child, ok := node.children[part]
		if !ok {
			child = &patchTree{}
			node.children[part] = child
		}
		node = child
	}

	if node.leaf || len(node.children) > 0 {
		return fmt.Errorf("%q is assigned more than once", strings.Join(parts, pathSeparator))
	}
	node.value = value
	node.leaf = true

	return nil
}

func (t *patchTree) build() map[string]interface{} {
	result := make(map[string]interface{}, len(t.children))
	for k, child := range t.children {
		if child.leaf {
			result[k] = child.value
		} else {
			result[k] = child.build()
		}
	}

	return result
}
