// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tree

import (
	"context"
	"net/url"
	"strings"

	"github.com/ManuGH/pipelined/internal/rcode"
)

// Resolve walks an absolute, /-separated, URL-encoded path from root to a
// concrete Node. Empty segments (double slashes, trailing
// slash) are ignored; a missing segment yields NoResource. The resolved
// Node is returned with its reference count incremented; callers must
// Release it on every exit path.
func Resolve(ctx context.Context, root Node, path string) (Node, rcode.Code) {
	if root == nil {
		return nil, rcode.NullArgument
	}
	decoded, err := url.PathUnescape(path)
	if err != nil {
		return nil, rcode.BadCommand
	}

	current := root
	for _, segment := range strings.Split(decoded, "/") {
		if segment == "" {
			continue
		}
		walker, ok := current.(childLookup)
		if !ok {
			return nil, rcode.NoResource
		}
		child, ok := walker.lookupChild(ctx, segment)
		if !ok {
			return nil, rcode.NoResource
		}
		current = child
	}
	current.Retain()
	return current, rcode.EOK
}
