// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"fmt"
	"strings"

	"github.com/gomlx/graphopt/pkg/support/sets"
)

// SourceID identifies a node created by the user (as opposed to one synthesized by a pass).
// It is the NodeID the source node had when it was created.
type SourceID int

// Origin records the source nodes a node descends from, so generated code can be traced back
// to the operators of the original model.
//
// Origins are immutable once created: use ComposeOrigins to derive new ones.
type Origin struct {
	sources *sets.Ordered[SourceID]
	names   map[SourceID]string
}

// NewOrigin returns the origin of a single source node.
func NewOrigin(id SourceID, name string) *Origin {
	return &Origin{
		sources: sets.MakeOrdered(id),
		names:   map[SourceID]string{id: name},
	}
}

// ComposeOrigins returns the ordered union of the given origins: sources keep the order in which
// they first appear. nil origins are ignored.
func ComposeOrigins(origins ...*Origin) *Origin {
	composed := &Origin{
		sources: &sets.Ordered[SourceID]{},
		names:   make(map[SourceID]string),
	}
	for _, o := range origins {
		if o == nil {
			continue
		}
		composed.sources = composed.sources.Union(o.sources)
		for id, name := range o.names {
			if _, found := composed.names[id]; !found {
				composed.names[id] = name
			}
		}
	}
	return composed
}

// Sources returns the IDs of the source nodes, in order.
func (o *Origin) Sources() []SourceID {
	if o == nil {
		return nil
	}
	return o.sources.Elements()
}

// Names returns the names of the source nodes, in the same order as Sources.
func (o *Origin) Names() []string {
	sources := o.Sources()
	names := make([]string, len(sources))
	for ii, id := range sources {
		names[ii] = o.names[id]
	}
	return names
}

// String implements fmt.Stringer.
func (o *Origin) String() string {
	parts := make([]string, 0, o.Len())
	for _, id := range o.Sources() {
		parts = append(parts, fmt.Sprintf("%s#%d", o.names[id], id))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Len returns the number of source nodes.
func (o *Origin) Len() int {
	if o == nil {
		return 0
	}
	return o.sources.Len()
}
