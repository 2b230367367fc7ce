package schema

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator produces candidate ids for list items that lack one.
type IDGenerator func() string

// NewItemID returns a time-ordered id with a random tail (UUIDv7).
func NewItemID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// StableIDs returns a generator whose sequence depends only on seed, so the
// same document normalized twice under the same seed gets the same ids.
func StableIDs(seed string) IDGenerator {
	n := 0
	return func() string {
		n++
		sum := sha1.Sum([]byte(fmt.Sprintf("%s#%d", seed, n)))
		return "itm-" + hex.EncodeToString(sum[:8])
	}
}

// IDAssigner hands out ids that never collide with one already present in
// the document being normalized.
type IDAssigner struct {
	used map[string]struct{}
	gen  IDGenerator
}

func newIDAssigner(doc interface{}, gen IDGenerator) *IDAssigner {
	if gen == nil {
		gen = NewItemID
	}
	a := &IDAssigner{used: map[string]struct{}{}, gen: gen}
	a.reserve(doc)
	return a
}

// reserve records every string "id" found on a list item anywhere in v.
func (a *IDAssigner) reserve(v interface{}) {
	switch n := v.(type) {
	case map[string]interface{}:
		for _, val := range n {
			a.reserve(val)
		}
	case []interface{}:
		for _, item := range n {
			if m, ok := item.(map[string]interface{}); ok {
				if id, ok := scalarString(m["id"]); ok && id != "" {
					a.used[id] = struct{}{}
				}
			}
			a.reserve(item)
		}
	}
}

func (a *IDAssigner) next() string {
	for {
		id := a.gen()
		if _, taken := a.used[id]; !taken {
			a.used[id] = struct{}{}
			return id
		}
	}
}

// Assign gives every object in list a unique string id. The first holder of
// an id keeps it; later duplicates and items without one get a fresh id.
func (a *IDAssigner) Assign(list []interface{}) {
	seen := map[string]struct{}{}
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		id, ok := scalarString(m["id"])
		if !ok || id == "" {
			m["id"] = a.next()
			continue
		}
		if _, dup := seen[id]; dup {
			m["id"] = a.next()
			continue
		}
		seen[id] = struct{}{}
		m["id"] = id
	}
}
