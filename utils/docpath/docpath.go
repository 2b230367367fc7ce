// Package docpath reads and writes nested document values addressed by
// dot-separated paths ("data.projects.2.name"). Writes never mutate their
// input: every container along the path is copied and the new root returned.
package docpath

import (
	"fmt"
	"strconv"
	"strings"

	"folio/models"
)

// Split breaks a path into its segments. Empty paths and empty segments are rejected.
func Split(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty path", models.ErrInvalidPath)
	}
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", models.ErrInvalidPath, path)
		}
	}
	return parts, nil
}

// Get returns the value at path, or false if any segment is missing.
func Get(root map[string]interface{}, path string) (interface{}, bool) {
	parts, err := Split(path)
	if err != nil {
		return nil, false
	}
	var cur interface{} = root
	for _, seg := range parts {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set returns a copy of root with value stored at path. Missing intermediate
// objects are created; a list index equal to the list length appends.
func Set(root map[string]interface{}, path string, value interface{}) (map[string]interface{}, error) {
	parts, err := Split(path)
	if err != nil {
		return nil, err
	}
	out, err := setIn(root, parts, Clone(value), path)
	if err != nil {
		return nil, err
	}
	return out.(map[string]interface{}), nil
}

// Delete returns a copy of root without the value at path. Deleting a list
// element shifts the following elements down. A missing path is not an error.
func Delete(root map[string]interface{}, path string) (map[string]interface{}, error) {
	parts, err := Split(path)
	if err != nil {
		return nil, err
	}
	if _, ok := Get(root, path); !ok {
		return shallowMap(root), nil
	}
	out, err := deleteIn(root, parts, path)
	if err != nil {
		return nil, err
	}
	return out.(map[string]interface{}), nil
}

func setIn(node interface{}, parts []string, value interface{}, path string) (interface{}, error) {
	seg := parts[0]
	last := len(parts) == 1

	switch n := node.(type) {
	case nil:
		next := map[string]interface{}{}
		return setIn(next, parts, value, path)
	case map[string]interface{}:
		out := shallowMap(n)
		if last {
			out[seg] = value
			return out, nil
		}
		child, err := setIn(n[seg], parts[1:], value, path)
		if err != nil {
			return nil, err
		}
		out[seg] = child
		return out, nil
	case []interface{}:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i > len(n) {
			return nil, fmt.Errorf("%w: %q: index %s out of range", models.ErrInvalidPath, path, seg)
		}
		out := make([]interface{}, len(n), len(n)+1)
		copy(out, n)
		if i == len(n) {
			out = append(out, nil)
		}
		if last {
			out[i] = value
			return out, nil
		}
		child, err := setIn(out[i], parts[1:], value, path)
		if err != nil {
			return nil, err
		}
		out[i] = child
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q: cannot descend into %T", models.ErrInvalidPath, path, node)
	}
}

func deleteIn(node interface{}, parts []string, path string) (interface{}, error) {
	seg := parts[0]
	last := len(parts) == 1

	switch n := node.(type) {
	case map[string]interface{}:
		out := shallowMap(n)
		if last {
			delete(out, seg)
			return out, nil
		}
		child, err := deleteIn(n[seg], parts[1:], path)
		if err != nil {
			return nil, err
		}
		out[seg] = child
		return out, nil
	case []interface{}:
		i, _ := strconv.Atoi(seg)
		if last {
			out := make([]interface{}, 0, len(n)-1)
			out = append(out, n[:i]...)
			return append(out, n[i+1:]...), nil
		}
		out := make([]interface{}, len(n))
		copy(out, n)
		child, err := deleteIn(n[i], parts[1:], path)
		if err != nil {
			return nil, err
		}
		out[i] = child
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidPath, path)
	}
}

func shallowMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Clone deep-copies maps and lists; scalars are returned as-is.
func Clone(v interface{}) interface{} {
	switch n := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, val := range n {
			out[k] = Clone(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, val := range n {
			out[i] = Clone(val)
		}
		return out
	case []string:
		out := make([]interface{}, len(n))
		for i, s := range n {
			out[i] = s
		}
		return out
	default:
		return v
	}
}

// CloneMap deep-copies a document.
func CloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	return Clone(m).(map[string]interface{})
}
