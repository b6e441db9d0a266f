// Package patch builds ordered patch documents for the management service.
//
// Paths are JSON-Pointer style: "/" separated segments where "~" and "/"
// inside a segment are written as "~0" and "~1". Operations are applied by
// the remote service in document order, so the builder never reorders them.
package patch

import (
	"encoding/json"
	"strings"
)

// Op is the kind of a patch operation.
type Op string

// Supported operation kinds.
const (
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpRemove  Op = "remove"
)

// Operation is a single pointer-addressed mutation.
// A nil Value is sent as an explicit JSON null, which the service reads as
// "unset" rather than "leave unchanged".
type Operation struct {
	Op    Op      `json:"op"`
	Path  string  `json:"path"`
	Value *string `json:"value"`
}

// Document is an ordered list of operations.
type Document struct {
	Operations []Operation `json:"patchOperations"`
}

// NewOperation builds a single operation.
func NewOperation(op Op, path string, value *string) Operation {
	return Operation{Op: op, Path: path, Value: value}
}

// Add builds an add operation with a string value.
func Add(path, value string) Operation {
	return NewOperation(OpAdd, path, &value)
}

// Replace builds a replace operation with a string value.
func Replace(path, value string) Operation {
	return NewOperation(OpReplace, path, &value)
}

// Remove builds a remove operation; its value is always null.
func Remove(path string) Operation {
	return NewOperation(OpRemove, path, nil)
}

// New builds a document from operations, preserving their order.
func New(ops ...Operation) Document {
	doc := Document{Operations: make([]Operation, 0, len(ops))}
	doc.Operations = append(doc.Operations, ops...)
	return doc
}

// Append adds operations to the end of the document.
func (d *Document) Append(ops ...Operation) {
	d.Operations = append(d.Operations, ops...)
}

// Len returns the number of operations.
func (d Document) Len() int {
	return len(d.Operations)
}

// JSON encodes the document in the service wire format.
func (d Document) JSON() ([]byte, error) {
	if d.Operations == nil {
		d.Operations = []Operation{}
	}
	return json.Marshal(d)
}

// Escape escapes one pointer segment. "~" is escaped before "/" so the
// produced "~1" sequences are never re-escaped.
func Escape(segment string) string {
	segment = strings.ReplaceAll(segment, "~", "~0")
	return strings.ReplaceAll(segment, "/", "~1")
}

// Unescape reverses Escape.
func Unescape(segment string) string {
	segment = strings.ReplaceAll(segment, "~1", "/")
	return strings.ReplaceAll(segment, "~0", "~")
}

// Pointer joins escaped segments into a pointer path.
func Pointer(segments ...string) string {
	var b strings.Builder
	for _, segment := range segments {
		b.WriteByte('/')
		b.WriteString(Escape(segment))
	}
	return b.String()
}

// Segments splits a pointer path back into unescaped segments.
func Segments(pointer string) []string {
	if pointer == "" || pointer == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	for i, part := range parts {
		parts[i] = Unescape(part)
	}
	return parts
}
