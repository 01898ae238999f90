// Package namewire encodes and decodes hierarchical names in their on-wire
// form: a sequence of length-prefixed labels terminated by a zero-length
// label. It also derives the keccak-256 label hashes and namespace nodes the
// registry and resolvers key their state by.
package namewire

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/avetrov/namevault/internal/model"
)

const (
	// MaxLabelLen is the longest single label the wire form can carry.
	MaxLabelLen = 63
	// MaxNameLen bounds the total encoded name, terminator included.
	MaxNameLen = 255
)

var (
	ErrEmptyLabel   = errors.New("namewire: empty label")
	ErrLabelTooLong = errors.New("namewire: label exceeds 63 bytes")
	ErrNameTooLong  = errors.New("namewire: encoded name exceeds 255 bytes")
	ErrTruncated    = errors.New("namewire: truncated name")
)

// Encode converts a dotted name to its wire form. The empty name encodes to
// the bare terminator (the namespace root).
func Encode(name string) ([]byte, error) {
	if name == "" {
		return []byte{0}, nil
	}
	labels := strings.Split(name, ".")
	out := make([]byte, 0, len(name)+2)
	for _, l := range labels {
		if l == "" {
			return nil, ErrEmptyLabel
		}
		if len(l) > MaxLabelLen {
			return nil, fmt.Errorf("%w: %q", ErrLabelTooLong, l)
		}
		out = append(out, byte(len(l)))
		out = append(out, l...)
	}
	out = append(out, 0)
	if len(out) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	return out, nil
}

// Decode converts a wire-form name back to dotted text.
func Decode(wire []byte) (string, error) {
	var b strings.Builder
	rest := wire
	for {
		label, tail, err := SplitFirst(rest)
		if err != nil {
			return "", err
		}
		if label == "" {
			return b.String(), nil
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(label)
		rest = tail
	}
}

// SplitFirst strips the outermost label off a wire-form name. It returns the
// label text and the remaining wire form (still terminated). The terminator
// itself decodes as an empty label with rest == nil.
func SplitFirst(wire []byte) (label string, rest []byte, err error) {
	if len(wire) == 0 {
		return "", nil, ErrTruncated
	}
	n := int(wire[0])
	if n == 0 {
		return "", nil, nil
	}
	if n > MaxLabelLen {
		return "", nil, fmt.Errorf("%w: length byte %d", ErrLabelTooLong, n)
	}
	if len(wire) < 1+n+1 {
		return "", nil, ErrTruncated
	}
	return string(wire[1 : 1+n]), wire[1+n:], nil
}

// HashLabel returns the keccak-256 hash of a single label's text.
func HashLabel(label string) model.LabelHash {
	var h model.LabelHash
	d := sha3.NewLegacyKeccak256()
	d.Write([]byte(label))
	d.Sum(h[:0])
	return h
}

// Subnode derives the child node for a label under a parent node.
func Subnode(parent model.Node, label model.LabelHash) model.Node {
	var n model.Node
	d := sha3.NewLegacyKeccak256()
	d.Write(parent[:])
	d.Write(label[:])
	d.Sum(n[:0])
	return n
}

// Namehash derives the node for a full dotted name. The empty name maps to
// the zero node (the namespace root).
func Namehash(name string) model.Node {
	var node model.Node
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		node = Subnode(node, HashLabel(labels[i]))
	}
	return node
}
