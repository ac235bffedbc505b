package pickle

import "errors"

// Errors returned by the encoder and decoder.
var (
	ErrUnsupportedValue = errors.New("unsupported pickle value")
	ErrUnknownGlobal    = errors.New("unknown global")
	ErrInvalidStream    = errors.New("invalid pickle stream")
)

// Global references a callable by module and qualified name.
type Global struct {
	Module string
	Name   string
}

// String returns the dotted "module.name" form.
func (g Global) String() string {
	return g.Module + "." + g.Name
}

// Reduce is a call of Callable with Args, evaluated when the stream is loaded.
type Reduce struct {
	Callable Global
	Args     Tuple
}

// Tuple is an immutable positional sequence. It is distinct from []any,
// which encodes as a list.
type Tuple []any

// Item is a key/value pair of an OrderedDict.
type Item struct {
	Key   string
	Value any
}

// OrderedDict is an insertion-ordered mapping, encoded as collections.OrderedDict.
type OrderedDict []Item

// Len returns the number of items.
func (d OrderedDict) Len() int {
	return len(d)
}
