package pickle

import (
	"fmt"
	"io"
	"math/big"

	gopickle "github.com/nlpodyssey/gopickle/pickle"
	"github.com/nlpodyssey/gopickle/types"
)

// Func is a registered global. It receives already converted Go values.
type Func func(args ...any) (any, error)

// Decoder reads a pickle stream and evaluates its REDUCE calls against
// registered globals.
type Decoder struct {
	r       io.Reader
	globals map[Global]Func
}

// NewDecoder returns a Decoder reading from r.
//
// collections.OrderedDict is always available; every other global must be
// registered before Decode.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:       r,
		globals: make(map[Global]Func),
	}
}

// Register makes module.name resolvable during Decode.
func (d *Decoder) Register(module, name string, fn Func) {
	d.globals[Global{Module: module, Name: name}] = fn
}

// Decode loads one value from the stream and converts it to Go values.
func (d *Decoder) Decode() (any, error) {
	u := gopickle.NewUnpickler(d.r)
	u.FindClass = d.findClass

	v, err := u.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStream, err)
	}
	return convert(v)
}

func (d *Decoder) findClass(module, name string) (interface{}, error) {
	if module == orderedDictGlobal.Module && name == orderedDictGlobal.Name {
		return &types.OrderedDictClass{}, nil
	}
	g := Global{Module: module, Name: name}
	fn, ok := d.globals[g]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGlobal, g)
	}
	return callable{global: g, fn: fn}, nil
}

// callable adapts a Func to gopickle's types.Callable.
type callable struct {
	global Global
	fn     Func
}

func (c callable) Call(args ...interface{}) (interface{}, error) {
	converted := make([]any, len(args))
	for i, a := range args {
		v, err := convert(a)
		if err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", c.global, i, err)
		}
		converted[i] = v
	}
	return c.fn(converted...)
}

// convert maps gopickle container types to the package's Go representations.
//
//nolint:gocyclo,cyclop // One case per gopickle type
func convert(v interface{}) (any, error) {
	switch x := v.(type) {
	case *types.Tuple:
		out := make(Tuple, 0, len(*x))
		for _, item := range *x {
			c, err := convert(item)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	case *types.List:
		out := make([]any, 0, len(*x))
		for _, item := range *x {
			c, err := convert(item)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	case *types.Dict:
		out := make(map[string]any, x.Len())
		for _, k := range x.Keys() {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("%w: dict key of type %T", ErrUnsupportedValue, k)
			}
			value, _ := x.Get(k)
			c, err := convert(value)
			if err != nil {
				return nil, err
			}
			out[key] = c
		}
		return out, nil
	case *types.OrderedDict:
		out := make(OrderedDict, 0, x.Len())
		for e := x.List.Front(); e != nil; e = e.Next() {
			entry := e.Value.(*types.OrderedDictEntry)
			key, ok := entry.Key.(string)
			if !ok {
				return nil, fmt.Errorf("%w: ordered dict key of type %T", ErrUnsupportedValue, entry.Key)
			}
			c, err := convert(entry.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, Item{Key: key, Value: c})
		}
		return out, nil
	case *big.Int:
		if !x.IsInt64() {
			return nil, fmt.Errorf("%w: integer %s overflows int64", ErrUnsupportedValue, x)
		}
		return int(x.Int64()), nil
	case int64:
		return int(x), nil
	default:
		return v, nil
	}
}

// AsInt converts a decoded integer value to int.
func AsInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case int32:
		return int(x), true
	default:
		return 0, false
	}
}

// AsInts converts a decoded Tuple or list of integers to []int.
func AsInts(v any) ([]int, bool) {
	var items []any
	switch x := v.(type) {
	case Tuple:
		items = x
	case []any:
		items = x
	default:
		return nil, false
	}
	out := make([]int, len(items))
	for i, item := range items {
		n, ok := AsInt(item)
		if !ok {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}
