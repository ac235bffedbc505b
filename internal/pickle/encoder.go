package pickle

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
)

// Protocol is the pickle protocol version written by Encoder.
const Protocol = 3

// Opcodes used by the encoder.
const (
	opProto      = 0x80
	opStop       = '.'
	opGlobal     = 'c'
	opReduce     = 'R'
	opMark       = '('
	opTuple      = 't'
	opEmptyTuple = ')'
	opTuple1     = 0x85
	opTuple2     = 0x86
	opTuple3     = 0x87
	opNone       = 'N'
	opNewTrue    = 0x88
	opNewFalse   = 0x89
	opBinInt     = 'J'
	opLong1      = 0x8a
	opBinFloat   = 'G'
	opBinUnicode = 'X'
	opBinBytes   = 'B'
	opEmptyList  = ']'
	opAppends    = 'e'
	opEmptyDict  = '}'
	opSetItems   = 'u'
)

var orderedDictGlobal = Global{Module: "collections", Name: "OrderedDict"}

var dictType = reflect.TypeFor[map[string]any]()

// Encoder writes values as a pickle stream.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes v as a complete pickle stream (PROTO ... STOP) and flushes.
//
// Supported values: nil, bool, signed and unsigned integers, float32, float64,
// string, []byte, []any, Tuple, map[string]any, OrderedDict, Global and Reduce.
// Map keys are written in sorted order so equal maps produce equal streams.
func (e *Encoder) Encode(v any) error {
	e.w.WriteByte(opProto)
	e.w.WriteByte(Protocol)
	if err := e.encode(v); err != nil {
		return err
	}
	e.w.WriteByte(opStop)
	return e.w.Flush()
}

//nolint:gocyclo,cyclop // One case per supported value kind
func (e *Encoder) encode(v any) error {
	switch x := v.(type) {
	case nil:
		e.w.WriteByte(opNone)
	case bool:
		if x {
			e.w.WriteByte(opNewTrue)
		} else {
			e.w.WriteByte(opNewFalse)
		}
	case int:
		e.writeInt(int64(x))
	case int8:
		e.writeInt(int64(x))
	case int16:
		e.writeInt(int64(x))
	case int32:
		e.writeInt(int64(x))
	case int64:
		e.writeInt(x)
	case uint8:
		e.writeInt(int64(x))
	case uint16:
		e.writeInt(int64(x))
	case uint32:
		e.writeInt(int64(x))
	case uint:
		if uint64(x) > math.MaxInt64 {
			return fmt.Errorf("%w: uint %d overflows int64", ErrUnsupportedValue, x)
		}
		e.writeInt(int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return fmt.Errorf("%w: uint64 %d overflows int64", ErrUnsupportedValue, x)
		}
		e.writeInt(int64(x))
	case float32:
		e.writeFloat(float64(x))
	case float64:
		e.writeFloat(x)
	case string:
		e.writeLen(opBinUnicode, len(x))
		e.w.WriteString(x)
	case []byte:
		e.writeLen(opBinBytes, len(x))
		e.w.Write(x)
	case []any:
		return e.writeList(x)
	case Tuple:
		return e.writeTuple(x)
	case map[string]any:
		return e.writeDict(x)
	case OrderedDict:
		return e.writeOrderedDict(x)
	case Global:
		e.writeGlobal(x)
	case Reduce:
		e.writeGlobal(x.Callable)
		if err := e.writeTuple(x.Args); err != nil {
			return fmt.Errorf("arguments of %s: %w", x.Callable, err)
		}
		e.w.WriteByte(opReduce)
	default:
		// Named string-keyed maps such as nn.Tags encode as plain dicts.
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Map && rv.CanConvert(dictType) {
			return e.writeDict(rv.Convert(dictType).Interface().(map[string]any))
		}
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
	return nil
}

func (e *Encoder) writeInt(n int64) {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(int32(n))) //nolint:gosec // G115: range checked above
		e.w.WriteByte(opBinInt)
		e.w.Write(buf[:])
		return
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n)) //nolint:gosec // G115: two's complement encoding
	e.w.WriteByte(opLong1)
	e.w.WriteByte(8)
	e.w.Write(buf[:])
}

func (e *Encoder) writeFloat(f float64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(f))
	e.w.WriteByte(opBinFloat)
	e.w.Write(buf[:])
}

func (e *Encoder) writeLen(op byte, n int) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(n)) //nolint:gosec // G115: lengths above 4GiB are not supported
	e.w.WriteByte(op)
	e.w.Write(buf[:])
}

func (e *Encoder) writeGlobal(g Global) {
	e.w.WriteByte(opGlobal)
	e.w.WriteString(g.Module)
	e.w.WriteByte('\n')
	e.w.WriteString(g.Name)
	e.w.WriteByte('\n')
}

func (e *Encoder) writeTuple(t Tuple) error {
	switch len(t) {
	case 0:
		e.w.WriteByte(opEmptyTuple)
		return nil
	case 1, 2, 3:
		for _, v := range t {
			if err := e.encode(v); err != nil {
				return err
			}
		}
		e.w.WriteByte([]byte{opTuple1, opTuple2, opTuple3}[len(t)-1])
		return nil
	}

	e.w.WriteByte(opMark)
	for _, v := range t {
		if err := e.encode(v); err != nil {
			return err
		}
	}
	e.w.WriteByte(opTuple)
	return nil
}

func (e *Encoder) writeList(l []any) error {
	e.w.WriteByte(opEmptyList)
	if len(l) == 0 {
		return nil
	}
	e.w.WriteByte(opMark)
	for _, v := range l {
		if err := e.encode(v); err != nil {
			return err
		}
	}
	e.w.WriteByte(opAppends)
	return nil
}

func (e *Encoder) writeDict(m map[string]any) error {
	e.w.WriteByte(opEmptyDict)
	if len(m) == 0 {
		return nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]Item, len(keys))
	for i, k := range keys {
		items[i] = Item{Key: k, Value: m[k]}
	}
	return e.writeItems(items)
}

func (e *Encoder) writeOrderedDict(d OrderedDict) error {
	e.writeGlobal(orderedDictGlobal)
	e.w.WriteByte(opEmptyTuple)
	e.w.WriteByte(opReduce)
	if len(d) == 0 {
		return nil
	}
	return e.writeItems(d)
}

func (e *Encoder) writeItems(items []Item) error {
	e.w.WriteByte(opMark)
	for _, it := range items {
		e.encode(it.Key) //nolint:errcheck // strings always encode
		if err := e.encode(it.Value); err != nil {
			return fmt.Errorf("value for key %q: %w", it.Key, err)
		}
	}
	e.w.WriteByte(opSetItems)
	return nil
}
