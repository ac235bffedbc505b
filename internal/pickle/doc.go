// Package pickle writes and reads reconstruction recipes as Python pickle streams.
//
// A recipe is a callable reference plus an argument tuple. Encoding one yields
// a protocol 3 stream built from GLOBAL and REDUCE opcodes:
//
//	PROTO 3
//	GLOBAL "born.nn" "rebuild_parameter"
//	  GLOBAL "born.tensor" "rebuild_tensor" (...) REDUCE
//	  NEWTRUE
//	  GLOBAL "collections" "OrderedDict" () REDUCE
//	TUPLE3 REDUCE STOP
//
// Decoding replays the stream with github.com/nlpodyssey/gopickle, resolving
// each GLOBAL through functions registered on the Decoder. Values handed to
// those functions are plain Go values ([]any, Tuple, map[string]any,
// OrderedDict), never gopickle types.
//
// Example:
//
//	var buf bytes.Buffer
//	err := pickle.NewEncoder(&buf).Encode(pickle.Reduce{
//	    Callable: pickle.Global{Module: "born.nn", Name: "rebuild_parameter"},
//	    Args:     pickle.Tuple{data, true, pickle.OrderedDict{}},
//	})
//
//	dec := pickle.NewDecoder(&buf)
//	dec.Register("born.nn", "rebuild_parameter", rebuild)
//	value, err := dec.Decode()
package pickle
