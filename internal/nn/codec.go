package nn

import (
	"fmt"
	"io"

	"github.com/born-ml/param/internal/pickle"
	"github.com/born-ml/param/internal/tensor"
)

// Globals referenced by encoded parameters.
var (
	rebuildParameterGlobal = pickle.Global{Module: RebuildModule, Name: RebuildParamName}
	rebuildTensorGlobal    = pickle.Global{Module: "born.tensor", Name: "rebuild_tensor"}
)

// DecodeOptions configures DecodeParameter.
type DecodeOptions struct {
	// Legacy decodes with RebuildParameterV1, the rebuilder that predates tags.
	Legacy bool
}

// EncodeParameter writes p's recipe to w as a pickle stream.
//
// The tensor argument is itself a recipe,
// born.tensor.rebuild_tensor(dtype, shape, strides, data, device).
func EncodeParameter[B tensor.Backend](w io.Writer, p *Parameter[B]) error {
	recipe := p.Reduce()

	args := make(pickle.Tuple, len(recipe.Args))
	args[0] = tensorRecipe(p.tensor.Raw())
	args[1] = recipe.Args[1]
	args[2] = pickle.OrderedDict{}
	if recipe.Arity() == 4 {
		args[3] = map[string]any(p.tags)
	}

	err := pickle.NewEncoder(w).Encode(pickle.Reduce{
		Callable: rebuildParameterGlobal,
		Args:     args,
	})
	if err != nil {
		return fmt.Errorf("failed to encode parameter %q: %w", p.name, err)
	}
	return nil
}

// DecodeParameter reads a parameter written by EncodeParameter and binds its
// tensor to backend.
func DecodeParameter[B tensor.Backend](r io.Reader, backend B, opts DecodeOptions) (*Parameter[B], error) {
	dec := pickle.NewDecoder(r)
	dec.Register(rebuildTensorGlobal.Module, rebuildTensorGlobal.Name, rebuildTensor)
	dec.Register(rebuildParameterGlobal.Module, rebuildParameterGlobal.Name, func(args ...any) (any, error) {
		if opts.Legacy {
			return RebuildParameterV1(backend, args...)
		}
		return RebuildParameter(backend, args...)
	})

	v, err := dec.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode parameter: %w", err)
	}
	p, ok := v.(*Parameter[B])
	if !ok {
		return nil, fmt.Errorf("%w: stream holds %T, not a parameter", ErrBadRecipe, v)
	}
	return p, nil
}

func tensorRecipe(raw *tensor.RawTensor) pickle.Reduce {
	shape := make(pickle.Tuple, len(raw.Shape()))
	for i, d := range raw.Shape() {
		shape[i] = d
	}
	strides := make(pickle.Tuple, len(raw.Strides()))
	for i, s := range raw.Strides() {
		strides[i] = s
	}
	return pickle.Reduce{
		Callable: rebuildTensorGlobal,
		Args: pickle.Tuple{
			raw.DType().String(),
			shape,
			strides,
			append([]byte(nil), raw.Data()...),
			raw.Device().String(),
		},
	}
}

// rebuildTensor is the decoder side of tensorRecipe. It returns a *tensor.RawTensor.
func rebuildTensor(args ...any) (any, error) {
	if len(args) != 5 {
		return nil, fmt.Errorf("%w: rebuild_tensor expects 5 arguments, got %d", ErrBadRecipe, len(args))
	}

	name, _ := args[0].(string)
	dtype, ok := tensor.ParseDataType(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown dtype %v", ErrBadRecipe, args[0])
	}
	shape, ok := pickle.AsInts(args[1])
	if !ok {
		return nil, fmt.Errorf("%w: shape must be a tuple of ints, got %T", ErrBadRecipe, args[1])
	}
	strides, ok := pickle.AsInts(args[2])
	if !ok || len(strides) != len(shape) {
		return nil, fmt.Errorf("%w: strides %v do not match shape %v", ErrBadRecipe, args[2], shape)
	}
	data, ok := args[3].([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: data must be bytes, got %T", ErrBadRecipe, args[3])
	}
	deviceName, _ := args[4].(string)
	device, ok := tensor.ParseDevice(deviceName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown device %v", ErrBadRecipe, args[4])
	}

	raw, err := tensor.NewRawFromBytes(tensor.Shape(shape), dtype, device, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRecipe, err)
	}
	if err := raw.SetStrides(strides); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRecipe, err)
	}
	return raw, nil
}
