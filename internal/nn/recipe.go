package nn

import (
	"errors"
	"fmt"

	"github.com/born-ml/param/internal/tensor"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Qualified names of the rebuild functions referenced by recipes.
const (
	RebuildModule    = "born.nn"
	RebuildParamName = "rebuild_parameter"
)

// ErrBadRecipe is returned when recipe arguments cannot rebuild a parameter.
var ErrBadRecipe = errors.New("invalid parameter recipe")

// Recipe describes how to rebuild a value: call the function named Rebuild
// with Args.
type Recipe struct {
	Rebuild string
	Args    []any
}

// Arity returns the number of positional arguments.
func (r Recipe) Arity() int {
	return len(r.Args)
}

// Reduce returns the recipe that rebuilds p.
//
// The arguments are (data, requiresGrad, hooks) or, when p has tags,
// (data, requiresGrad, hooks, tags). hooks is always an empty ordered map:
// gradient hooks are not part of persisted state. Leaving out the tags
// argument when there are none keeps untagged parameters readable by
// rebuilders that only accept three arguments.
func (p *Parameter[B]) Reduce() Recipe {
	args := []any{p.tensor, p.requiresGrad, orderedmap.New[string, any]()}
	if len(p.tags) > 0 {
		args = append(args, p.tags)
	}
	return Recipe{
		Rebuild: RebuildModule + "." + RebuildParamName,
		Args:    args,
	}
}

// RebuildParameter replays the arguments of a parameter recipe.
//
// Both the three-argument and the four-argument form are accepted. data may
// be a typed float32 tensor or a float32 RawTensor, which is bound to
// backend. The result aliases data's storage.
func RebuildParameter[B tensor.Backend](backend B, args ...any) (*Parameter[B], error) {
	if len(args) != 3 && len(args) != 4 {
		return nil, fmt.Errorf("%w: expected 3 or 4 arguments, got %d", ErrBadRecipe, len(args))
	}

	data, requiresGrad, err := rebuildCommon(backend, args)
	if err != nil {
		return nil, err
	}

	var tags Tags
	if len(args) == 4 {
		switch t := args[3].(type) {
		case Tags:
			tags = t
		case map[string]any:
			tags = Tags(t)
		case nil:
		default:
			return nil, fmt.Errorf("%w: tags must be a string-keyed map, got %T", ErrBadRecipe, args[3])
		}
	}

	return NewParameter(data, WithRequiresGrad(requiresGrad), WithTags(tags)), nil
}

// RebuildParameterV1 is the rebuilder that predates tags. It accepts only
// the three-argument form.
func RebuildParameterV1[B tensor.Backend](backend B, args ...any) (*Parameter[B], error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("%w: expected 3 arguments, got %d", ErrBadRecipe, len(args))
	}

	data, requiresGrad, err := rebuildCommon(backend, args)
	if err != nil {
		return nil, err
	}
	return NewParameter(data, WithRequiresGrad(requiresGrad)), nil
}

func rebuildCommon[B tensor.Backend](backend B, args []any) (*tensor.Tensor[float32, B], bool, error) {
	var data *tensor.Tensor[float32, B]
	switch d := args[0].(type) {
	case *tensor.Tensor[float32, B]:
		data = d
	case *tensor.RawTensor:
		if d.DType() != tensor.Float32 {
			return nil, false, fmt.Errorf("%w: data dtype %s, want float32", ErrBadRecipe, d.DType())
		}
		data = tensor.New[float32](d, backend)
	default:
		return nil, false, fmt.Errorf("%w: data must be a tensor, got %T", ErrBadRecipe, args[0])
	}

	requiresGrad, ok := args[1].(bool)
	if !ok {
		return nil, false, fmt.Errorf("%w: requires_grad must be a bool, got %T", ErrBadRecipe, args[1])
	}

	// The hook slot is a placeholder; its contents are never restored.
	if args[2] != nil {
		if _, ok := args[2].(interface{ Len() int }); !ok {
			return nil, false, fmt.Errorf("%w: hook slot must be an ordered map, got %T", ErrBadRecipe, args[2])
		}
	}

	return data, requiresGrad, nil
}
