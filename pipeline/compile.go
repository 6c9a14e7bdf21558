package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/petal-labs/petalstream"
	"github.com/petal-labs/petalstream/core"
	"github.com/petal-labs/petalstream/runtime"
)

// Options configures compilation.
type Options struct {
	// Logger receives the output of print operators (default: slog.Default()).
	Logger *slog.Logger

	// Handler, when set, instruments the compiled pipeline under its name.
	Handler runtime.EventHandler
}

// stage builds one operator on top of up.
type stage func(up core.Publisher[any]) core.Publisher[any]

// Compile validates def and returns the publisher it describes. Every
// operator and function name is checked before anything is built.
func Compile(def Definition, opts Options) (core.Publisher[any], error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	src, err := compileSource(def.Source)
	if err != nil {
		return nil, err
	}

	stages := make([]stage, 0, len(def.Operators))
	var errs []error
	for i, op := range def.Operators {
		st, err := compileOperator(op, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("operator %d (%s): %w", i, op.Name, err))
			continue
		}
		stages = append(stages, st)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	p := src
	for _, st := range stages {
		p = st(p)
	}
	if opts.Handler != nil {
		name := def.Name
		if name == "" {
			name = "pipeline"
		}
		p = petalstream.Instrument(p, name, opts.Handler)
	}
	return petalstream.Erase(p), nil
}

func compileSource(s Source) (core.Publisher[any], error) {
	switch s.Kind {
	case "", SourceValues:
		values := make([]any, len(s.Values))
		for i, v := range s.Values {
			values[i] = normalize(v)
		}
		return petalstream.FromSlice(values), nil
	case SourceEmpty:
		if len(s.Values) > 0 {
			return nil, fmt.Errorf("%w: empty source with values", ErrInvalidSource)
		}
		return petalstream.Empty[any](), nil
	case SourceFail:
		msg := s.Error
		if msg == "" {
			msg = "source failed"
		}
		return petalstream.Fail[any](errors.New(msg)), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidSource, s.Kind)
	}
}

func normalize(v any) any {
	if n, ok := v.(int); ok {
		return float64(n)
	}
	return v
}

func compileOperator(op Operator, opts Options) (stage, error) {
	p := op.Params
	switch op.Name {
	case "map":
		fn, ok := unaryFuncs[p.Fn]
		if !ok {
			return nil, unknownFn(p.Fn)
		}
		return func(up core.Publisher[any]) core.Publisher[any] {
			return petalstream.TryMap(up, func(v any) (any, error) { return fn(v) })
		}, nil

	case "scan", "reduce":
		fn, ok := binaryFuncs[p.Fn]
		if !ok {
			return nil, unknownFn(p.Fn)
		}
		if p.Initial == nil {
			return nil, fmt.Errorf("%w: initial", ErrMissingParam)
		}
		initial := normalize(p.Initial)
		if op.Name == "scan" {
			return func(up core.Publisher[any]) core.Publisher[any] {
				return unfold(petalstream.Scan(up, fold{acc: initial}, fn.step))
			}, nil
		}
		return func(up core.Publisher[any]) core.Publisher[any] {
			return unfold(petalstream.Reduce(up, fold{acc: initial}, fn.step))
		}, nil

	case "collect":
		size := p.Size
		if size <= 0 {
			return nil, fmt.Errorf("size %d: %w", size, petalstream.ErrInvalidCount)
		}
		return func(up core.Publisher[any]) core.Publisher[any] {
			return widen(petalstream.Collect(up, size))
		}, nil

	case "min":
		return func(up core.Publisher[any]) core.Publisher[any] {
			return petalstream.MinBy(up, less)
		}, nil

	case "max":
		return func(up core.Publisher[any]) core.Publisher[any] {
			return petalstream.MaxBy(up, less)
		}, nil

	case "first":
		return petalstream.First[any], nil

	case "last":
		return petalstream.Last[any], nil

	case "first_where", "contains_where", "all_satisfy":
		mk, ok := predicates[p.Fn]
		if !ok {
			return nil, unknownFn(p.Fn)
		}
		pred := mk(p.Value)
		switch op.Name {
		case "first_where":
			return func(up core.Publisher[any]) core.Publisher[any] {
				return petalstream.FirstWhere(up, pred)
			}, nil
		case "contains_where":
			return func(up core.Publisher[any]) core.Publisher[any] {
				return widen(petalstream.ContainsWhere(up, pred))
			}, nil
		default:
			return func(up core.Publisher[any]) core.Publisher[any] {
				return widen(petalstream.AllSatisfy(up, pred))
			}, nil
		}

	case "contains":
		want := normalize(p.Value)
		return func(up core.Publisher[any]) core.Publisher[any] {
			return widen(petalstream.ContainsWhere(up, func(v any) bool { return equal(v, want) }))
		}, nil

	case "output_at":
		index := p.Index
		if index < 0 {
			return nil, fmt.Errorf("index %d: %w", index, petalstream.ErrInvalidCount)
		}
		return func(up core.Publisher[any]) core.Publisher[any] {
			return petalstream.OutputAt(up, index)
		}, nil

	case "output_in":
		from, to := p.From, p.To
		if from < 0 {
			return nil, fmt.Errorf("from %d: %w", from, petalstream.ErrInvalidCount)
		}
		if from > to {
			return nil, fmt.Errorf("from %d to %d: %w", from, to, petalstream.ErrInvalidRange)
		}
		return func(up core.Publisher[any]) core.Publisher[any] {
			return petalstream.OutputIn(up, from, to)
		}, nil

	case "count":
		return func(up core.Publisher[any]) core.Publisher[any] {
			return petalstream.Map(petalstream.Count(up), func(n int) any { return float64(n) })
		}, nil

	case "replace_empty":
		fallback := normalize(p.Value)
		return func(up core.Publisher[any]) core.Publisher[any] {
			return petalstream.ReplaceEmpty(up, fallback)
		}, nil

	case "print":
		prefix, logger := p.Prefix, opts.Logger
		return func(up core.Publisher[any]) core.Publisher[any] {
			return petalstream.Print(up, prefix, logger)
		}, nil

	default:
		return nil, ErrUnknownOperator
	}
}

func unknownFn(name string) error {
	return fmt.Errorf("%w %q", ErrUnknownFunction, name)
}

// fold carries a scan or reduce accumulator together with the first error
// the combining function returned.
type fold struct {
	acc any
	err error
}

func (fn binaryFunc) step(f fold, v any) fold {
	if f.err != nil {
		return f
	}
	acc, err := fn(f.acc, v)
	return fold{acc: acc, err: err}
}

// unfold turns a stream of folds back into values, failing the stream at
// the first error.
func unfold(up core.Publisher[fold]) core.Publisher[any] {
	return petalstream.TryMap(up, func(f fold) (any, error) {
		return f.acc, f.err
	})
}

// widen erases the static element type of up.
func widen[T any](up core.Publisher[T]) core.Publisher[any] {
	return petalstream.Map(up, func(v T) any { return v })
}
