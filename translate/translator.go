package translate

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

var (
	ErrTranslate    = fmt.Errorf("value matches neither side of the translator")
	ErrKeyCollision = fmt.Errorf("distinct keys translate to the same key")
)

// Translator converts between the writable representation W accepted by a
// storage backend and the readable representation R used by application logic.
// Implementations must be immutable after construction and must satisfy the
// round-trip law: TranslateWritable(TranslateReadable(r)) == r for every valid r.
// A zero/empty writable must translate to a zero (or translator-chosen default)
// readable rather than fail.
type Translator[W, R any] interface {
	TranslateReadable(value R) (W, error)
	TranslateWritable(value W) (R, error)
}

type ToWritable[W, R any] func(R) (W, error)
type ToReadable[W, R any] func(W) (R, error)

type funcTranslator[W, R any] struct {
	toWritable ToWritable[W, R]
	toReadable ToReadable[W, R]
}

func (t *funcTranslator[W, R]) TranslateReadable(value R) (W, error) {
	return t.toWritable(value)
}

func (t *funcTranslator[W, R]) TranslateWritable(value W) (R, error) {
	return t.toReadable(value)
}

// New builds a Translator from a function pair.
func New[W, R any](toWritable ToWritable[W, R], toReadable ToReadable[W, R]) Translator[W, R] {
	return &funcTranslator[W, R]{toWritable: toWritable, toReadable: toReadable}
}

type identityTranslator[T any] struct{}

func (identityTranslator[T]) TranslateReadable(value T) (T, error) { return value, nil }
func (identityTranslator[T]) TranslateWritable(value T) (T, error) { return value, nil }

// Identity passes a same-typed value through unchanged in both directions.
func Identity[T any]() Translator[T, T] {
	return identityTranslator[T]{}
}

// CheckRoundTrip asserts the round-trip law for one sample readable value.
// It is the primary correctness property for every translator implementation.
func CheckRoundTrip[W, R any](translator Translator[W, R], sample R) error {
	if writable, err := translator.TranslateReadable(sample); err != nil {
		return errors.WithMessage(err, "failed to translate sample to writable")
	} else if back, err := translator.TranslateWritable(writable); err != nil {
		return errors.WithMessage(err, "failed to translate writable back to readable")
	} else if !reflect.DeepEqual(sample, back) {
		return fmt.Errorf("round trip mismatch: %v != %v", back, sample)
	}
	return nil
}
