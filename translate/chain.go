package translate

type chainTranslator[W, B, R any] struct {
	outer Translator[W, B]
	inner Translator[B, R]
}

func (t *chainTranslator[W, B, R]) TranslateReadable(value R) (W, error) {
	var ni W
	if bridge, err := t.inner.TranslateReadable(value); err != nil {
		return ni, err
	} else {
		return t.outer.TranslateReadable(bridge)
	}
}

func (t *chainTranslator[W, B, R]) TranslateWritable(value W) (R, error) {
	var ni R
	if bridge, err := t.outer.TranslateWritable(value); err != nil {
		return ni, err
	} else {
		return t.inner.TranslateWritable(bridge)
	}
}

// Chain composes two translators through the intermediate type B: the outer
// translator faces the storage backend, the inner one faces application logic.
// A failure in either leg propagates unchanged.
func Chain[W, B, R any](outer Translator[W, B], inner Translator[B, R]) Translator[W, R] {
	return &chainTranslator[W, B, R]{outer: outer, inner: inner}
}
