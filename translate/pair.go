package translate

import "github.com/pkg/errors"

type pairTranslator[KW comparable, VW any, KR comparable, VR any] struct {
	keys   Translator[KW, KR]
	values Translator[VW, VR]
}

func (t *pairTranslator[KW, VW, KR, VR]) TranslateReadable(value map[KR]VR) (map[KW]VW, error) {
	if value == nil {
		return nil, nil
	}
	writable := make(map[KW]VW, len(value))
	for kr, vr := range value {
		kw, err := t.keys.TranslateReadable(kr)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to translate key %v", kr)
		}
		if _, ok := writable[kw]; ok {
			return nil, errors.WithMessagef(ErrKeyCollision, "writable key %v", kw)
		}
		if vw, err := t.values.TranslateReadable(vr); err != nil {
			return nil, errors.WithMessagef(err, "failed to translate value of key %v", kr)
		} else {
			writable[kw] = vw
		}
	}
	return writable, nil
}

func (t *pairTranslator[KW, VW, KR, VR]) TranslateWritable(value map[KW]VW) (map[KR]VR, error) {
	if value == nil {
		return nil, nil
	}
	readable := make(map[KR]VR, len(value))
	for kw, vw := range value {
		kr, err := t.keys.TranslateWritable(kw)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to translate key %v", kw)
		}
		if _, ok := readable[kr]; ok {
			return nil, errors.WithMessagef(ErrKeyCollision, "readable key %v", kr)
		}
		if vr, err := t.values.TranslateWritable(vw); err != nil {
			return nil, errors.WithMessagef(err, "failed to translate value of key %v", kw)
		} else {
			readable[kr] = vr
		}
	}
	return readable, nil
}

// Pair translates a keyed collection elementwise, applying the key translator
// to every key and the value translator to every value. Two distinct keys
// translating to the same key would silently lose an entry, so that case is
// surfaced as ErrKeyCollision instead.
func Pair[KW comparable, VW any, KR comparable, VR any](
	keys Translator[KW, KR], values Translator[VW, VR]) Translator[map[KW]VW, map[KR]VR] {
	return &pairTranslator[KW, VW, KR, VR]{keys: keys, values: values}
}
