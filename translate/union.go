package translate

// Union holds at most one of the two representations a translator converts
// between, tagged explicitly by the constructor used. It replaces runtime
// type inspection for callers that receive "either side" values.
type Union[W, R any] struct {
	writable   W
	readable   R
	isWritable bool
	isReadable bool
}

func Writable[W, R any](value W) Union[W, R] {
	return Union[W, R]{writable: value, isWritable: true}
}

func Readable[W, R any](value R) Union[W, R] {
	return Union[W, R]{readable: value, isReadable: true}
}

func (u Union[W, R]) Writable() (W, bool) {
	return u.writable, u.isWritable
}

func (u Union[W, R]) Readable() (R, bool) {
	return u.readable, u.isReadable
}

// Translate flips a union to its opposite side: a writable union comes back
// readable and vice versa. An empty union yields ErrTranslate.
func Translate[W, R any](translator Translator[W, R], union Union[W, R]) (Union[W, R], error) {
	switch {
	case union.isWritable:
		if readable, err := translator.TranslateWritable(union.writable); err != nil {
			return Union[W, R]{}, err
		} else {
			return Readable[W, R](readable), nil
		}
	case union.isReadable:
		if writable, err := translator.TranslateReadable(union.readable); err != nil {
			return Union[W, R]{}, err
		} else {
			return Writable[W, R](writable), nil
		}
	default:
		return Union[W, R]{}, ErrTranslate
	}
}
