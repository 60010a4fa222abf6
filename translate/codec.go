package translate

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"gopkg.in/yaml.v3"
)

// JSON translates between a JSON byte slice and a readable value of type R.
// An empty writable yields the zero readable, supporting default-value policies.
func JSON[R any]() Translator[[]byte, R] {
	return New[[]byte, R](
		func(value R) ([]byte, error) {
			if encoded, err := json.Marshal(value); err != nil {
				return nil, errors.WithMessage(err, "failed to encode json")
			} else {
				return encoded, nil
			}
		},
		func(value []byte) (R, error) {
			var readable R
			if len(value) == 0 {
				return readable, nil
			}
			if err := json.Unmarshal(value, &readable); err != nil {
				return readable, errors.WithMessage(err, "failed to decode json")
			}
			return readable, nil
		})
}

// Gob translates between gob bytes and a readable value, so R should expose fields.
func Gob[R any]() Translator[[]byte, R] {
	return New[[]byte, R](
		func(value R) ([]byte, error) {
			var buffer bytes.Buffer
			if err := gob.NewEncoder(&buffer).Encode(&value); err != nil {
				return nil, errors.WithMessage(err, "failed to encode gob")
			}
			return buffer.Bytes(), nil
		},
		func(value []byte) (R, error) {
			readable := new(R)
			if len(value) == 0 {
				return *readable, nil
			}
			if err := gob.NewDecoder(bytes.NewReader(value)).Decode(readable); err != nil {
				return *readable, errors.WithMessage(err, "failed to decode gob bytes")
			}
			return *readable, nil
		})
}

// YAML translates between a YAML document and a readable value of type R.
func YAML[R any]() Translator[[]byte, R] {
	return New[[]byte, R](
		func(value R) ([]byte, error) {
			if encoded, err := yaml.Marshal(value); err != nil {
				return nil, errors.WithMessage(err, "failed to encode yaml")
			} else {
				return encoded, nil
			}
		},
		func(value []byte) (R, error) {
			var readable R
			if len(value) == 0 {
				return readable, nil
			}
			if err := yaml.Unmarshal(value, &readable); err != nil {
				return readable, errors.WithMessage(err, "failed to decode yaml")
			}
			return readable, nil
		})
}

// Proto translates between the protobuf wire format and a message of type M.
// newMessage allocates an empty message, which also serves as the readable
// default for an empty writable.
func Proto[M proto.Message](newMessage func() M) Translator[[]byte, M] {
	return New[[]byte, M](
		func(value M) ([]byte, error) {
			if encoded, err := proto.Marshal(value); err != nil {
				return nil, errors.WithMessage(err, "failed to encode proto")
			} else {
				return encoded, nil
			}
		},
		func(value []byte) (M, error) {
			message := newMessage()
			if len(value) == 0 {
				return message, nil
			}
			if err := proto.Unmarshal(value, message); err != nil {
				return message, errors.WithMessage(err, "failed to decode proto bytes")
			}
			return message, nil
		})
}

// Strings translates between raw bytes and a string, a common chain outer leg.
func Strings() Translator[[]byte, string] {
	return New[[]byte, string](
		func(value string) ([]byte, error) { return []byte(value), nil },
		func(value []byte) (string, error) { return string(value), nil })
}

// Itoa translates between the decimal string form and an int.
// An empty writable yields zero.
func Itoa() Translator[string, int] {
	return New[string, int](
		func(value int) (string, error) { return strconv.Itoa(value), nil },
		func(value string) (int, error) {
			if value == "" {
				return 0, nil
			}
			if parsed, err := strconv.Atoi(value); err != nil {
				return 0, errors.WithMessagef(err, "failed to parse %q", value)
			} else {
				return parsed, nil
			}
		})
}
