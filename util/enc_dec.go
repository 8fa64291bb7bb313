package util

import (
	"bytes"
	"encoding/json"
	"math"
)

type EncoderDecoder[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (*T, error)
}

// JsonEncDec carries event bodies and stored state as JSON. Decoding into an
// untyped value yields int for integral numbers and float64 otherwise, so a
// decoded body compares equal to the one mapping rules built.
type JsonEncDec[T any] struct{}

var _ EncoderDecoder[any] = new(JsonEncDec[any])

func NewJsonEncoderDecoder[T any]() *JsonEncDec[T] {
	return &JsonEncDec[T]{}
}

func (encdec *JsonEncDec[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (encdec *JsonEncDec[T]) Decode(data []byte) (*T, error) {
	var res T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&res); err != nil {
		return nil, err
	}
	if untyped, ok := any(&res).(*any); ok {
		*untyped = plainNumbers(*untyped)
	}
	return &res, nil
}

func plainNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil && n >= math.MinInt && n <= math.MaxInt {
			return int(n)
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, item := range t {
			t[k] = plainNumbers(item)
		}
	case []any:
		for i, item := range t {
			t[i] = plainNumbers(item)
		}
	}
	return v
}
