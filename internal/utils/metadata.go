package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Metadata is the open key/value bag attached to recorded events. Keys keep
// their arrival order across decode and encode; values are restricted to
// strings, numbers, booleans, and nested bags.
type Metadata map[string]Entry

// Entry is one metadata value together with its position in the bag.
type Entry struct {
	Value Value
	Order int64
}

type valueKind int

const (
	kindString valueKind = iota
	kindNumber
	kindBool
	kindBag
)

// Value is one metadata value. Construct with String, Number, Bool or Bag.
type Value struct {
	kind valueKind
	str  string
	num  float64
	b    bool
	bag  Metadata
}

func String(s string) Value  { return Value{kind: kindString, str: s} }
func Number(f float64) Value { return Value{kind: kindNumber, num: f} }
func Bool(b bool) Value      { return Value{kind: kindBool, b: b} }
func Bag(m Metadata) Value   { return Value{kind: kindBag, bag: m} }

func (v Value) AsString() (string, bool)  { return v.str, v.kind == kindString }
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == kindNumber }
func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == kindBool }
func (v Value) AsBag() (Metadata, bool)   { return v.bag, v.kind == kindBag }

// Set appends a value under key, ordered after every existing entry.
func (m Metadata) Set(key string, v Value) {
	var max int64 = -1
	for _, e := range m {
		if e.Order > max {
			max = e.Order
		}
	}
	m[key] = Entry{Value: v, Order: max + 1}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindString:
		return json.Marshal(v.str)
	case kindNumber:
		return json.Marshal(v.num)
	case kindBool:
		return json.Marshal(v.b)
	case kindBag:
		return v.bag.MarshalJSON()
	}
	return nil, fmt.Errorf("metadata: unknown value kind %d", v.kind)
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	type pair struct {
		key   string
		value Value
		order int64
	}
	pairs := make([]pair, 0, len(m))
	for k, e := range m {
		pairs = append(pairs, pair{
			key:   k,
			value: e.Value,
			order: e.Order,
		})
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].order < pairs[j].order
	})

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyBytes, err := json.Marshal(p.key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valueBytes, err := p.value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *Metadata) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("metadata: expected object, got %v", tok)
	}

	bag, err := decodeBagBody(dec)
	if err != nil {
		return err
	}

	*m = bag
	return nil
}

// decodeBagBody consumes entries up to and including the closing brace.
func decodeBagBody(dec *json.Decoder) (Metadata, error) {
	bag := Metadata{}
	var order int64
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("metadata: expected key, got %v", tok)
		}

		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}

		bag[key] = Entry{Value: value, Order: order}
		order++
	}

	if _, err := dec.Token(); err != nil { // closing brace
		return nil, err
	}
	return bag, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		if t != '{' {
			return Value{}, fmt.Errorf("metadata: arrays are not allowed")
		}
		bag, err := decodeBagBody(dec)
		if err != nil {
			return Value{}, err
		}
		return Bag(bag), nil
	case string:
		return String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Value{}, fmt.Errorf("metadata: null values are not allowed")
	}
	return Value{}, fmt.Errorf("metadata: unsupported value %v", tok)
}
