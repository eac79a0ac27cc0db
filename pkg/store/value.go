package store

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	// KindText is a plain string.
	KindText Kind = iota
	// KindNumber is a JSON number, kept as its literal text.
	KindNumber
	// KindBool is a JSON boolean.
	KindBool
	// KindNull is a JSON null.
	KindNull
	// KindObject is a string-keyed mapping.
	KindObject
	// KindArray is an ordered sequence.
	KindArray
)

// String returns the kind name used in error messages.
func (k Kind) String() (name string) {
	switch k {
	case KindText:
		name = "text"
	case KindNumber:
		name = "number"
	case KindBool:
		name = "bool"
	case KindNull:
		name = "null"
	case KindObject:
		name = "object"
	case KindArray:
		name = "array"
	default:
		name = "unknown"
	}
	return name
}

// Value is one entry in a Store: either a scalar or a nested container produced by parsing
// a step's structured output. The zero Value is the empty Text.
type Value struct {
	kind   Kind
	text   string
	number json.Number
	flag   bool
	object map[string]Value
	array  []Value
}

// Text builds a text value.
func Text(s string) (v Value) {
	v = Value{kind: KindText, text: s}
	return v
}

// Number builds a number value from its literal text.
func Number(n json.Number) (v Value) {
	v = Value{kind: KindNumber, number: n}
	return v
}

// Bool builds a boolean value.
func Bool(b bool) (v Value) {
	v = Value{kind: KindBool, flag: b}
	return v
}

// Null builds a null value.
func Null() (v Value) {
	v = Value{kind: KindNull}
	return v
}

// Object builds an object value. The map is used as is.
func Object(fields map[string]Value) (v Value) {
	if fields == nil {
		fields = map[string]Value{}
	}
	v = Value{kind: KindObject, object: fields}
	return v
}

// Array builds an array value. The slice is used as is.
func Array(items []Value) (v Value) {
	if items == nil {
		items = []Value{}
	}
	v = Value{kind: KindArray, array: items}
	return v
}

// Kind reports which variant the value holds.
func (v Value) Kind() (k Kind) {
	k = v.kind
	return k
}

// Field looks up a key of an object value.
func (v Value) Field(key string) (field Value, ok bool) {
	if v.kind != KindObject {
		return field, ok
	}
	field, ok = v.object[key]
	return field, ok
}

// Index looks up a position of an array value.
func (v Value) Index(i int) (item Value, ok bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.array) {
		return item, ok
	}
	item = v.array[i]
	ok = true
	return item, ok
}

// Len returns the number of fields or items of a container, zero for scalars.
func (v Value) Len() (n int) {
	switch v.kind {
	case KindObject:
		n = len(v.object)
	case KindArray:
		n = len(v.array)
	}
	return n
}

// Keys returns the sorted keys of an object value.
func (v Value) Keys() (keys []string) {
	keys = make([]string, 0, len(v.object))
	for k := range v.object {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the canonical text form: text verbatim, scalars as their JSON literal,
// containers as compact JSON.
func (v Value) String() (s string) {
	switch v.kind {
	case KindText:
		s = v.text
	case KindNumber:
		s = v.number.String()
	case KindBool:
		if v.flag {
			s = "true"
		} else {
			s = "false"
		}
	case KindNull:
		s = "null"
	case KindObject, KindArray:
		data, err := v.MarshalJSON()
		if err != nil {
			return s
		}
		s = string(data)
	}
	return s
}

// Equal reports deep equality.
func (v Value) Equal(other Value) (equal bool) {
	if v.kind != other.kind {
		return equal
	}
	switch v.kind {
	case KindText:
		equal = v.text == other.text
	case KindNumber:
		equal = v.number == other.number
	case KindBool:
		equal = v.flag == other.flag
	case KindNull:
		equal = true
	case KindObject:
		if len(v.object) != len(other.object) {
			return equal
		}
		for k, field := range v.object {
			o, ok := other.object[k]
			if !ok || !field.Equal(o) {
				return equal
			}
		}
		equal = true
	case KindArray:
		if len(v.array) != len(other.array) {
			return equal
		}
		for i := range v.array {
			if !v.array[i].Equal(other.array[i]) {
				return equal
			}
		}
		equal = true
	}
	return equal
}

// Clone returns a deep copy.
func (v Value) Clone() (c Value) {
	c = v
	switch v.kind {
	case KindObject:
		c.object = make(map[string]Value, len(v.object))
		for k, field := range v.object {
			c.object[k] = field.Clone()
		}
	case KindArray:
		c.array = make([]Value, len(v.array))
		for i, item := range v.array {
			c.array[i] = item.Clone()
		}
	}
	return c
}

// Without returns a copy of v with every object field named key removed, at any depth.
func (v Value) Without(key string) (stripped Value) {
	switch v.kind {
	case KindObject:
		fields := make(map[string]Value, len(v.object))
		for k, field := range v.object {
			if k == key {
				continue
			}
			fields[k] = field.Without(key)
		}
		stripped = Object(fields)
	case KindArray:
		items := make([]Value, len(v.array))
		for i, item := range v.array {
			items[i] = item.Without(key)
		}
		stripped = Array(items)
	default:
		stripped = v
	}
	return stripped
}

// MarshalJSON encodes the value as plain JSON.
func (v Value) MarshalJSON() (data []byte, err error) {
	switch v.kind {
	case KindText:
		data, err = marshalRaw(v.text)
	case KindNumber:
		data = []byte(v.number.String())
	case KindBool:
		data, err = marshalRaw(v.flag)
	case KindNull:
		data = []byte("null")
	case KindObject:
		data, err = marshalRaw(v.object)
	case KindArray:
		data, err = marshalRaw(v.array)
	default:
		err = errors.Errorf("unknown value kind %d", v.kind)
	}
	return data, err
}

// UnmarshalJSON decodes any JSON document into the matching variant.
func (v *Value) UnmarshalJSON(data []byte) (err error) {
	*v, err = Parse(data)
	return err
}

// Parse decodes a JSON document into a Value, keeping numbers as literals.
func Parse(data []byte) (v Value, err error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	err = dec.Decode(&raw)
	if err != nil {
		err = errors.Wrap(err, "failed to decode JSON value")
		return v, err
	}

	if dec.More() {
		err = errors.New("unexpected data after JSON value")
		return v, err
	}

	v, err = FromInterface(raw)
	return v, err
}

// FromInterface converts the output of encoding/json (decoded with UseNumber or not) into a Value.
func FromInterface(raw interface{}) (v Value, err error) {
	switch t := raw.(type) {
	case nil:
		v = Null()
	case string:
		v = Text(t)
	case bool:
		v = Bool(t)
	case json.Number:
		v = Number(t)
	case float64:
		v = Number(json.Number(formatFloat(t)))
	case map[string]interface{}:
		fields := make(map[string]Value, len(t))
		for k, field := range t {
			fields[k], err = FromInterface(field)
			if err != nil {
				return v, err
			}
		}
		v = Object(fields)
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i], err = FromInterface(item)
			if err != nil {
				return v, err
			}
		}
		v = Array(items)
	default:
		err = errors.Errorf("unsupported JSON type %T", raw)
	}
	return v, err
}

// Interface converts the value back to plain Go types (json.Number for numbers).
func (v Value) Interface() (raw interface{}) {
	switch v.kind {
	case KindText:
		raw = v.text
	case KindNumber:
		raw = v.number
	case KindBool:
		raw = v.flag
	case KindNull:
		raw = nil
	case KindObject:
		m := make(map[string]interface{}, len(v.object))
		for k, field := range v.object {
			m[k] = field.Interface()
		}
		raw = m
	case KindArray:
		items := make([]interface{}, len(v.array))
		for i, item := range v.array {
			items[i] = item.Interface()
		}
		raw = items
	}
	return raw
}

// marshalRaw encodes without HTML escaping so placeholder brackets survive verbatim.
func marshalRaw(x interface{}) (data []byte, err error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err = enc.Encode(x)
	if err != nil {
		return data, err
	}
	data = bytes.TrimRight(buf.Bytes(), "\n")
	return data, err
}
