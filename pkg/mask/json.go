package mask

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// MarshalJSON writes maps in insertion order and always gives floats a
// fractional part so that the int/float distinction survives a round trip.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return fmt.Errorf("mask: cannot encode %v as JSON", v.f)
		}
		buf.WriteString(formatFloat(v.f))
	case KindString:
		encoded, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(encoded)
	case KindList:
		buf.WriteByte('[')
		for idx, item := range v.list {
			if idx > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		first := true
		var err error
		v.m.Range(func(key string, value Value) bool {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			encoded, encErr := json.Marshal(key)
			if encErr != nil {
				err = encErr
				return false
			}
			buf.Write(encoded)
			buf.WriteByte(':')
			if err = writeJSON(buf, value); err != nil {
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("mask: unknown kind %s", v.kind)
	}
	return nil
}

// UnmarshalJSON keeps object key order and decodes numbers without a
// fractional part or exponent as Int.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	out, err := readJSON(dec)
	if err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("mask: trailing data after JSON value")
	}
	*v = out
	return nil
}

func readJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return parseNumber(string(t))
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := readJSON(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindList, list: items}, nil
		case '{':
			m := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("mask: unexpected object key %v", keyTok)
				}
				item, err := readJSON(dec)
				if err != nil {
					return Value{}, err
				}
				m.Set(key, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return FromMap(m), nil
		}
	}
	return Value{}, fmt.Errorf("mask: unexpected JSON token %v", tok)
}

func parseNumber(raw string) (Value, error) {
	if !strings.ContainsAny(raw, ".eE") {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Value{}, fmt.Errorf("mask: parse number %q: %w", raw, err)
	}
	return Float(f), nil
}

// formatFloat renders f with the shortest representation that still reads
// back as a float.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// MarshalJSON writes the map in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	return FromMap(m).MarshalJSON()
}
