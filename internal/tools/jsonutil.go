package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

var jsonNull = json.RawMessage("null")

// member is one key of an ordered JSON object.
type member struct {
	Key   string
	Value json.RawMessage
}

// object is a JSON object that keeps the key order it was decoded or built with.
type object []member

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(m.Value) == 0 {
			buf.Write(jsonNull)
		} else {
			buf.Write(m.Value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o object) get(key string) (json.RawMessage, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrShape, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrShape, want, tok)
	}
	return nil
}

func readObject(dec *json.Decoder) (object, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	obj := object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrShape, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected key %v", ErrShape, tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: value of %q: %v", ErrShape, key, err)
		}
		obj = append(obj, member{Key: key, Value: v})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return obj, nil
}

// decodeObject decodes a JSON object preserving key order.
func decodeObject(raw []byte) (object, error) {
	return readObject(json.NewDecoder(bytes.NewReader(raw)))
}

// decodeRows decodes a JSON array of objects preserving key order in every row.
func decodeRows(raw []byte) ([]object, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	rows := []object{}
	for dec.More() {
		row, err := readObject(dec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return rows, nil
}

// numberColumns are cat columns reported as strings that are counts.
var numberColumns = map[string]bool{
	"docs.count": true,
	"shard":      true,
	"docs":       true,
}

// numberize rewrites the counting columns of cat rows from strings to JSON numbers.
// Values that do not parse are left as they are.
func numberize(rows []object) {
	for _, row := range rows {
		for i, m := range row {
			if !numberColumns[m.Key] {
				continue
			}
			var s string
			if err := json.Unmarshal(m.Value, &s); err != nil {
				continue
			}
			if n, err := strconv.ParseUint(s, 10, 64); err == nil {
				row[i].Value = json.RawMessage(strconv.FormatUint(n, 10))
			}
		}
	}
}
