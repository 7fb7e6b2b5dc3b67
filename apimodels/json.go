package apimodels

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errNotObject = errors.New("not a JSON object")

// decodeObject splits a JSON object into its members, keeping the key order
// of the document. A repeated key keeps its first position and its last value.
func decodeObject(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errNotObject
	}

	var keys []string
	members := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		if _, seen := members[key]; !seen {
			keys = append(keys, key)
		}
		members[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, members, nil
}

func asObject(raw json.RawMessage) ([]string, map[string]json.RawMessage, bool) {
	if isNull(raw) {
		return nil, nil, false
	}
	keys, members, err := decodeObject(raw)
	if err != nil {
		return nil, nil, false
	}
	return keys, members, true
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil || items == nil {
		return nil, false
	}
	return items, true
}

// asString reads a string member. Numbers are accepted and formatted the way
// they appear in the document.
func asString(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return formatNumber(n), true
	}
	return "", false
}

func asFloat(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// asBool follows loose truthiness: true, non-zero numbers and non-empty
// strings count as set.
func asBool(raw json.RawMessage) bool {
	if isNull(raw) {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	if f, ok := asFloat(raw); ok {
		return f != 0
	}
	if s, ok := asString(raw); ok {
		return s != ""
	}
	return false
}

func formatNumber(n json.Number) string {
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
