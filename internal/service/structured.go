package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// JSONKind tags the variant held by a JSONValue.
type JSONKind int

const (
	JSONNull JSONKind = iota
	JSONBool
	JSONNumber
	JSONString
	JSONArray
	JSONObject
)

// JSONField is one key of a JSON object, kept in document order.
type JSONField struct {
	Key   string
	Value JSONValue
}

// JSONValue is a decoded JSON document that preserves object key order.
type JSONValue struct {
	Kind   JSONKind
	Bool   bool
	Number json.Number
	String string
	Array  []JSONValue
	Object []JSONField
}

// ParseJSONValue decodes exactly one JSON value from data. Duplicate object
// keys keep their first position and their last value.
func ParseJSONValue(data []byte) (JSONValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return JSONValue{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return JSONValue{}, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (JSONValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return JSONValue{}, err
	}

	switch t := tok.(type) {
	case nil:
		return JSONValue{Kind: JSONNull}, nil
	case bool:
		return JSONValue{Kind: JSONBool, Bool: t}, nil
	case json.Number:
		return JSONValue{Kind: JSONNumber, Number: t}, nil
	case string:
		return JSONValue{Kind: JSONString, String: t}, nil
	case json.Delim:
		switch t {
		case '[':
			arr := []JSONValue{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return JSONValue{}, err
				}
				arr = append(arr, item)
			}
			if _, err := dec.Token(); err != nil {
				return JSONValue{}, err
			}
			return JSONValue{Kind: JSONArray, Array: arr}, nil
		case '{':
			fields := []JSONField{}
			pos := make(map[string]int)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return JSONValue{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return JSONValue{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return JSONValue{}, err
				}
				if i, dup := pos[key]; dup {
					fields[i].Value = val
					continue
				}
				pos[key] = len(fields)
				fields = append(fields, JSONField{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return JSONValue{}, err
			}
			return JSONValue{Kind: JSONObject, Object: fields}, nil
		}
	}
	return JSONValue{}, fmt.Errorf("unexpected JSON token %v", tok)
}

// ExtractJSONObject parses the span from the first '{' to the last '}' of
// text. ok is false when there is no such span, it does not parse, or it is
// not a non-empty object.
func ExtractJSONObject(text string) (JSONValue, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return JSONValue{}, false
	}

	v, err := ParseJSONValue([]byte(text[start : end+1]))
	if err != nil || v.Kind != JSONObject || len(v.Object) == 0 {
		return JSONValue{}, false
	}
	return v, true
}

// FormatStructured renders a JSON object as readable text: each top-level
// key becomes a bold title line followed by its content. The output depends
// only on the input.
func FormatStructured(doc JSONValue) string {
	var lines []string
	for _, section := range doc.Object {
		lines = append(lines, "**"+titleLabel(section.Key)+":**")

		values := section.Value
		switch {
		case values.Kind == JSONObject:
			lines = append(lines, "- "+flattenObject(values))
		case isObjectList(values):
			for i, item := range values.Array {
				lines = append(lines, fmt.Sprintf("- Item %d: %s", i+1, flattenObject(item)))
			}
		case values.Kind == JSONArray:
			for _, item := range values.Array {
				lines = append(lines, "- "+formatScalar(item))
			}
		default:
			lines = append(lines, "- "+formatScalar(values))
		}
		lines = append(lines, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func flattenObject(obj JSONValue) string {
	parts := make([]string, 0, len(obj.Object))
	for _, f := range obj.Object {
		parts = append(parts, titleLabel(f.Key)+": "+formatField(f.Key, f.Value))
	}
	return strings.Join(parts, " | ")
}

func formatField(key string, v JSONValue) string {
	switch {
	case v.Kind == JSONObject:
		return flattenObject(v)
	case isObjectList(v):
		return formatObjectList(key, v.Array)
	case v.Kind == JSONArray:
		return formatScalarList(v.Array)
	default:
		return formatScalar(v)
	}
}

// formatObjectList numbers items with the singular of key ("leaves" gives
// "Leave 1: ..."), falling back to "Item".
func formatObjectList(key string, items []JSONValue) string {
	singular := "Item"
	if len(key) > 1 && strings.HasSuffix(key, "s") {
		singular = key[:len(key)-1]
	}
	label := titleLabel(singular)

	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%s %d: %s", label, i+1, flattenObject(item))
	}
	return strings.Join(parts, "; ")
}

func formatScalarList(items []JSONValue) string {
	if len(items) == 0 {
		return "[]"
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = formatScalar(item)
	}
	return strings.Join(parts, ", ")
}

func formatScalar(v JSONValue) string {
	switch v.Kind {
	case JSONNull:
		return "null"
	case JSONBool:
		return strconv.FormatBool(v.Bool)
	case JSONNumber:
		return v.Number.String()
	case JSONString:
		return v.String
	case JSONArray:
		if len(v.Array) == 0 {
			return "[]"
		}
		return "[" + formatScalarList(v.Array) + "]"
	case JSONObject:
		return "{" + flattenObject(v) + "}"
	}
	return ""
}

func isObjectList(v JSONValue) bool {
	if v.Kind != JSONArray || len(v.Array) == 0 {
		return false
	}
	for _, item := range v.Array {
		if item.Kind != JSONObject {
			return false
		}
	}
	return true
}

// titleLabel turns snake_case into Title Case: underscores become spaces, a
// letter is upper-cased after a non-letter and lower-cased otherwise.
func titleLabel(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	prevLetter := false
	for _, r := range strings.ReplaceAll(key, "_", " ") {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
