// Package flatten linearizes nested product documents into a Record of
// dotted, indexed paths mapped to scalar values.
//
// Map keys are joined with "." and sequence elements are suffixed with "[i]":
//
//	{"attributes": {"color": [{"value": "Red"}]}}
//
// flattens to
//
//	attributes.color[0].value = Red
//
// Empty values, sentinel placeholders such as "unknown" or "n/a", and strings
// longer than constants.MaxValueLength are dropped. Leaf paths are lowercased.
package flatten

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/errors"
)

// sentinels are placeholder values that carry no information.
var sentinels = map[string]struct{}{
	"none":    {},
	"null":    {},
	"en_us":   {},
	"default": {},
	"n/a":     {},
	"unknown": {},
	"generic": {},
}

// IsSentinel reports whether s is empty or a placeholder value.
func IsSentinel(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return true
	}
	_, ok := sentinels[s]
	return ok
}

// Flatten projects v onto a new Record.
//
// Plain Go maps are visited in sorted key order; yaml.MapSlice values keep
// their document order. Typed containers such as []map[string]any,
// map[string]string or []float64 and pointers to them are walked through
// reflection. Structs, funcs and channels are skipped.
func Flatten(v any) *Record {
	r := New()
	walk(v, "", r)
	return r
}

// Decode parses a JSON or YAML document, preserving object key order.
// Objects decode to yaml.MapSlice in both cases.
func Decode(data []byte) (any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		v, err := decodeJSON(trimmed)
		if err != nil {
			return nil, errors.WrapParse("json", "", err)
		}
		return v, nil
	}
	var v any
	if err := yaml.UnmarshalWithOptions(data, &v, yaml.UseOrderedMap()); err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}
	return v, nil
}

// FlattenBytes decodes data and flattens the result.
func FlattenBytes(data []byte) (*Record, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Flatten(v), nil
}

func walk(v any, prefix string, out *Record) {
	switch node := v.(type) {
	case yaml.MapSlice:
		for _, item := range node {
			walk(item.Value, join(prefix, fmt.Sprint(item.Key)), out)
		}
	case map[string]any:
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(node[k], join(prefix, k), out)
		}
	case map[any]any:
		keys := make([]string, 0, len(node))
		byName := make(map[string]any, len(node))
		for k, val := range node {
			name := fmt.Sprint(k)
			keys = append(keys, name)
			byName[name] = val
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(byName[k], join(prefix, k), out)
		}
	case []any:
		for i, item := range node {
			walk(item, prefix+"["+strconv.Itoa(i)+"]", out)
		}
	case []string:
		for i, item := range node {
			walk(item, prefix+"["+strconv.Itoa(i)+"]", out)
		}
	default:
		if s, ok := scalar(v); ok {
			leaf(s, prefix, out)
			return
		}
		walkValue(reflect.ValueOf(v), prefix, out)
	}
}

// walkValue handles the containers and named scalar types the type switch
// in walk does not list.
func walkValue(rv reflect.Value, prefix string, out *Record) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if !rv.IsNil() {
			walk(rv.Elem().Interface(), prefix, out)
		}
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		byName := make(map[string]reflect.Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			name := fmt.Sprint(iter.Key().Interface())
			keys = append(keys, name)
			byName[name] = iter.Value()
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(byName[k].Interface(), join(prefix, k), out)
		}
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			leaf(string(rv.Bytes()), prefix, out)
			return
		}
		fallthrough
	case reflect.Array:
		for i := range rv.Len() {
			walk(rv.Index(i).Interface(), prefix+"["+strconv.Itoa(i)+"]", out)
		}
	case reflect.String:
		leaf(rv.String(), prefix, out)
	case reflect.Bool:
		leaf(strconv.FormatBool(rv.Bool()), prefix, out)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		leaf(strconv.FormatInt(rv.Int(), 10), prefix, out)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		leaf(strconv.FormatUint(rv.Uint(), 10), prefix, out)
	case reflect.Float32, reflect.Float64:
		leaf(strconv.FormatFloat(rv.Float(), 'f', -1, rv.Type().Bits()), prefix, out)
	}
}

// leaf stores s under the lowercased prefix unless it is a sentinel or
// too long.
func leaf(s, prefix string, out *Record) {
	if IsSentinel(s) {
		return
	}
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > constants.MaxValueLength {
		return
	}
	out.Set(strings.ToLower(prefix), s)
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// scalar renders supported leaf values as strings.
func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case json.Number:
		return x.String(), true
	case int:
		return strconv.Itoa(x), true
	case int8, int16, int32, int64:
		return fmt.Sprint(x), true
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	}
	return "", false
}
