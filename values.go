package metatype

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ErrUnsupportedValue is returned when an attribute value is not one of the
// kinds an annotation can hold.
var ErrUnsupportedValue = errors.New("unsupported attribute value")

// ValueKind indicates the type of underlying value for an annotation
// attribute.
type ValueKind int

const (
	// KindInvalid should not be used and indicates an incorrectly uninitialized
	// kind.
	KindInvalid ValueKind = iota
	// KindInt is for values whose type is a signed integer. They are stored as
	// int64.
	KindInt
	// KindUint is for values whose type is an unsigned integer. They are stored
	// as uint64.
	KindUint
	// KindFloat is for values whose type is a floating point number. They are
	// stored as float64.
	KindFloat
	// KindString is for values whose type is a string.
	KindString
	// KindBool is for values whose type is a boolean.
	KindBool
	// KindNil is for nil values.
	KindNil
	// KindSlice is for values whose type is a slice or array. They are stored
	// as []any.
	KindSlice
	// KindMap is for values whose type is a map with string keys. They are
	// stored as map[string]any.
	KindMap
)

var kindNames = map[ValueKind]string{
	KindInt:    "int",
	KindUint:   "uint",
	KindFloat:  "float",
	KindString: "string",
	KindBool:   "bool",
	KindNil:    "nil",
	KindSlice:  "slice",
	KindMap:    "map",
}

func (k ValueKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "<invalid>"
}

// IsScalar returns true for kinds that hold a single number, string, or bool.
func (k ValueKind) IsScalar() bool {
	return k >= KindInt && k <= KindBool
}

// KindOf returns the kind of the given normalized value. It returns
// KindInvalid for values that have not been normalized or that cannot be
// used as attribute values.
func KindOf(v any) ValueKind {
	switch v.(type) {
	case nil:
		return KindNil
	case int64:
		return KindInt
	case uint64:
		return KindUint
	case float64:
		return KindFloat
	case string:
		return KindString
	case bool:
		return KindBool
	case []any:
		return KindSlice
	case map[string]any:
		return KindMap
	default:
		return KindInvalid
	}
}

// normalizeValue converts v into one of the canonical representations listed
// on ValueKind, copying aggregates so that the result shares no state with v.
func normalizeValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch v := v.(type) {
	case int64, uint64, float64, string, bool:
		return v, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		sl := make([]any, rv.Len())
		for i := range sl {
			e, err := normalizeValue(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			sl[i] = e
		}
		return sl, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key type %v must be string", ErrUnsupportedValue, rv.Type().Key())
		}
		if rv.IsNil() {
			return nil, nil
		}
		mp := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			e, err := normalizeValue(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			mp[k] = e
		}
		return mp, nil
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalizeValue(rv.Elem().Interface())
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

// copyValue returns a deep copy of a normalized value.
func copyValue(v any) any {
	switch v := v.(type) {
	case []any:
		sl := make([]any, len(v))
		for i := range v {
			sl[i] = copyValue(v[i])
		}
		return sl
	case map[string]any:
		mp := make(map[string]any, len(v))
		for k, e := range v {
			mp[k] = copyValue(e)
		}
		return mp
	default:
		return v
	}
}

func formatValue(sb *strings.Builder, v any) {
	switch v := v.(type) {
	case nil:
		sb.WriteString("nil")
	case string:
		sb.WriteString(strconv.Quote(v))
	case []any:
		sb.WriteByte('{')
		for i, e := range v {
			if i > 0 {
				sb.WriteString(", ")
			}
			formatValue(sb, e)
		}
		sb.WriteByte('}')
	case map[string]any:
		sb.WriteByte('{')
		for i, k := range sortedKeys(v) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteString(": ")
			formatValue(sb, v[k])
		}
		sb.WriteByte('}')
	default:
		fmt.Fprintf(sb, "%v", v)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
