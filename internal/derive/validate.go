package derive

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"math/big"
	"reflect"
	"slices"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidationError locates the first value that does not satisfy a schema.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate checks a JSON-decoded value (as produced by encoding/json or
// ojg) against s.
func Validate(s Schema, v any) error {
	return validate(s, v, true, "")
}

func fail(path, format string, args ...any) error {
	return &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)}
}

func validate(s Schema, v any, present bool, path string) error {
	switch s := s.(type) {
	case Optional:
		if !present {
			return nil
		}
		return validate(s.Inner, v, present, path)
	case Nullable:
		if present && v == nil {
			return nil
		}
		return validate(s.Inner, v, present, path)
	case Ref:
		return validate(s.Inner, v, present, path)
	}

	if !present {
		return fail(path, "required")
	}

	switch s := s.(type) {
	case Any, Unknown:
		return nil

	case String:
		str, ok := v.(string)
		if !ok {
			return fail(path, "expected string, got %T", v)
		}
		n := utf8.RuneCountInString(str)
		if s.Length > 0 && n != s.Length {
			return fail(path, "length must be %d", s.Length)
		}
		if s.Min > 0 && n < s.Min {
			return fail(path, "length must be at least %d", s.Min)
		}
		if s.Max > 0 && n > s.Max {
			return fail(path, "length must be at most %d", s.Max)
		}
		if s.Pattern != nil && !s.Pattern.MatchString(str) {
			return fail(path, "does not match %s", s.Pattern)
		}
		if s.Format == "uuid" {
			if _, err := uuid.Parse(str); err != nil {
				return fail(path, "invalid uuid: %v", err)
			}
		}
		return nil

	case Number:
		f, ok := toFloat(v)
		if !ok {
			return fail(path, "expected number, got %T", v)
		}
		if s.Int && f != math.Trunc(f) {
			return fail(path, "expected integer")
		}
		if s.NonNegative && f < 0 {
			return fail(path, "must be non-negative")
		}
		return nil

	case BigInt:
		var n big.Int
		switch x := v.(type) {
		case string:
			if _, ok := n.SetString(x, 10); !ok {
				return fail(path, "expected bigint")
			}
		default:
			f, ok := toFloat(v)
			if !ok || f != math.Trunc(f) {
				return fail(path, "expected bigint, got %T", v)
			}
			big.NewFloat(f).Int(&n)
		}
		if s.NonNegative && n.Sign() < 0 {
			return fail(path, "must be non-negative")
		}
		return nil

	case Boolean:
		if _, ok := v.(bool); !ok {
			return fail(path, "expected boolean, got %T", v)
		}
		return nil

	case Enum:
		str, ok := v.(string)
		if !ok || !slices.Contains(s.Values, str) {
			return fail(path, "expected one of %v", s.Values)
		}
		return nil

	case Literal:
		if !reflect.DeepEqual(normalize(v), normalize(s.Value)) {
			return fail(path, "expected %v", s.Value)
		}
		return nil

	case Object:
		m, ok := v.(map[string]any)
		if !ok {
			return fail(path, "expected object, got %T", v)
		}
		for _, k := range s.Keys {
			val, has := m[k]
			if err := validate(s.Shape[k], val, has, join(path, k)); err != nil {
				return err
			}
		}
		return nil

	case Array:
		list, ok := v.([]any)
		if !ok {
			return fail(path, "expected array, got %T", v)
		}
		for i, el := range list {
			if err := validate(s.Element, el, true, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil

	case Record:
		m, ok := v.(map[string]any)
		if !ok {
			return fail(path, "expected object, got %T", v)
		}
		for _, k := range slices.Sorted(maps.Keys(m)) {
			if err := validate(s.Value, m[k], true, join(path, k)); err != nil {
				return err
			}
		}
		return nil

	case Union:
		for _, opt := range s.Options {
			if validate(opt, v, true, path) == nil {
				return nil
			}
		}
		return fail(path, "matches no union option")
	}

	return fail(path, "unknown schema %T", s)
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

func normalize(v any) any {
	if f, ok := toFloat(v); ok {
		return f
	}
	return v
}
