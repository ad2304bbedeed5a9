package util

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidationError reports the first field of a tool input that does not
// match its schema. Nested fields use dotted paths ("start.date").
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// CreateSchema derives a JSON schema from a struct.
//
// Field names follow the json tag. Fields without omitempty are required.
// Nested structs and slices of structs get their own properties. A field
// tagged `anyof:"a,b"` must be an object that contains at least one of the
// listed keys, e.g. a time given either as dateTime or as date.
func CreateSchema(v any) map[string]any {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	return structSchema(t)
}

func structSchema(t reflect.Type) map[string]any {
	properties := make(map[string]any, t.NumField())
	required := make([]string, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitEmpty, skip := jsonName(field)
		if skip {
			continue
		}

		prop := typeSchema(field.Type)

		if description := field.Tag.Get("description"); description != "" {
			prop["description"] = description
		}

		if keys := field.Tag.Get("anyof"); keys != "" {
			groups := make([]any, 0, strings.Count(keys, ",")+1)
			for _, key := range strings.Split(keys, ",") {
				groups = append(groups, map[string]any{"required": []string{strings.TrimSpace(key)}})
			}
			prop["anyOf"] = groups
		}

		properties[name] = prop

		if !omitEmpty && field.Type.Kind() != reflect.Ptr {
			required = append(required, name)
		}
	}

	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

func typeSchema(t reflect.Type) map[string]any {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": typeSchema(t.Elem())}
	case reflect.Struct:
		return structSchema(t)
	case reflect.Map:
		return map[string]any{"type": "object"}
	default:
		return map[string]any{"type": "string"}
	}
}

func jsonName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}

	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = field.Name
	}

	for _, opt := range strings.Split(opts, ",") {
		if strings.TrimSpace(opt) == "omitempty" {
			omitEmpty = true
		}
	}

	return name, omitEmpty, false
}

// ValidateParameters checks decoded JSON params against schema. Unknown
// fields are allowed; nested objects and array items are checked recursively.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	return validateObject("", params, schema)
}

func validateObject(path string, obj map[string]any, schema map[string]any) error {
	for _, name := range requiredFields(schema) {
		if v, ok := obj[name]; !ok || v == nil {
			return &ValidationError{Field: joinPath(path, name), Message: "required field is missing"}
		}
	}

	if groups, ok := schema["anyOf"].([]any); ok && len(groups) > 0 {
		if err := validateAnyOf(path, obj, groups); err != nil {
			return err
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for name, value := range obj {
		prop, ok := properties[name].(map[string]any)
		if !ok {
			continue
		}

		if err := validateValue(joinPath(path, name), value, prop); err != nil {
			return err
		}
	}

	return nil
}

func validateValue(path string, value any, schema map[string]any) error {
	if value == nil {
		return nil
	}

	expected, _ := schema["type"].(string)
	if !isValidType(value, expected) {
		return &ValidationError{
			Field:   path,
			Value:   value,
			Message: fmt.Sprintf("expected type %s, got %T", expected, value),
		}
	}

	switch v := value.(type) {
	case map[string]any:
		return validateObject(path, v, schema)
	case []any:
		items, ok := schema["items"].(map[string]any)
		if !ok {
			return nil
		}
		for i, item := range v {
			if err := validateValue(fmt.Sprintf("%s[%d]", path, i), item, items); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateAnyOf passes when the object satisfies the required keys of at least one group.
func validateAnyOf(path string, obj map[string]any, groups []any) error {
	names := make([]string, 0, len(groups))

	for _, g := range groups {
		group, ok := g.(map[string]any)
		if !ok {
			continue
		}

		keys := requiredFields(group)
		names = append(names, strings.Join(keys, "+"))

		satisfied := true
		for _, key := range keys {
			if v, ok := obj[key]; !ok || v == nil || isEmptyString(v) {
				satisfied = false
				break
			}
		}

		if satisfied {
			return nil
		}
	}

	return &ValidationError{
		Field:   path,
		Value:   obj,
		Message: fmt.Sprintf("must contain '%s'", strings.Join(names, "' or '")),
	}
}

func isEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}

	return parent + "." + name
}

// isValidType reports whether a decoded JSON value matches a schema type.
// Unknown types accept anything.
func isValidType(value any, expected string) bool {
	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		switch n := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64:
			return n == float64(int64(n))
		}
		return false
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			return true
		}
		return false
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

// requiredFields accepts both hand-written ([]string) and JSON decoded ([]any) schemas.
func requiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if name, ok := r.(string); ok {
				out = append(out, name)
			}
		}
		return out
	default:
		return nil
	}
}
