// Package tag fills zero-valued struct fields from `default:"..."` tags.
package tag

import (
	"reflect"
)

const (
	tagName  = "default"
	maxDepth = 16
)

// ApplyDefaults walks the struct pointed to by target and sets every zero
// field that carries a default tag. Nested structs and pointers to structs
// are walked recursively; non-zero fields are left untouched, so it is safe
// to call both before and after unmarshalling.
//
//	type Server struct {
//	    Addr    string        `default:":8080"`
//	    Timeout time.Duration `default:"30s"`
//	}
func ApplyDefaults(target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer {
		return ErrTargetMustBePointer
	}
	if v.IsNil() {
		return ErrTargetIsNil
	}
	if v.Elem().Kind() != reflect.Struct {
		return ErrUnsupportedType
	}
	return applyStruct(v.Elem(), "", 0)
}

func applyStruct(v reflect.Value, path string, depth int) error {
	if depth >= maxDepth {
		return ErrMaxDepthExceeded
	}

	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}

		fieldPath := field.Name
		if path != "" {
			fieldPath = path + "." + field.Name
		}

		if err := applyField(fv, field.Tag.Get(tagName), fieldPath, depth); err != nil {
			return err
		}
	}
	return nil
}

func applyField(v reflect.Value, value, path string, depth int) error {
	switch v.Kind() {
	case reflect.Struct:
		if v.Type() == timeType {
			break
		}
		return applyStruct(v, path, depth+1)

	case reflect.Pointer:
		if v.Type().Elem().Kind() != reflect.Struct {
			if v.IsNil() && value != "" {
				ptr := reflect.New(v.Type().Elem())
				if err := parse(ptr.Elem(), value); err != nil {
					return newFieldError(path, value, err)
				}
				v.Set(ptr)
			}
			return nil
		}
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return applyStruct(v.Elem(), path, depth+1)

	case reflect.Slice:
		if v.Len() > 0 {
			for i := 0; i < v.Len(); i++ {
				elem := v.Index(i)
				if elem.Kind() == reflect.Pointer && !elem.IsNil() {
					elem = elem.Elem()
				}
				if elem.Kind() == reflect.Struct {
					if err := applyStruct(elem, path, depth+1); err != nil {
						return err
					}
				}
			}
			return nil
		}
	}

	if value == "" || !v.IsZero() {
		return nil
	}
	if err := parse(v, value); err != nil {
		return newFieldError(path, value, err)
	}
	return nil
}
