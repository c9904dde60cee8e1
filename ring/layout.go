package ring

import (
	"fmt"
	"reflect"
)

// checkTriviallyCopyable guards the requirement that a type installed
// into a ring have a fixed, layout-compatible representation: Go
// generics can't express that constraint at compile time, so Create
// verifies it once at
// registration by walking T's reflected shape for anything that is not
// safe to memcpy across process boundaries (pointers, slices, strings,
// maps, channels, funcs, interfaces).
func checkTriviallyCopyable(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.String, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return fmt.Errorf("ring: type %s is not trivially copyable (kind %s)", t, t.Kind())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if err := checkTriviallyCopyable(t.Field(i).Type); err != nil {
				return fmt.Errorf("field %s: %w", t.Field(i).Name, err)
			}
		}
	case reflect.Array:
		return checkTriviallyCopyable(t.Elem())
	}
	return nil
}
