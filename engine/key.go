package engine

import (
	"math"
	"reflect"
	"strconv"
	"strings"
)

/*
EncodeKey is the default key encoder. When K is string the key is used as it
is. Every other key is walked with reflect and written out field by field,
prefixed with its dynamic type, so that the result follows ==:

- 0.0 and -0.0 encode the same, in floats and in complex parts
- pointers and channels encode their address
- strings are quoted, so field boundaries cannot be forged
- unexported fields are included, so values that print alike still differ

Methods such as String or GoString are never called. Two distinct named types
with the same package path and name cannot be told apart, which only happens
with vendored copies of a package. NaN never equals itself, so CheckKey
rejects keys that contain one.
*/
func EncodeKey[K comparable](key K) string {
	var zero K
	if _, ok := any(zero).(string); ok {
		return any(key).(string)
	}

	var b strings.Builder
	writeValue(&b, reflect.ValueOf(any(key)), true)
	return b.String()
}

func typeName(t reflect.Type) string {
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

func writeFloat(b *strings.Builder, f float64) {
	if f == 0 {
		b.WriteString("0")
		return
	}
	b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}

func writeValue(b *strings.Builder, v reflect.Value, typed bool) {
	if !v.IsValid() {
		b.WriteString("nil")
		return
	}
	if typed {
		b.WriteString(typeName(v.Type()))
		b.WriteByte(':')
	}

	switch v.Kind() {
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		writeFloat(b, v.Float())
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		b.WriteByte('(')
		writeFloat(b, real(c))
		b.WriteByte(',')
		writeFloat(b, imag(c))
		b.WriteByte(')')
	case reflect.String:
		b.WriteString(strconv.Quote(v.String()))
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		b.WriteString("0x")
		b.WriteString(strconv.FormatUint(uint64(v.Pointer()), 16))
	case reflect.Interface:
		if v.IsNil() {
			b.WriteString("nil")
			return
		}
		writeValue(b, v.Elem(), true)
	case reflect.Array:
		b.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			writeValue(b, v.Index(i), false)
		}
		b.WriteByte(']')
	case reflect.Struct:
		b.WriteByte('{')
		for i := 0; i < v.NumField(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			writeValue(b, v.Field(i), false)
		}
		b.WriteByte('}')
	default:
		// not comparable, so it cannot be a map key either
		b.WriteString("?")
	}
}

// hasNaN reports whether v holds a NaN anywhere a float can sit in a
// comparable value.
func hasNaN(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return math.IsNaN(v.Float())
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		return math.IsNaN(real(c)) || math.IsNaN(imag(c))
	case reflect.Interface:
		return !v.IsNil() && hasNaN(v.Elem())
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if hasNaN(v.Index(i)) {
				return true
			}
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if hasNaN(v.Field(i)) {
				return true
			}
		}
	}
	return false
}
