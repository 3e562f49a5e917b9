// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pretty renders decoded ACPI tables for humans.
package pretty

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/camelcase"
)

// Header returns the title line of an object printed at the given depth.
func Header(depth uint, description string, obj interface{}) string {
	if description == "" {
		description = fmt.Sprintf("%T", obj)
	}
	switch depth {
	case 0:
		description = `----` + description + "----\n"
	case 1:
		description = `--` + description + `--`
	default:
		description += `:`
	}
	description = strings.Repeat("  ", int(depth)) + description
	return description
}

// SubValue returns the line describing one field.
func SubValue(depth uint, fieldName, valueDescription string, value interface{}) string {
	if valueDescription == "" {
		valueDescription = describe(value)
	}
	return fmt.Sprintf("%s %s", Header(depth, fieldName, nil), valueDescription)
}

// FieldName turns a Go field name into words: "NumGuestIdentities" becomes
// "Num Guest Identities".
func FieldName(name string) string {
	return strings.Join(camelcase.Split(name), " ")
}

// Struct returns every exported field of the struct v, one per line.
// Embedded structs are flattened and fields named Reserved are skipped.
func Struct(depth uint, title string, v interface{}) string {
	var b strings.Builder
	b.WriteString(Header(depth, title, v))
	if depth > 0 {
		b.WriteString("\n")
	}
	writeFields(&b, depth+1, reflect.Indirect(reflect.ValueOf(v)))
	return b.String()
}

func writeFields(b *strings.Builder, depth uint, v reflect.Value) {
	if v.Kind() != reflect.Struct {
		fmt.Fprintln(b, SubValue(depth, "Value", "", v.Interface()))
		return
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" || f.Name == "Reserved" {
			continue
		}
		fv := v.Field(i)
		if f.Anonymous && fv.Kind() == reflect.Struct {
			if _, ok := fv.Interface().(fmt.Stringer); !ok {
				writeFields(b, depth, fv)
				continue
			}
		}
		fmt.Fprintln(b, SubValue(depth, FieldName(f.Name), "", fv.Interface()))
	}
}

func describe(value interface{}) string {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return "is not set (nil)"
	}

	switch value := value.(type) {
	case fmt.Stringer:
		return value.String()
	case string:
		return fmt.Sprintf("%q", value)
	}

	v = reflect.Indirect(v)
	switch v.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Uint(v.Uint(), int(v.Type().Size()))

	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return fmt.Sprintf("%q", v.Interface())
		}
		return fmt.Sprintf("%v", v.Interface())

	case reflect.Slice:
		if v.Len() == 0 {
			return "empty (len: 0)"
		}
		return fmt.Sprintf("%#x (len: %d)", v.Interface(), v.Len())
	}

	return fmt.Sprintf("%#+v (%T)", value, value)
}

// Uint formats an integer of the given byte width in hex, adding the decimal
// value when it helps and the binary size when it is large.
func Uint(i uint64, width int) string {
	hexFmt := fmt.Sprintf("0x%%0%dX", 2*width)
	switch {
	case i < 10:
		return fmt.Sprintf(hexFmt, i)
	case i < 65536:
		return fmt.Sprintf(hexFmt+" (%d)", i, i)
	default:
		return fmt.Sprintf(hexFmt+" (%d: %s)", i, i, humanize.IBytes(i))
	}
}

// Size returns a byte count as "0x100000 (1.0 MiB)".
func Size(n uint64) string {
	return fmt.Sprintf("%#x (%s)", n, humanize.IBytes(n))
}
