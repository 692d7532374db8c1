package utils

import (
	"fmt"
	"reflect"
)

var ColumnTag = "db"

// Columns lists the db tag of every exported field of a struct, in declaration order.
func Columns(input any) []string {
	fields := taggedFields(input)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.column)
	}
	return out
}

// ColumnMap maps db tags to field values, skipping the columns named in omit.
func ColumnMap(input any, omit ...string) map[string]any {
	skip := make(map[string]struct{}, len(omit))
	for _, o := range omit {
		skip[o] = struct{}{}
	}

	out := make(map[string]any)
	for _, f := range taggedFields(input) {
		if _, ok := skip[f.column]; ok {
			continue
		}
		out[f.column] = f.value.Interface()
	}
	return out
}

func ErrorWrapOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}

	if msg == "" {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)
}

type taggedField struct {
	column string
	value  reflect.Value
}

func taggedFields(input any) []taggedField {
	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	t := v.Type()
	out := make([]taggedField, 0, v.NumField())
	for i := 0; i < v.NumField(); i++ {
		if t.Field(i).PkgPath != "" {
			continue
		}

		tag := t.Field(i).Tag.Get(ColumnTag)
		if tag == "" || tag == "-" {
			continue
		}

		out = append(out, taggedField{column: tag, value: v.Field(i)})
	}
	return out
}
