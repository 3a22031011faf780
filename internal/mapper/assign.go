// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package mapper

import (
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// timeLayouts are tried in order when a time is held as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Assign stores the cell value src, as returned by a driver, into dst.
// NULL stores the zero value. Types implementing sql.Scanner scan the value
// themselves; pointers are allocated; numbers are converted between widths
// with an overflow check.
func Assign(dst reflect.Value, src any) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		v := reflect.New(dst.Type().Elem())
		if err := Assign(v.Elem(), src); err != nil {
			return err
		}
		dst.Set(v)
		return nil
	}
	if reflect.PointerTo(dst.Type()).Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(src)
	}

	sv := reflect.ValueOf(src)
	if dst.Type() == timeType {
		t, err := asTime(src)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}

	switch dst.Kind() {
	case reflect.Bool:
		b, err := asBool(src)
		if err != nil {
			return err
		}
		dst.SetBool(b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := asInt(src)
		if err != nil {
			return err
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, dst.Type())
		}
		dst.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := asInt(src)
		if err != nil {
			return err
		}
		if n < 0 || dst.OverflowUint(uint64(n)) {
			return fmt.Errorf("value %d overflows %s", n, dst.Type())
		}
		dst.SetUint(uint64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := asFloat(src)
		if err != nil {
			return err
		}
		if dst.OverflowFloat(f) {
			return fmt.Errorf("value %g overflows %s", f, dst.Type())
		}
		dst.SetFloat(f)
		return nil
	case reflect.String:
		dst.SetString(asString(src))
		return nil
	case reflect.Slice:
		if dst.Type().Elem().Kind() == reflect.Uint8 {
			switch src := src.(type) {
			case []byte:
				dst.SetBytes(append([]byte(nil), src...))
				return nil
			case string:
				dst.SetBytes([]byte(src))
				return nil
			}
		}
	}
	if sv.Type().ConvertibleTo(dst.Type()) && sv.Kind() == dst.Kind() {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", src, dst.Type())
}

func asTime(src any) (time.Time, error) {
	var text string
	switch src := src.(type) {
	case time.Time:
		return src, nil
	case string:
		text = src
	case []byte:
		text = string(src)
	default:
		return time.Time{}, fmt.Errorf("cannot assign %T to time.Time", src)
	}
	text = strings.TrimSpace(text)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", text)
}

func asBool(src any) (bool, error) {
	switch src := src.(type) {
	case bool:
		return src, nil
	case int64:
		return src != 0, nil
	case float64:
		return src != 0, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(src))
	case []byte:
		return strconv.ParseBool(strings.TrimSpace(string(src)))
	}
	return false, fmt.Errorf("cannot assign %T to bool", src)
}

func asInt(src any) (int64, error) {
	switch src := src.(type) {
	case int64:
		return src, nil
	case float64:
		if src != math.Trunc(src) || src > math.MaxInt64 || src < math.MinInt64 {
			return 0, fmt.Errorf("value %g is not an integer", src)
		}
		return int64(src), nil
	case bool:
		if src {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(src), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(src)), 10, 64)
	}
	rv := reflect.ValueOf(src)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", rv.Uint())
		}
		return int64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("cannot assign %T to integer", src)
}

func asFloat(src any) (float64, error) {
	switch src := src.(type) {
	case float64:
		return src, nil
	case float32:
		return float64(src), nil
	case int64:
		return float64(src), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(src), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(src)), 64)
	}
	return 0, fmt.Errorf("cannot assign %T to float", src)
}

func asString(src any) string {
	switch src := src.(type) {
	case string:
		return src
	case []byte:
		return string(src)
	case time.Time:
		return src.Format(time.RFC3339Nano)
	case int64:
		return strconv.FormatInt(src, 10)
	case float64:
		return strconv.FormatFloat(src, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(src)
	}
	return fmt.Sprint(src)
}
