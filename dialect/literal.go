// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package dialect

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TimeLayout is the textual form used for time literals.
const TimeLayout = "2006-01-02 15:04:05.999999999"

// literalStyle holds the per dialect tokens used by formatLiteral.
type literalStyle struct {
	trueToken  string
	falseToken string
	quote      func(string) string
	binary     func([]byte) string
	// bareUUID renders UUIDs without quotes.
	bareUUID bool
}

// formatLiteral renders v for a column of the declared type. Numeric and
// boolean rendering follows the declared kind. When the kind is unknown the
// runtime type of v decides.
func (ls literalStyle) formatLiteral(v any, declared Type) string {
	v, ok := resolve(v)
	if !ok {
		return "NULL"
	}
	switch declared.Kind {
	case KindBool:
		if b, ok := truthy(v); ok {
			return ls.boolean(b)
		}
	case KindInt, KindFloat, KindDecimal:
		if s, ok := numeric(v); ok {
			return s
		}
		if s, ok := v.(string); ok {
			if d, err := decimal.NewFromString(s); err == nil {
				return d.String()
			}
		}
	case KindBinary:
		if b, ok := v.([]byte); ok {
			return ls.binary(b)
		}
	case KindUUID:
		if ls.bareUUID {
			if u, ok := asUUID(v); ok {
				return u.String()
			}
		}
	case KindUnknown:
		return ls.runtime(v)
	}
	if b, ok := v.([]byte); ok && declared.Kind != KindString {
		return ls.binary(b)
	}
	return ls.quote(text(v))
}

// runtime renders v based only on its Go type.
func (ls literalStyle) runtime(v any) string {
	switch v := v.(type) {
	case bool:
		return ls.boolean(v)
	case []byte:
		return ls.binary(v)
	case uuid.UUID:
		if ls.bareUUID {
			return v.String()
		}
		return ls.quote(v.String())
	}
	if s, ok := numeric(v); ok {
		return s
	}
	return ls.quote(text(v))
}

func (ls literalStyle) boolean(b bool) string {
	if b {
		return ls.trueToken
	}
	return ls.falseToken
}

// resolve dereferences pointers and driver.Valuer implementations that are
// not otherwise understood. It returns false for NULL.
func resolve(v any) (any, bool) {
	for {
		if v == nil {
			return nil, false
		}
		switch v.(type) {
		case time.Time, decimal.Decimal, uuid.UUID, []byte:
			return v, true
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return nil, false
			}
			v = rv.Elem().Interface()
			continue
		}
		if valuer, ok := v.(driver.Valuer); ok {
			dv, err := valuer.Value()
			if err != nil || dv == nil {
				return nil, false
			}
			if reflect.TypeOf(dv) == reflect.TypeOf(v) {
				return dv, true
			}
			v = dv
			continue
		}
		return v, true
	}
}

// truthy interprets v as a boolean.
func truthy(v any) (bool, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0, true
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0, true
	case reflect.String:
		b, err := strconv.ParseBool(rv.String())
		return b, err == nil
	}
	return false, false
}

// numeric renders v as an unquoted number. Booleans are rendered as 1 or 0
// and named integer types (enums) by their numeric value.
func numeric(v any) (string, bool) {
	if d, ok := v.(decimal.Decimal); ok {
		return d.String(), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return "1", true
		}
		return "0", true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	}
	return "", false
}

func asUUID(v any) (uuid.UUID, bool) {
	switch v := v.(type) {
	case uuid.UUID:
		return v, true
	case string:
		u, err := uuid.Parse(v)
		return u, err == nil
	case []byte:
		u, err := uuid.FromBytes(v)
		return u, err == nil
	}
	return uuid.Nil, false
}

// text is the default textual form of a value.
func text(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case time.Time:
		return v.Format(TimeLayout)
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return fmt.Sprint(v)
}

// quoteDoubling wraps s in single quotes, doubling embedded quotes.
func quoteDoubling(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func hexUpper(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}
