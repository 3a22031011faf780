// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package driver

import (
	"database/sql/driver"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/canonical/sqlrecord/dialect"
)

// WireType is the type a parameter is sent to the engine as.
type WireType int

const (
	WireUnknown WireType = iota
	WireBool
	WireInt64
	WireFloat64
	WireDecimal
	WireString
	WireTime
	WireBinary
	WireUUID
)

var wireTypeNames = [...]string{
	WireUnknown: "unknown",
	WireBool:    "bool",
	WireInt64:   "int64",
	WireFloat64: "float64",
	WireDecimal: "decimal",
	WireString:  "string",
	WireTime:    "time",
	WireBinary:  "binary",
	WireUUID:    "uuid",
}

func (w WireType) String() string {
	if w < 0 || int(w) >= len(wireTypeNames) {
		return "unknown"
	}
	return wireTypeNames[w]
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// WireTypeOf infers the wire type of a runtime value. It is used for ad-hoc
// predicate arguments where no column type has been declared.
func WireTypeOf(v any) WireType {
	if v == nil {
		return WireUnknown
	}
	return WireTypeOfType(reflect.TypeOf(v))
}

// WireTypeOfType infers the wire type of values of type t.
func WireTypeOfType(t reflect.Type) WireType {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case timeType:
		return WireTime
	case decimalType:
		return WireDecimal
	case uuidType:
		return WireUUID
	}
	switch t.Kind() {
	case reflect.Bool:
		return WireBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return WireInt64
	case reflect.Float32, reflect.Float64:
		return WireFloat64
	case reflect.String:
		return WireString
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return WireBinary
		}
	}
	if t.Implements(valuerType) {
		// sql.NullString and friends carry their payload in the first field.
		if t.Kind() == reflect.Struct && t.NumField() > 0 {
			return WireTypeOfType(t.Field(0).Type)
		}
	}
	return WireUnknown
}

// WireTypeFor returns the wire type for a declared column type, falling back
// to the Go type of the field when the declaration does not decide it.
func WireTypeFor(declared dialect.Type, field reflect.Type) WireType {
	switch declared.Kind {
	case dialect.KindBool:
		return WireBool
	case dialect.KindInt:
		return WireInt64
	case dialect.KindFloat:
		return WireFloat64
	case dialect.KindDecimal:
		return WireDecimal
	case dialect.KindString:
		return WireString
	case dialect.KindTime:
		return WireTime
	case dialect.KindBinary:
		return WireBinary
	case dialect.KindUUID:
		return WireUUID
	}
	return WireTypeOfType(field)
}
