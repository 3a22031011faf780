// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package dialect

import "strings"

// Kind is the category of a declared column type.
type Kind int

const (
	KindUnknown Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindTime
	KindBinary
	KindUUID
)

var kindNames = [...]string{
	KindUnknown: "unknown",
	KindBool:    "bool",
	KindInt:     "int",
	KindFloat:   "float",
	KindDecimal: "decimal",
	KindString:  "string",
	KindTime:    "time",
	KindBinary:  "binary",
	KindUUID:    "uuid",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Numeric reports whether literals of this kind are rendered unquoted.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat || k == KindDecimal
}

// Type is a declared database type.
type Type struct {
	// Name is the type as declared, e.g. "decimal(10,2)".
	Name string
	Kind Kind
}

// Unknown is the zero Type, used when no type has been declared.
var Unknown = Type{}

func (t Type) String() string {
	if t.Name == "" {
		return t.Kind.String()
	}
	return t.Name
}

var baseKinds = map[string]Kind{
	"bit":     KindBool,
	"bool":    KindBool,
	"boolean": KindBool,

	"tinyint":     KindInt,
	"smallint":    KindInt,
	"mediumint":   KindInt,
	"int":         KindInt,
	"integer":     KindInt,
	"bigint":      KindInt,
	"int2":        KindInt,
	"int4":        KindInt,
	"int8":        KindInt,
	"serial":      KindInt,
	"smallserial": KindInt,
	"bigserial":   KindInt,
	"counter":     KindInt,
	"varint":      KindInt,
	"year":        KindInt,

	"real":             KindFloat,
	"float":            KindFloat,
	"float4":           KindFloat,
	"float8":           KindFloat,
	"double":           KindFloat,
	"double precision": KindFloat,

	"decimal":    KindDecimal,
	"numeric":    KindDecimal,
	"money":      KindDecimal,
	"smallmoney": KindDecimal,
	"number":     KindDecimal,

	"char":       KindString,
	"varchar":    KindString,
	"nchar":      KindString,
	"nvarchar":   KindString,
	"text":       KindString,
	"ntext":      KindString,
	"tinytext":   KindString,
	"mediumtext": KindString,
	"longtext":   KindString,
	"clob":       KindString,
	"string":     KindString,
	"ascii":      KindString,
	"citext":     KindString,
	"json":       KindString,
	"jsonb":      KindString,
	"xml":        KindString,
	"enum":       KindString,
	"inet":       KindString,

	"date":                     KindTime,
	"time":                     KindTime,
	"datetime":                 KindTime,
	"datetime2":                KindTime,
	"smalldatetime":            KindTime,
	"datetimeoffset":           KindTime,
	"timestamp":                KindTime,
	"timestamptz":              KindTime,
	"timestamp with time zone": KindTime,

	"binary":     KindBinary,
	"varbinary":  KindBinary,
	"blob":       KindBinary,
	"tinyblob":   KindBinary,
	"mediumblob": KindBinary,
	"longblob":   KindBinary,
	"bytea":      KindBinary,
	"image":      KindBinary,

	"uuid":             KindUUID,
	"uniqueidentifier": KindUUID,
	"timeuuid":         KindUUID,
}

// ParseType parses a declared type name. Size arguments, "unsigned" and
// surrounding whitespace are ignored when choosing the Kind; names that are
// not recognised have KindUnknown.
func ParseType(name string) Type {
	t := Type{Name: strings.TrimSpace(name)}
	if t.Name == "" {
		return t
	}
	base := strings.ToLower(t.Name)
	// MySQL spells booleans as tinyint(1).
	if strings.ReplaceAll(base, " ", "") == "tinyint(1)" {
		t.Kind = KindBool
		return t
	}
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSuffix(strings.TrimSpace(base), " unsigned")
	base = strings.Join(strings.Fields(base), " ")
	t.Kind = baseKinds[base]
	return t
}
