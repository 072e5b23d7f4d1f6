package ddl

import (
	"regexp"
	"slices"
	"strings"
)

var baseTypePattern = regexp.MustCompile(`^(\w+)(\([^)]+\))?`)

// Column-name hints that pick an analytics-friendly ClickHouse type.
var (
	counterHints     = []string{"_id", "count", "number", "score"}
	moneyHints       = []string{"amount", "balance", "price", "revenue", "cost", "limit"}
	categoricalHints = []string{"type", "status", "tier", "level", "category", "platform", "gender", "zone", "region", "city"}
	uuidHints        = []string{"uuid", "guid"}
)

const (
	defaultZero   = "DEFAULT 0"
	defaultEmpty  = "DEFAULT ''"
	defaultEpoch  = "DEFAULT toDateTime(0)"
	defaultDay0   = "DEFAULT toDate(0)"
	defaultZeroFl = "DEFAULT 0.0"
)

// ColumnType maps a MySQL column definition to a ClickHouse type. Nullable
// columns get a DEFAULT instead of Nullable() wherever a neutral value
// exists; NOT NULL columns get the bare type.
func ColumnType(name, definition string) string {
	upper := strings.ToUpper(definition)
	nullable := !strings.Contains(upper, "NOT NULL")
	unsigned := strings.Contains(upper, "UNSIGNED")

	m := baseTypePattern.FindStringSubmatch(definition)
	if m == nil {
		return withDefault("String", nullable, "")
	}
	base, precision := strings.ToUpper(m[1]), m[2]
	lname := strings.ToLower(name)

	switch {
	case base == "TINYINT" && precision == "(1)":
		return withDefault("Bool", nullable, defaultZero)

	case (lname == "country" || lname == "country_code") &&
		(strings.Contains(upper, "CHAR(2)") || strings.Contains(upper, "VARCHAR(2)")):
		return withDefault("LowCardinality(FixedString(2))", nullable, defaultEmpty)

	case containsAny(lname, counterHints):
		return withDefault(integerType(base, unsigned), nullable, defaultZero)

	case containsAny(lname, moneyHints):
		var ch string
		switch base {
		case "DOUBLE":
			ch = "Decimal64(2)"
		case "DECIMAL":
			ch = decimalType(precision)
		default:
			ch = baseType(base, precision, unsigned)
		}
		return withDefault(ch, nullable, "")

	case containsAny(lname, categoricalHints) && slices.Contains([]string{"VARCHAR", "CHAR", "ENUM", "SET"}, base):
		return withDefault("LowCardinality(String)", nullable, defaultEmpty)

	case base == "DATETIME" || base == "TIMESTAMP":
		ch := "DateTime('UTC')"
		switch precision {
		case "(6)":
			ch = "DateTime64(6, 'UTC')"
		case "(3)":
			ch = "DateTime64(3, 'UTC')"
		}
		return withDefault(ch, nullable, defaultEpoch)

	case precision == "(36)" || precision == "(32)":
		if containsAny(lname, uuidHints) {
			return withDefault("UUID", nullable, "")
		}
		return withDefault("String", nullable, defaultEmpty)
	}

	ch := baseType(base, precision, unsigned)
	return withDefault(ch, nullable, neutralDefault(ch))
}

func neutralDefault(ch string) string {
	switch {
	case strings.Contains(ch, "Int"), ch == "Bool", strings.HasPrefix(ch, "Decimal"):
		return defaultZero
	case ch == "String", strings.HasPrefix(ch, "LowCardinality"):
		return defaultEmpty
	case strings.HasPrefix(ch, "DateTime"):
		return defaultEpoch
	case ch == "Date":
		return defaultDay0
	case strings.HasPrefix(ch, "Float"):
		return defaultZeroFl
	}
	return ""
}

func withDefault(ch string, nullable bool, def string) string {
	switch {
	case !nullable:
		return ch
	case def != "":
		return ch + " " + def
	default:
		return "Nullable(" + ch + ")"
	}
}

func integerType(base string, unsigned bool) string {
	var signed string
	switch base {
	case "TINYINT":
		signed = "Int8"
	case "SMALLINT":
		signed = "Int16"
	case "BIGINT":
		signed = "Int64"
	default:
		signed = "Int32"
	}
	if unsigned {
		return "U" + signed
	}
	return signed
}

func decimalType(precision string) string {
	if precision == "" {
		return "Decimal64(2)"
	}
	return "Decimal" + precision
}

func baseType(base, precision string, unsigned bool) string {
	switch base {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT":
		return integerType(base, unsigned)
	case "FLOAT":
		return "Float32"
	case "DOUBLE":
		return "Float64"
	case "DECIMAL":
		return decimalType(precision)
	case "DATE":
		return "Date"
	case "DATETIME", "TIMESTAMP":
		return "DateTime"
	case "YEAR":
		return "UInt16"
	case "ENUM":
		return "LowCardinality(String)"
	case "BOOL", "BOOLEAN":
		return "Bool"
	}
	// Text, blobs, binary, TIME, SET, JSON and anything unknown
	return "String"
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
