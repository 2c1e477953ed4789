package sandbox

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/khimraj/budget-planner/internal/domain"
)

type valueKind int

const (
	kindNumber valueKind = iota
	kindInt
	kindString
	kindBool
	kindTable
	kindSeries
	kindBoolSeries
	kindGrouped
	kindDict
)

// value is the runtime representation of every expression result. Exactly
// one field besides kind is meaningful.
type value struct {
	kind valueKind

	num   decimal.Decimal
	i     int64
	str   string
	b     bool
	table domain.Table
	ser   series
	bools []bool
	grp   grouped
	dict  []dictEntry
}

// series is one projected column. Numeric series hold decimals, everything
// else is carried as strings (dates serialize to ISO form, which compares
// correctly as text).
type series struct {
	col     string
	numeric bool
	nums    []decimal.Decimal
	strs    []string
}

func (s series) len() int {
	if s.numeric {
		return len(s.nums)
	}
	return len(s.strs)
}

// grouped is a pending groupby: key column plus selected value column over a
// table. Aggregating it yields a dict keyed by group.
type grouped struct {
	table  domain.Table
	keyCol string
	valCol string // empty until a column is selected
}

type dictEntry struct {
	key string
	val value
}

func numberValue(d decimal.Decimal) value { return value{kind: kindNumber, num: d} }
func intValue(i int64) value              { return value{kind: kindInt, i: i} }
func stringValue(s string) value          { return value{kind: kindString, str: s} }
func boolValue(b bool) value              { return value{kind: kindBool, b: b} }
func tableValue(t domain.Table) value     { return value{kind: kindTable, table: t} }
func seriesValue(s series) value          { return value{kind: kindSeries, ser: s} }

// format renders a value the way the reasoning component expects to read it:
// Python-style. Whole numbers keep one decimal place ("42.0"), counts print
// as plain integers, dicts print with single-quoted keys.
func (v value) format() string {
	switch v.kind {
	case kindNumber:
		return formatDecimal(v.num)
	case kindInt:
		return strconv.FormatInt(v.i, 10)
	case kindString:
		return v.str
	case kindBool:
		if v.b {
			return "True"
		}
		return "False"
	case kindSeries:
		return v.ser.format()
	case kindBoolSeries:
		parts := make([]string, len(v.bools))
		for i, b := range v.bools {
			parts[i] = boolValue(b).format()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case kindTable:
		return formatTable(v.table)
	case kindDict:
		parts := make([]string, len(v.dict))
		for i, e := range v.dict {
			parts[i] = fmt.Sprintf("'%s': %s", e.key, e.val.format())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case kindGrouped:
		return fmt.Sprintf("<grouped by '%s'>", v.grp.keyCol)
	}
	return ""
}

func (s series) format() string {
	var parts []string
	if s.numeric {
		for _, d := range s.nums {
			parts = append(parts, formatDecimal(d))
		}
	} else {
		parts = s.strs
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatTable(t domain.Table) string {
	var b strings.Builder
	b.WriteString(strings.Join(domain.Columns, "  "))
	for _, tx := range t.Rows {
		b.WriteString("\n")
		b.WriteString(tx.Date.String())
		b.WriteString("  ")
		b.WriteString(tx.Description)
		b.WriteString("  ")
		b.WriteString(formatDecimal(tx.Amount))
		b.WriteString("  ")
		b.WriteString(tx.Category)
	}
	return b.String()
}

func formatDecimal(d decimal.Decimal) string {
	if d.IsInteger() {
		return d.StringFixed(1)
	}
	return d.String()
}

func kindName(k valueKind) string {
	switch k {
	case kindNumber:
		return "number"
	case kindInt:
		return "integer"
	case kindString:
		return "string"
	case kindBool:
		return "boolean"
	case kindTable:
		return "table"
	case kindSeries:
		return "series"
	case kindBoolSeries:
		return "boolean series"
	case kindGrouped:
		return "grouped table"
	case kindDict:
		return "dict"
	}
	return "unknown"
}
