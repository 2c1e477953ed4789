package sandbox

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/khimraj/budget-planner/internal/domain"
)

type evaluator struct {
	ctx   context.Context
	env   map[string]value
	steps int
}

const maxSteps = 200000

func newEvaluator(ctx context.Context, table domain.Table) *evaluator {
	return &evaluator{
		ctx: ctx,
		env: map[string]value{"df": tableValue(table)},
	}
}

func (ev *evaluator) run(stmts []stmt) error {
	for _, s := range stmts {
		v, err := ev.eval(s.expr)
		if err != nil {
			return err
		}
		ev.env[s.name] = v
	}
	return nil
}

func (ev *evaluator) eval(e expr) (value, error) {
	ev.steps++
	if ev.steps > maxSteps {
		return value{}, fmt.Errorf("evaluation budget exceeded")
	}
	if ev.steps%1024 == 0 {
		if err := ev.ctx.Err(); err != nil {
			return value{}, err
		}
	}

	switch n := e.(type) {
	case numberLit:
		// Integer literals stay integers so they print without a decimal
		// point, the way the reasoning component expects.
		if !strings.Contains(n.text, ".") {
			i, err := strconv.ParseInt(n.text, 10, 64)
			if err != nil {
				return value{}, fmt.Errorf("invalid number %q", n.text)
			}
			return intValue(i), nil
		}
		d, err := decimal.NewFromString(n.text)
		if err != nil {
			return value{}, fmt.Errorf("invalid number %q", n.text)
		}
		return numberValue(d), nil
	case stringLit:
		return stringValue(n.text), nil
	case identRef:
		v, ok := ev.env[n.name]
		if !ok {
			return value{}, fmt.Errorf("name %q is not defined", n.name)
		}
		return v, nil
	case unaryNeg:
		return ev.evalNeg(n)
	case binaryExpr:
		return ev.evalBinary(n)
	case indexExpr:
		return ev.evalIndex(n)
	case methodCall:
		return ev.evalMethod(n)
	case funcCall:
		return ev.evalFunc(n)
	}
	return value{}, fmt.Errorf("unsupported expression")
}

func (ev *evaluator) evalNeg(n unaryNeg) (value, error) {
	v, err := ev.eval(n.operand)
	if err != nil {
		return value{}, err
	}
	switch v.kind {
	case kindNumber:
		return numberValue(v.num.Neg()), nil
	case kindInt:
		return intValue(-v.i), nil
	case kindSeries:
		if !v.ser.numeric {
			return value{}, fmt.Errorf("cannot negate column '%s'", v.ser.col)
		}
		out := make([]decimal.Decimal, len(v.ser.nums))
		for i, d := range v.ser.nums {
			out[i] = d.Neg()
		}
		return seriesValue(series{col: v.ser.col, numeric: true, nums: out}), nil
	}
	return value{}, fmt.Errorf("cannot negate %s", kindName(v.kind))
}

func (ev *evaluator) evalBinary(n binaryExpr) (value, error) {
	left, err := ev.eval(n.left)
	if err != nil {
		return value{}, err
	}
	right, err := ev.eval(n.right)
	if err != nil {
		return value{}, err
	}

	switch n.op {
	case tokAmp, tokPipe:
		return combineBool(n.op, left, right)
	case tokEq, tokNe, tokLt, tokLe, tokGt, tokGe:
		return compare(n.op, left, right)
	case tokPlus, tokMinus, tokStar, tokSlash:
		return arithmetic(n.op, left, right)
	}
	return value{}, fmt.Errorf("unsupported operator")
}

func (ev *evaluator) evalIndex(n indexExpr) (value, error) {
	recv, err := ev.eval(n.recv)
	if err != nil {
		return value{}, err
	}
	index, err := ev.eval(n.index)
	if err != nil {
		return value{}, err
	}

	switch recv.kind {
	case kindTable:
		switch index.kind {
		case kindString:
			return columnSeries(recv.table, index.str)
		case kindBoolSeries:
			return filterTable(recv.table, index.bools)
		}
		return value{}, fmt.Errorf("table index must be a column name or a boolean filter, got %s", kindName(index.kind))
	case kindGrouped:
		if recv.grp.valCol != "" {
			return value{}, fmt.Errorf("grouped table already has column '%s' selected", recv.grp.valCol)
		}
		if index.kind != kindString {
			return value{}, fmt.Errorf("grouped column selection needs a column name")
		}
		if !knownColumn(index.str) {
			return value{}, fmt.Errorf("unknown column '%s'", index.str)
		}
		g := recv.grp
		g.valCol = index.str
		return value{kind: kindGrouped, grp: g}, nil
	case kindDict:
		if index.kind != kindString {
			return value{}, fmt.Errorf("dict key must be a string")
		}
		for _, e := range recv.dict {
			if e.key == index.str {
				return e.val, nil
			}
		}
		return value{}, fmt.Errorf("key '%s' not found", index.str)
	}
	return value{}, fmt.Errorf("%s is not indexable", kindName(recv.kind))
}

func (ev *evaluator) evalMethod(n methodCall) (value, error) {
	recv, err := ev.eval(n.recv)
	if err != nil {
		return value{}, err
	}
	args := make([]value, len(n.args))
	for i, a := range n.args {
		args[i], err = ev.eval(a)
		if err != nil {
			return value{}, err
		}
	}

	switch recv.kind {
	case kindSeries:
		return seriesMethod(recv.ser, n.name, args)
	case kindTable:
		return tableMethod(recv.table, n.name, args)
	case kindGrouped:
		return groupedMethod(recv.grp, n.name, args)
	case kindDict:
		if n.name == "to_dict" && len(args) == 0 {
			return recv, nil
		}
	}
	return value{}, fmt.Errorf("%s has no method '%s'", kindName(recv.kind), n.name)
}

func (ev *evaluator) evalFunc(n funcCall) (value, error) {
	args := make([]value, len(n.args))
	var err error
	for i, a := range n.args {
		args[i], err = ev.eval(a)
		if err != nil {
			return value{}, err
		}
	}

	switch n.name {
	case "abs":
		if len(args) != 1 {
			return value{}, fmt.Errorf("abs() takes exactly one argument")
		}
		return absValue(args[0])
	case "round":
		return roundValue(args)
	case "len":
		if len(args) != 1 {
			return value{}, fmt.Errorf("len() takes exactly one argument")
		}
		return lenValue(args[0])
	}
	return value{}, fmt.Errorf("unknown function %q", n.name)
}

// column access and filtering.

func knownColumn(name string) bool {
	for _, c := range domain.Columns {
		if c == name {
			return true
		}
	}
	return false
}

func columnSeries(t domain.Table, col string) (value, error) {
	switch col {
	case "Amount":
		nums := make([]decimal.Decimal, len(t.Rows))
		for i, tx := range t.Rows {
			nums[i] = tx.Amount
		}
		return seriesValue(series{col: col, numeric: true, nums: nums}), nil
	case "Date", "Description", "Category":
		strs := make([]string, len(t.Rows))
		for i, tx := range t.Rows {
			switch col {
			case "Date":
				strs[i] = tx.Date.String()
			case "Description":
				strs[i] = tx.Description
			case "Category":
				strs[i] = tx.Category
			}
		}
		return seriesValue(series{col: col, strs: strs}), nil
	}
	return value{}, fmt.Errorf("unknown column '%s'", col)
}

func filterTable(t domain.Table, mask []bool) (value, error) {
	if len(mask) != len(t.Rows) {
		return value{}, fmt.Errorf("filter length %d does not match table length %d", len(mask), len(t.Rows))
	}
	var rows []domain.Transaction
	for i, keep := range mask {
		if keep {
			rows = append(rows, t.Rows[i])
		}
	}
	return tableValue(domain.Table{Rows: rows}), nil
}

// operators.

func combineBool(op tokenKind, left, right value) (value, error) {
	if left.kind == kindBool && right.kind == kindBool {
		if op == tokAmp {
			return boolValue(left.b && right.b), nil
		}
		return boolValue(left.b || right.b), nil
	}
	if left.kind == kindBoolSeries && right.kind == kindBoolSeries {
		if len(left.bools) != len(right.bools) {
			return value{}, fmt.Errorf("boolean series lengths differ (%d vs %d)", len(left.bools), len(right.bools))
		}
		out := make([]bool, len(left.bools))
		for i := range out {
			if op == tokAmp {
				out[i] = left.bools[i] && right.bools[i]
			} else {
				out[i] = left.bools[i] || right.bools[i]
			}
		}
		return value{kind: kindBoolSeries, bools: out}, nil
	}
	return value{}, fmt.Errorf("'&' and '|' need boolean operands on both sides")
}

func compare(op tokenKind, left, right value) (value, error) {
	// Series vs scalar in either order; flip so the series is on the left.
	if left.kind != kindSeries && right.kind == kindSeries {
		return compare(flipComparison(op), right, left)
	}

	if left.kind == kindSeries {
		s := left.ser
		out := make([]bool, s.len())
		if s.numeric {
			scalar, err := asDecimal(right)
			if err != nil {
				return value{}, fmt.Errorf("cannot compare column '%s' with %s", s.col, kindName(right.kind))
			}
			for i, d := range s.nums {
				out[i] = cmpHolds(op, d.Cmp(scalar))
			}
		} else {
			if right.kind != kindString {
				return value{}, fmt.Errorf("cannot compare column '%s' with %s", s.col, kindName(right.kind))
			}
			for i, str := range s.strs {
				out[i] = cmpHolds(op, compareStrings(str, right.str))
			}
		}
		return value{kind: kindBoolSeries, bools: out}, nil
	}

	// Scalar vs scalar.
	switch {
	case isNumeric(left) && isNumeric(right):
		a, _ := asDecimal(left)
		b, _ := asDecimal(right)
		return boolValue(cmpHolds(op, a.Cmp(b))), nil
	case left.kind == kindString && right.kind == kindString:
		return boolValue(cmpHolds(op, compareStrings(left.str, right.str))), nil
	}
	return value{}, fmt.Errorf("cannot compare %s with %s", kindName(left.kind), kindName(right.kind))
}

func arithmetic(op tokenKind, left, right value) (value, error) {
	// Series arithmetic against a scalar, either order.
	if left.kind == kindSeries || right.kind == kindSeries {
		return seriesArithmetic(op, left, right)
	}

	a, errA := asDecimal(left)
	b, errB := asDecimal(right)
	if errA != nil || errB != nil {
		return value{}, fmt.Errorf("arithmetic needs numeric operands, got %s and %s", kindName(left.kind), kindName(right.kind))
	}

	// Integer arithmetic stays integral except for division.
	if left.kind == kindInt && right.kind == kindInt && op != tokSlash {
		switch op {
		case tokPlus:
			return intValue(left.i + right.i), nil
		case tokMinus:
			return intValue(left.i - right.i), nil
		case tokStar:
			return intValue(left.i * right.i), nil
		}
	}

	switch op {
	case tokPlus:
		return numberValue(a.Add(b)), nil
	case tokMinus:
		return numberValue(a.Sub(b)), nil
	case tokStar:
		return numberValue(a.Mul(b)), nil
	case tokSlash:
		if b.IsZero() {
			return value{}, fmt.Errorf("division by zero")
		}
		return numberValue(a.DivRound(b, 10)), nil
	}
	return value{}, fmt.Errorf("unsupported operator")
}

func seriesArithmetic(op tokenKind, left, right value) (value, error) {
	s, scalar := left, right
	flipped := false
	if s.kind != kindSeries {
		s, scalar = right, left
		flipped = true
	}
	if !s.ser.numeric {
		return value{}, fmt.Errorf("arithmetic on non-numeric column '%s'", s.ser.col)
	}
	d, err := asDecimal(scalar)
	if err != nil {
		return value{}, fmt.Errorf("arithmetic needs a numeric operand, got %s", kindName(scalar.kind))
	}

	out := make([]decimal.Decimal, len(s.ser.nums))
	for i, n := range s.ser.nums {
		a, b := n, d
		if flipped {
			a, b = d, n
		}
		switch op {
		case tokPlus:
			out[i] = a.Add(b)
		case tokMinus:
			out[i] = a.Sub(b)
		case tokStar:
			out[i] = a.Mul(b)
		case tokSlash:
			if b.IsZero() {
				return value{}, fmt.Errorf("division by zero")
			}
			out[i] = a.DivRound(b, 10)
		}
	}
	return seriesValue(series{col: s.ser.col, numeric: true, nums: out}), nil
}

func flipComparison(op tokenKind) tokenKind {
	switch op {
	case tokLt:
		return tokGt
	case tokLe:
		return tokGe
	case tokGt:
		return tokLt
	case tokGe:
		return tokLe
	}
	return op // == and != are symmetric
}

func cmpHolds(op tokenKind, cmp int) bool {
	switch op {
	case tokEq:
		return cmp == 0
	case tokNe:
		return cmp != 0
	case tokLt:
		return cmp < 0
	case tokLe:
		return cmp <= 0
	case tokGt:
		return cmp > 0
	case tokGe:
		return cmp >= 0
	}
	return false
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func isNumeric(v value) bool { return v.kind == kindNumber || v.kind == kindInt }

func asDecimal(v value) (decimal.Decimal, error) {
	switch v.kind {
	case kindNumber:
		return v.num, nil
	case kindInt:
		return decimal.NewFromInt(v.i), nil
	}
	return decimal.Decimal{}, fmt.Errorf("not a number")
}

// methods.

func seriesMethod(s series, name string, args []value) (value, error) {
	if len(args) != 0 {
		return value{}, fmt.Errorf("'%s' takes no arguments", name)
	}
	switch name {
	case "sum":
		if !s.numeric {
			return value{}, fmt.Errorf("cannot sum column '%s'", s.col)
		}
		if len(s.nums) == 0 {
			// Matches the aggregate-over-nothing contract: plain zero.
			return intValue(0), nil
		}
		total := decimal.Zero
		for _, d := range s.nums {
			total = total.Add(d)
		}
		return numberValue(total), nil
	case "mean":
		if !s.numeric {
			return value{}, fmt.Errorf("cannot average column '%s'", s.col)
		}
		if len(s.nums) == 0 {
			return value{}, fmt.Errorf("mean of empty series")
		}
		total := decimal.Zero
		for _, d := range s.nums {
			total = total.Add(d)
		}
		return numberValue(total.DivRound(decimal.NewFromInt(int64(len(s.nums))), 10)), nil
	case "count":
		return intValue(int64(s.len())), nil
	case "min", "max":
		return seriesExtreme(s, name)
	case "abs":
		if !s.numeric {
			return value{}, fmt.Errorf("cannot take abs of column '%s'", s.col)
		}
		out := make([]decimal.Decimal, len(s.nums))
		for i, d := range s.nums {
			out[i] = d.Abs()
		}
		return seriesValue(series{col: s.col, numeric: true, nums: out}), nil
	case "nunique":
		return intValue(int64(s.nunique())), nil
	}
	return value{}, fmt.Errorf("series has no method '%s'", name)
}

func seriesExtreme(s series, name string) (value, error) {
	if s.len() == 0 {
		return value{}, fmt.Errorf("%s of empty series", name)
	}
	if s.numeric {
		best := s.nums[0]
		for _, d := range s.nums[1:] {
			cmp := d.Cmp(best)
			if (name == "min" && cmp < 0) || (name == "max" && cmp > 0) {
				best = d
			}
		}
		return numberValue(best), nil
	}
	best := s.strs[0]
	for _, str := range s.strs[1:] {
		if (name == "min" && str < best) || (name == "max" && str > best) {
			best = str
		}
	}
	return stringValue(best), nil
}

func (s series) nunique() int {
	seen := map[string]bool{}
	if s.numeric {
		for _, d := range s.nums {
			seen[d.String()] = true
		}
	} else {
		for _, str := range s.strs {
			seen[str] = true
		}
	}
	return len(seen)
}

func tableMethod(t domain.Table, name string, args []value) (value, error) {
	switch name {
	case "copy":
		if len(args) != 0 {
			return value{}, fmt.Errorf("'copy' takes no arguments")
		}
		rows := make([]domain.Transaction, len(t.Rows))
		copy(rows, t.Rows)
		return tableValue(domain.Table{Rows: rows}), nil
	case "count":
		if len(args) != 0 {
			return value{}, fmt.Errorf("'count' takes no arguments")
		}
		return intValue(int64(len(t.Rows))), nil
	case "head":
		n := int64(5)
		if len(args) == 1 {
			if args[0].kind != kindNumber && args[0].kind != kindInt {
				return value{}, fmt.Errorf("'head' needs an integer argument")
			}
			d, _ := asDecimal(args[0])
			n = d.IntPart()
		} else if len(args) > 1 {
			return value{}, fmt.Errorf("'head' takes at most one argument")
		}
		if n < 0 {
			n = 0
		}
		if n > int64(len(t.Rows)) {
			n = int64(len(t.Rows))
		}
		return tableValue(domain.Table{Rows: t.Rows[:n]}), nil
	case "groupby":
		if len(args) != 1 || args[0].kind != kindString {
			return value{}, fmt.Errorf("'groupby' needs a column name")
		}
		if !knownColumn(args[0].str) {
			return value{}, fmt.Errorf("unknown column '%s'", args[0].str)
		}
		return value{kind: kindGrouped, grp: grouped{table: t, keyCol: args[0].str}}, nil
	}
	return value{}, fmt.Errorf("table has no method '%s'", name)
}

func groupedMethod(g grouped, name string, args []value) (value, error) {
	if len(args) != 0 {
		return value{}, fmt.Errorf("'%s' takes no arguments", name)
	}
	if g.valCol == "" {
		return value{}, fmt.Errorf("select a column before aggregating, e.g. groupby('Category')['Amount']")
	}
	if name != "sum" && name != "mean" && name != "count" {
		return value{}, fmt.Errorf("grouped table has no method '%s'", name)
	}
	if name != "count" && g.valCol != "Amount" {
		return value{}, fmt.Errorf("cannot %s column '%s'", name, g.valCol)
	}

	sums := map[string]decimal.Decimal{}
	counts := map[string]int64{}
	var keys []string
	for _, tx := range g.table.Rows {
		key := groupKey(tx, g.keyCol)
		if _, seen := counts[key]; !seen {
			keys = append(keys, key)
		}
		counts[key]++
		sums[key] = sums[key].Add(tx.Amount)
	}
	sort.Strings(keys) // pandas sorts group keys

	dict := make([]dictEntry, 0, len(keys))
	for _, key := range keys {
		var v value
		switch name {
		case "sum":
			v = numberValue(sums[key])
		case "mean":
			v = numberValue(sums[key].DivRound(decimal.NewFromInt(counts[key]), 10))
		case "count":
			v = intValue(counts[key])
		}
		dict = append(dict, dictEntry{key: key, val: v})
	}
	return value{kind: kindDict, dict: dict}, nil
}

func groupKey(tx domain.Transaction, col string) string {
	switch col {
	case "Date":
		return tx.Date.String()
	case "Description":
		return tx.Description
	case "Category":
		return tx.Category
	case "Amount":
		return tx.Amount.String()
	}
	return ""
}

// builtins.

func absValue(v value) (value, error) {
	switch v.kind {
	case kindNumber:
		return numberValue(v.num.Abs()), nil
	case kindInt:
		if v.i < 0 {
			return intValue(-v.i), nil
		}
		return intValue(v.i), nil
	case kindSeries:
		return seriesMethod(v.ser, "abs", nil)
	}
	return value{}, fmt.Errorf("abs() needs a number or a numeric column, got %s", kindName(v.kind))
}

func roundValue(args []value) (value, error) {
	if len(args) < 1 || len(args) > 2 {
		return value{}, fmt.Errorf("round() takes one or two arguments")
	}
	d, err := asDecimal(args[0])
	if err != nil {
		return value{}, fmt.Errorf("round() needs a number, got %s", kindName(args[0].kind))
	}
	places := int32(0)
	if len(args) == 2 {
		p, err := asDecimal(args[1])
		if err != nil || !p.IsInteger() {
			return value{}, fmt.Errorf("round() precision must be an integer")
		}
		places = int32(p.IntPart())
	}
	return numberValue(d.Round(places)), nil
}

func lenValue(v value) (value, error) {
	switch v.kind {
	case kindTable:
		return intValue(int64(len(v.table.Rows))), nil
	case kindSeries:
		return intValue(int64(v.ser.len())), nil
	case kindBoolSeries:
		return intValue(int64(len(v.bools))), nil
	case kindDict:
		return intValue(int64(len(v.dict))), nil
	case kindString:
		return intValue(int64(len(v.str))), nil
	}
	return value{}, fmt.Errorf("len() of %s is not defined", kindName(v.kind))
}
