package docstore

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"
)

// Query selects documents. Each entry constrains one field and all entries
// must hold. A plain value means equality; a Cond (or a []Cond, all of which
// must hold) applies an operator.
//
//	docstore.Query{"publicKey": addr}
//	docstore.Query{"balance": docstore.Gte(10), "kind": docstore.In("hot", "cold")}
//	docstore.Query{"createdAt": []docstore.Cond{docstore.Gte(from), docstore.Lt(to)}}
//
// Numbers compare numerically whatever their Go type. A time.Time operand
// compares against RFC 3339 string fields as an instant. A missing field
// never satisfies an operator except Ne.
type Query map[string]any

type op int

const (
	opGt op = iota + 1
	opLt
	opGte
	opLte
	opNe
	opIn
)

// Cond is an operator condition on a single field.
type Cond struct {
	op   op
	arg  any
	args []any
}

// Gt matches values greater than v.
func Gt(v any) Cond { return Cond{op: opGt, arg: v} }

// Lt matches values less than v.
func Lt(v any) Cond { return Cond{op: opLt, arg: v} }

// Gte matches values greater than or equal to v.
func Gte(v any) Cond { return Cond{op: opGte, arg: v} }

// Lte matches values less than or equal to v.
func Lte(v any) Cond { return Cond{op: opLte, arg: v} }

// Ne matches values not equal to v, including a missing field.
func Ne(v any) Cond { return Cond{op: opNe, arg: v} }

// In matches values equal to any of vs.
func In(vs ...any) Cond { return Cond{op: opIn, args: vs} }

// Match reports whether doc satisfies every constraint in q.
func (q Query) Match(doc Document) bool {
	for field, want := range q {
		got, present := doc[field]
		switch c := want.(type) {
		case Cond:
			if !c.match(got, present) {
				return false
			}
		case []Cond:
			for _, cc := range c {
				if !cc.match(got, present) {
					return false
				}
			}
		default:
			if !present || !equal(got, want) {
				return false
			}
		}
	}
	return true
}

func (c Cond) match(got any, present bool) bool {
	switch c.op {
	case opNe:
		return !present || !equal(got, c.arg)
	case opIn:
		if !present {
			return false
		}
		for _, a := range c.args {
			if equal(got, a) {
				return true
			}
		}
		return false
	}
	if !present {
		return false
	}
	n, ok := compare(got, c.arg)
	if !ok {
		return false
	}
	switch c.op {
	case opGt:
		return n > 0
	case opLt:
		return n < 0
	case opGte:
		return n >= 0
	case opLte:
		return n <= 0
	}
	return false
}

// compare orders got relative to want. ok is false when the two are not
// comparable.
func compare(got, want any) (int, bool) {
	if t, isTime := want.(time.Time); isTime {
		gt, ok := asTime(got)
		if !ok {
			return 0, false
		}
		return gt.Compare(t), true
	}
	if wf, ok := asFloat(want); ok {
		gf, ok := asFloat(got)
		if !ok {
			return 0, false
		}
		switch {
		case gf < wf:
			return -1, true
		case gf > wf:
			return 1, true
		}
		return 0, true
	}
	if ws, ok := want.(string); ok {
		gs, ok := got.(string)
		if !ok {
			return 0, false
		}
		// RFC 3339 strings drop trailing zero fractions, so they only order
		// correctly as instants.
		if wt, ok := asTime(ws); ok {
			if gt, ok := asTime(gs); ok {
				return gt.Compare(wt), true
			}
		}
		return strings.Compare(gs, ws), true
	}
	return 0, false
}

func equal(got, want any) bool {
	if n, ok := compare(got, want); ok {
		return n == 0
	}
	if reflect.DeepEqual(got, want) {
		return true
	}
	// Compare composite values in their stored (JSON) form.
	return reflect.DeepEqual(jsonValue(got), jsonValue(want))
}

func asFloat(v any) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

func jsonValue(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
