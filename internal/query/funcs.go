package query

import (
	"sort"
	"strings"

	"github.com/MadVikingGod/weaver/api"
)

type callNode struct {
	name string
	args []node
	pos  int
}

func (n *callNode) eval(e *env, in api.Value) Iter {
	fn, ok := builtins[n.name]
	if !ok {
		return &errIter{err: errf(UndefinedFunction, e.expr, n.pos, "no function %q", n.name)}
	}
	if len(n.args) != fn.arity {
		return &errIter{err: errf(RuntimeFailure, e.expr, n.pos, "%s takes %d argument(s), got %d", n.name, fn.arity, len(n.args))}
	}
	return fn.apply(e, n, in)
}

type builtin struct {
	arity int
	apply func(e *env, n *callNode, in api.Value) Iter
}

var builtins map[string]builtin

// init rather than a literal: select/map close over the table itself via
// callNode evaluation, and a literal would be an initialization cycle.
func init() {
	builtins = map[string]builtin{
		"select":   {1, evalSelect},
		"map":      {1, evalMap},
		"sort_by":  {1, evalSortBy},
		"group_by": {1, evalGroupBy},
		"first":    {0, evalFirst},
		"last":     {0, evalLast},
		"length":   {0, evalLength},
		"keys":     {0, evalKeys},
		"values":   {0, evalValues},
		"join":     {1, evalJoin},
		"split":    {1, evalSplit},
		"empty":    {0, func(*env, *callNode, api.Value) Iter { return emptyIter{} }},
		"not":      {0, evalNot},
		"has":      {1, evalHas},
		"tostring": {0, evalToString},
	}
}

// argFirst evaluates an argument expression against in and returns its first
// result (null for an empty sequence).
func argFirst(e *env, arg node, in api.Value) (api.Value, error) {
	v, ok, err := arg.eval(e, in).Next()
	if err != nil {
		return api.Null(), err
	}
	if !ok {
		return api.Null(), nil
	}
	return v, nil
}

func evalSelect(e *env, n *callNode, in api.Value) Iter {
	v, err := argFirst(e, n.args[0], in)
	if err != nil {
		return &errIter{err: err}
	}
	if v.Truthy() {
		return one(in)
	}
	return emptyIter{}
}

func requireSeq(e *env, n *callNode, in api.Value) *EvalError {
	if in.Kind() != api.KindSeq {
		return errf(TypeMismatch, e.expr, n.pos, "%s requires a sequence, got %s", n.name, in.Kind())
	}
	return nil
}

func evalMap(e *env, n *callNode, in api.Value) Iter {
	if err := requireSeq(e, n, in); err != nil {
		return &errIter{err: err}
	}
	var out []api.Value
	for _, el := range in.Elems() {
		it := n.args[0].eval(e, el)
		for {
			v, ok, err := it.Next()
			if err != nil {
				return &errIter{err: err}
			}
			if !ok {
				break
			}
			out = append(out, v)
		}
	}
	return one(api.Seq(out))
}

func evalSortBy(e *env, n *callNode, in api.Value) Iter {
	if err := requireSeq(e, n, in); err != nil {
		return &errIter{err: err}
	}
	elems := in.Elems()
	keys := make([]api.Value, len(elems))
	for i, el := range elems {
		k, err := argFirst(e, n.args[0], el)
		if err != nil {
			return &errIter{err: err}
		}
		keys[i] = k
	}
	idx := make([]int, len(elems))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]].Compare(keys[idx[b]]) < 0
	})
	out := make([]api.Value, len(elems))
	for i, j := range idx {
		out[i] = elems[j]
	}
	return one(api.Seq(out))
}

// evalGroupBy groups sequence elements by key. Groups are emitted in
// first-seen key order, which keeps output stable under input reordering of
// later duplicates only.
func evalGroupBy(e *env, n *callNode, in api.Value) Iter {
	if err := requireSeq(e, n, in); err != nil {
		return &errIter{err: err}
	}
	var order []string
	groups := make(map[string][]api.Value)
	for _, el := range in.Elems() {
		k, err := argFirst(e, n.args[0], el)
		if err != nil {
			return &errIter{err: err}
		}
		ks := k.String()
		if _, seen := groups[ks]; !seen {
			order = append(order, ks)
		}
		groups[ks] = append(groups[ks], el)
	}
	out := make([]api.Value, len(order))
	for i, ks := range order {
		out[i] = api.Seq(groups[ks])
	}
	return one(api.Seq(out))
}

func evalFirst(e *env, n *callNode, in api.Value) Iter {
	if err := requireSeq(e, n, in); err != nil {
		return &errIter{err: err}
	}
	if in.Len() == 0 {
		return emptyIter{}
	}
	return one(in.At(0))
}

func evalLast(e *env, n *callNode, in api.Value) Iter {
	if err := requireSeq(e, n, in); err != nil {
		return &errIter{err: err}
	}
	if in.Len() == 0 {
		return emptyIter{}
	}
	return one(in.At(in.Len() - 1))
}

func evalLength(_ *env, _ *callNode, in api.Value) Iter {
	return one(api.Number(float64(in.Len())))
}

func evalKeys(e *env, n *callNode, in api.Value) Iter {
	switch in.Kind() {
	case api.KindMap:
		vs := make([]api.Value, 0, in.Len())
		for _, k := range in.Keys() {
			vs = append(vs, api.Str(k))
		}
		return one(api.Seq(vs))
	case api.KindSeq:
		vs := make([]api.Value, in.Len())
		for i := range vs {
			vs[i] = api.Number(float64(i))
		}
		return one(api.Seq(vs))
	default:
		return &errIter{err: errf(TypeMismatch, e.expr, n.pos, "keys requires a map or sequence, got %s", in.Kind())}
	}
}

func evalValues(e *env, n *callNode, in api.Value) Iter {
	switch in.Kind() {
	case api.KindMap:
		vs := make([]api.Value, 0, in.Len())
		for _, k := range in.Keys() {
			v, _ := in.Get(k)
			vs = append(vs, v)
		}
		return one(api.Seq(vs))
	case api.KindSeq:
		return one(in)
	default:
		return &errIter{err: errf(TypeMismatch, e.expr, n.pos, "values requires a map or sequence, got %s", in.Kind())}
	}
}

func evalJoin(e *env, n *callNode, in api.Value) Iter {
	if err := requireSeq(e, n, in); err != nil {
		return &errIter{err: err}
	}
	sep, err := argFirst(e, n.args[0], in)
	if err != nil {
		return &errIter{err: err}
	}
	if sep.Kind() != api.KindString {
		return &errIter{err: errf(TypeMismatch, e.expr, n.pos, "join separator must be a string")}
	}
	parts := make([]string, in.Len())
	for i, el := range in.Elems() {
		parts[i] = stringify(el)
	}
	return one(api.Str(strings.Join(parts, sep.AsString())))
}

func evalSplit(e *env, n *callNode, in api.Value) Iter {
	if in.Kind() != api.KindString {
		return &errIter{err: errf(TypeMismatch, e.expr, n.pos, "split requires a string, got %s", in.Kind())}
	}
	sep, err := argFirst(e, n.args[0], in)
	if err != nil {
		return &errIter{err: err}
	}
	if sep.Kind() != api.KindString {
		return &errIter{err: errf(TypeMismatch, e.expr, n.pos, "split separator must be a string")}
	}
	parts := strings.Split(in.AsString(), sep.AsString())
	vs := make([]api.Value, len(parts))
	for i, p := range parts {
		vs[i] = api.Str(p)
	}
	return one(api.Seq(vs))
}

func evalNot(_ *env, _ *callNode, in api.Value) Iter {
	return one(api.Bool(!in.Truthy()))
}

func evalHas(e *env, n *callNode, in api.Value) Iter {
	key, err := argFirst(e, n.args[0], in)
	if err != nil {
		return &errIter{err: err}
	}
	switch in.Kind() {
	case api.KindMap:
		if key.Kind() != api.KindString {
			return &errIter{err: errf(TypeMismatch, e.expr, n.pos, "has key must be a string for maps")}
		}
		_, ok := in.Get(key.AsString())
		return one(api.Bool(ok))
	case api.KindSeq:
		if key.Kind() != api.KindNumber {
			return &errIter{err: errf(TypeMismatch, e.expr, n.pos, "has key must be a number for sequences")}
		}
		i := int(key.AsNumber())
		return one(api.Bool(i >= 0 && i < in.Len()))
	default:
		return &errIter{err: errf(TypeMismatch, e.expr, n.pos, "has requires a map or sequence, got %s", in.Kind())}
	}
}

func evalToString(_ *env, _ *callNode, in api.Value) Iter {
	return one(api.Str(stringify(in)))
}

// stringify renders strings bare and everything else as JSON.
func stringify(v api.Value) string {
	if v.Kind() == api.KindString {
		return v.AsString()
	}
	return v.String()
}
