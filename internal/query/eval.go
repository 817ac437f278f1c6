package query

import "github.com/MadVikingGod/weaver/api"

// Iter is the pull-based result sequence of a query. Next returns the next
// value, whether one was produced, and any error encountered producing it.
// After (false, nil) or an error the iterator is exhausted.
type Iter interface {
	Next() (api.Value, bool, error)
}

// Run evaluates the query against input with the given variable bindings.
// Evaluation is lazy: work happens as the iterator is consumed, and a
// runtime failure surfaces at the element that triggers it.
func (q *Query) Run(input api.Value, vars map[string]api.Value) Iter {
	e := &env{expr: q.expr, vars: vars}
	return q.root.eval(e, input)
}

// All drains the query into a slice.
func (q *Query) All(input api.Value, vars map[string]api.Value) ([]api.Value, error) {
	it := q.Run(input, vars)
	var out []api.Value
	for {
		v, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// First returns the first result, or ok=false for an empty sequence. The
// rest of the sequence is never evaluated.
func (q *Query) First(input api.Value, vars map[string]api.Value) (api.Value, bool, error) {
	return q.Run(input, vars).Next()
}

type env struct {
	expr string
	vars map[string]api.Value
}

// node is one evaluation step: value in, lazy sequence out. Pipelines
// flat-map stages over each other.
type node interface {
	eval(e *env, in api.Value) Iter
}

// Small helpers so parse.go reads without the api prefix noise.
func strValue(s string) api.Value  { return api.Str(s) }
func numValue(f float64) api.Value { return api.Number(f) }
func boolValue(b bool) api.Value   { return api.Bool(b) }
func nullValue() api.Value         { return api.Null() }
func emptySeq() api.Value          { return api.Seq(nil) }

// ---- iterators ----

type emptyIter struct{}

func (emptyIter) Next() (api.Value, bool, error) { return api.Null(), false, nil }

type oneIter struct {
	v    api.Value
	done bool
}

func (it *oneIter) Next() (api.Value, bool, error) {
	if it.done {
		return api.Null(), false, nil
	}
	it.done = true
	return it.v, true, nil
}

type sliceIter struct {
	vs []api.Value
	i  int
}

func (it *sliceIter) Next() (api.Value, bool, error) {
	if it.i >= len(it.vs) {
		return api.Null(), false, nil
	}
	v := it.vs[it.i]
	it.i++
	return v, true, nil
}

type errIter struct {
	err  error
	done bool
}

func (it *errIter) Next() (api.Value, bool, error) {
	if it.done {
		return api.Null(), false, nil
	}
	it.done = true
	return api.Null(), false, it.err
}

// flatMapIter applies f to every element of src and yields the concatenation
// of the produced sequences, pulling only as much as the consumer asks for.
type flatMapIter struct {
	src Iter
	f   func(api.Value) Iter
	cur Iter
}

func (it *flatMapIter) Next() (api.Value, bool, error) {
	for {
		if it.cur != nil {
			v, ok, err := it.cur.Next()
			if err != nil {
				return api.Null(), false, err
			}
			if ok {
				return v, true, nil
			}
			it.cur = nil
		}
		v, ok, err := it.src.Next()
		if err != nil {
			return api.Null(), false, err
		}
		if !ok {
			return api.Null(), false, nil
		}
		it.cur = it.f(v)
	}
}

func one(v api.Value) Iter { return &oneIter{v: v} }

// ---- nodes ----

type identityNode struct{}

func (identityNode) eval(_ *env, in api.Value) Iter { return one(in) }

type pipeNode struct {
	stages []node
}

func (n *pipeNode) eval(e *env, in api.Value) Iter {
	it := Iter(one(in))
	for _, stage := range n.stages {
		st := stage
		it = &flatMapIter{src: it, f: func(v api.Value) Iter { return st.eval(e, v) }}
	}
	return it
}

type literalNode struct {
	v api.Value
}

func (n *literalNode) eval(_ *env, _ api.Value) Iter { return one(n.v) }

type varNode struct {
	name string
	pos  int
}

func (n *varNode) eval(e *env, _ api.Value) Iter {
	v, ok := e.vars[n.name]
	if !ok {
		return &errIter{err: errf(UndefinedVariable, e.expr, n.pos, "$%s is not declared", n.name)}
	}
	return one(v)
}

type fieldNode struct {
	name string
	opt  bool
	pos  int
}

func (n *fieldNode) eval(e *env, in api.Value) Iter {
	switch in.Kind() {
	case api.KindMap:
		v, ok := in.Get(n.name)
		if !ok {
			return one(api.Null())
		}
		return one(v)
	case api.KindNull:
		return one(api.Null())
	default:
		if n.opt {
			return emptyIter{}
		}
		return &errIter{err: errf(TypeMismatch, e.expr, n.pos, "cannot access field %q of %s", n.name, in.Kind())}
	}
}

type indexNode struct {
	i   int
	opt bool
	pos int
}

func (n *indexNode) eval(e *env, in api.Value) Iter {
	switch in.Kind() {
	case api.KindSeq:
		i := n.i
		if i < 0 {
			i += in.Len()
		}
		return one(in.At(i))
	case api.KindNull:
		return one(api.Null())
	default:
		if n.opt {
			return emptyIter{}
		}
		return &errIter{err: errf(TypeMismatch, e.expr, n.pos, "cannot index %s", in.Kind())}
	}
}

type iterateNode struct {
	opt bool
	pos int
}

func (n *iterateNode) eval(e *env, in api.Value) Iter {
	switch in.Kind() {
	case api.KindSeq:
		return &sliceIter{vs: in.Elems()}
	case api.KindMap:
		vs := make([]api.Value, 0, in.Len())
		for _, k := range in.Keys() {
			v, _ := in.Get(k)
			vs = append(vs, v)
		}
		return &sliceIter{vs: vs}
	default:
		if n.opt {
			return emptyIter{}
		}
		return &errIter{err: errf(TypeMismatch, e.expr, n.pos, "cannot iterate %s", in.Kind())}
	}
}

// arrayNode collects every result of its inner pipeline into one sequence.
type arrayNode struct {
	inner node
}

func (n *arrayNode) eval(e *env, in api.Value) Iter {
	it := n.inner.eval(e, in)
	var vs []api.Value
	for {
		v, ok, err := it.Next()
		if err != nil {
			return &errIter{err: err}
		}
		if !ok {
			return one(api.Seq(vs))
		}
		vs = append(vs, v)
	}
}

// objectNode builds a map from static keys; each value expression contributes
// its first result (null for an empty sequence).
type objectNode struct {
	keys []string
	vals []node
}

func (n *objectNode) eval(e *env, in api.Value) Iter {
	b := api.NewMap()
	for i, key := range n.keys {
		v, ok, err := n.vals[i].eval(e, in).Next()
		if err != nil {
			return &errIter{err: err}
		}
		if !ok {
			v = api.Null()
		}
		b.Set(key, v)
	}
	return one(b.Value())
}

type binaryNode struct {
	op       string
	lhs, rhs node
	pos      int
}

func (n *binaryNode) eval(e *env, in api.Value) Iter {
	lit := n.lhs.eval(e, in)
	return &flatMapIter{src: lit, f: func(l api.Value) Iter {
		rit := n.rhs.eval(e, in)
		return &flatMapIter{src: rit, f: func(r api.Value) Iter {
			return one(applyBinary(n.op, l, r))
		}}
	}}
}

func applyBinary(op string, l, r api.Value) api.Value {
	switch op {
	case "and":
		return api.Bool(l.Truthy() && r.Truthy())
	case "or":
		return api.Bool(l.Truthy() || r.Truthy())
	case "==":
		return api.Bool(l.Equal(r))
	case "!=":
		return api.Bool(!l.Equal(r))
	case "<":
		return api.Bool(l.Compare(r) < 0)
	case "<=":
		return api.Bool(l.Compare(r) <= 0)
	case ">":
		return api.Bool(l.Compare(r) > 0)
	case ">=":
		return api.Bool(l.Compare(r) >= 0)
	default:
		return api.Null()
	}
}
