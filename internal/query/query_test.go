package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MadVikingGod/weaver/api"
)

func schemaFixture(t *testing.T) api.Value {
	t.Helper()
	v, err := api.ParseDocument([]byte(`
groups:
  - id: registry.http
    attrs: [method, status]
    stability: stable
  - id: registry.db
    attrs: []
    stability: experimental
  - id: registry.rpc
    attrs: [system]
    stability: stable
`))
	require.NoError(t, err)
	return v
}

func run(t *testing.T, expr string, in api.Value) []api.Value {
	t.Helper()
	q, err := Parse(expr)
	require.NoError(t, err)
	out, err := q.All(in, nil)
	require.NoError(t, err)
	return out
}

func TestIdentity(t *testing.T) {
	in := api.Str("x")
	out := run(t, ".", in)
	require.Len(t, out, 1)
	assert.True(t, out[0].Equal(in))
}

func TestFieldAccess(t *testing.T) {
	out := run(t, ".groups[0].id", schemaFixture(t))
	require.Len(t, out, 1)
	assert.Equal(t, "registry.http", out[0].AsString())
}

func TestFieldOnNullIsNull(t *testing.T) {
	out := run(t, ".missing.also_missing", schemaFixture(t))
	require.Len(t, out, 1)
	assert.True(t, out[0].IsNull())
}

func TestFieldOnScalarFails(t *testing.T) {
	q, err := Parse(".name")
	require.NoError(t, err)
	_, err = q.All(api.Str("scalar"), nil)
	require.Error(t, err)

	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, TypeMismatch, ee.Kind)
}

func TestOptionalFieldOnScalarIsEmpty(t *testing.T) {
	out := run(t, ".name?", api.Str("scalar"))
	assert.Empty(t, out)
}

func TestIterate(t *testing.T) {
	out := run(t, ".groups[]", schemaFixture(t))
	assert.Len(t, out, 3)
}

func TestNegativeIndex(t *testing.T) {
	out := run(t, ".groups[-1].id", schemaFixture(t))
	require.Len(t, out, 1)
	assert.Equal(t, "registry.rpc", out[0].AsString())
}

func TestSelectNonEmptyAttrs(t *testing.T) {
	out := run(t, `.groups[] | select(.attrs | length > 0) | .id`, schemaFixture(t))
	require.Len(t, out, 2)
	assert.Equal(t, "registry.http", out[0].AsString())
	assert.Equal(t, "registry.rpc", out[1].AsString())
}

func TestSelectByComparison(t *testing.T) {
	out := run(t, `.groups[] | select(.stability == "stable") | .id`, schemaFixture(t))
	require.Len(t, out, 2)
}

func TestMap(t *testing.T) {
	out := run(t, `.groups | map(.id)`, schemaFixture(t))
	require.Len(t, out, 1)
	require.Equal(t, api.KindSeq, out[0].Kind())
	assert.Equal(t, 3, out[0].Len())
}

func TestSortByIsStableAndOrdered(t *testing.T) {
	out := run(t, `.groups | sort_by(.stability) | map(.id) | join(",")`, schemaFixture(t))
	require.Len(t, out, 1)
	// experimental < stable; equal keys keep input order.
	assert.Equal(t, "registry.db,registry.http,registry.rpc", out[0].AsString())
}

func TestGroupByFirstSeenOrder(t *testing.T) {
	out := run(t, `.groups | group_by(.stability) | map(length)`, schemaFixture(t))
	require.Len(t, out, 1)
	groups := out[0]
	require.Equal(t, 2, groups.Len())
	// "stable" appears first in the input, so its group leads.
	assert.Equal(t, 2.0, groups.At(0).AsNumber())
	assert.Equal(t, 1.0, groups.At(1).AsNumber())
}

func TestArrayAndObjectConstruction(t *testing.T) {
	out := run(t, `[.groups[] | {name: .id, n: (.attrs | length)}]`, schemaFixture(t))
	require.Len(t, out, 1)
	require.Equal(t, 3, out[0].Len())

	first := out[0].At(0)
	assert.Equal(t, []string{"name", "n"}, first.Keys())
	name, _ := first.Get("name")
	assert.Equal(t, "registry.http", name.AsString())
}

func TestObjectShorthand(t *testing.T) {
	out := run(t, `.groups[0] | {id}`, schemaFixture(t))
	require.Len(t, out, 1)
	id, ok := out[0].Get("id")
	require.True(t, ok)
	assert.Equal(t, "registry.http", id.AsString())
}

func TestKeysValuesHas(t *testing.T) {
	in, err := api.ParseDocument([]byte("b: 1\na: 2\n"))
	require.NoError(t, err)

	keys := run(t, "keys", in)
	require.Len(t, keys, 1)
	assert.Equal(t, "b", keys[0].At(0).AsString())

	has := run(t, `has("a")`, in)
	require.Len(t, has, 1)
	assert.True(t, has[0].AsBool())
}

func TestSplitJoinRoundTrip(t *testing.T) {
	out := run(t, `split(".") | join("_")`, api.Str("registry.http.server"))
	require.Len(t, out, 1)
	assert.Equal(t, "registry_http_server", out[0].AsString())
}

func TestVariables(t *testing.T) {
	q, err := Parse(`.groups[] | select(.stability == $want) | .id`)
	require.NoError(t, err)
	out, err := q.All(schemaFixture(t), map[string]api.Value{"want": api.Str("experimental")})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "registry.db", out[0].AsString())
}

func TestUndefinedVariable(t *testing.T) {
	q, err := Parse("$nope")
	require.NoError(t, err)
	_, err = q.All(api.Null(), nil)
	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, UndefinedVariable, ee.Kind)
}

func TestUndefinedFunction(t *testing.T) {
	q, err := Parse(".groups | frobnicate(.id)")
	require.NoError(t, err)
	_, err = q.All(schemaFixture(t), nil)
	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, UndefinedFunction, ee.Kind)
	assert.Contains(t, ee.Msg, "frobnicate")
}

func TestParseErrorIsEager(t *testing.T) {
	_, err := Parse(".groups[")
	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ParseError, ee.Kind)
}

func TestLazyFirstSkipsDownstreamErrors(t *testing.T) {
	// The second element would fail field access, but First never reaches it.
	in, err := api.ParseDocument([]byte(`items: [{id: ok}, broken]`))
	require.NoError(t, err)

	q, qerr := Parse(".items[] | .id")
	require.NoError(t, qerr)

	v, ok, nerr := q.First(in, nil)
	require.NoError(t, nerr)
	require.True(t, ok)
	assert.Equal(t, "ok", v.AsString())
}

func TestLazyErrorSurfacesAtFailingElement(t *testing.T) {
	in, err := api.ParseDocument([]byte(`items: [{id: ok}, broken]`))
	require.NoError(t, err)

	q, qerr := Parse(".items[] | .id")
	require.NoError(t, qerr)

	it := q.Run(in, nil)
	v, ok, nerr := it.Next()
	require.NoError(t, nerr)
	require.True(t, ok)
	assert.Equal(t, "ok", v.AsString())

	_, _, nerr = it.Next()
	var ee *EvalError
	require.ErrorAs(t, nerr, &ee)
	assert.Equal(t, TypeMismatch, ee.Kind)
}

func TestEmptyFunction(t *testing.T) {
	out := run(t, "empty", api.Str("anything"))
	assert.Empty(t, out)
}

func TestBooleanOperators(t *testing.T) {
	out := run(t, `.groups[] | select(.stability == "stable" and (.attrs | length) > 1) | .id`, schemaFixture(t))
	require.Len(t, out, 1)
	assert.Equal(t, "registry.http", out[0].AsString())
}

func TestDeterminism(t *testing.T) {
	expr := `.groups | sort_by(.id) | map(.id) | join("|")`
	first := run(t, expr, schemaFixture(t))
	for i := 0; i < 5; i++ {
		again := run(t, expr, schemaFixture(t))
		assert.True(t, first[0].Equal(again[0]))
	}
}
