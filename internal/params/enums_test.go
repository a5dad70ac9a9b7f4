package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const enumDoc = `
openapi: 3.0.3
info: {title: t, version: '1'}
paths:
  /orders:
    post:
      operationId: createOrder
      parameters:
        - name: status
          in: query
          schema:
            $ref: '#/components/schemas/Status'
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                status:
                  $ref: '#/components/schemas/Status'
                previous:
                  $ref: '#/components/schemas/Status'
                color:
                  type: string
                  enum: [red, green]
                shipping:
                  type: object
                  properties:
                    color:
                      type: string
                      enum: [red, green]
                    speed:
                      type: integer
                      enum: [1, 2, 2]
components:
  schemas:
    Status:
      type: string
      enum: [open, closed]
`

func TestEnumsDeduplicateByReference(t *testing.T) {
	res, err := inlineEngine(t, enumDoc).ResolveOperation("createOrder")
	require.NoError(t, err)

	query, body := res.Set(LocationQuery), res.Set(LocationBody)
	shared := res.Enums.For(query.Lookup("status"))
	require.NotNil(t, shared)
	assert.Equal(t, "Status", shared.Name)
	assert.Same(t, shared, res.Enums.For(body.Lookup("status")))
	assert.Same(t, shared, res.Enums.For(body.Lookup("previous")))

	// Same literal values without a shared reference stay separate.
	top, nested := res.Enums.For(body.Lookup("color")), res.Enums.For(body.Lookup("shipping.color"))
	require.NotNil(t, top)
	require.NotNil(t, nested)
	assert.NotSame(t, top, nested)
	assert.Equal(t, "Color", top.Name)
	assert.Equal(t, "ShippingColor", nested.Name)

	speed := res.Enums.For(body.Lookup("shipping.speed"))
	assert.Equal(t, Integer, speed.Kind)
	assert.Equal(t, []EnumMember{{Identifier: "VALUE_1", Value: 1}, {Identifier: "VALUE_2", Value: 2}}, speed.Members)

	assert.Equal(t, 4, res.Enums.Len())
}

func TestEnumNameCollisionsGetSuffix(t *testing.T) {
	a := &ParameterSet{Properties: []*Property{
		{Name: "status", Field: "status", Type: String, Enum: []any{"a"}},
	}}
	b := &ParameterSet{Properties: []*Property{
		{Name: "status", Field: "status", Type: String, Enum: []any{"b"}},
	}}
	table := EnumsFor(a, b, nil)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "Status", table.Definitions[0].Name)
	assert.Equal(t, "Status1", table.Definitions[1].Name)
}

func TestEnumMemberIdentifiers(t *testing.T) {
	tests := []struct {
		name          string
		kind          Primitive
		values        []any
		want          []string
		caseSensitive bool
	}{
		{
			name:   "plain strings",
			kind:   String,
			values: []any{"available", "on-hold"},
			want:   []string{"AVAILABLE", "ON_HOLD"},
		},
		{
			name:   "numeric strings get the marker",
			kind:   String,
			values: []any{"10", "abc"},
			want:   []string{"VALUE_10", "VALUE_ABC"},
		},
		{
			name:          "case-only differences are kept apart",
			kind:          String,
			values:        []any{"CA", "ca"},
			want:          []string{"CA0", "CA1"},
			caseSensitive: true,
		},
		{
			name:   "integers",
			kind:   Integer,
			values: []any{1, 2},
			want:   []string{"VALUE_1", "VALUE_2"},
		},
		{
			name:          "suffixes step over existing names",
			kind:          String,
			values:        []any{"v1", "V1", "v_10"},
			want:          []string{"V_11", "V_12", "V_10"},
			caseSensitive: true,
		},
		{
			name:   "numbers compare by value",
			kind:   Number,
			values: []any{1, 1.0, 10},
			want:   []string{"VALUE_1", "VALUE_10"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Property{Name: "x", Field: "x", Type: tt.kind, Enum: tt.values}
			d := newEnumDefinition("X", p)
			var got []string
			for _, m := range d.Members {
				got = append(got, m.Identifier)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.caseSensitive, d.CaseSensitive)
			seen := map[string]bool{}
			for _, id := range got {
				assert.False(t, seen[id], "duplicate identifier %s", id)
				seen[id] = true
			}
		})
	}
}

func TestEnumMatch(t *testing.T) {
	insensitive := newEnumDefinition("S", &Property{Type: String, Enum: []any{"open", "closed"}})
	v, ok := insensitive.Match("OPEN")
	assert.True(t, ok)
	assert.Equal(t, "open", v)

	sensitive := newEnumDefinition("S", &Property{Type: String, Enum: []any{"CA", "ca"}})
	v, ok = sensitive.Match("ca")
	assert.True(t, ok)
	assert.Equal(t, "ca", v)
	_, ok = sensitive.Match("Ca")
	assert.False(t, ok)
}
