package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const fixture = `
schemas:
  TypeA:
    type: object
    properties:
      a: {type: string}
      a2: {type: string}
  TypeB:
    type: object
    properties:
      b: {type: integer}
  Either:
    oneOf:
      - $ref: '#/components/schemas/TypeA'
      - $ref: '#/components/schemas/TypeB'
  Tag:
    type: string
  Point:
    type: object
    properties:
      x: {type: number}
      y: {type: number}
  Located:
    type: object
    properties:
      where:
        $ref: '#/components/schemas/Point'
  TagList:
    type: array
    items:
      $ref: '#/components/schemas/Tag'
  TagOrList:
    oneOf:
      - $ref: '#/components/schemas/Tag'
      - $ref: '#/components/schemas/TagList'
  Tags:
    anyOf:
      - $ref: '#/components/schemas/Tag'
      - type: array
        items:
          $ref: '#/components/schemas/Tag'
  Chain:
    type: object
    properties:
      value: {type: string}
      next:
        $ref: '#/components/schemas/Chain'
  Loop:
    allOf:
      - $ref: '#/components/schemas/Loop'
  NewPet:
    type: object
    required: [name]
    properties:
      name: {type: string}
      tag: {type: string}
  Pet:
    allOf:
      - $ref: '#/components/schemas/NewPet'
      - type: object
        required: [id]
        properties:
          id: {type: integer, format: int64, readOnly: true}
  MaybeName:
    oneOf:
      - type: string
      - type: 'null'
  Modern:
    type: [integer, 'null']
  Broken:
    type: object
    properties:
      x:
        $ref: '#/components/schemas/Nope'
  Described:
    $ref: '#/components/schemas/Tag'
    description: outer text
`

func testIndex(t *testing.T) *Index {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(fixture), &doc))
	idx, err := NewIndex(doc.Content[0])
	require.NoError(t, err)
	return idx
}

func ref(name string) *Node {
	return &Node{Ref: "#/components/schemas/" + name}
}

func TestResolveOneOfPicksFirstCandidate(t *testing.T) {
	diags := &Diagnostics{}
	r := NewResolver(testIndex(t), WithDiagnostics(diags))

	got, err := r.Resolve(ref("Either"), NewTrail("createThing").Field("thing"))
	require.NoError(t, err)

	_, hasA := got.Property("a")
	_, hasB := got.Property("b")
	assert.True(t, hasA)
	assert.False(t, hasB)
	assert.Equal(t, "schemas/Either", got.Source)

	notices := diags.OfKind(AmbiguousVariantNotice)
	require.Len(t, notices, 1)
	assert.Equal(t, "oneOf", notices[0].Keyword)
	assert.Equal(t, 0, notices[0].Chosen)
	assert.Equal(t, 2, notices[0].Candidates)
	assert.Equal(t, "createThing", notices[0].Operation)
	assert.Equal(t, "thing", notices[0].Property)
}

func TestResolveIsDeterministic(t *testing.T) {
	idx := testIndex(t)
	first, err := NewResolver(idx).Resolve(ref("Either"), NewTrail("op"))
	require.NoError(t, err)
	for range 5 {
		again, err := NewResolver(idx).Resolve(ref("Either"), NewTrail("op"))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolveCondensesValueOrArray(t *testing.T) {
	diags := &Diagnostics{}
	idx := testIndex(t)
	r := NewResolver(idx, WithDiagnostics(diags))

	got, err := r.Resolve(ref("Tags"), NewTrail("op"))
	require.NoError(t, err)
	assert.Equal(t, KindString, got.Kind)
	assert.True(t, got.Collection)
	assert.Zero(t, diags.Len())

	raw, ok := idx.Lookup("schemas/Tag")
	require.True(t, ok)
	assert.False(t, raw.Collection, "index nodes must not be mutated")
}

func TestResolveCondensesReferencedArrayBranch(t *testing.T) {
	diags := &Diagnostics{}
	r := NewResolver(testIndex(t), WithDiagnostics(diags))

	got, err := r.Resolve(ref("TagOrList"), NewTrail("op"))
	require.NoError(t, err)
	assert.Equal(t, KindString, got.Kind)
	assert.True(t, got.Collection)
	assert.Zero(t, diags.Len())
}

func TestResolveNullBranch(t *testing.T) {
	diags := &Diagnostics{}
	r := NewResolver(testIndex(t), WithDiagnostics(diags))

	got, err := r.Resolve(ref("MaybeName"), NewTrail("op"))
	require.NoError(t, err)
	assert.Equal(t, KindString, got.Kind)
	assert.True(t, got.Nullable)
	assert.Zero(t, diags.Len())

	modern, err := r.Resolve(ref("Modern"), NewTrail("op"))
	require.NoError(t, err)
	assert.Equal(t, KindInteger, modern.Kind)
	assert.True(t, modern.Nullable)
}

func TestResolveAllOfOverlay(t *testing.T) {
	r := NewResolver(testIndex(t))

	got, err := r.Resolve(ref("Pet"), NewTrail("op"))
	require.NoError(t, err)
	assert.Equal(t, KindObject, got.Kind)

	var names []string
	for _, p := range got.Properties {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"name", "tag", "id"}, names)
	assert.Equal(t, []string{"name", "id"}, got.Required)
	assert.Equal(t, []string{"schemas/Pet", "schemas/NewPet"}, got.Properties[0].Via)
	n, err := r.SettableCount(got, NewTrail("op"), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	c, err := r.Classify(ref("Pet"), NewTrail("op"))
	require.NoError(t, err)
	assert.Equal(t, Classification{IsComplex: true}, c)
}

func TestClassifyArrays(t *testing.T) {
	r := NewResolver(testIndex(t))

	c, err := r.Classify(&Node{Kind: KindArray, Items: ref("Tag")}, NewTrail("op"))
	require.NoError(t, err)
	assert.Equal(t, Classification{IsArray: true}, c)

	c, err = r.Classify(&Node{Kind: KindArray, Items: ref("TypeA")}, NewTrail("op"))
	require.NoError(t, err)
	assert.Equal(t, Classification{IsArray: true, IsComplex: true}, c)

	c, err = r.Classify(&Node{AllOf: []*Node{{Kind: KindArray, Items: ref("TypeB")}}}, NewTrail("op"))
	require.NoError(t, err)
	assert.Equal(t, Classification{IsArray: true}, c)

	// A single property whose object holds two fields is still complex.
	c, err = r.Classify(&Node{Kind: KindArray, Items: ref("Located")}, NewTrail("op"))
	require.NoError(t, err)
	assert.Equal(t, Classification{IsArray: true, IsComplex: true}, c)

	c, err = r.Classify(ref("Located"), NewTrail("op"))
	require.NoError(t, err)
	assert.Equal(t, Classification{IsComplex: true}, c)
}

func TestResolveMissingReference(t *testing.T) {
	r := NewResolver(testIndex(t))
	trail := NewTrail("createThing")

	broken, err := r.Resolve(ref("Broken"), trail)
	require.NoError(t, err)

	x := broken.Properties[0]
	_, err = r.Resolve(x.Schema, trail.Field(x.Name).Through(x.Via...))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingReference))

	var missing *MissingReferenceError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "#/components/schemas/Nope", missing.Ref)
	assert.Equal(t, []string{"createThing", "x"}, missing.Chain)
}

func TestResolveCycle(t *testing.T) {
	r := NewResolver(testIndex(t))
	trail := NewTrail("op")

	chain, err := r.Resolve(ref("Chain"), trail)
	require.NoError(t, err)
	next := chain.Properties[1]
	require.Equal(t, "next", next.Name)

	_, err = r.Resolve(next.Schema, trail.Field(next.Name).Through(next.Via...))
	var cycle *CycleDetectedError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, "schemas/Chain", cycle.Ref)

	_, err = r.Resolve(ref("Loop"), trail)
	assert.True(t, errors.Is(err, ErrCycleDetected))
}

func TestResolveSiblingsOnlyFillGaps(t *testing.T) {
	r := NewResolver(testIndex(t))
	got, err := r.Resolve(ref("Described"), NewTrail("op"))
	require.NoError(t, err)
	assert.Equal(t, "outer text", got.Description)
	assert.Equal(t, KindString, got.Kind)
	assert.Equal(t, "schemas/Tag", got.Source)
}

func TestIndexLookupForms(t *testing.T) {
	idx := testIndex(t)
	_, ok := idx.Lookup("#/components/schemas/Pet")
	assert.True(t, ok)
	_, ok = idx.Lookup("schemas/Pet")
	assert.True(t, ok)
	_, ok = idx.Lookup("#/definitions/Pet")
	assert.False(t, ok)
	assert.Contains(t, idx.Names(), "schemas/TypeA")
}
