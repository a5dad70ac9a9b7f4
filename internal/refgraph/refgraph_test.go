package refgraph

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarrence/oascli/internal/openapi"
	"github.com/tarrence/oascli/specs"
)

func petsDoc(t *testing.T) *openapi.Document {
	t.Helper()
	data, err := openapi.LoadEmbedded(specs.PetsDocument)
	require.NoError(t, err)
	doc, err := openapi.Parse(data)
	require.NoError(t, err)
	return doc
}

func TestBuild(t *testing.T) {
	g := Build(petsDoc(t).Components())

	assert.Equal(t, []string{"schemas/NewPet"}, g["schemas/Pet"].Sorted())
	assert.Equal(t, []string{"schemas/Owner", "schemas/PetStatus"}, g["schemas/NewPet"].Sorted())
	assert.Equal(t, []string{"schemas/Address"}, g["schemas/Owner"].Sorted())
	assert.Empty(t, g["schemas/Error"])
	assert.Contains(t, g, "parameters/limit")
	assert.Contains(t, g, "securitySchemes/bearerAuth")
}

func TestUsesAndUsedBy(t *testing.T) {
	g := Build(petsDoc(t).Components())

	assert.Equal(t, []string{"schemas/Address", "schemas/NewPet", "schemas/Owner", "schemas/PetStatus"}, Uses(g, "schemas/Pet").Sorted())
	assert.Equal(t, []string{"schemas/NewPet", "schemas/Owner", "schemas/Pet", "schemas/Pets"}, UsedBy(g, "schemas/Address").Sorted())
	assert.Empty(t, Uses(g, "schemas/Error"))
}

func TestClosureCycles(t *testing.T) {
	g := Graph{
		"a": NewSet("b"),
		"b": NewSet("c"),
		"c": NewSet("a"),
		"d": NewSet("d"),
		"e": NewSet(),
	}
	assert.Equal(t, []string{"a", "b", "c"}, Closure(g, "a").Sorted())
	assert.Equal(t, []string{"a", "b", "c"}, Uses(g, "a").Sorted(), "a is on a cycle")
	assert.Equal(t, []string{"d"}, Uses(g, "d").Sorted())
	assert.Empty(t, Uses(g, "e"))
	assert.Equal(t, []string{"x"}, Closure(g, "x").Sorted(), "unknown seeds are kept")
}

func randomGraph(r *rand.Rand, n int) Graph {
	g := Graph{}
	for i := range n {
		s := NewSet()
		for range r.IntN(3) {
			s.Add(fmt.Sprintf("n%d", r.IntN(n)))
		}
		g[fmt.Sprintf("n%d", i)] = s
	}
	return g
}

func TestClosureProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 50 {
		g := randomGraph(r, 12)
		var s1, s2 []string
		for i := range 12 {
			name := fmt.Sprintf("n%d", i)
			switch r.IntN(3) {
			case 0:
				s1 = append(s1, name)
				s2 = append(s2, name)
			case 1:
				s2 = append(s2, name)
			}
		}
		c1, c2 := Closure(g, s1...), Closure(g, s2...)
		assert.True(t, c1.SubsetOf(c2), "monotonic")
		assert.Equal(t, c2, Closure(g, c2.Sorted()...), "idempotent")
	}
}

func TestInvert(t *testing.T) {
	g := Graph{"a": NewSet("b", "c"), "b": NewSet("c")}
	inv := Invert(g)
	assert.Equal(t, []string{"a", "b"}, inv["c"].Sorted())
	assert.Equal(t, []string{"a"}, inv["b"].Sorted())
	assert.Empty(t, inv["a"])
}

func TestFullName(t *testing.T) {
	g := Graph{"schemas/Pet": nil, "parameters/limit": nil, "responses/limit": nil}

	name, err := FullName(g, "Pet")
	require.NoError(t, err)
	assert.Equal(t, "schemas/Pet", name)

	name, err = FullName(g, "parameters/limit")
	require.NoError(t, err)
	assert.Equal(t, "parameters/limit", name)

	_, err = FullName(g, "limit")
	assert.ErrorContains(t, err, "ambiguous")
	_, err = FullName(g, "Nope")
	assert.Error(t, err)
}

func TestOperationsUsing(t *testing.T) {
	doc := petsDoc(t)
	g := Build(doc.Components())

	assert.Equal(t, []string{"listPets", "createPets", "showPetById", "updatePet", "listOwners", "createOwner"}, OperationsUsing(doc, g, "schemas/Address"))
	assert.Equal(t, []string{"listPets", "listOwners"}, OperationsUsing(doc, g, "parameters/limit"))

	seeds, err := OperationSeeds(doc, "deletePetById")
	require.NoError(t, err)
	assert.Equal(t, []string{"schemas/Error"}, seeds.Sorted())
}
