package prune

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tarrence/oascli/internal/openapi"
	"github.com/tarrence/oascli/specs"
)

func petsRoot(t *testing.T) *yaml.Node {
	t.Helper()
	data, err := openapi.LoadEmbedded(specs.PetsDocument)
	require.NoError(t, err)
	var root yaml.Node
	require.NoError(t, yaml.Unmarshal(data, &root))
	return &root
}

func TestKeepSingleOperation(t *testing.T) {
	root := petsRoot(t)

	report, err := Document(root, Options{Keep: []string{"deletePetById"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"listPets", "createPets", "showPetById", "updatePet", "listOwners", "createOwner"}, report.Operations)
	assert.Equal(t, []string{"/pets", "/owners"}, report.Paths)
	assert.Equal(t, []string{
		"parameters/limit",
		"schemas/PetStatus", "schemas/Pet", "schemas/NewPet", "schemas/PetUpdate",
		"schemas/Pets", "schemas/Owner", "schemas/Address",
	}, report.Components)
	assert.Equal(t, []string{"pets", "owners"}, report.Tags)

	assert.Equal(t, []string{"/pets/{petId}"}, openapi.Keys(openapi.Lookup(root, "paths")))
	assert.Equal(t, []string{"parameters", "delete"}, openapi.Keys(openapi.Lookup(root, "paths", "/pets/{petId}")))
	assert.Equal(t, []string{"schemas", "securitySchemes"}, openapi.Keys(openapi.Lookup(root, "components")))
	assert.Equal(t, []string{"Error"}, openapi.Keys(openapi.Lookup(root, "components", "schemas")))

	doc, err := openapi.NewDocument(root)
	require.NoError(t, err)
	require.Len(t, doc.Tags, 1)
	assert.Equal(t, "admin", doc.Tags[0].Name)
}

func TestRemoveOperations(t *testing.T) {
	root := petsRoot(t)

	report, err := Document(root, Options{Remove: []string{"listOwners", "createOwner"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"/owners"}, report.Paths)
	assert.Equal(t, []string{"owners"}, report.Tags)
	// Owner is still reachable through NewPet.
	assert.Empty(t, report.Components)
}

func TestMissingOperations(t *testing.T) {
	root := petsRoot(t)

	_, err := Document(root, Options{Keep: []string{"listPets", "feedPets"}, Remove: []string{"walkPets"}})
	require.Error(t, err)
	assert.Equal(t, "schema is missing: feedPets, walkPets", err.Error())
	assert.NotNil(t, openapi.Lookup(root, "paths", "/owners"), "nothing is removed on error")
}

func TestRemoveAllTags(t *testing.T) {
	root := petsRoot(t)

	report, err := Document(root, Options{RemoveAllTags: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"pets", "owners", "admin"}, report.Tags)
	assert.Nil(t, openapi.Lookup(root, "tags"))
	assert.Nil(t, openapi.Lookup(root, "paths", "/pets", "get", "tags"))
	assert.Empty(t, report.Operations)
}

const propsDoc = `
openapi: 3.1.0
info: {title: t, version: "1"}
paths:
  /things:
    post:
      operationId: createThing
      requestBody:
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Thing'
      responses:
        '200': {description: ok}
components:
  schemas:
    Thing:
      type: object
      required: [name, etag, note, color]
      properties:
        name: {type: string}
        etag: {type: string}
        note:
          type: [string, "null"]
        color:
          type: string
          nullable: true
        inner:
          type: object
          required: [etag]
          properties:
            etag: {type: string}
    Unused:
      type: object
`

func TestRemovePropertiesAndNullable(t *testing.T) {
	var root yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(propsDoc), &root))

	report, err := Document(&root, Options{RemoveProperties: []string{"etag"}, NullableNotRequired: true})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Properties)
	assert.Equal(t, []string{"schemas/Unused"}, report.Components)

	thing := openapi.Lookup(&root, "components", "schemas", "Thing")
	assert.Equal(t, []string{"name", "note", "color", "inner"}, openapi.Keys(openapi.Lookup(thing, "properties")))
	req := openapi.Lookup(thing, "required")
	require.NotNil(t, req)
	require.Len(t, req.Content, 1)
	assert.Equal(t, "name", req.Content[0].Value)
	assert.Nil(t, openapi.Lookup(thing, "properties", "inner", "required"), "emptied required lists are dropped")
}
