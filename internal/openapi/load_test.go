package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarrence/oascli/internal/schema"
	"github.com/tarrence/oascli/specs"
)

func petsDoc(t *testing.T) (*Document, []byte) {
	t.Helper()
	data, err := LoadEmbedded(specs.PetsDocument)
	require.NoError(t, err)
	doc, err := Parse(data)
	require.NoError(t, err)
	return doc, data
}

func TestParse(t *testing.T) {
	doc, _ := petsDoc(t)
	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Equal(t, "Swagger Petstore", doc.Info.Title)

	var ids []string
	for _, op := range doc.Operations() {
		ids = append(ids, op.Method+" "+op.ID)
	}
	assert.Equal(t, []string{
		"GET listPets", "POST createPets",
		"GET showPetById", "PATCH updatePet", "DELETE deletePetById",
		"GET listOwners", "POST createOwner",
	}, ids)
	assert.Equal(t, []string{"PetStatus", "Pet", "NewPet", "PetUpdate", "Pets", "Owner", "Address", "Error"}, doc.Models())

	_, err := doc.Operation("nope")
	assert.ErrorIs(t, err, ErrUnknownOperation)

	_, err = Parse([]byte(""))
	assert.ErrorContains(t, err, "empty input")
	_, err = Parse([]byte("- a\n"))
	assert.ErrorContains(t, err, "must be a mapping")
}

func TestParseDuplicateOperationID(t *testing.T) {
	_, err := Parse([]byte(`
openapi: 3.0.3
paths:
  /a:
    get: {operationId: same}
  /b:
    get: {operationId: same}
`))
	assert.ErrorContains(t, err, `duplicate operationId "same"`)
}

func TestParameters(t *testing.T) {
	doc, _ := petsDoc(t)

	op, err := doc.Operation("listPets")
	require.NoError(t, err)
	ps, err := doc.Parameters(op)
	require.NoError(t, err)
	var names []string
	for _, p := range ps {
		names = append(names, p.In+":"+p.Name)
	}
	assert.Equal(t, []string{"query:limit", "query:offset", "query:status", "header:X-Request-Id"}, names)

	show, err := doc.Operation("showPetById")
	require.NoError(t, err)
	ps, err = doc.Parameters(show)
	require.NoError(t, err)
	require.Len(t, ps, 1, "path-level parameters are inherited")
	assert.True(t, ps[0].Required)

	assert.Equal(t, []string{"parameters/limit", "schemas/Error", "schemas/PetStatus", "schemas/Pets"}, doc.Refs(op))
}

func TestMissingParameterReference(t *testing.T) {
	doc, err := Parse([]byte(`
openapi: 3.0.3
paths:
  /a:
    get:
      operationId: a
      parameters:
        - $ref: '#/components/parameters/gone'
`))
	require.NoError(t, err)
	op, err := doc.Operation("a")
	require.NoError(t, err)
	_, err = doc.Parameters(op)
	var missing *schema.MissingReferenceError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, "#/components/parameters/gone", missing.Ref)
}

func TestRequestBody(t *testing.T) {
	doc, _ := petsDoc(t)
	op, err := doc.Operation("createPets")
	require.NoError(t, err)

	body, err := doc.RequestBody(op, []string{"application/xml", "application/json; charset=utf-8"})
	require.NoError(t, err)
	assert.Equal(t, "application/json", body.ContentType)
	assert.True(t, body.Required)

	_, err = doc.RequestBody(op, []string{"text/plain"})
	assert.ErrorIs(t, err, ErrUnsupportedContent)

	show, err := doc.Operation("showPetById")
	require.NoError(t, err)
	body, err = doc.RequestBody(show, []string{"application/json"})
	require.NoError(t, err)
	assert.Nil(t, body)
}

func TestCompileBodySchema(t *testing.T) {
	doc, _ := petsDoc(t)
	op, err := doc.Operation("createPets")
	require.NoError(t, err)
	body, err := doc.RequestBody(op, []string{"application/json"})
	require.NoError(t, err)

	v, err := doc.CompileBodySchema(body)
	require.NoError(t, err)
	assert.NoError(t, v.Validate(map[string]any{"name": "Rex", "status": "sold"}))
	assert.Error(t, v.Validate(map[string]any{"tag": "x"}), "name is required")
	assert.Error(t, v.Validate(map[string]any{"name": "Rex", "status": "lost"}))

	_, err = doc.CompileBodySchema(nil)
	assert.Error(t, err)
}

func TestServerAndAuth(t *testing.T) {
	doc, _ := petsDoc(t)
	op, err := doc.Operation("listPets")
	require.NoError(t, err)
	assert.Equal(t, "http://petstore.swagger.io/v1", doc.ServerURLForOperation(op))
	assert.True(t, doc.OperationRequiresAuth(op))
}

func TestSummarize(t *testing.T) {
	_, data := petsDoc(t)
	s, err := Summarize(data)
	require.NoError(t, err)
	assert.Equal(t, "Swagger Petstore", s.Title)
	assert.Equal(t, 3, s.Paths)
	assert.Equal(t, 7, s.Operations)
	assert.Equal(t, 8, s.Schemas)
	assert.Equal(t, []string{"pets", "owners", "admin"}, s.Tags)
}

func TestValidate(t *testing.T) {
	_, data := petsDoc(t)
	require.NoError(t, Validate(context.Background(), data))

	err := Validate(context.Background(), []byte("openapi: 3.0.3\ninfo: {title: x}\npaths: {}\n"))
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	doc, _ := petsDoc(t)
	op, err := doc.Operation("showPetById")
	require.NoError(t, err)

	var y bytes.Buffer
	require.NoError(t, Encode(&y, op.Node, "out.yaml"))
	assert.True(t, strings.HasPrefix(y.String(), "operationId: showPetById\n"), y.String())

	var j bytes.Buffer
	require.NoError(t, Encode(&j, op.Node, "out.JSON"))
	var v map[string]any
	require.NoError(t, json.Unmarshal(j.Bytes(), &v))
	assert.Equal(t, "showPetById", v["operationId"])
}

func TestReadSourceStdin(t *testing.T) {
	b, err := ReadSource("-", strings.NewReader("openapi: 3.0.3\n"))
	require.NoError(t, err)
	assert.Equal(t, "openapi: 3.0.3\n", string(b))

	_, err = ReadSource("/does/not/exist.yaml", nil)
	assert.ErrorContains(t, err, "read /does/not/exist.yaml")
}
