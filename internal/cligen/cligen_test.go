package cligen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarrence/oascli/internal/httpclient"
	"github.com/tarrence/oascli/internal/layout"
	"github.com/tarrence/oascli/internal/openapi"
	"github.com/tarrence/oascli/internal/output"
	"github.com/tarrence/oascli/internal/params"
	"github.com/tarrence/oascli/specs"
)

func newPetsRoot(t *testing.T) *cobra.Command {
	t.Helper()
	data, err := specs.FS.ReadFile(specs.PetsDocument)
	require.NoError(t, err)
	doc, err := openapi.Parse(data)
	require.NoError(t, err)
	layoutData, err := specs.FS.ReadFile(specs.PetsLayout)
	require.NoError(t, err)
	tree, err := layout.Parse(layoutData, "")
	require.NoError(t, err)

	root := &cobra.Command{Use: "pets-cli", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().String("token", "", "API token")
	require.NoError(t, AddCommands(context.Background(), root, params.NewEngine(doc), tree))
	return root
}

func runPets(t *testing.T, baseURL, token string, args ...string) (string, string, error) {
	t.Helper()
	root := newPetsRoot(t)
	var out, errOut bytes.Buffer
	rt := &Runtime{
		BaseURL: baseURL,
		Token:   token,
		Auth:    httpclient.AuthBearer,
		Client:  httpclient.New(httpclient.Options{Timeout: 5 * time.Second, MaxAttempts: 1}),
		Printer: output.NewPrinter(&out, &errOut, output.PrinterOptions{}),
		Logger:  slog.New(slog.DiscardHandler),
	}
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(WithRuntime(context.Background(), rt))
	return out.String(), errOut.String(), err
}

func TestCommandTree(t *testing.T) {
	root := newPetsRoot(t)

	pets, _, err := root.Find([]string{"pets"})
	require.NoError(t, err)
	var names []string
	for _, c := range pets.Commands() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"create", "list", "show", "update"}, names, "bugged delete is left out")

	show, _, err := root.Find([]string{"pets", "show"})
	require.NoError(t, err)
	assert.Equal(t, "show <pet-id>", show.Use)

	list, _, err := root.Find([]string{"pets", "list"})
	require.NoError(t, err)
	for _, f := range []string{"limit", "offset", "status", "x-request-id", flagAll, flagMaxCount, flagMaxPages, flagDetails} {
		assert.NotNil(t, list.Flags().Lookup(f), f)
	}
	assert.Nil(t, list.Flags().Lookup(flagData), "no body")

	create, _, err := root.Find([]string{"owners", "create"})
	require.NoError(t, err)
	for _, f := range []string{"name", "home-street", "home-city", "home-state", "home-zip-code", "phones", flagData, flagValidate} {
		assert.NotNil(t, create.Flags().Lookup(f), f)
	}
	assert.Contains(t, create.Flags().Lookup("name").Usage, "(required)")
	assert.Contains(t, create.Flags().Lookup("home-state").Usage, "[CA, NY, TX]")
	assert.Nil(t, create.Flags().Lookup(flagAll), "not paginated")
}

func TestShowPet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/pets/7", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":7,"name":"Rex"}`))
	}))
	defer srv.Close()

	out, _, err := runPets(t, srv.URL, "tok", "pets", "show", "7")
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":7,\"name\":\"Rex\"}\n", out)
}

func TestListPetsSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pets", r.URL.Path)
		assert.Equal(t, url.Values{"limit": {"5"}, "status": {"sold"}}, r.URL.Query())
		assert.Equal(t, "req-1", r.Header.Get("X-Request-Id"))
		_, _ = w.Write([]byte(`[{"id":1,"name":"Rex","status":"sold","tag":"dog"},{"id":2,"name":"Tom"}]`))
	}))
	defer srv.Close()

	out, _, err := runPets(t, srv.URL, "tok", "pets", "list", "--limit", "5", "--status", "SOLD", "--x-request-id", "req-1")
	require.NoError(t, err)
	assert.Equal(t, "id\tname\tstatus\n1\tRex\tsold\n2\tTom\t\n", out)

	out, _, err = runPets(t, srv.URL, "tok", "pets", "list", "--limit", "5", "--status", "sold", "--x-request-id", "req-1", "--details")
	require.NoError(t, err)
	assert.Contains(t, out, `"tag":"dog"`)
}

func TestInvalidEnumValue(t *testing.T) {
	_, _, err := runPets(t, "http://127.0.0.1:1", "tok", "pets", "list", "--status", "lost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid value "lost" for --status`)
	assert.Contains(t, err.Error(), "available, pending, sold")
}

const kindsDoc = `
openapi: 3.0.3
info: {title: t, version: '1'}
paths:
  /kinds/{kind}:
    get:
      operationId: showKind
      parameters:
        - name: kind
          in: path
          required: true
          schema:
            type: string
            enum: [cat, dog]
      responses:
        '200': {description: ok}
`

const kindsLayout = `
main:
  operations:
    - name: kinds
      operationId: showKind
`

func TestPathEnumSendsDeclaredValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/kinds/cat", r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	doc, err := openapi.Parse([]byte(kindsDoc))
	require.NoError(t, err)
	tree, err := layout.Parse([]byte(kindsLayout), "")
	require.NoError(t, err)
	root := &cobra.Command{Use: "kinds-cli", SilenceUsage: true, SilenceErrors: true}
	require.NoError(t, AddCommands(context.Background(), root, params.NewEngine(doc), tree))

	var out bytes.Buffer
	rt := &Runtime{
		BaseURL: srv.URL,
		Client:  httpclient.New(httpclient.Options{Timeout: 5 * time.Second, MaxAttempts: 1}),
		Printer: output.NewPrinter(&out, io.Discard, output.PrinterOptions{}),
		Logger:  slog.New(slog.DiscardHandler),
	}
	root.SetArgs([]string{"kinds", "CAT"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	require.NoError(t, root.ExecuteContext(WithRuntime(context.Background(), rt)))
	assert.Equal(t, "{}\n", out.String())
}

func TestCreateOwnerBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"Ann","home":{"city":"Springfield","state":"CA"},"phones":["1","2"]}`, string(b))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(b)
	}))
	defer srv.Close()

	_, _, err := runPets(t, srv.URL, "tok", "owners", "create",
		"--name", "Ann", "--home-city", "Springfield", "--home-state", "ca", "--phones", "1", "--phones", "2")
	require.NoError(t, err)
}

func TestMissingRequiredOptions(t *testing.T) {
	_, _, err := runPets(t, "http://127.0.0.1:1", "tok", "owners", "create", "--home-city", "Springfield")
	assert.EqualError(t, err, "missing required options: --name")
}

func TestDataReplacesBodyOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"name":"Rex"}`, string(b))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	_, _, err := runPets(t, srv.URL, "tok", "pets", "create", "--data", `{"name":"Rex"}`)
	require.NoError(t, err)
}

func TestValidateBody(t *testing.T) {
	_, _, err := runPets(t, "http://127.0.0.1:1", "tok", "pets", "create", "--data", `{"tag":"x"}`, "--validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request body")
}

func TestMissingToken(t *testing.T) {
	_, errOut, err := runPets(t, "http://127.0.0.1:1", "", "pets", "show", "7")
	assert.EqualError(t, err, "missing token")
	assert.Contains(t, errOut, "OASCLI_TOKEN")
}

func TestHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":404,"message":"no such pet"}`))
	}))
	defer srv.Close()

	_, errOut, err := runPets(t, srv.URL, "tok", "pets", "show", "9")
	var statusErr *httpclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 404, statusErr.Status)
	assert.Equal(t, "GET "+srv.URL+"/pets/9: HTTP 404", err.Error())
	assert.Contains(t, errOut, "HTTP 404")
	assert.Contains(t, errOut, "no such pet")
}

func TestPaginateByItemStart(t *testing.T) {
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("limit"))
		offsets = append(offsets, q.Get("offset"))
		off, _ := strconv.Atoi(q.Get("offset"))
		var page []map[string]any
		for i := off; i < off+2 && i < 5; i++ {
			page = append(page, map[string]any{"id": i, "name": fmt.Sprintf("pet%d", i)})
		}
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	out, _, err := runPets(t, srv.URL, "tok", "pets", "list", "--all", "--limit", "2", "--details")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "2", "4"}, offsets)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 5)
	assert.Equal(t, "pet4", items[4]["name"])
}

func TestPaginateByPageWithMaxCount(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("limit"))
		pages = append(pages, q.Get("page"))
		p, _ := strconv.Atoi(q.Get("page"))
		_, _ = fmt.Fprintf(w, `{"owners":[{"name":"A%d","home":{"city":"C%d"}},{"name":"A%d"}]}`, 2*p, 2*p, 2*p+1)
	}))
	defer srv.Close()

	out, _, err := runPets(t, srv.URL, "tok", "owners", "list", "--max-count", "3", "--limit", "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, pages)
	assert.Equal(t, "name\thome.city\nA0\tC0\nA1\t\nA2\tC2\n", out)
}

func pagesByURL(t *testing.T, responses map[string]*httpclient.Result) (fetchFunc, *[]string) {
	var seen []string
	return func(endpoint string, q url.Values) (*httpclient.Result, error) {
		if len(q) > 0 {
			endpoint += "?" + q.Encode()
		}
		seen = append(seen, endpoint)
		r, ok := responses[endpoint]
		if !ok {
			t.Fatalf("unexpected request %s", endpoint)
		}
		return r, nil
	}, &seen
}

func TestPagerNextProperty(t *testing.T) {
	p, err := newPager(&layout.Pagination{ItemProperty: "results", NextProperty: "links.next"})
	require.NoError(t, err)

	fetch, seen := pagesByURL(t, map[string]*httpclient.Result{
		"http://api.test/v1/things?q=x":      {Status: 200, Body: []byte(`{"results":[1,2],"links":{"next":"/v1/things?cursor=b"}}`)},
		"http://api.test/v1/things?cursor=b": {Status: 200, Body: []byte(`{"results":[3],"links":{"next":null}}`)},
	})
	res, err := p.fetchAll(context.Background(), "http://api.test/v1/things", url.Values{"q": {"x"}}, fetch)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, res.Items)
	assert.Equal(t, 2, res.Pages)
	assert.Len(t, *seen, 2)
}

func TestPagerLinkHeader(t *testing.T) {
	p, err := newPager(&layout.Pagination{ItemProperty: "data", NextHeader: "Link"})
	require.NoError(t, err)

	link := http.Header{"Link": {`<http://api.test/items?page=2>; rel="next", <http://api.test/items?page=9>; rel="last"`}}
	fetch, _ := pagesByURL(t, map[string]*httpclient.Result{
		"http://api.test/items":        {Status: 200, Headers: link, Body: []byte(`{"data":[{"a":1}]}`)},
		"http://api.test/items?page=2": {Status: 200, Headers: http.Header{}, Body: []byte(`{"data":[{"a":2}]}`)},
	})
	res, err := p.fetchAll(context.Background(), "http://api.test/items", nil, fetch)
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"a": 1}, map[string]any{"a": 2}}, res.Items)
}

func TestPagerSingleRequestWithoutStart(t *testing.T) {
	p, err := newPager(&layout.Pagination{PageSize: "limit"})
	require.NoError(t, err)
	fetch, seen := pagesByURL(t, map[string]*httpclient.Result{
		"http://api.test/items": {Status: 200, Body: []byte(`[1,2,3]`)},
	})
	res, err := p.fetchAll(context.Background(), "http://api.test/items", nil, fetch)
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)
	assert.Len(t, *seen, 1)
}

func TestPagerMaxPages(t *testing.T) {
	p, err := newPager(&layout.Pagination{PageStart: "page"})
	require.NoError(t, err)
	p.maxPages = 2
	fetch := func(string, url.Values) (*httpclient.Result, error) {
		return &httpclient.Result{Status: 200, Body: []byte(`[1]`)}, nil
	}
	_, err = p.fetchAll(context.Background(), "http://api.test/items", nil, fetch)
	assert.EqualError(t, err, "pagination exceeded --max-pages=2")
}

func TestPropertyPath(t *testing.T) {
	assert.Equal(t, "$['owners']", propertyPath("owners"))
	assert.Equal(t, "$['page']['next']", propertyPath("page.next"))
	assert.Equal(t, "$.data[*]", propertyPath("$.data[*]"))
}

func TestLinkNext(t *testing.T) {
	assert.Equal(t, "https://x/2", linkNext(`<https://x/2>; rel="next"`))
	assert.Equal(t, "", linkNext(`<https://x/1>; rel="prev"`))
	assert.Equal(t, "", linkNext(""))
}

func TestSummarizer(t *testing.T) {
	s, err := newSummarizer([]string{"name", "home.city", "tags"})
	require.NoError(t, err)
	doc, err := decodeJSONNode([]byte(`{"name":"Ann","home":{"city":"Paris"},"tags":["a","b"]}`))
	require.NoError(t, err)
	nodes, single := itemNodes(doc)
	require.True(t, single)
	rows, err := s.summaries(nodes)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Ann", "home.city": "Paris", "tags": []any{"a", "b"}}, rows[0])
	assert.Equal(t, `["a","b"]`, cellText(rows[0]["tags"]))

	none, err := newSummarizer(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestFlagNamer(t *testing.T) {
	root := &cobra.Command{Use: "x"}
	root.PersistentFlags().String("token", "", "")
	n := newFlagNamer(root)

	q := &params.Property{Name: "name", Flag: "name", Location: params.LocationQuery}
	b := &params.Property{Name: "name", Flag: "name", Location: params.LocationBody}
	tok := &params.Property{Name: "token", Flag: "token", Location: params.LocationHeader}
	data := &params.Property{Name: "data", Location: params.LocationBody}
	assert.Equal(t, "name", n.name(q))
	assert.Equal(t, "body-name", n.name(b))
	assert.Equal(t, "header-token", n.name(tok))
	assert.Equal(t, "body-data", n.name(data))
}

func TestRuntimeMissing(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	_, err := RuntimeFrom(cmd)
	assert.ErrorContains(t, err, "runtime missing")
}

func TestJoinBaseAndPath(t *testing.T) {
	got, err := joinBaseAndPath("http://petstore.test/v1/", "/pets/7")
	require.NoError(t, err)
	assert.Equal(t, "http://petstore.test/v1/pets/7", got)

	got, err = joinBaseAndPath("petstore.test", "pets")
	require.NoError(t, err)
	assert.Equal(t, "https://petstore.test/pets", got)

	assert.Equal(t, []string{"owner", "petId"}, extractPathParams("/owners/{owner}/pets/{petId}"))
	assert.Equal(t, "/pets/a%2Fb", expandPath("/pets/{petId}", map[string]string{"petId": "a/b"}))
}
