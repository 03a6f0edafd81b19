package es

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

type capturedRequest struct {
	Method, Path string
	Body         map[string]any
}

type fakeReply struct {
	status int
	body   string
}

func newFakeES(t *testing.T, status int, response string) (*ProductIndex, *[]capturedRequest) {
	t.Helper()
	return newScriptedES(t, fakeReply{status, response})
}

// newScriptedES answers requests with replies in order and repeats the last
// one once they run out.
func newScriptedES(t *testing.T, replies ...fakeReply) (*ProductIndex, *[]capturedRequest) {
	t.Helper()
	var seen []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		req := capturedRequest{Method: r.Method, Path: r.URL.Path}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &req.Body)
		}
		seen = append(seen, req)
		reply := replies[min(len(seen), len(replies))-1]
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.status)
		_, _ = io.WriteString(w, reply.body)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewProductIndex(client, ""), &seen
}

func TestSearchQueryRequiresEveryKeyword(t *testing.T) {
	q := searchQuery([]string{"Blue", "sh*rt"}, 0)
	raw, err := json.Marshal(q)
	require.NoError(t, err)

	s := string(raw)
	assert.Equal(t, 2, strings.Count(s, `"minimum_should_match":1`))
	assert.Contains(t, s, `"value":"*blue*"`)
	assert.Contains(t, s, `"value":"*sh\\*rt*"`)
	assert.Contains(t, s, `"case_insensitive":true`)
	assert.NotContains(t, s, "search_after")
}

func TestSearchQueryKeepsHyphenatedKeywordWhole(t *testing.T) {
	raw, err := json.Marshal(searchQuery([]string{"T-Shirt"}, 42))
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, `"name":{"case_insensitive":true,"value":"*t-shirt*"}`)
	assert.Contains(t, s, `"search_after":[42]`)
}

func TestEnsureIndexCreatesWildcardMapping(t *testing.T) {
	idx, seen := newScriptedES(t,
		fakeReply{http.StatusNotFound, ``},
		fakeReply{http.StatusOK, `{"acknowledged":true}`},
	)
	require.NoError(t, idx.EnsureIndex(context.Background()))

	require.Len(t, *seen, 2)
	assert.Equal(t, http.MethodHead, (*seen)[0].Method)
	create := (*seen)[1]
	assert.Equal(t, http.MethodPut, create.Method)
	assert.Equal(t, "/products", create.Path)

	props := create.Body["mappings"].(map[string]any)["properties"].(map[string]any)
	for _, field := range []string{"name", "description"} {
		assert.Equal(t, "wildcard", props[field].(map[string]any)["type"], field)
	}
	assert.Equal(t, "long", props["id"].(map[string]any)["type"])
}

func TestEnsureIndexLeavesExistingIndex(t *testing.T) {
	idx, seen := newFakeES(t, http.StatusOK, ``)
	require.NoError(t, idx.EnsureIndex(context.Background()))
	assert.Len(t, *seen, 1)
}

func TestEnsureIndexToleratesCreateRace(t *testing.T) {
	idx, _ := newScriptedES(t,
		fakeReply{http.StatusNotFound, ``},
		fakeReply{http.StatusBadRequest, `{"error":{"type":"resource_already_exists_exception"}}`},
	)
	assert.NoError(t, idx.EnsureIndex(context.Background()))
}

func TestSearchPagesPastOneRequest(t *testing.T) {
	var full strings.Builder
	full.WriteString(`{"hits":{"hits":[`)
	for i := 1; i <= pageSize; i++ {
		if i > 1 {
			full.WriteString(",")
		}
		fmt.Fprintf(&full, `{"_source":{"id":%d,"name":"Shirt %d","price":"1"}}`, i, i)
	}
	full.WriteString(`]}}`)

	idx, seen := newScriptedES(t,
		fakeReply{http.StatusOK, full.String()},
		fakeReply{http.StatusOK, `{"hits":{"hits":[{"_source":{"id":501,"name":"Last Shirt","price":"1"}}]}}`},
	)

	got, err := idx.Search(context.Background(), []string{"shirt"})
	require.NoError(t, err)
	require.Len(t, got, pageSize+1)
	assert.Equal(t, uint(501), got[pageSize].ID)

	require.Len(t, *seen, 2)
	assert.NotContains(t, (*seen)[0].Body, "search_after")
	assert.Equal(t, []any{float64(pageSize)}, (*seen)[1].Body["search_after"])
}

func TestSearchDecodesHits(t *testing.T) {
	idx, seen := newFakeES(t, http.StatusOK, `{"hits":{"hits":[{"_source":{"id":7,"name":"Blue Shirt","price":"10.5"}}]}}`)

	got, err := idx.Search(context.Background(), []string{"blue"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint(7), got[0].ID)
	assert.True(t, decimal.RequireFromString("10.5").Equal(got[0].Price))

	require.Len(t, *seen, 1)
	assert.Equal(t, "/products/_search", (*seen)[0].Path)
}

func TestSearchReportsClusterErrors(t *testing.T) {
	idx, _ := newFakeES(t, http.StatusInternalServerError, `{"error":"boom"}`)
	_, err := idx.Search(context.Background(), []string{"blue"})
	assert.Error(t, err)
}

func TestIndexAndDelete(t *testing.T) {
	idx, seen := newFakeES(t, http.StatusOK, `{"result":"created"}`)
	ctx := context.Background()

	require.NoError(t, idx.IndexProduct(ctx, &models.Product{ID: 3, Name: "Cap"}))
	require.NoError(t, idx.DeleteProduct(ctx, 3))

	require.Len(t, *seen, 2)
	assert.Equal(t, http.MethodPut, (*seen)[0].Method)
	assert.Equal(t, "/products/_doc/3", (*seen)[0].Path)
	assert.Equal(t, "Cap", (*seen)[0].Body["name"])
	assert.Equal(t, http.MethodDelete, (*seen)[1].Method)
}

func TestDeleteMissingDocumentIsFine(t *testing.T) {
	idx, _ := newFakeES(t, http.StatusNotFound, `{"result":"not_found"}`)
	assert.NoError(t, idx.DeleteProduct(context.Background(), 3))
}
