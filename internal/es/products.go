package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	DefaultIndex = "products"
	// pageSize bounds one search request; Search pages with search_after
	// until the hits run out.
	pageSize = 500
)

// productMapping stores name and description as wildcard fields so a
// keyword such as "t-shirt" matches as a plain substring of the whole value,
// the same way the database LIKE fallback does.
var productMapping = map[string]any{
	"mappings": map[string]any{
		"dynamic": false,
		"properties": map[string]any{
			"id":          map[string]any{"type": "long"},
			"name":        map[string]any{"type": "wildcard"},
			"slug":        map[string]any{"type": "keyword"},
			"description": map[string]any{"type": "wildcard"},
			"price":       map[string]any{"type": "keyword"},
			"image":       map[string]any{"type": "keyword", "index": false},
			"stock":       map[string]any{"type": "integer"},
			"category_id": map[string]any{"type": "long"},
		},
	},
}

// ProductIndex keeps a copy of every product in an elasticsearch index.
type ProductIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewProductIndex(client *elasticsearch.Client, index string) *ProductIndex {
	if index == "" {
		index = DefaultIndex
	}
	return &ProductIndex{ES: client, Index: index}
}

// EnsureIndex creates the index with productMapping unless it already
// exists. An index created by dynamic mapping has text fields that wildcard
// queries cannot match across word boundaries; it has to be dropped and
// reindexed.
func (p *ProductIndex) EnsureIndex(ctx context.Context) error {
	res, err := p.ES.Indices.Exists([]string{p.Index}, p.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", p.Index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(productMapping); err != nil {
		return err
	}
	res, err = p.ES.Indices.Create(p.Index,
		p.ES.Indices.Create.WithContext(ctx),
		p.ES.Indices.Create.WithBody(&buf),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", p.Index, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("elasticsearch: %s: %s", res.Status(), body)
	}
	return responseErr(res.IsError(), res.Status(), res.Body)
}

func (p *ProductIndex) IndexProduct(ctx context.Context, prod *models.Product) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(prod); err != nil {
		return err
	}
	res, err := p.ES.Index(p.Index, &buf,
		p.ES.Index.WithContext(ctx),
		p.ES.Index.WithDocumentID(strconv.FormatUint(uint64(prod.ID), 10)),
		p.ES.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("index product %d: %w", prod.ID, err)
	}
	defer res.Body.Close()
	return responseErr(res.IsError(), res.Status(), res.Body)
}

func (p *ProductIndex) DeleteProduct(ctx context.Context, id uint) error {
	res, err := p.ES.Delete(p.Index, strconv.FormatUint(uint64(id), 10),
		p.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return responseErr(res.IsError(), res.Status(), res.Body)
}

// searchQuery requires every keyword to appear in the name or the description.
// after is the last id of the previous page, or zero for the first page.
func searchQuery(keywords []string, after uint) map[string]any {
	must := make([]map[string]any, 0, len(keywords))
	for _, kw := range keywords {
		pattern := "*" + escapeWildcard(strings.ToLower(kw)) + "*"
		must = append(must, map[string]any{
			"bool": map[string]any{
				"should": []map[string]any{
					{"wildcard": map[string]any{"name": map[string]any{"value": pattern, "case_insensitive": true}}},
					{"wildcard": map[string]any{"description": map[string]any{"value": pattern, "case_insensitive": true}}},
				},
				"minimum_should_match": 1,
			},
		})
	}
	q := map[string]any{
		"query": map[string]any{"bool": map[string]any{"must": must}},
		"sort":  []map[string]any{{"id": "asc"}},
		"size":  pageSize,
	}
	if after > 0 {
		q["search_after"] = []uint{after}
	}
	return q
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(s string) string { return wildcardEscaper.Replace(s) }

func (p *ProductIndex) Search(ctx context.Context, keywords []string) ([]models.Product, error) {
	var out []models.Product
	var after uint
	for {
		page, err := p.searchPage(ctx, keywords, after)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < pageSize {
			return out, nil
		}
		after = page[len(page)-1].ID
	}
}

func (p *ProductIndex) searchPage(ctx context.Context, keywords []string, after uint) ([]models.Product, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(searchQuery(keywords, after)); err != nil {
		return nil, err
	}

	res, err := p.ES.Search(
		p.ES.Search.WithContext(ctx),
		p.ES.Search.WithIndex(p.Index),
		p.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if err := responseErr(res.IsError(), res.Status(), res.Body); err != nil {
		return nil, err
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	out := make([]models.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		out[i] = hit.Source
	}
	return out, nil
}

func responseErr(isErr bool, status string, body io.Reader) error {
	if !isErr {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(body, 1024))
	return fmt.Errorf("elasticsearch: %s: %s", status, msg)
}
