package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"

	"github.com/Skotchmaster/plugtech/internal/events"
	"github.com/Skotchmaster/plugtech/internal/models"
)

const mapping = `{
  "mappings": {
    "properties": {
      "name":       {"type": "text"},
      "category":   {"type": "keyword"},
      "condition":  {"type": "keyword"},
      "processor":  {"type": "text"},
      "ram":        {"type": "text"},
      "storage":    {"type": "text"},
      "display":    {"type": "text"},
      "price":      {"type": "long"},
      "in_stock":   {"type": "boolean"},
      "created_at": {"type": "date"}
    }
  }
}`

// Index mirrors the product table into one Elasticsearch index.
type Index struct {
	client *elasticsearch.Client
	name   string
}

func NewIndex(client *elasticsearch.Client, name string) *Index {
	return &Index{client: client, name: name}
}

func (ix *Index) Name() string { return ix.name }

func (ix *Index) Ensure(ctx context.Context) error {
	res, err := ix.client.Indices.Exists([]string{ix.name}, ix.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es exists %s: %w", ix.name, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = ix.client.Indices.Create(ix.name,
		ix.client.Indices.Create.WithContext(ctx),
		ix.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("es create %s: %w", ix.name, err)
	}
	return check(res, "create")
}

func (ix *Index) Put(ctx context.Context, p models.Product) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(p); err != nil {
		return fmt.Errorf("es encode: %w", err)
	}

	res, err := ix.client.Index(ix.name, &buf,
		ix.client.Index.WithContext(ctx),
		ix.client.Index.WithDocumentID(p.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("es index %s: %w", p.ID, err)
	}
	return check(res, "index")
}

// Delete treats a missing document as already deleted.
func (ix *Index) Delete(ctx context.Context, id string) error {
	res, err := ix.client.Delete(ix.name, id, ix.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es delete %s: %w", id, err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil
	}
	return check(res, "delete")
}

// HandleEvent applies one product_events message.
func (ix *Index) HandleEvent(ctx context.Context, ev events.Event) error {
	switch ev.Type {
	case "product_created", "product_updated":
		var p models.Product
		if err := json.Unmarshal(ev.Product, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w: %v", ev.Type, events.ErrPoison, err)
		}
		return ix.Put(ctx, p)
	case "product_deleted":
		return ix.Delete(ctx, ev.ProductID)
	default:
		return nil
	}
}

func check(res *esapi.Response, op string) error {
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("es %s: %s: %s", op, res.Status(), body)
	}
	return nil
}
