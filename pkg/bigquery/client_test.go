package bigquery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/stockledger/pkg/config"
)

func TestIndexSpecs(t *testing.T) {
	tables, err := indexSpecs([]TableSpec{{Name: " stock_movements "}, {Name: ""}})
	if err != nil {
		t.Fatalf("index specs: %v", err)
	}
	if _, ok := tables["stock_movements"]; !ok || len(tables) != 1 {
		t.Fatalf("unexpected tables %v", tables)
	}
	if _, err := indexSpecs(nil); !errors.Is(err, errTableNameRequired) {
		t.Fatalf("expected table error, got %v", err)
	}
}

func TestTableSpecMetadata(t *testing.T) {
	spec := TableSpec{
		Name:           "stock_movements",
		Schema:         bigquery.Schema{{Name: "occurred_at", Type: bigquery.TimestampFieldType}},
		PartitionField: "occurred_at",
		Clustering:     []string{"warehouse_id", "product_id"},
	}
	md := spec.metadata()
	if md.TimePartitioning == nil || md.TimePartitioning.Field != "occurred_at" || md.TimePartitioning.Type != bigquery.DayPartitioningType {
		t.Fatalf("expected daily partitioning on occurred_at, got %+v", md.TimePartitioning)
	}
	if md.Clustering == nil || len(md.Clustering.Fields) != 2 {
		t.Fatalf("expected clustering fields, got %+v", md.Clustering)
	}

	plain := TableSpec{Name: "t"}.metadata()
	if plain.TimePartitioning != nil || plain.Clustering != nil {
		t.Fatalf("expected no partitioning for bare spec")
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.BigQueryConfig{}, nil); !errors.Is(err, errProjectIDRequired) {
		t.Fatalf("expected project id error, got %v", err)
	}
	gcpCfg := config.GCPConfig{ProjectID: "proj"}
	if _, err := NewClient(ctx, gcpCfg, config.BigQueryConfig{}, nil); !errors.Is(err, errDatasetRequired) {
		t.Fatalf("expected dataset error, got %v", err)
	}
	if _, err := NewClient(ctx, gcpCfg, config.BigQueryConfig{Dataset: "ds"}, nil); !errors.Is(err, errTableNameRequired) {
		t.Fatalf("expected table error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if err := c.InsertRows(context.Background(), "t", []any{1}); !errors.Is(err, errClientNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, errClientNotInitialized) {
		t.Fatalf("expected not initialized on ping, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}

func TestAPICodeHelpers(t *testing.T) {
	if !isNotFound(fmt.Errorf("wrap: %w", &googleapi.Error{Code: 404})) {
		t.Fatal("expected wrapped 404 to be not found")
	}
	if isNotFound(&googleapi.Error{Code: 500}) {
		t.Fatal("500 is not a not-found error")
	}
	if !isAlreadyExists(&googleapi.Error{Code: 409}) {
		t.Fatal("expected 409 to be already exists")
	}
	if apiCode(errors.New("plain")) != 0 {
		t.Fatal("plain errors carry no api code")
	}
}
