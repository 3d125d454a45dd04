package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/gcp"
	"github.com/angelmondragon/stockledger/pkg/logger"
)

const metadataCheckTimeout = 10 * time.Second

// TableSpec describes a table the client owns. A spec with a schema is
// created on first use; one without only has to exist.
type TableSpec struct {
	Name           string
	Schema         bigquery.Schema
	PartitionField string
	Clustering     []string
}

func (s TableSpec) metadata() *bigquery.TableMetadata {
	md := &bigquery.TableMetadata{Schema: s.Schema}
	if s.PartitionField != "" {
		md.TimePartitioning = &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: s.PartitionField,
		}
	}
	if len(s.Clustering) > 0 {
		md.Clustering = &bigquery.Clustering{Fields: s.Clustering}
	}
	return md
}

// Client streams analytics rows into one dataset.
type Client struct {
	client  *bigquery.Client
	dataset *bigquery.Dataset
	tables  map[string]TableSpec
	logg    *logger.Logger
}

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// NewClient connects to the configured dataset and makes sure every table in
// specs exists, creating the ones that carry a schema.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger, specs ...TableSpec) (*Client, error) {
	projectID := strings.TrimSpace(gcpCfg.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	tables, err := indexSpecs(specs)
	if err != nil {
		return nil, err
	}

	bqClient, err := bigquery.NewClient(ctx, projectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	client := &Client{
		client:  bqClient,
		dataset: bqClient.Dataset(datasetID),
		tables:  tables,
		logg:    logg,
	}
	if err := client.provision(ctx); err != nil {
		_ = bqClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "dataset", datasetID), "bigquery client initialized")
	}
	return client, nil
}

func indexSpecs(specs []TableSpec) (map[string]TableSpec, error) {
	tables := make(map[string]TableSpec, len(specs))
	for _, spec := range specs {
		spec.Name = strings.TrimSpace(spec.Name)
		if spec.Name == "" {
			continue
		}
		tables[spec.Name] = spec
	}
	if len(tables) == 0 {
		return nil, errTableNameRequired
	}
	return tables, nil
}

func (c *Client) provision(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()

	if err := c.checkDataset(ctx); err != nil {
		return err
	}
	for name, spec := range c.tables {
		_, err := c.dataset.Table(name).Metadata(ctx)
		switch {
		case err == nil:
			continue
		case !isNotFound(err):
			return fmt.Errorf("checking table %q: %w", name, err)
		case len(spec.Schema) == 0:
			return fmt.Errorf("table %q does not exist", name)
		}
		if err := c.dataset.Table(name).Create(ctx, spec.metadata()); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("creating table %q: %w", name, err)
		}
		if c.logg != nil {
			c.logg.Info(c.logg.WithField(ctx, "table", name), "bigquery table created")
		}
	}
	return nil
}

func (c *Client) checkDataset(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	if _, err := c.dataset.Metadata(ctx); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}
	return nil
}

// Ping verifies the dataset is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()
	return c.checkDataset(ctx)
}

// InsertRows streams rows, usually bigquery.ValueSaver values, into table.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.client == nil {
		return errClientNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool {
	return apiCode(err) == http.StatusNotFound
}

func isAlreadyExists(err error) bool {
	return apiCode(err) == http.StatusConflict
}

func apiCode(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Code
	}
	return 0
}
