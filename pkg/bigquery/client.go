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
	"google.golang.org/api/option"

	"github.com/angelmondragon/hatchery-backend/pkg/config"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

// Table declares an audit table a process streams into. Row is a zero value
// of the struct written to it; its `bigquery` tags drive schema inference
// when missing tables are created.
type Table struct {
	Name string
	Row  any
}

type Client struct {
	client  *bigquery.Client
	dataset *bigquery.Dataset
	tables  map[string]Table
	create  bool
}

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errNoTables             = errors.New("at least one bigquery table is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// NewClient opens a BigQuery client for cfg.Dataset and checks every declared
// table. With cfg.CreateTables set, absent tables are created day-partitioned
// from their row schema; otherwise a missing table fails the bootstrap.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger, tables ...Table) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	declared := declaredTables(tables)
	if len(declared) == 0 {
		return nil, errNoTables
	}

	bqClient, err := bigquery.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{
		client:  bqClient,
		dataset: bqClient.Dataset(datasetID),
		tables:  declared,
		create:  cfg.CreateTables,
	}
	if err := c.prepare(ctx, logg); err != nil {
		_ = bqClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"dataset": datasetID, "tables": len(declared)}), "bigquery.ready")
	}
	return c, nil
}

func declaredTables(tables []Table) map[string]Table {
	out := make(map[string]Table, len(tables))
	for _, t := range tables {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			continue
		}
		out[t.Name] = t
	}
	return out
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

func (c *Client) prepare(ctx context.Context, logg *logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return describe("dataset "+c.dataset.DatasetID, err)
	}
	for name, table := range c.tables {
		_, err := c.dataset.Table(name).Metadata(ctx)
		if err == nil {
			continue
		}
		if !isNotFound(err) || !c.create {
			return describe("table "+name, err)
		}
		if err := c.createTable(ctx, table); err != nil {
			return err
		}
		if logg != nil {
			logg.Info(logg.WithField(ctx, "table", name), "bigquery.table_created")
		}
	}
	return nil
}

func (c *Client) createTable(ctx context.Context, table Table) error {
	if table.Row == nil {
		return fmt.Errorf("table %q has no row type to infer a schema from", table.Name)
	}
	schema, err := bigquery.InferSchema(table.Row)
	if err != nil {
		return fmt.Errorf("infer schema for %q: %w", table.Name, err)
	}
	meta := &bigquery.TableMetadata{
		Schema:           schema,
		TimePartitioning: &bigquery.TimePartitioning{Type: bigquery.DayPartitioningType},
	}
	if err := c.dataset.Table(table.Name).Create(ctx, meta); err != nil {
		return fmt.Errorf("create table %q: %w", table.Name, err)
	}
	return nil
}

// Ping re-reads the dataset and table metadata without creating anything.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()
	if _, err := c.dataset.Metadata(ctx); err != nil {
		return describe("dataset "+c.dataset.DatasetID, err)
	}
	for name := range c.tables {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			return describe("table "+name, err)
		}
	}
	return nil
}

// InsertRows streams rows into a declared table. Rows are structs with
// `bigquery` tags or ValueSaver implementations.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.client == nil {
		return errClientNotInitialized
	}
	table = strings.TrimSpace(table)
	if _, ok := c.tables[table]; !ok {
		return fmt.Errorf("bigquery table %q was not declared", table)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := c.dataset.Table(table).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("insert %d rows into %s: %w", len(rows), table, err)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func describe(what string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s does not exist", what)
	}
	return fmt.Errorf("checking %s: %w", what, err)
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
