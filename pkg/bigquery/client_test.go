package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/hatchery-backend/pkg/config"
)

type auditRow struct {
	Scope     string    `bigquery:"scope"`
	Deleted   int64     `bigquery:"deleted"`
	StartedAt time.Time `bigquery:"started_at"`
}

func TestDeclaredTablesSkipsBlankNames(t *testing.T) {
	tables := declaredTables([]Table{
		{Name: " notification_sweeps ", Row: auditRow{}},
		{Name: "  "},
	})
	require.Len(t, tables, 1)
	assert.Equal(t, "notification_sweeps", tables["notification_sweeps"].Name)
}

func TestAuditRowSchemaInfers(t *testing.T) {
	schema, err := bigquery.InferSchema(auditRow{})
	require.NoError(t, err)
	require.Len(t, schema, 3)
	assert.Equal(t, "started_at", schema[2].Name)
	assert.Equal(t, bigquery.TimestampFieldType, schema[2].Type)
}

func TestClientOptions(t *testing.T) {
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"dummy": "value"}`, ApplicationCredentials: "/tmp/creds"}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/creds"}), 1)
	assert.Empty(t, clientOptions(config.GCPConfig{}))
}

func TestDescribeNotFound(t *testing.T) {
	assert.True(t, isNotFound(fmt.Errorf("meta: %w", &googleapi.Error{Code: http.StatusNotFound})))
	assert.False(t, isNotFound(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isNotFound(errors.New("boom")))

	assert.EqualError(t, describe("table t", &googleapi.Error{Code: http.StatusNotFound}), "table t does not exist")
	assert.ErrorContains(t, describe("table t", errors.New("boom")), "checking table t: boom")
}

func TestInsertRowsRequiresDeclaredTable(t *testing.T) {
	var nilClient *Client
	assert.ErrorIs(t, nilClient.InsertRows(context.Background(), "t", []any{1}), errClientNotInitialized)
	assert.ErrorIs(t, nilClient.Ping(context.Background()), errClientNotInitialized)
	assert.NoError(t, nilClient.Close())

	c := &Client{client: &bigquery.Client{}, tables: map[string]Table{"sweeps": {Name: "sweeps"}}}
	assert.ErrorContains(t, c.InsertRows(context.Background(), "broadcasts", []any{auditRow{}}), "was not declared")
	assert.NoError(t, c.InsertRows(context.Background(), " sweeps ", nil))
}

func TestNewClientValidatesConfig(t *testing.T) {
	table := Table{Name: "s", Row: auditRow{}}

	_, err := NewClient(context.Background(), config.GCPConfig{}, config.BigQueryConfig{Dataset: "d"}, nil, table)
	assert.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{}, nil, table)
	assert.ErrorIs(t, err, errDatasetRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{Dataset: "d"}, nil)
	assert.ErrorIs(t, err, errNoTables)
}
