package dump

import (
	"io"
	"log/slog"
)

// DefaultConfigDBName is the schema name of the shared configuration database.
const DefaultConfigDBName = "configdb"

// Well-known tables that get special treatment while scanning.
const (
	updateTaskTable    = "updateTask"
	contextToPoolTable = "context_server2db_pool"
)

// TempFiles maps schema names to the temp files holding their extracted rows.
// It is owned by the caller and shared across parser invocations, so a schema
// that already has a file is not written a second time.
type TempFiles interface {
	// Lookup returns the path of the temp file created for schema, if any.
	Lookup(schema string) (string, bool)
	// Create creates and registers a new temp file for schema.
	Create(schema string) (io.WriteCloser, string, error)
}

// Options controls a single parser invocation.
type Options struct {
	ContextID int
	// ConfigDBName defaults to DefaultConfigDBName.
	ConfigDBName string
	// Schema is the tenant schema to extract in addition to the configdb.
	// Empty until discovered from context_server2db_pool.
	Schema    string
	TempFiles TempFiles
	Logger    *slog.Logger
}

func (o *Options) configDBName() string {
	if o.ConfigDBName == "" {
		return DefaultConfigDBName
	}
	return o.ConfigDBName
}

// UpdateTaskEntry is one row of the updateTask table.
type UpdateTaskEntry struct {
	ContextID    int    `json:"contextId"`
	TaskName     string `json:"taskName"`
	Successful   bool   `json:"successful"`
	LastModified int64  `json:"lastModified"`
}

// UpdateTaskInformation lists update task rows in dump order.
type UpdateTaskInformation []UpdateTaskEntry

// ForeignKey is a foreign key constraint declared in a CREATE TABLE body.
type ForeignKey struct {
	Columns    []string `json:"columns"`
	RefTable   string   `json:"refTable"`
	RefColumns []string `json:"refColumns,omitempty"`
}

// TableInfo describes a table section encountered in a searched schema.
type TableInfo struct {
	Database    string       `json:"database"`
	Name        string       `json:"name"`
	CIDColumn   int          `json:"cidColumn"`
	ForeignKeys []ForeignKey `json:"foreignKeys,omitempty"`
	Inserts     int          `json:"inserts"`
	RowsWritten int          `json:"rowsWritten"`
}

// Stats counts work done during a parse.
type Stats struct {
	BytesRead        int64 `json:"bytesRead"`
	InsertStatements int   `json:"insertStatements"`
	RowsWritten      int   `json:"rowsWritten"`
	SchemasOpened    int   `json:"schemasOpened"`
}

// Result is the outcome of parsing one dump file.
type Result struct {
	SourceFile  string                `json:"sourceFile"`
	ContextID   int                   `json:"contextId"`
	PoolID      int                   `json:"poolId"`
	Schema      string                `json:"schema,omitempty"`
	UpdateTasks UpdateTaskInformation `json:"updateTasks"`
	Tables      []TableInfo           `json:"tables,omitempty"`
	Stats       Stats                 `json:"stats"`
}
