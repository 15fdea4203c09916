package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"regexp"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	_ "github.com/sijms/go-ora/v2"

	"github.com/CharlesDeJager/dprof/internal/value"
)

// ConnectionInfo carries the parameters needed to reach a database-backed
// source. Path is only used by the sqlite type.
type ConnectionInfo struct {
	Type     string `json:"connection_type"` // "oracle", "sqlserver" or "sqlite"
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
	Path     string `json:"path,omitempty"`
}

// SQLSource profiles tables of a relational database through database/sql.
// Dialect differences (catalog queries, row limiting) are confined to the
// small lookup tables below.
type SQLSource struct {
	db      *sql.DB
	dialect string
}

// identRe matches identifiers we are willing to interpolate into catalog
// and data queries. Everything else is rejected at the boundary.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$#.]*$`)

// OpenSQL connects to the database described by info and verifies the
// connection with a ping.
func OpenSQL(ctx context.Context, info ConnectionInfo) (*SQLSource, error) {
	driver, dsn, err := buildDSN(info)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	return &SQLSource{db: db, dialect: info.Type}, nil
}

func buildDSN(info ConnectionInfo) (driver, dsn string, err error) {
	switch info.Type {
	case "sqlserver":
		u := &url.URL{
			Scheme: "sqlserver",
			User:   url.UserPassword(info.Username, info.Password),
			Host:   fmt.Sprintf("%s:%d", info.Host, info.Port),
		}
		q := url.Values{}
		q.Set("database", info.Database)
		u.RawQuery = q.Encode()
		return "sqlserver", u.String(), nil
	case "oracle":
		u := &url.URL{
			Scheme: "oracle",
			User:   url.UserPassword(info.Username, info.Password),
			Host:   fmt.Sprintf("%s:%d", info.Host, info.Port),
			Path:   "/" + info.Database,
		}
		return "oracle", u.String(), nil
	case "sqlite":
		if info.Path == "" {
			return "", "", fmt.Errorf("sqlite connection requires a file path")
		}
		return "sqlite3", info.Path, nil
	default:
		return "", "", fmt.Errorf("unsupported database type: %s", info.Type)
	}
}

func (s *SQLSource) Kind() string { return s.dialect }

func (s *SQLSource) Tables(ctx context.Context) ([]TableInfo, error) {
	var listQuery string
	switch s.dialect {
	case "sqlserver":
		listQuery = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`
	case "oracle":
		listQuery = `SELECT table_name FROM user_tables ORDER BY table_name`
	case "sqlite":
		listQuery = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	default:
		return nil, fmt.Errorf("unsupported database type: %s", s.dialect)
	}

	rows, err := s.db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		columns, err := s.columns(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, TableInfo{Name: name, Columns: columns, ColumnCount: len(columns)})
	}
	return tables, nil
}

func (s *SQLSource) columns(ctx context.Context, table string) ([]string, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", table))
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", table, err)
	}
	defer rows.Close()
	return rows.Columns()
}

func (s *SQLSource) RowCount(ctx context.Context, table string) (int64, error) {
	if !identRe.MatchString(table) {
		return 0, NewReadError(table, fmt.Errorf("invalid table name"))
	}
	var count int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	if err != nil {
		return 0, NewReadError(table, err)
	}
	return count, nil
}

func (s *SQLSource) Read(ctx context.Context, table string, limit, chunkSize int) (BatchReader, error) {
	if !identRe.MatchString(table) {
		return nil, NewReadError(table, fmt.Errorf("invalid table name"))
	}

	query := fmt.Sprintf("SELECT * FROM %s", table)
	if limit > 0 {
		switch s.dialect {
		case "sqlserver":
			query = fmt.Sprintf("SELECT TOP %d * FROM %s", limit, table)
		case "oracle":
			query = fmt.Sprintf("SELECT * FROM %s WHERE ROWNUM <= %d", table, limit)
		default:
			query = fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, limit)
		}
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, NewReadError(table, err)
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, NewReadError(table, err)
	}

	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &sqlReader{
		table:     table,
		rows:      rows,
		columns:   columns,
		chunkSize: chunkSize,
	}, nil
}

func (s *SQLSource) Close() error { return s.db.Close() }

type sqlReader struct {
	table     string
	rows      *sql.Rows
	columns   []string
	chunkSize int
	done      bool
}

func (r *sqlReader) Columns() []string { return r.columns }

func (r *sqlReader) Next() ([]value.Row, error) {
	if r.done {
		return nil, io.EOF
	}

	batch := make([]value.Row, 0, r.chunkSize)
	scan := make([]interface{}, len(r.columns))
	ptrs := make([]interface{}, len(r.columns))
	for i := range scan {
		ptrs[i] = &scan[i]
	}

	for len(batch) < r.chunkSize {
		if !r.rows.Next() {
			r.done = true
			if err := r.rows.Err(); err != nil {
				return nil, NewReadError(r.table, err)
			}
			break
		}
		if err := r.rows.Scan(ptrs...); err != nil {
			r.done = true
			return nil, NewReadError(r.table, err)
		}

		row := make(value.Row, len(r.columns))
		for i := range scan {
			row[i] = value.FromAny(scan[i])
			scan[i] = nil
		}
		batch = append(batch, row)
	}

	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

func (r *sqlReader) Close() error { return r.rows.Close() }
