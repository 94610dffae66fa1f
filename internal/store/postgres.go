package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// copyTempTable receives COPY data before it is cast into the target table
const copyTempTable = "osm_load_tmp"

// Postgres opens connections to a PostgreSQL database
type Postgres struct {
	connString string
}

// NewPostgres creates an opener for connString
func NewPostgres(connString string) *Postgres {
	return &Postgres{connString: connString}
}

// Driver returns the driver name
func (p *Postgres) Driver() string {
	return "postgres"
}

// Open connects to PostgreSQL
func (p *Postgres) Open(ctx context.Context) (Conn, error) {
	connConfig, err := pgx.ParseConfig(p.connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return &pgConn{conn: conn}, nil
}

type pgConn struct {
	conn *pgx.Conn
	tx   pgx.Tx
}

func (c *pgConn) begin(ctx context.Context) error {
	if c.tx != nil {
		return nil
	}
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

func (c *pgConn) Exec(ctx context.Context, stmt string, args ...any) error {
	if err := c.begin(ctx); err != nil {
		return err
	}
	_, err := c.tx.Exec(ctx, stmt, args...)
	return err
}

func (c *pgConn) Commit(ctx context.Context) error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Commit(ctx)
	c.tx = nil
	return err
}

func (c *pgConn) Close(ctx context.Context) error {
	if c.tx != nil {
		_ = c.tx.Rollback(ctx)
		c.tx = nil
	}
	return c.conn.Close(ctx)
}

func (c *pgConn) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// CopyFrom bulk loads rows of text values. COPY binary format cannot encode
// text into typed columns, so rows go into an all-text temp table first and
// are cast into the target with INSERT ... SELECT.
func (c *pgConn) CopyFrom(ctx context.Context, table string, columns []string, rows RowSource) (int64, error) {
	if err := c.begin(ctx); err != nil {
		return 0, err
	}

	types, err := c.columnTypes(ctx, table)
	if err != nil {
		return 0, err
	}

	quoted := make([]string, len(columns))
	tempCols := make([]string, len(columns))
	casts := make([]string, len(columns))
	for i, col := range columns {
		typ, ok := types[col]
		if !ok {
			return 0, fmt.Errorf("table %s has no column %s", table, col)
		}
		quoted[i] = QuoteIdent(col)
		tempCols[i] = quoted[i] + " TEXT"
		casts[i] = fmt.Sprintf("%s::%s", quoted[i], typ)
	}

	tempSQL := fmt.Sprintf(`
		DROP TABLE IF EXISTS %s;
		CREATE TEMP TABLE %s (%s) ON COMMIT DROP
	`, copyTempTable, copyTempTable, strings.Join(tempCols, ", "))
	if _, err := c.tx.Exec(ctx, tempSQL); err != nil {
		return 0, fmt.Errorf("failed to create temp table: %w", err)
	}

	count, err := c.tx.CopyFrom(ctx, pgx.Identifier{copyTempTable}, columns, rows)
	if err != nil {
		return 0, fmt.Errorf("COPY failed: %w", err)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		pgx.Identifier{table}.Sanitize(), strings.Join(quoted, ", "), strings.Join(casts, ", "), copyTempTable)
	if _, err := c.tx.Exec(ctx, insertSQL); err != nil {
		return 0, fmt.Errorf("failed to insert from temp table: %w", err)
	}

	return count, nil
}

// columnTypes returns the SQL type of every column of table
func (c *pgConn) columnTypes(ctx context.Context, table string) (map[string]string, error) {
	rows, err := c.tx.Query(ctx, `
		SELECT a.attname, format_type(a.atttypid, a.atttypmod)
		FROM pg_attribute a
		WHERE a.attrelid = $1::regclass AND a.attnum > 0 AND NOT a.attisdropped
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	types := make(map[string]string)
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, err
		}
		types[name] = typ
	}
	return types, rows.Err()
}
