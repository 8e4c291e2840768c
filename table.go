package crestdb

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
)

type Table struct {
	c *Client

	// Database is the name of the database.
	//
	// This is optional and may be empty, in which case the client's
	// configured database (or the server default) applies.
	Database string
	// Table is the name of the table.
	Table string
}

func (c *Client) Table(tableName string) *Table {
	return &Table{
		c:     c,
		Table: tableName,
	}
}

// Identifier returns the quoted, optionally database-qualified table name.
func (t *Table) Identifier() string {
	var b bytes.Buffer
	if t.Database != "" {
		b.WriteString(quoteIdent(t.Database, '`'))
		b.WriteByte('.')
	}
	b.WriteString(quoteIdent(t.Table, '`'))
	return b.String()
}

func (t *Table) Drop(ctx context.Context) error {
	resp, err := t.c.Query(ctx, fmt.Sprintf(`DROP TABLE %s`, t.Identifier()), nil, nil)
	if err != nil {
		return err
	}
	return resp.Close()
}

// Describe fetches the table's schema from the server. This is meant for
// registration time, not the hot insert path.
func (t *Table) Describe(ctx context.Context) (*TableSchema, error) {
	resp, err := t.c.Query(ctx,
		fmt.Sprintf(`DESCRIBE TABLE %s`, t.Identifier()),
		nil,
		NewQuerySettings().SetFormat(FormatTabSeparated),
	)
	if err != nil {
		return nil, err
	}
	defer sneakyBodyClose(resp.Body)

	schema := &TableSchema{
		Database: t.Database,
		Table:    t.Table,
	}
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		// name <TAB> type <TAB> trailing metadata we don't need
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("malformed DESCRIBE line %q", line)
		}
		col, err := ParseColumn(fields[0], fields[1])
		if err != nil {
			return nil, err
		}
		schema.Columns = append(schema.Columns, col)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("table %s has no columns", t.Identifier())
	}
	return schema, nil
}

func quoteIdent(s string, r rune) string {
	var b bytes.Buffer
	b.WriteRune(r)
	for _, c := range s {
		switch c {
		case '\t':
			b.WriteString("\\t")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\\':
			b.WriteString("\\\\")
		default:
			if c == r {
				b.WriteRune('\\')
				b.WriteRune(c)
				break
			}

			if c < 0x20 {
				b.WriteString(fmt.Sprintf("\\x%02x", c))
				break
			}

			b.WriteRune(c)
		}
	}
	b.WriteRune(r)
	return b.String()
}
