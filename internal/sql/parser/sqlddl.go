package parser

import (
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/cabewaldrop/pagedb/internal/storage"
)

// parseSQLCreateTable maps a MySQL CREATE TABLE statement onto a
// CreateTableStatement. A single-column PRIMARY KEY becomes the index.
//
//	CREATE TABLE people (id INT, name VARCHAR(40), PRIMARY KEY (id))
func parseSQLCreateTable(input string) (Statement, error) {
	sql := strings.TrimSuffix(strings.TrimSpace(input), ";")
	parsed, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parse errors: %v", err)
	}

	ddl, ok := parsed.(*sqlparser.DDL)
	if !ok || ddl.Action != sqlparser.CreateStr {
		return nil, fmt.Errorf("parse errors: only CREATE TABLE is supported in SQL form")
	}
	name := ddl.Table.Name.String()
	if name == "" {
		name = ddl.NewName.Name.String()
	}
	if ddl.TableSpec == nil || len(ddl.TableSpec.Columns) == 0 {
		return nil, fmt.Errorf("parse errors: table %s has no columns", name)
	}

	stmt := &CreateTableStatement{Name: name}
	for _, col := range ddl.TableSpec.Columns {
		kind, err := sqlKind(col.Type.Type)
		if err != nil {
			return nil, fmt.Errorf("parse errors: column %s: %w", col.Name.String(), err)
		}
		stmt.Columns = append(stmt.Columns, ColumnDefinition{Name: col.Name.String(), Type: kind})
	}

	for _, idx := range ddl.TableSpec.Indexes {
		if idx.Info == nil || !idx.Info.Primary {
			continue
		}
		if len(idx.Columns) != 1 {
			return nil, fmt.Errorf("parse errors: primary key must be a single column")
		}
		stmt.PrimaryKey = idx.Columns[0].Column.String()
	}
	return stmt, nil
}

// sqlKind maps a MySQL column type onto a storage kind.
func sqlKind(sqlType string) (storage.Kind, error) {
	switch strings.ToLower(sqlType) {
	case "int", "integer", "tinyint", "smallint", "mediumint", "bigint":
		return storage.KindInteger, nil
	case "float", "double", "decimal", "real", "numeric":
		return storage.KindDouble, nil
	case "char", "varchar", "text", "tinytext", "mediumtext", "longtext":
		return storage.KindText, nil
	}
	return 0, fmt.Errorf("%w: unsupported column type %s", storage.ErrUnsupported, sqlType)
}
