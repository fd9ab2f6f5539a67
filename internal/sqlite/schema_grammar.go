package sqlite

import (
	"fmt"
	"strings"

	"github.com/strata-db/strata/internal/driver"
	"github.com/strata-db/strata/internal/schema"
)

// SchemaGrammar renders DDL for SQLite.
type SchemaGrammar struct{}

// RenderCreateTable implements driver.SchemaGrammar. The table
// statement carries columns, the primary key and foreign keys;
// secondary indexes follow as separate CREATE INDEX statements.
func (g SchemaGrammar) RenderCreateTable(l *schema.Layout) ([]driver.Statement, error) {
	var defs []string

	autoPK := autoIncrementPrimary(l)
	for _, f := range l.Fields() {
		def, err := columnDef(f)
		if err != nil {
			return nil, fmt.Errorf("create table %s: %w", l.Table(), err)
		}
		if autoPK != nil && f.Name == autoPK.Name {
			// SQLite requires the rowid alias form for auto-increment.
			def = fmt.Sprintf("%s INTEGER PRIMARY KEY AUTOINCREMENT", quoteIdent(f.Name))
		}
		defs = append(defs, def)
	}

	if pk := l.PrimaryKey(); pk != nil && autoPK == nil {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", indexColumns(pk)))
	}

	for _, idx := range l.Indexes() {
		if idx.Foreign == nil {
			continue
		}
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			indexColumns(idx),
			quoteIdent(idx.Foreign.Table),
			quoteIdent(idx.Foreign.Field)))
	}

	stmts := []driver.Statement{{
		SQL: fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(l.Table()), strings.Join(defs, ", ")),
	}}

	for _, idx := range l.Indexes() {
		if idx.Primary || idx.Foreign != nil {
			continue
		}
		stmts = append(stmts, createIndexStatement(l.Table(), idx))
	}
	return stmts, nil
}

// RenderDropTable implements driver.SchemaGrammar.
func (g SchemaGrammar) RenderDropTable(table string) (driver.Statement, error) {
	return driver.Statement{
		SQL: fmt.Sprintf("DROP TABLE %s", quoteIdent(schema.NormalizeIdent(table))),
	}, nil
}

// RenderAlter implements driver.SchemaGrammar. SQLite cannot retrofit
// primary keys or foreign keys onto an existing table; those
// operations fail rather than silently degrade.
func (g SchemaGrammar) RenderAlter(op schema.Operation) ([]driver.Statement, error) {
	switch o := op.(type) {
	case schema.AddField:
		def, err := columnDef(&o.Field)
		if err != nil {
			return nil, fmt.Errorf("alter table %s: %w", o.Table, err)
		}
		return []driver.Statement{{
			SQL: fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quoteIdent(o.Table), def),
		}}, nil
	case schema.DropField:
		return []driver.Statement{{
			SQL: fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", quoteIdent(o.Table), quoteIdent(o.Name)),
		}}, nil
	case schema.AddIndex:
		if o.Index.Primary {
			return nil, fmt.Errorf("alter table %s: sqlite cannot add a primary key to an existing table", o.Table)
		}
		if o.Index.Foreign != nil {
			return nil, fmt.Errorf("alter table %s: sqlite cannot add a foreign key to an existing table", o.Table)
		}
		return []driver.Statement{createIndexStatement(o.Table, &o.Index)}, nil
	case schema.DropIndex:
		return []driver.Statement{{
			SQL: fmt.Sprintf("DROP INDEX %s", quoteIdent(o.Table+"_"+o.Name)),
		}}, nil
	default:
		return nil, fmt.Errorf("unsupported schema operation: %T", op)
	}
}

// HasTable implements driver.SchemaGrammar. SQLite has a single
// schema; schemaName is ignored.
func (g SchemaGrammar) HasTable(_, table string) (driver.Statement, error) {
	return driver.Statement{
		SQL:  "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		Args: []any{schema.NormalizeIdent(table)},
	}, nil
}

func columnDef(f *schema.Field) (string, error) {
	typ, err := columnType(f.Type)
	if err != nil {
		return "", err
	}
	def := quoteIdent(f.Name) + " " + typ
	if !f.Nullable {
		def += " NOT NULL"
	}
	if f.Type.Kind == schema.KindEnum {
		def += fmt.Sprintf(" CHECK (%s IN (%s))", quoteIdent(f.Name), enumLiterals(f.Type.Options))
	}
	return def, nil
}

func columnType(t schema.Type) (string, error) {
	switch t.Kind {
	case schema.KindInt, schema.KindLong:
		return "INTEGER", nil
	case schema.KindString:
		return fmt.Sprintf("VARCHAR(%d)", t.Length), nil
	case schema.KindText, schema.KindEnum:
		return "TEXT", nil
	case schema.KindDateTime:
		return "DATETIME", nil
	default:
		return "", fmt.Errorf("unsupported field kind %q", t.Kind)
	}
}

// enumLiterals renders the option list for a CHECK constraint. Options
// were validated at construction; only quote escaping remains.
func enumLiterals(options []string) string {
	out := make([]string, len(options))
	for i, opt := range options {
		out[i] = "'" + strings.ReplaceAll(opt, "'", "''") + "'"
	}
	return strings.Join(out, ", ")
}

// createIndexStatement names indexes <table>_<index> because index
// names share one namespace in SQLite.
func createIndexStatement(table string, idx *schema.Index) driver.Statement {
	kind := "INDEX"
	if idx.IsUnique() {
		kind = "UNIQUE INDEX"
	}
	return driver.Statement{
		SQL: fmt.Sprintf("CREATE %s %s ON %s (%s)",
			kind,
			quoteIdent(table+"_"+idx.Name),
			quoteIdent(table),
			indexColumns(idx)),
	}
}

func indexColumns(idx *schema.Index) string {
	cols := make([]string, len(idx.Fields))
	for i, f := range idx.Fields {
		cols[i] = quoteIdent(f.Name)
	}
	return strings.Join(cols, ", ")
}

// autoIncrementPrimary returns the primary-key field when it is a
// single auto-increment column, which SQLite must render inline.
func autoIncrementPrimary(l *schema.Layout) *schema.Field {
	f, ok := l.PrimaryKeyField()
	if !ok || !f.AutoIncrement {
		return nil
	}
	return f
}
