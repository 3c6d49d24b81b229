// Package export writes a loaded project into a SQLite database: every node
// with its attributes, plus the resolved axes and motors.
package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pcdshub/tcparse/internal/logger"
	"github.com/pcdshub/tcparse/internal/twincat"
)

const schema = `
CREATE TABLE nodes (
	id     INTEGER PRIMARY KEY,
	parent INTEGER REFERENCES nodes(id),
	kind   TEXT NOT NULL,
	tag    TEXT NOT NULL,
	name   TEXT NOT NULL,
	path   TEXT NOT NULL,
	file   TEXT NOT NULL,
	line   INTEGER NOT NULL,
	text   TEXT NOT NULL
);
CREATE TABLE attributes (
	node  INTEGER NOT NULL REFERENCES nodes(id),
	pos   INTEGER NOT NULL,
	key   TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (node, key)
);
CREATE TABLE axes (
	node  INTEGER PRIMARY KEY REFERENCES nodes(id),
	nc    TEXT NOT NULL,
	id    INTEGER NOT NULL,
	name  TEXT NOT NULL,
	units TEXT NOT NULL
);
CREATE TABLE axis_params (
	axis  INTEGER NOT NULL REFERENCES axes(node),
	pos   INTEGER NOT NULL,
	key   TEXT NOT NULL,
	value TEXT NOT NULL
);
CREATE TABLE motors (
	symbol   INTEGER PRIMARY KEY REFERENCES nodes(id),
	name     TEXT NOT NULL,
	program  TEXT NOT NULL,
	motor    TEXT NOT NULL,
	axis     INTEGER NOT NULL REFERENCES axes(node),
	ads_port INTEGER
);
CREATE INDEX nodes_kind ON nodes(kind);
`

// ErrExists is returned when the target database file already exists.
var ErrExists = errors.New("database already exists")

// WriteFile creates a new database at path and exports p into it.
func WriteFile(ctx context.Context, path string, p *twincat.Project) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, ErrExists)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()
	return Export(ctx, db, p)
}

// Export creates the schema in db and writes p in a single transaction.
func Export(ctx context.Context, db *sql.DB, p *twincat.Project) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	w := &writer{tx: tx, ids: make(map[*twincat.Node]int64)}
	if err = w.nodes(ctx, p.Node.Root()); err != nil {
		return err
	}
	if err = w.axes(ctx, p); err != nil {
		return err
	}
	if err = w.motors(ctx, p); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	logger.Info("exported project", "project", p.SourceFile, "nodes", len(w.ids))
	return nil
}

type writer struct {
	tx  *sql.Tx
	ids map[*twincat.Node]int64
}

func (w *writer) nodes(ctx context.Context, root *twincat.Node) error {
	node, err := w.tx.PrepareContext(ctx,
		`INSERT INTO nodes (id, parent, kind, tag, name, path, file, line, text) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer node.Close()
	attr, err := w.tx.PrepareContext(ctx, `INSERT INTO attributes (node, pos, key, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer attr.Close()

	insert := func(n *twincat.Node) error {
		id := int64(len(w.ids) + 1)
		w.ids[n] = id
		var parent sql.NullInt64
		if pid, ok := w.ids[n.Parent]; ok {
			parent = sql.NullInt64{Int64: pid, Valid: true}
		}
		if _, err := node.ExecContext(ctx, id, parent, n.Kind.Name, n.Tag, n.Name,
			n.QualifiedPath(), n.SourceFile, n.Line, n.Text); err != nil {
			return fmt.Errorf("node %s: %w", n.QualifiedPath(), err)
		}
		pos := 0
		for k, v := range n.Attrs.All() {
			if _, err := attr.ExecContext(ctx, id, pos, k, v); err != nil {
				return fmt.Errorf("attribute %s of %s: %w", k, n.QualifiedPath(), err)
			}
			pos++
		}
		return nil
	}

	if err := insert(root); err != nil {
		return err
	}
	for n := range root.Descendants() {
		if err := insert(n); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) axes(ctx context.Context, p *twincat.Project) error {
	for _, nc := range p.NCs() {
		task := nc.TaskName()
		for _, name := range slices.Sorted(maps.Keys(nc.AxisByName)) {
			axis, err := nc.AxisBody(name)
			if err != nil {
				return err
			}
			id, err := axis.AxisNumber()
			if err != nil {
				return err
			}
			node := w.ids[axis.Node]
			if _, err := w.tx.ExecContext(ctx, `INSERT INTO axes (node, nc, id, name, units) VALUES (?, ?, ?, ?, ?)`,
				node, task, id, axis.Name, axis.Units()); err != nil {
				return fmt.Errorf("axis %s: %w", axis.Name, err)
			}
			for pos, param := range axis.Summarize() {
				if _, err := w.tx.ExecContext(ctx, `INSERT INTO axis_params (axis, pos, key, value) VALUES (?, ?, ?, ?)`,
					node, pos, param.Key, param.Value); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (w *writer) motors(ctx context.Context, p *twincat.Project) error {
	motors, err := twincat.Motors(p.Node)
	if err != nil {
		return err
	}
	for _, m := range motors {
		program, err := m.Symbol.ProgramName()
		if err != nil {
			return err
		}
		motor, err := m.Symbol.MotorName()
		if err != nil {
			return err
		}
		var port sql.NullInt64
		if module, err := m.Symbol.Module(); err == nil {
			if ads, err := module.ADSPort(); err == nil {
				port = sql.NullInt64{Int64: int64(ads), Valid: true}
			}
		}
		if _, err := w.tx.ExecContext(ctx,
			`INSERT INTO motors (symbol, name, program, motor, axis, ads_port) VALUES (?, ?, ?, ?, ?, ?)`,
			w.ids[m.Symbol.Node], m.Symbol.Name, program, motor, w.ids[m.Axis.Node], port); err != nil {
			return fmt.Errorf("motor %s: %w", m.Symbol.Name, err)
		}
	}
	return nil
}
