//go:build cgo

package depgraph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph
// backend. It requires CGO because the go-kuzu driver wraps KuzuDB's C
// library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path, so the run's dependency graph survives the process
// and can be inspected afterwards.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	// Ensure the parent directory exists (KuzuDB creates the leaf).
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ddlStatements defines the Cypher DDL executed by InitSchema. The node
// table must precede the relationship table.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Issue(
		key STRING,
		file STRING,
		line INT64,
		function STRING,
		PRIMARY KEY(key)
	)`,
	`CREATE REL TABLE IF NOT EXISTS DEPENDS_ON(FROM Issue TO Issue, weight INT64)`,
}

// InitSchema creates the node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// AddIssue inserts an Issue node.
func (s *KuzuStore) AddIssue(_ context.Context, node Node) error {
	return s.exec(
		"CREATE (i:Issue {key: $key, file: $file, line: $line, function: $fn})",
		map[string]any{
			"key":  node.Key,
			"file": node.File,
			"line": int64(node.Line),
			"fn":   node.Function,
		},
	)
}

// AddEdge inserts a DEPENDS_ON relationship between two issue nodes.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	return s.exec(
		`MATCH (a:Issue {key: $from}), (b:Issue {key: $to})
		 CREATE (a)-[:DEPENDS_ON {weight: $w}]->(b)`,
		map[string]any{
			"from": edge.From,
			"to":   edge.To,
			"w":    int64(edge.Weight),
		},
	)
}

// Issues returns all Issue nodes ordered by key.
func (s *KuzuStore) Issues(_ context.Context) ([]Node, error) {
	rows, err := s.query(
		"MATCH (i:Issue) RETURN i.key, i.file, i.line, i.function ORDER BY i.key",
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(rows))
	for _, r := range rows {
		out = append(out, Node{
			Key:      toString(r[0]),
			File:     toString(r[1]),
			Line:     toInt(r[2]),
			Function: toString(r[3]),
		})
	}
	return out, nil
}

// Edges returns all DEPENDS_ON relationships ordered by endpoint keys.
func (s *KuzuStore) Edges(_ context.Context) ([]Edge, error) {
	rows, err := s.query(
		`MATCH (a:Issue)-[r:DEPENDS_ON]->(b:Issue)
		 RETURN a.key, b.key, r.weight ORDER BY a.key, b.key`,
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]Edge, 0, len(rows))
	for _, r := range rows {
		out = append(out, Edge{
			From:   toString(r[0]),
			To:     toString(r[1]),
			Weight: toInt(r[2]),
		})
	}
	return out, nil
}

// Dependents returns the keys with a DEPENDS_ON edge into key.
func (s *KuzuStore) Dependents(_ context.Context, key string) ([]string, error) {
	rows, err := s.query(
		"MATCH (a:Issue)-[:DEPENDS_ON]->(b:Issue {key: $key}) RETURN a.key ORDER BY a.key",
		map[string]any{"key": key},
	)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

// Stats returns node and edge counts.
func (s *KuzuStore) Stats(_ context.Context) (*Stats, error) {
	issues, err := s.count("MATCH (n:Issue) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	edges, err := s.count("MATCH ()-[r:DEPENDS_ON]->() RETURN count(r)")
	if err != nil {
		return nil, err
	}
	return &Stats{IssueCount: issues, EdgeCount: edges}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// count runs a single-value count query.
func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, string). These helpers safely
// coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
