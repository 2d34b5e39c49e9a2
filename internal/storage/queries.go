package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zheng/modgraph/internal/graph"
)

// FileMeta is per-file data kept next to the graph
type FileMeta struct {
	Hash         uint64
	ExtractError string
}

// FileRow is a file with its distance from a query file
type FileRow struct {
	ID    graph.NodeID `json:"id"`
	Depth int          `json:"depth"`
}

// SaveGraph replaces the stored graph with g in a single transaction
func (db *DB) SaveGraph(g *graph.Graph, meta map[graph.NodeID]FileMeta, root string) (err error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec("DELETE FROM edges; DELETE FROM files; DELETE FROM meta;"); err != nil {
		return fmt.Errorf("failed to clear database: %w", err)
	}

	fileStmt, err := tx.Prepare(`INSERT INTO files (id, ord, content_hash, extract_error) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer fileStmt.Close()
	edgeStmt, err := tx.Prepare(
		`INSERT INTO edges (from_file, position, raw, target, target_kind, edge_kind)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	records := g.Records()
	for i, rec := range records {
		m := meta[rec.ID]
		hash := ""
		if m.Hash != 0 {
			hash = strconv.FormatUint(m.Hash, 16)
		}
		extractErr := m.ExtractError
		if rec.ExtractionFailed && extractErr == "" {
			extractErr = "extraction failed"
		}
		if _, err = fileStmt.Exec(string(rec.ID), i, hash, extractErr); err != nil {
			return fmt.Errorf("failed to insert file %s: %w", rec.ID, err)
		}
	}

	for _, id := range g.IDs() {
		n, _ := g.Node(id)
		for pos, e := range n.Outgoing() {
			if _, err = edgeStmt.Exec(string(id), pos, e.Raw, e.Target.String(), e.Target.Kind.String(), string(e.Kind)); err != nil {
				return fmt.Errorf("failed to insert edge %s -> %s: %w", id, e.Raw, err)
			}
		}
	}

	if _, err = tx.Exec(`INSERT INTO meta (key, value) VALUES ('root', ?), ('analyzed_at', ?)`,
		root, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	return tx.Commit()
}

// LoadGraph reconstructs the stored graph. Edge targets are re-validated against the stored
// file set the same way a snapshot is.
func (db *DB) LoadGraph() (*graph.Graph, []graph.Diagnostic, error) {
	if _, err := db.Meta("analyzed_at"); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotAnalyzed
		}
		return nil, nil, err
	}

	rows, err := db.conn.Query(`SELECT id, extract_error FROM files ORDER BY ord`)
	if err != nil {
		return nil, nil, err
	}
	var records []graph.NodeRecord
	index := make(map[string]int)
	for rows.Next() {
		var id, extractErr string
		if err := rows.Scan(&id, &extractErr); err != nil {
			rows.Close()
			return nil, nil, err
		}
		index[id] = len(records)
		records = append(records, graph.NodeRecord{ID: graph.NodeID(id), ExtractionFailed: extractErr != ""})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = db.conn.Query(`SELECT from_file, raw, target, target_kind, edge_kind FROM edges ORDER BY from_file, position`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var from, raw, target, targetKind, kind string
		if err := rows.Scan(&from, &raw, &target, &targetKind, &kind); err != nil {
			return nil, nil, err
		}
		i, ok := index[from]
		if !ok {
			continue
		}
		records[i].Edges = append(records[i].Edges, graph.EdgeRecord{
			Raw:      raw,
			Resolved: target,
			Kind:     graph.EdgeKind(kind),
			External: targetKind == graph.TargetExternal.String(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	g, diags := graph.Assemble(records)
	return g, diags, nil
}

// Meta returns a stored meta value
func (db *DB) Meta(key string) (string, error) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	return value, err
}

// FileHashes returns the stored content hash of every file
func (db *DB) FileHashes() (map[graph.NodeID]uint64, error) {
	rows, err := db.conn.Query(`SELECT id, content_hash FROM files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[graph.NodeID]uint64)
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return nil, err
		}
		if hash == "" {
			continue
		}
		v, err := strconv.ParseUint(hash, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad hash for %s: %w", id, err)
		}
		out[graph.NodeID(id)] = v
	}
	return out, rows.Err()
}

// FindFilesByPattern returns files whose id contains pattern, case-insensitively for ASCII.
// Results are sorted by match quality: exact id > ends with pattern > contains pattern,
// then shorter ids first. LIKE wildcards in pattern match literally.
func (db *DB) FindFilesByPattern(pattern string) ([]graph.NodeID, error) {
	escaped := likeEscaper.Replace(pattern)
	rows, err := db.conn.Query(
		`SELECT id FROM files
		 WHERE id LIKE ?1 ESCAPE '\'
		 ORDER BY
			CASE
				WHEN lower(id) = lower(?2) THEN 0
				WHEN id LIKE '%' || ?3 ESCAPE '\' THEN 1
				ELSE 2
			END,
			length(id) ASC,
			ord ASC`,
		"%"+escaped+"%", pattern, escaped,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GetDependents returns all transitive dependents with their shortest distance.
// If maxDepth is 0, it returns all dependents with no depth limit.
func (db *DB) GetDependents(id graph.NodeID, maxDepth int) ([]FileRow, error) {
	return db.walk(`
		WITH RECURSIVE deps(id, depth) AS (
			SELECT from_file, 1 FROM edges WHERE target = ?1 AND target_kind = 'node'
			UNION
			SELECT e.from_file, d.depth + 1
			FROM edges e
			JOIN deps d ON e.target = d.id AND e.target_kind = 'node'
			WHERE d.depth < ?2
		)
		SELECT d.id, MIN(d.depth) FROM deps d JOIN files f ON f.id = d.id
		WHERE d.id != ?1
		GROUP BY d.id
		ORDER BY MIN(d.depth), f.ord`, id, maxDepth)
}

// GetDependencies returns all transitive dependencies with their shortest distance
func (db *DB) GetDependencies(id graph.NodeID, maxDepth int) ([]FileRow, error) {
	return db.walk(`
		WITH RECURSIVE deps(id, depth) AS (
			SELECT target, 1 FROM edges WHERE from_file = ?1 AND target_kind = 'node'
			UNION
			SELECT e.target, d.depth + 1
			FROM edges e
			JOIN deps d ON e.from_file = d.id
			WHERE e.target_kind = 'node' AND d.depth < ?2
		)
		SELECT d.id, MIN(d.depth) FROM deps d JOIN files f ON f.id = d.id
		WHERE d.id != ?1
		GROUP BY d.id
		ORDER BY MIN(d.depth), f.ord`, id, maxDepth)
}

func (db *DB) walk(query string, id graph.NodeID, maxDepth int) ([]FileRow, error) {
	if maxDepth <= 0 {
		// a shortest path never has more edges than there are files
		files, _, err := db.GetStats()
		if err != nil {
			return nil, err
		}
		maxDepth = int(files)
	}
	rows, err := db.conn.Query(query, string(id), maxDepth)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FileRow
	for rows.Next() {
		var r FileRow
		var fid string
		if err := rows.Scan(&fid, &r.Depth); err != nil {
			return nil, err
		}
		r.ID = graph.NodeID(fid)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetStats returns the number of files and edges
func (db *DB) GetStats() (fileCount, edgeCount int64, err error) {
	if err = db.conn.QueryRow("SELECT COUNT(*) FROM files").Scan(&fileCount); err != nil {
		return
	}
	err = db.conn.QueryRow("SELECT COUNT(*) FROM edges").Scan(&edgeCount)
	return
}

// GetExternalModules returns every bare specifier with the number of files importing it
func (db *DB) GetExternalModules() (map[string]int, error) {
	rows, err := db.conn.Query(
		`SELECT target, COUNT(DISTINCT from_file) FROM edges
		 WHERE target_kind = 'external' AND edge_kind = ?
		 GROUP BY target`,
		string(graph.EdgeKindBare),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		out[name] = count
	}
	return out, rows.Err()
}

func scanIDs(rows *sql.Rows) ([]graph.NodeID, error) {
	var ids []graph.NodeID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, graph.NodeID(id))
	}
	return ids, rows.Err()
}
