package graph

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrSnapshotNotFound is returned when the snapshot file does not exist
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrSnapshotCorrupt is returned when the snapshot cannot be decoded
	ErrSnapshotCorrupt = errors.New("snapshot is corrupt")
)

type snapshotEdge struct {
	Source       string `json:"source"`
	ResolvedPath string `json:"resolvedPath"`
}

type snapshotNode struct {
	IncomingDependencies []NodeID       `json:"incomingDependencies"`
	OutgoingDependencies []snapshotEdge `json:"outgoingDependencies"`
}

// WriteSnapshot encodes g as a JSON object keyed by node id, in discovery order
func WriteSnapshot(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("{"); err != nil {
		return err
	}
	for i, id := range g.order {
		n := g.nodes[id]
		sn := snapshotNode{
			IncomingDependencies: n.Incoming(),
			OutgoingDependencies: make([]snapshotEdge, 0, len(n.outgoing)),
		}
		for _, e := range n.outgoing {
			sn.OutgoingDependencies = append(sn.OutgoingDependencies, snapshotEdge{
				Source:       e.Raw,
				ResolvedPath: e.Target.String(),
			})
		}

		key, err := json.Marshal(string(id))
		if err != nil {
			return err
		}
		value, err := json.MarshalIndent(sn, "  ", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode node %s: %w", id, err)
		}

		sep := ","
		if i == 0 {
			sep = ""
		}
		if _, err := fmt.Fprintf(bw, "%s\n  %s: %s", sep, key, value); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\n}\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadSnapshot decodes a snapshot, keeping the document order of its keys as discovery order.
// Resolved paths are re-validated against the node set and incoming sets are recomputed;
// stored incoming lists that disagree produce diagnostics.
func ReadSnapshot(r io.Reader) (*Graph, []Diagnostic, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("%w: expected object, got %v", ErrSnapshotCorrupt, tok)
	}

	var records []NodeRecord
	stored := make(map[NodeID][]NodeID)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("%w: unexpected token %v", ErrSnapshotCorrupt, tok)
		}

		var sn snapshotNode
		if err := dec.Decode(&sn); err != nil {
			return nil, nil, fmt.Errorf("%w: node %s: %v", ErrSnapshotCorrupt, key, err)
		}

		id := NodeID(key)
		rec := NodeRecord{ID: id, Edges: make([]EdgeRecord, 0, len(sn.OutgoingDependencies))}
		for _, e := range sn.OutgoingDependencies {
			rec.Edges = append(rec.Edges, EdgeRecord{Raw: e.Source, Resolved: e.ResolvedPath})
		}
		records = append(records, rec)
		stored[id] = sn.IncomingDependencies
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}

	g, diags := Assemble(records)
	for _, id := range g.order {
		if !sameSet(stored[id], g.nodes[id].incoming) {
			diags = append(diags, Diagnostic{
				Code:    DiagIncomingMismatch,
				File:    id,
				Message: "stored incomingDependencies disagree with outgoing edges, using recomputed set",
				Related: stored[id],
			})
		}
	}
	return g, diags, nil
}

// SaveSnapshot writes g to path, creating parent directories as needed
func SaveSnapshot(path string, g *Graph) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := WriteSnapshot(f, g); err != nil {
		f.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return f.Close()
}

// LoadSnapshot reads the snapshot stored at path
func LoadSnapshot(path string) (*Graph, []Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, path)
		}
		return nil, nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

func sameSet(a, b []NodeID) bool {
	set := make(map[NodeID]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	if len(set) != len(b) {
		return false
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}
