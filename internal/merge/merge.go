// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge folds freshly computed "linker" records into a book's final
// link artifact while preserving every record with another connection type.
//
// Foreign rows are carried as raw JSON, so fields this engine does not model
// survive a merge unchanged.
package merge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pdiddy/link-engine/internal/atomicfile"
	"github.com/pdiddy/link-engine/pkg/types"
)

// Result describes what a merge did to the artifact on disk.
type Result struct {
	Kept    int // foreign rows preserved
	Added   int // linker rows written
	Removed bool
}

type rowTag struct {
	ConnectionType types.ConnectionType `json:"Conection Type"`
}

func readRaw(path string) ([]json.RawMessage, bool, error) {
	var rows []json.RawMessage
	if err := atomicfile.ReadJSON(path, &rows); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return rows, true, nil
}

// Read loads a final link artifact. A missing file is an empty artifact.
func Read(path string) ([]types.LinkRecord, error) {
	var records []types.LinkRecord
	if err := atomicfile.ReadJSON(path, &records); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}

func foreign(rows []json.RawMessage) ([]json.RawMessage, error) {
	var out []json.RawMessage
	for i, row := range rows {
		var tag rowTag
		if err := json.Unmarshal(row, &tag); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if tag.ConnectionType != types.ConnectionLinker {
			out = append(out, row)
		}
	}
	return out, nil
}

// encodeRow marshals rec without HTML escaping.
func encodeRow(rec types.LinkRecord) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Merge replaces the "linker" rows of the artifact at path with fresh. The
// artifact becomes the existing foreign rows followed by fresh. When that
// list is empty the file is removed, so an absent file means no links.
func Merge(path string, fresh []types.LinkRecord) (Result, error) {
	existing, found, err := readRaw(path)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}
	merged, err := foreign(existing)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}
	res := Result{Kept: len(merged), Added: len(fresh)}

	for _, rec := range fresh {
		row, err := encodeRow(rec)
		if err != nil {
			return Result{}, fmt.Errorf("encoding record: %w", err)
		}
		merged = append(merged, row)
	}

	if len(merged) == 0 {
		if err := atomicfile.Remove(path); err != nil {
			return Result{}, fmt.Errorf("removing %s: %w", path, err)
		}
		res.Removed = found
		return res, nil
	}

	if err := atomicfile.WriteJSON(path, merged); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Strip removes every "linker" row from the artifact at path, as when the
// source book is deleted.
func Strip(path string) (Result, error) {
	return Merge(path, nil)
}
