package fingerprint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// exportEntry is the JSON shape for one exported fingerprint.
type exportEntry struct {
	Hash         string `json:"hash"`
	Algorithm    string `json:"algorithm"`
	HashSize     int    `json:"hash_size"`
	FileSize     int64  `json:"file_size,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	CalculatedAt string `json:"calculated_at"`
}

type exportDocument struct {
	Params       string                 `json:"_params"`
	Fingerprints map[string]exportEntry `json:"fingerprints"`
}

// ExportJSON writes every stored record to w as a single JSON document keyed
// by identifier, for interop with external tooling.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer) error {
	records, err := s.All(ctx)
	if err != nil {
		return err
	}
	doc := exportDocument{
		Params:       fmt.Sprintf("exported=%s;schema=%d", time.Now().UTC().Format(time.RFC3339), schemaVersion),
		Fingerprints: make(map[string]exportEntry, len(records)),
	}
	for _, rec := range records {
		doc.Fingerprints[rec.URI] = exportEntry{
			Hash:         rec.Hash,
			Algorithm:    rec.Algorithm,
			HashSize:     rec.HashSize,
			FileSize:     rec.FileSize,
			Width:        rec.Width,
			Height:       rec.Height,
			CalculatedAt: rec.CalculatedAt.Format(time.RFC3339Nano),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}
