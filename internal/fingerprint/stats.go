package fingerprint

import (
	"context"
	"fmt"
	"os"
)

// Stats summarizes the durable store contents.
type Stats struct {
	TotalRecords int64
	ByFormat     map[string]int64
	ByArchive    map[string]int64
	ArchiveRows  int64
	PlainRows    int64
	DBSizeBytes  int64
}

// Statistics reports record counts grouped by format and container plus the
// database file size.
func (s *Store) Statistics(ctx context.Context) (Stats, error) {
	stats := Stats{
		ByFormat:  map[string]int64{},
		ByArchive: map[string]int64{},
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fingerprints").Scan(&stats.TotalRecords); err != nil {
		return Stats{}, fmt.Errorf("count fingerprints: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM fingerprints WHERE archive IS NOT NULL").Scan(&stats.ArchiveRows); err != nil {
		return Stats{}, fmt.Errorf("count archive rows: %w", err)
	}
	stats.PlainRows = stats.TotalRecords - stats.ArchiveRows

	rows, err := s.db.QueryContext(ctx, `
        SELECT COALESCE(format, ''), COUNT(*) FROM fingerprints
        GROUP BY format ORDER BY COUNT(*) DESC LIMIT 10`)
	if err != nil {
		return Stats{}, fmt.Errorf("count by format: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var format string
		var count int64
		if err := rows.Scan(&format, &count); err != nil {
			return Stats{}, fmt.Errorf("scan format count: %w", err)
		}
		stats.ByFormat[format] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate format counts: %w", err)
	}

	archiveRows, err := s.db.QueryContext(ctx, `
        SELECT archive, COUNT(*) FROM fingerprints
        WHERE archive IS NOT NULL
        GROUP BY archive ORDER BY COUNT(*) DESC LIMIT 10`)
	if err != nil {
		return Stats{}, fmt.Errorf("count by archive: %w", err)
	}
	defer archiveRows.Close()
	for archiveRows.Next() {
		var archive string
		var count int64
		if err := archiveRows.Scan(&archive, &count); err != nil {
			return Stats{}, fmt.Errorf("scan archive count: %w", err)
		}
		stats.ByArchive[archive] = count
	}
	if err := archiveRows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate archive counts: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.DBSizeBytes = info.Size()
	}
	return stats, nil
}
