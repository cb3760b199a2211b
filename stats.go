package ctxcache

// Stats summarises a cache on disk.
type Stats struct {
	CacheVersion  string `json:"cache_version"`
	DocumentCount int    `json:"document_count"`
	TotalBytes    int64  `json:"total_bytes"` // Sum of the content files that exist
	Valid         bool   `json:"valid"`       // Manifest consistent and every content file present with its recorded size
	Fingerprint   string `json:"fingerprint,omitempty"`
}

// Inspect reports on the cache without failing on missing content: a
// missing or resized file only clears Valid. Fingerprint is set only for
// valid caches.
func Inspect(c *ContextCache) Stats {
	stats := Stats{
		CacheVersion:  c.manifest.CacheVersion,
		DocumentCount: c.manifest.DocumentCount,
		Valid:         c.checkManifest() == nil,
	}

	for _, entry := range c.manifest.Documents {
		info, err := c.fs.Stat(c.contentPath(entry))
		if err != nil || info.IsDir() {
			stats.Valid = false
			continue
		}
		stats.TotalBytes += info.Size()
		if info.Size() != entry.Size {
			stats.Valid = false
		}
	}

	if stats.Valid {
		fp, err := Fingerprint(c)
		if err != nil {
			stats.Valid = false
		} else {
			stats.Fingerprint = fp
		}
	}

	return stats
}
