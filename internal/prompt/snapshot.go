package prompt

// CreatedBy tags snapshot provenance. It is set at creation and never inferred
// afterward.
type CreatedBy string

const (
	CreatedByManual       CreatedBy = "manual"
	CreatedByMetaLearning CreatedBy = "meta_learning"
)

// File is one tracked file captured in a snapshot.
type File struct {
	// Path is the file name relative to the prompts directory
	Path string `json:"path"`

	// Content is the full file content at snapshot time
	Content string `json:"content"`

	// Hash is the xxh3 content hash, hex-encoded
	Hash string `json:"hash"`
}

// Change records why a snapshot exists.
type Change struct {
	File        string `json:"file"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

// Snapshot is an immutable point-in-time copy of the tracked file set.
// Once created it is never modified; version IDs are never reused.
type Snapshot struct {
	// VersionID is the caller-supplied label for labeled snapshots,
	// otherwise a ULID (time-ordered, so IDs sort by creation)
	VersionID string `json:"version_id"`

	// Timestamp is the creation instant as a Unix timestamp (UTC)
	Timestamp int64 `json:"timestamp"`

	// Label is an optional human-readable alias, unique among live snapshots
	Label *string `json:"label,omitempty"`

	// CreatedBy is the provenance tag
	CreatedBy CreatedBy `json:"created_by"`

	// Files is the ordered file set mirror
	Files []File `json:"files"`

	// Changes explains why the snapshot was taken
	Changes []Change `json:"changes,omitempty"`
}

// Summary is snapshot metadata without file contents.
// Used for version listings to keep payloads small.
type Summary struct {
	VersionID string    `json:"version_id"`
	Timestamp int64     `json:"timestamp"`
	Label     *string   `json:"label,omitempty"`
	CreatedBy CreatedBy `json:"created_by"`
	FileCount int       `json:"file_count"`
}

// ToSummary converts a Snapshot to a Summary by stripping file contents.
func (s *Snapshot) ToSummary() Summary {
	return Summary{
		VersionID: s.VersionID,
		Timestamp: s.Timestamp,
		Label:     s.Label,
		CreatedBy: s.CreatedBy,
		FileCount: len(s.Files),
	}
}

// FindFile returns the snapshot file with the given path, or nil.
func (s *Snapshot) FindFile(path string) *File {
	for i := range s.Files {
		if s.Files[i].Path == path {
			return &s.Files[i]
		}
	}
	return nil
}
