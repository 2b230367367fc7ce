package models

// UploadFile is one file handed to the object-storage collaborator.
type UploadFile struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Data     []byte `json:"-"`
}

// UploadResult is what object storage returns for a stored file.
type UploadResult struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// UploadStatus values.
const (
	UploadPending   = "pending"
	UploadRunning   = "uploading"
	UploadSucceeded = "succeeded"
	UploadFailed    = "failed"
)

// UploadProgress is one event on an upload's progress channel.
type UploadProgress struct {
	Key      string        `json:"key"`
	Status   string        `json:"status"`
	Fraction float64       `json:"fraction"`
	Result   *UploadResult `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// MigrationStatus values reported per section type.
const (
	MigrationMigrated      = "migrated"
	MigrationSkippedExists = "skipped-exists"
	MigrationFailed        = "failed"
)

// MigrationResult is the outcome of migrating one section type.
type MigrationResult struct {
	Type   SectionType `bson:"type" json:"type" firestore:"type"`
	Status string      `bson:"status" json:"status" firestore:"status"`
	Error  string      `bson:"error,omitempty" json:"error,omitempty" firestore:"error,omitempty"`
}

// MigrationRecord is the persisted per-user migration marker.
type MigrationRecord struct {
	UserID    string            `bson:"userId" json:"userId" firestore:"userId"`
	Migrated  bool              `bson:"migrated" json:"migrated" firestore:"migrated"`
	Results   []MigrationResult `bson:"results" json:"results" firestore:"results"`
	UpdatedAt string            `bson:"updatedAt" json:"updatedAt" firestore:"updatedAt"`
}
