package entity

type IngestStatus string

const (
	IngestStatusOK          IngestStatus = "ok"
	IngestStatusTruncated   IngestStatus = "truncated"
	IngestStatusUnsupported IngestStatus = "unsupported"
	IngestStatusFailed      IngestStatus = "failed"
)

// IngestedFile is the bounded text extracted from one uploaded file.
// It exists only for the duration of a single chat request.
type IngestedFile struct {
	Name   string
	Kind   string
	Text   string
	Status IngestStatus
}
