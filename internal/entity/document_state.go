package entity

// DocumentState is what the UI and the query gate see for a scope.
type DocumentState string

const (
	DocumentStateNotFound   DocumentState = "not_found"
	DocumentStateUploaded   DocumentState = "uploaded"
	DocumentStateProcessing DocumentState = "processing"
	DocumentStateCompleted  DocumentState = "completed"
	DocumentStateFailed     DocumentState = "failed"
)

func StateOf(s DocumentStatus) DocumentState {
	switch s {
	case DocumentStatusUploaded:
		return DocumentStateUploaded
	case DocumentStatusProcessing:
		return DocumentStateProcessing
	case DocumentStatusCompleted:
		return DocumentStateCompleted
	case DocumentStatusFailed:
		return DocumentStateFailed
	default:
		return DocumentStateNotFound
	}
}

// CountsAsExisting is the single definition of "a usable document exists".
// Failed uploads stay listed but do not count.
func CountsAsExisting(s DocumentState) bool {
	switch s {
	case DocumentStateUploaded, DocumentStateProcessing, DocumentStateCompleted:
		return true
	default:
		return false
	}
}

// SelectCurrent picks the document queries run against from a list ordered
// newest first: the newest one that counts as existing, otherwise the newest
// failed one, otherwise nil.
func SelectCurrent(newestFirst []*Document) *Document {
	var failed *Document
	for _, d := range newestFirst {
		if d == nil {
			continue
		}
		if CountsAsExisting(d.State()) {
			return d
		}
		if failed == nil {
			failed = d
		}
	}
	return failed
}
