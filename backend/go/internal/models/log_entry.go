package models

// LogEntry is the shape of one structured log line emitted by the indexer.
// Fields map one to one onto the JSON keys written by pkg/logger.
type LogEntry struct {
	// ServiceName names the component that produced the entry, e.g. "documind-indexer".
	ServiceName string `json:"service_name"`

	// RunID ties together every entry of one indexing run.
	RunID string `json:"run_id,omitempty"`

	// Document identifies the file the entry is about, when there is one.
	Document *DocumentInfo `json:"document,omitempty"`

	// Error is set on entries at error level.
	Error *ErrorInfo `json:"error,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`
}

// DocumentInfo locates a document inside a run.
type DocumentInfo struct {
	Path    string `json:"path"`
	DocID   string `json:"doc_id,omitempty"`
	DocType string `json:"doc_type,omitempty"`
	Source  string `json:"source,omitempty"`
	State   string `json:"state,omitempty"`
}

// ErrorInfo carries a classified error.
type ErrorInfo struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`  // taxonomy name, e.g. "LoadError"
	Stage   string `json:"stage,omitempty"` // pipeline stage, e.g. "embed"
}
