package models

// BufferSnapshot is the full text of one open buffer as last reported by the editing surface.
type BufferSnapshot struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	FilePath    string `json:"file_path,omitempty"`
	Content     string `json:"content"`
	Fingerprint uint64 `json:"fingerprint"`
}

// NavigationRequest asks the editor view to reveal a match. It is only relayed, never acted on.
type NavigationRequest struct {
	BufferID string `json:"buffer_id"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}
