package report

// Report is the run-level record of one compress invocation.
type Report struct {
	Version     int     `json:"version"`
	GeneratedAt string  `json:"generated_at"`
	Profile     string  `json:"profile"`
	Input       string  `json:"input"`
	InputHash   string  `json:"input_hash,omitempty"` // xxhash64 of the input file
	Output      string  `json:"output"`
	Images      []Image `json:"images"`
	Stats       Stats   `json:"stats"`
}

// Image describes what happened to one embedded image object.
type Image struct {
	Index    int          `json:"index"` // 1-based processing order
	ID       int          `json:"id"`    // container object number
	MaskID   int          `json:"mask_id,omitempty"`
	Status   string       `json:"status"` // "recompressed", "skipped", "failed", "kept"
	Original OriginalInfo `json:"original"`
	Result   *ResultInfo  `json:"result,omitempty"`
	Actions  []string     `json:"actions,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// Image statuses beyond the pipeline outcomes.
const (
	StatusRecompressed = "recompressed"
	StatusSkipped      = "skipped"
	StatusFailed       = "failed"
	StatusKept         = "kept" // re-encoded stream was not smaller, original kept
)

// OriginalInfo holds metadata about the source stream.
type OriginalInfo struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	ColorSpace   string `json:"color_space"`
	SourceFilter string `json:"source_filter,omitempty"`
	Size         int64  `json:"size"` // raw stream bytes, mask included
	HasMask      bool   `json:"has_mask"`
}

// ResultInfo describes the stream written back to the container.
type ResultInfo struct {
	Format      string `json:"format"` // "jpeg" or "png"
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Size        int64  `json:"size"`
	Hash        string `json:"hash"` // first 16 hex chars of xxhash64
	MaskDropped bool   `json:"mask_dropped,omitempty"`
	ReusedFrom  int    `json:"reused_from,omitempty"` // object whose result was reused
}

// Stats aggregates run metrics.
type Stats struct {
	TotalImages      int   `json:"total_images"`
	Recompressed     int   `json:"recompressed"`
	Skipped          int   `json:"skipped"`
	Failed           int   `json:"failed"`
	Kept             int   `json:"kept,omitempty"`
	TotalInputBytes  int64 `json:"total_input_bytes"`  // image streams before
	TotalOutputBytes int64 `json:"total_output_bytes"` // the same streams after
	InputFileBytes   int64 `json:"input_file_bytes,omitempty"`
	OutputFileBytes  int64 `json:"output_file_bytes,omitempty"`
}

// SupportedReportVersion is the current schema version.
const SupportedReportVersion = 1
