package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// New creates an empty report with defaults.
func New(profileName string) *Report {
	return &Report{
		Version:     SupportedReportVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Profile:     profileName,
	}
}

// Add appends an image record.
func (r *Report) Add(img Image) {
	r.Images = append(r.Images, img)
}

// ComputeStats recalculates aggregate statistics from image records.
// File sizes are left untouched.
func (r *Report) ComputeStats() {
	s := Stats{
		InputFileBytes:  r.Stats.InputFileBytes,
		OutputFileBytes: r.Stats.OutputFileBytes,
	}
	s.TotalImages = len(r.Images)
	for _, img := range r.Images {
		s.TotalInputBytes += img.Original.Size
		switch img.Status {
		case StatusRecompressed:
			s.Recompressed++
			s.TotalOutputBytes += img.Result.Size
		case StatusSkipped:
			s.Skipped++
			s.TotalOutputBytes += img.Original.Size
		case StatusKept:
			s.Kept++
			s.TotalOutputBytes += img.Original.Size
		default:
			s.Failed++
			s.TotalOutputBytes += img.Original.Size
		}
	}
	r.Stats = s
}

// Failures returns the records of images that could not be processed.
func (r *Report) Failures() []Image {
	var out []Image
	for _, img := range r.Images {
		if img.Status == StatusFailed {
			out = append(out, img)
		}
	}
	return out
}

// WriteJSON serializes the report to a JSON file.
func WriteJSON(r *Report, path string) error {
	r.ComputeStats()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON loads a report written by WriteJSON.
func ReadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	if r.Version != SupportedReportVersion {
		return nil, fmt.Errorf("unsupported report version: %d", r.Version)
	}
	return &r, nil
}
