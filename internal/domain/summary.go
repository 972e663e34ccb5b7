package domain

import "time"

// RunSummary describes one ingest run.
type RunSummary struct {
	Date            string    `json:"date,omitempty"`
	FilesDiscovered int       `json:"files_discovered"`
	FilesWritten    int       `json:"files_written"`
	FilesSkipped    int       `json:"files_skipped"`
	FilesFailed     int       `json:"files_failed"`
	PointsKept      int64     `json:"points_kept"`
	PointsDropped   int64     `json:"points_dropped"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// StartRun returns a summary stamped with the current time.
func StartRun(date string) RunSummary {
	return RunSummary{Date: date, StartedAt: clock.Now().UTC()}
}

// Finish stamps the completion time.
func (s *RunSummary) Finish() {
	s.FinishedAt = clock.Now().UTC()
}

// Duration is zero until the run has finished.
func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Processed is the number of files that reached a terminal state.
func (s RunSummary) Processed() int {
	return s.FilesWritten + s.FilesSkipped + s.FilesFailed
}
