package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

const maxRecordErrorBytes = 512

// RunRecord summarizes one pipeline run for the run journal.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	OK         bool      `json:"ok"`
	Code       string    `json:"code,omitempty"`
	Error      string    `json:"error,omitempty"`
	// Set when Error was cut to maxRecordErrorBytes.
	ErrorTruncated bool     `json:"error_truncated,omitempty"`
	ErrorBytes     int      `json:"error_bytes,omitempty"`
	ErrorSHA256    string   `json:"error_sha256,omitempty"`
	Path           string   `json:"path,omitempty"`
	SizeBytes      int      `json:"size_bytes,omitempty"`
	Price          string   `json:"price,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// RunRecorder receives a record for every run that passed validation.
type RunRecorder interface {
	Record(RunRecord) error
}

func newRunRecord(runID string, req CaptureRequest, start, end time.Time, res Result, err error) RunRecord {
	rec := RunRecord{
		RunID:      runID,
		Symbol:     req.Symbol,
		Timeframe:  req.Timeframe,
		StartedAt:  start.UTC(),
		DurationMS: end.Sub(start).Milliseconds(),
		OK:         err == nil,
		Path:       res.Path,
		SizeBytes:  res.Meta.SizeBytes,
		Price:      res.Meta.Price,
	}
	for _, w := range res.Warnings {
		rec.Warnings = append(rec.Warnings, w.Error())
	}
	if err != nil {
		var coded *CodedError
		if errors.As(err, &coded) {
			rec.Code = coded.Code
		}
		rec.Error, rec.ErrorTruncated, rec.ErrorBytes, rec.ErrorSHA256 = truncateStringBytes(err.Error(), maxRecordErrorBytes)
	}
	return rec
}

func truncateBytes(in []byte, maxBytes int) ([]byte, bool, int, string) {
	if maxBytes <= 0 || len(in) <= maxBytes {
		return in, false, len(in), ""
	}
	sum := sha256.Sum256(in)
	return in[:maxBytes], true, len(in), hex.EncodeToString(sum[:])
}

func truncateStringBytes(s string, maxBytes int) (string, bool, int, string) {
	out, truncated, n, sum := truncateBytes([]byte(s), maxBytes)
	return string(out), truncated, n, sum
}
