// Package ingest turns raw sources (bank exports, email receipts, a Gmail
// mailbox) into canonical candidate records.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"subtrack/internal/core"
)

const (
	SourceEmail = "email"
	SourceCSV   = "csv"
	SourceGmail = "gmail"
)

// Sources lists the recognised scan sources.
func Sources() []string {
	return []string{SourceEmail, SourceCSV, SourceGmail}
}

// ScanRequest selects a source and carries its options.
type ScanRequest struct {
	Source string
	// CSV input: inline data wins over FilePath.
	CSVData    string
	FilePath   string
	BankFormat string
	// Gmail options.
	Query      string
	MaxResults int64
}

// Scanner dispatches a ScanRequest to the matching normalizer.
type Scanner struct {
	email *EmailParser
	csv   *CSVParser
	gmail *GmailSource
}

type ScannerOption func(*Scanner)

// WithGmail enables the gmail source.
func WithGmail(g *GmailSource) ScannerOption {
	return func(s *Scanner) { s.gmail = g }
}

func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{email: NewEmailParser(), csv: NewCSVParser()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collect returns the candidates found in the requested source. Unknown
// sources fail with SOURCE_INVALID naming the value.
func (s *Scanner) Collect(ctx context.Context, req ScanRequest) ([]core.Candidate, error) {
	switch strings.ToLower(strings.TrimSpace(req.Source)) {
	case SourceEmail:
		out := make([]core.Candidate, 0, len(MockEmails()))
		for _, text := range MockEmails() {
			out = append(out, s.email.Parse(text))
		}
		return out, nil
	case SourceCSV:
		return s.collectCSV(req)
	case SourceGmail:
		if s.gmail == nil {
			return nil, core.NewDomainError(core.ErrorCodeSourceUnavailable, "gmail source is not configured")
		}
		return s.gmail.Fetch(ctx, req.Query, req.MaxResults)
	default:
		return nil, core.InvalidSource(req.Source).WithDetail("supported", Sources())
	}
}

func (s *Scanner) collectCSV(req ScanRequest) ([]core.Candidate, error) {
	var r io.Reader
	switch {
	case req.CSVData != "":
		r = strings.NewReader(req.CSVData)
	case req.FilePath != "":
		f, err := os.Open(req.FilePath)
		if err != nil {
			return nil, core.WrapError(core.ErrorCodeValidationFailed, "cannot open csv file", err).
				WithDetail("file_path", req.FilePath)
		}
		defer f.Close()
		r = f
	default:
		return []core.Candidate{}, nil
	}
	res, err := s.csv.Parse(r, req.BankFormat)
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return res.Candidates, nil
}
