// Package ingest walks a case folder, extracts text signals from every
// document, and assembles the scan findings used for staff triage and
// rule verification.
//
// Extraction runs concurrently per file, but results are reassembled in
// walk order before any downstream analysis, so finding text such as
// "Found 'X' in file.pdf" is reproducible across runs.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rowhouse-labs/docket/pkg/casefile"
	"github.com/rowhouse-labs/docket/pkg/risk"
	"github.com/rowhouse-labs/docket/pkg/signal"
	"github.com/rowhouse-labs/docket/pkg/timeline"
)

// noticePeriodDays bounds the document date span; a wider spread
// suggests coverage gaps worth mapping.
const noticePeriodDays = 90

// minFileBytes flags files small enough to be truncated uploads.
const minFileBytes = 1024

// scanExtensions are the file types worth extracting.
var scanExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".txt":  true,
	".doc":  true,
	".docx": true,
}

// requiredTypes are the document types every case folder should show.
var requiredTypes = []string{
	signal.DocTypeDeathCertificate,
	signal.DocTypeLease,
	signal.DocTypeBankStatement,
}

// TextReader extracts text from a document. Implementations wrap OCR or
// PDF tooling; the scanner treats extraction failure as absent text,
// never as a fatal scan error.
type TextReader interface {
	ExtractText(path string, data []byte) (string, error)
}

// PlainTextReader reads .txt files directly and yields no text for
// binary formats. It is the default when no OCR collaborator is wired.
type PlainTextReader struct{}

func (PlainTextReader) ExtractText(path string, data []byte) (string, error) {
	if strings.ToLower(filepath.Ext(path)) == ".txt" {
		return string(data), nil
	}
	return "", nil
}

// DocumentScan is the per-file scan result.
type DocumentScan struct {
	Filename    string           `json:"filename"`
	Path        string           `json:"path"`
	SizeBytes   int64            `json:"size_bytes"`
	ModTime     time.Time        `json:"mod_time"`
	ContentHash string           `json:"content_hash,omitempty"`
	Signals     signal.SignalSet `json:"signals"`
	RedFlags    []string         `json:"red_flags,omitempty"`

	// Text is the extracted body, kept for case assembly but excluded
	// from serialized scans.
	Text string `json:"-"`
}

// CaseScan is the folder-level scan result.
type CaseScan struct {
	ScanID            string         `json:"scan_id"`
	ScanDate          time.Time      `json:"scan_date"`
	Folder            string         `json:"folder"`
	FilesFound        int            `json:"files_found"`
	Documents         []DocumentScan `json:"documents"`
	RedFlags          []string       `json:"red_flags"`
	DatesFound        []string       `json:"dates_found,omitempty"`
	DetectedTypes     []string       `json:"detected_types,omitempty"`
	MissingCategories []string       `json:"missing_categories,omitempty"`
	TimelineIssues    []string       `json:"timeline_issues,omitempty"`
	InternalScore     int            `json:"internal_score"`
	RecommendedFocus  []string       `json:"recommended_focus,omitempty"`
}

// SignalSets returns the per-document signal sets in walk order.
func (cs *CaseScan) SignalSets() []signal.SignalSet {
	sets := make([]signal.SignalSet, 0, len(cs.Documents))
	for _, d := range cs.Documents {
		sets = append(sets, d.Signals)
	}
	return sets
}

// ToCase materializes a succession case from the scan. Each scanned
// file becomes one document labeled by its filename.
func (cs *CaseScan) ToCase(caseID, buildingID string) *casefile.SuccessionCase {
	docs := make([]casefile.Document, 0, len(cs.Documents))
	for _, d := range cs.Documents {
		docs = append(docs, casefile.Document{
			DocumentType:  d.Filename,
			ContentHash:   d.ContentHash,
			UploadDate:    d.ModTime,
			Source:        d.Path,
			ExtractedText: d.Text,
		})
	}
	return &casefile.SuccessionCase{
		CaseID:     caseID,
		BuildingID: buildingID,
		Documents:  docs,
	}
}

// Scanner walks case folders and extracts signals.
type Scanner struct {
	extractor   *signal.Extractor
	reader      TextReader
	clock       func() time.Time
	limiter     *rate.Limiter
	concurrency int
}

// NewScanner creates a scanner over the given extractor with plain-text
// reading, unlimited rate, and modest concurrency.
func NewScanner(extractor *signal.Extractor) *Scanner {
	return &Scanner{
		extractor:   extractor,
		reader:      PlainTextReader{},
		clock:       time.Now,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		concurrency: 4,
	}
}

// WithReader wires an extraction collaborator (OCR, PDF text).
func (s *Scanner) WithReader(r TextReader) *Scanner {
	s.reader = r
	return s
}

// WithClock overrides the clock for deterministic testing.
func (s *Scanner) WithClock(clock func() time.Time) *Scanner {
	s.clock = clock
	return s
}

// WithConcurrency bounds parallel file extraction.
func (s *Scanner) WithConcurrency(n int) *Scanner {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// WithRateLimit throttles file reads to n per second, protecting shared
// OCR backends.
func (s *Scanner) WithRateLimit(n float64) *Scanner {
	if n > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(n), 1)
	}
	return s
}

// ScanFolder walks the folder and produces the case scan. The walk is
// lexical, extraction is concurrent, and results are reassembled in
// walk order.
func (s *Scanner) ScanFolder(ctx context.Context, folder string) (*CaseScan, error) {
	if _, err := os.Stat(folder); err != nil {
		return nil, fmt.Errorf("folder not found: %s", folder)
	}

	var paths []string
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if scanExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk failed: %w", err)
	}

	docs := make([]DocumentScan, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				return err
			}
			docs[i] = s.scanFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scan := &CaseScan{
		ScanID:     uuid.NewString(),
		ScanDate:   s.clock(),
		Folder:     folder,
		FilesFound: len(docs),
		Documents:  docs,
		RedFlags:   []string{},
	}
	for _, d := range docs {
		scan.RedFlags = append(scan.RedFlags, d.RedFlags...)
		scan.DatesFound = append(scan.DatesFound, d.Signals.DateStrings...)
	}
	scan.DetectedTypes = signal.Merge(scan.SignalSets()...).DocumentTypes

	s.postAnalysis(scan)

	timelineIssue := len(scan.TimelineIssues) > 0
	scan.RecommendedFocus = risk.Recommend(scan.SignalSets(), scan.DetectedTypes, timelineIssue)
	scan.InternalScore = risk.Aggregate(scan.SignalSets(), scan.DetectedTypes, timelineIssue)

	return scan, nil
}

// scanFile reads and analyzes a single file. Failures become red flags
// on the document, never scan errors.
func (s *Scanner) scanFile(path string) DocumentScan {
	name := filepath.Base(path)
	doc := DocumentScan{Filename: name, Path: path}

	info, err := os.Stat(path)
	if err != nil {
		doc.RedFlags = append(doc.RedFlags, fmt.Sprintf("ERROR: Could not analyze %s: %s", name, err))
		return doc
	}
	doc.SizeBytes = info.Size()
	doc.ModTime = info.ModTime()

	data, err := os.ReadFile(path)
	if err != nil {
		doc.RedFlags = append(doc.RedFlags, fmt.Sprintf("ERROR: Could not analyze %s: %s", name, err))
		return doc
	}

	text, err := s.reader.ExtractText(path, data)
	if err != nil {
		doc.RedFlags = append(doc.RedFlags, fmt.Sprintf("ERROR: Could not analyze %s: %s", name, err))
		text = ""
	}

	doc.Text = text
	doc.ContentHash = casefile.HashContent(data)
	doc.Signals = s.extractor.Extract(text)

	for _, m := range doc.Signals.FlagMatches {
		doc.RedFlags = append(doc.RedFlags,
			fmt.Sprintf("%s: Found '%s' in %s", strings.ToUpper(m.Category), m.Pattern, name))
	}
	if doc.SizeBytes < minFileBytes {
		doc.RedFlags = append(doc.RedFlags,
			fmt.Sprintf("FILE_SIZE: %s is very small (%d bytes) - may be incomplete", name, doc.SizeBytes))
	}

	return doc
}

// postAnalysis fills the cross-document findings.
func (s *Scanner) postAnalysis(scan *CaseScan) {
	merged := signal.Merge(scan.SignalSets()...)

	hasTaxDocs := false
	for _, dt := range scan.DetectedTypes {
		if strings.Contains(strings.ToLower(dt), signal.DocTypeTaxReturn) {
			hasTaxDocs = true
			break
		}
	}
	if merged.HasFlag(signal.FlagForeignAccount) && !hasTaxDocs {
		scan.MissingCategories = append(scan.MissingCategories,
			"TAX_DOCUMENTS: Foreign accounts detected but no Schedule B/1040 found")
	}

	dates := timeline.Parse(scan.DatesFound)
	if span, ok := timeline.SpanOf(dates); ok && span.TotalDays > noticePeriodDays {
		scan.TimelineIssues = append(scan.TimelineIssues,
			fmt.Sprintf("TIMELINE: %d days between earliest and latest document - check for gaps", span.TotalDays))
	}

	seen := make(map[string]bool, len(scan.DetectedTypes))
	for _, dt := range scan.DetectedTypes {
		seen[dt] = true
	}
	for _, required := range requiredTypes {
		if !seen[required] {
			scan.MissingCategories = append(scan.MissingCategories,
				fmt.Sprintf("MISSING_DOC: %s not detected", strings.ToUpper(required)))
		}
	}
}
