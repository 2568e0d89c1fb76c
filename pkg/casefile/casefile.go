// Package casefile defines the succession-case data model shared by the
// scoring, verification, risk, and assembly layers.
//
// Values are constructed once at the ingestion boundary and treated as
// immutable afterward; every evaluation produces fresh output and never
// writes back into a case.
package casefile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DefaultMaxDocumentAgeDays is the staleness horizon for submitted documents.
const DefaultMaxDocumentAgeDays = 365

// Document is one submitted item in a case file. ExtractedText carries the
// already-extracted plain text (OCR happens upstream); a failed extraction
// arrives as an empty string, never as an error.
type Document struct {
	DocumentType  string            `json:"document_type"`
	ContentHash   string            `json:"content_hash"` // sha256 hex, integrity/display only
	UploadDate    time.Time         `json:"upload_date"`
	Source        string            `json:"source"`
	ExtractedText string            `json:"extracted_text,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// VerifyIntegrity reports whether ContentHash is a well-formed sha256 digest
// (64 lowercase hex characters). It says nothing about the original bytes,
// which the engine never sees.
func (d *Document) VerifyIntegrity() bool {
	if len(d.ContentHash) != 64 {
		return false
	}
	_, err := hex.DecodeString(d.ContentHash)
	return err == nil
}

// IsExpired reports whether the document was uploaded more than maxAgeDays
// before now.
func (d *Document) IsExpired(now time.Time, maxAgeDays int) bool {
	if d.UploadDate.IsZero() {
		return false
	}
	return now.Sub(d.UploadDate) > time.Duration(maxAgeDays)*24*time.Hour
}

// HashContent returns the sha256 hex digest used for ContentHash.
func HashContent(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SuccessionCase is one applicant's document set under review. BuildingID is
// a borough-block-lot tax code, never a street address; CaseID is an opaque
// identifier, never a personal one. A case exclusively owns its documents.
type SuccessionCase struct {
	CaseID         string     `json:"case_id"`
	BuildingID     string     `json:"building_id"`
	Documents      []Document `json:"documents"`
	VacancyDate    *time.Time `json:"vacancy_date,omitempty"`
	SubmissionDate *time.Time `json:"submission_date,omitempty"`
}

// DaysSinceVacancy returns the whole days between vacancy and submission.
// ok is false when either date is absent — that is missing signal, not an
// error. A negative span is a logical contradiction and returns a
// *DataQualityError; it is never coerced to zero.
func (c *SuccessionCase) DaysSinceVacancy() (days int, ok bool, err error) {
	if c.VacancyDate == nil || c.SubmissionDate == nil {
		return 0, false, nil
	}
	days = int(c.SubmissionDate.Sub(*c.VacancyDate).Hours() / 24)
	if days < 0 {
		return 0, false, &DataQualityError{
			CaseID: c.CaseID,
			Field:  "submission_date",
			Detail: fmt.Sprintf("submission %s predates vacancy %s",
				c.SubmissionDate.Format("2006-01-02"), c.VacancyDate.Format("2006-01-02")),
		}
	}
	return days, true, nil
}

// DocumentTypes returns every document's type label in case order.
func (c *SuccessionCase) DocumentTypes() []string {
	types := make([]string, 0, len(c.Documents))
	for _, d := range c.Documents {
		types = append(types, d.DocumentType)
	}
	return types
}

// DataQualityError reports a logical contradiction in case input that the
// engine refuses to score around.
type DataQualityError struct {
	CaseID string
	Field  string
	Detail string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("case %s: bad %s: %s", e.CaseID, e.Field, e.Detail)
}
