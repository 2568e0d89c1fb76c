package casefile

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ts(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestDaysSinceVacancy(t *testing.T) {
	c := &SuccessionCase{
		CaseID:         "case-001",
		VacancyDate:    ts("2024-01-01"),
		SubmissionDate: ts("2024-03-15"),
	}

	days, ok, err := c.DaysSinceVacancy()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 74, days)
}

func TestDaysSinceVacancyMissingDates(t *testing.T) {
	cases := []*SuccessionCase{
		{CaseID: "no-dates"},
		{CaseID: "no-submission", VacancyDate: ts("2024-01-01")},
		{CaseID: "no-vacancy", SubmissionDate: ts("2024-01-01")},
	}
	for _, c := range cases {
		days, ok, err := c.DaysSinceVacancy()
		require.NoError(t, err, c.CaseID)
		require.False(t, ok, c.CaseID)
		require.Zero(t, days, c.CaseID)
	}
}

func TestDaysSinceVacancyNegativeSpanIsDataQualityError(t *testing.T) {
	c := &SuccessionCase{
		CaseID:         "case-002",
		VacancyDate:    ts("2024-06-01"),
		SubmissionDate: ts("2024-05-01"),
	}

	_, ok, err := c.DaysSinceVacancy()
	require.False(t, ok)

	var dq *DataQualityError
	require.True(t, errors.As(err, &dq))
	require.Equal(t, "case-002", dq.CaseID)
	require.Contains(t, dq.Error(), "predates")
}

func TestVerifyIntegrity(t *testing.T) {
	good := Document{ContentHash: HashContent([]byte("death certificate scan"))}
	require.True(t, good.VerifyIntegrity())

	require.False(t, (&Document{ContentHash: "abc123"}).VerifyIntegrity())
	require.False(t, (&Document{ContentHash: string(make([]byte, 64))}).VerifyIntegrity())
}

func TestIsExpired(t *testing.T) {
	now := *ts("2025-01-01")

	fresh := Document{UploadDate: *ts("2024-06-01")}
	require.False(t, fresh.IsExpired(now, DefaultMaxDocumentAgeDays))

	stale := Document{UploadDate: *ts("2023-06-01")}
	require.True(t, stale.IsExpired(now, DefaultMaxDocumentAgeDays))

	undated := Document{}
	require.False(t, undated.IsExpired(now, DefaultMaxDocumentAgeDays))
}

func TestDocumentTypes(t *testing.T) {
	c := &SuccessionCase{Documents: []Document{
		{DocumentType: "Death Certificate"},
		{DocumentType: "Utility Bill - Con Ed"},
	}}
	require.Equal(t, []string{"Death Certificate", "Utility Bill - Con Ed"}, c.DocumentTypes())
}
