package refdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *Snapshot {
	doctors := []Doctor{
		{ID: "D1", Name: "د. سارة الحربي", Specialty: "جلدية", BranchID: "B1", Days: "Sun-Thu", TimeFrom: "09:00", TimeTo: "17:00"},
		{ID: "D2", Name: "د. خالد العتيبي", Specialty: "أسنان", BranchID: "B2", Days: "Sat-Wed", TimeFrom: "10:00", TimeTo: "18:00"},
	}
	branches := []Branch{
		{ID: "B1", Name: "فرع العليا", City: "الرياض", HoursWeekdays: "9-5"},
		{ID: "B2", Name: "فرع الملقا", City: "الرياض", HoursWeekdays: "10-6"},
	}
	services := []Service{
		{ID: "S1", Name: "تنظيف الأسنان", Specialty: "أسنان", PriceSAR: "250"},
		{ID: "S2", Name: "تقشير كيميائي", Specialty: "جلدية", PriceSAR: "400"},
	}
	availability := []Availability{
		{Date: "2025-06-04", DoctorID: "D1", BranchID: "B1", Available: true, Note: "back after 3pm"},
		{Date: "2025-06-04", DoctorID: "D2", BranchID: "B2", Available: false, Note: "on leave"},
	}
	return NewSnapshot(doctors, branches, services, availability)
}

func TestSnapshotLookups(t *testing.T) {
	s := testSnapshot()

	d, ok := s.Doctor("D1")
	require.True(t, ok)
	assert.Equal(t, "د. سارة الحربي", d.Name)

	b, ok := s.Branch("B2")
	require.True(t, ok)
	assert.Equal(t, "فرع الملقا", b.Name)

	svc, ok := s.Service("S2")
	require.True(t, ok)
	assert.Equal(t, "400", svc.PriceSAR)

	_, ok = s.Doctor("nope")
	assert.False(t, ok)
}

func TestSnapshotAvailabilityOn(t *testing.T) {
	s := testSnapshot()

	a, ok := s.AvailabilityOn("2025-06-04", "D1")
	require.True(t, ok)
	assert.True(t, a.Available)
	assert.Equal(t, "back after 3pm", a.Note)

	_, ok = s.AvailabilityOn("2025-06-05", "D1")
	assert.False(t, ok, "no row for that date")
}

func TestSnapshotFuzzyMatch(t *testing.T) {
	s := testSnapshot()

	d, ok := s.MatchDoctor("د سارة الحربي")
	require.True(t, ok)
	assert.Equal(t, "D1", d.ID)

	// Partial name contained in the full name.
	d, ok = s.MatchDoctor("سارة الحربي")
	require.True(t, ok)
	assert.Equal(t, "D1", d.ID)

	svc, ok := s.MatchService("تنظيف اسنان")
	require.True(t, ok)
	assert.Equal(t, "S1", svc.ID)

	br, ok := s.MatchBranch("العليا")
	require.True(t, ok)
	assert.Equal(t, "B1", br.ID)

	_, ok = s.MatchDoctor("محمد الدوسري")
	assert.False(t, ok, "unknown name must not match")

	_, ok = s.MatchService("")
	assert.False(t, ok)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("botox", "botox"))
	assert.Equal(t, 0.0, Similarity("", "botox"))
	assert.Greater(t, Similarity("تنظيف اسنان", "تنظيف الاسنان"), MatchThreshold)
	assert.Less(t, Similarity("botox", "filler"), MatchThreshold)
}
