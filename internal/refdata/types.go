// Package refdata holds the read-only clinic reference data: doctors,
// branches, services, and date-indexed doctor availability. Snapshots are
// immutable; the provider swaps in a fresh snapshot on each refresh.
package refdata

// Doctor is one row of the doctors sheet.
type Doctor struct {
	ID              string
	Name            string
	Specialty       string
	BranchID        string
	Days            string // recurring weekly schedule, e.g. "Sun-Thu"
	TimeFrom        string
	TimeTo          string
	Phone           string
	Email           string
	ExperienceYears string
	Qualifications  string
	Notes           string
}

// Branch is one row of the branches sheet.
type Branch struct {
	ID            string
	Name          string
	Address       string
	City          string
	Phone         string
	Email         string
	HoursWeekdays string
	HoursWeekend  string
	MapsURL       string
	Features      []string
	Parking       bool
	Accessibility bool
}

// Service is one row of the services sheet.
type Service struct {
	ID                  string
	Name                string
	Specialty           string
	Description         string
	PriceSAR            string
	PriceRange          string
	BranchIDs           []string
	DurationMinutes     string
	PreparationRequired bool
	Popular             bool
}

// Availability is a day-specific override for one doctor. Its Available flag
// and Note are surfaced verbatim; absence of a row for a (date, doctor) pair
// means only the recurring weekly schedule is known.
type Availability struct {
	Date        string // YYYY-MM-DD
	DoctorID    string
	BranchID    string
	Available   bool
	Note        string
	LastUpdated string
}
