package refdata

import (
	"fmt"
	"strings"
)

// Expected sheet columns. Extra columns are tolerated; missing ones are a
// load error so a silently truncated export never reaches the router.
var (
	doctorColumns = []string{
		"doctor_id", "doctor_name", "specialty", "branch_id", "days",
		"time_from", "time_to", "phone", "email", "experience_years",
		"qualifications", "notes",
	}
	branchColumns = []string{
		"branch_id", "branch_name", "address", "city", "phone", "email",
		"hours_weekdays", "hours_weekend", "maps_url", "features",
		"parking", "accessibility",
	}
	serviceColumns = []string{
		"service_id", "service_name", "specialty", "description", "price_sar",
		"price_range", "available_branch_ids", "duration_minutes",
		"preparation_required", "popular",
	}
	availabilityColumns = []string{
		"date", "doctor_id", "branch_id", "available", "note", "last_updated",
	}
)

func validateColumns(rows []map[string]string, expected []string, sheet string) error {
	if len(rows) == 0 {
		return nil
	}
	var missing []string
	for _, col := range expected {
		if _, ok := rows[0][col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("refdata: sheet %s missing columns: %s", sheet, strings.Join(missing, ", "))
	}
	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "نعم", "yes", "true", "1", "y", "ن":
		return true
	}
	return false
}

func parseList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func field(row map[string]string, key string) string {
	return strings.TrimSpace(row[key])
}

func buildDoctors(rows []map[string]string) ([]Doctor, error) {
	if err := validateColumns(rows, doctorColumns, "doctors"); err != nil {
		return nil, err
	}
	out := make([]Doctor, 0, len(rows))
	for _, row := range rows {
		out = append(out, Doctor{
			ID:              field(row, "doctor_id"),
			Name:            field(row, "doctor_name"),
			Specialty:       field(row, "specialty"),
			BranchID:        field(row, "branch_id"),
			Days:            field(row, "days"),
			TimeFrom:        field(row, "time_from"),
			TimeTo:          field(row, "time_to"),
			Phone:           field(row, "phone"),
			Email:           field(row, "email"),
			ExperienceYears: field(row, "experience_years"),
			Qualifications:  field(row, "qualifications"),
			Notes:           field(row, "notes"),
		})
	}
	return out, nil
}

func buildBranches(rows []map[string]string) ([]Branch, error) {
	if err := validateColumns(rows, branchColumns, "branches"); err != nil {
		return nil, err
	}
	out := make([]Branch, 0, len(rows))
	for _, row := range rows {
		out = append(out, Branch{
			ID:            field(row, "branch_id"),
			Name:          field(row, "branch_name"),
			Address:       field(row, "address"),
			City:          field(row, "city"),
			Phone:         field(row, "phone"),
			Email:         field(row, "email"),
			HoursWeekdays: field(row, "hours_weekdays"),
			HoursWeekend:  field(row, "hours_weekend"),
			MapsURL:       field(row, "maps_url"),
			Features:      parseList(row["features"]),
			Parking:       parseBool(row["parking"]),
			Accessibility: parseBool(row["accessibility"]),
		})
	}
	return out, nil
}

func buildServices(rows []map[string]string) ([]Service, error) {
	if err := validateColumns(rows, serviceColumns, "services"); err != nil {
		return nil, err
	}
	out := make([]Service, 0, len(rows))
	for _, row := range rows {
		out = append(out, Service{
			ID:                  field(row, "service_id"),
			Name:                field(row, "service_name"),
			Specialty:           field(row, "specialty"),
			Description:         field(row, "description"),
			PriceSAR:            field(row, "price_sar"),
			PriceRange:          field(row, "price_range"),
			BranchIDs:           parseList(row["available_branch_ids"]),
			DurationMinutes:     field(row, "duration_minutes"),
			PreparationRequired: parseBool(row["preparation_required"]),
			Popular:             parseBool(row["popular"]),
		})
	}
	return out, nil
}

func buildAvailability(rows []map[string]string) ([]Availability, error) {
	if err := validateColumns(rows, availabilityColumns, "availability"); err != nil {
		return nil, err
	}
	out := make([]Availability, 0, len(rows))
	for _, row := range rows {
		out = append(out, Availability{
			Date:        field(row, "date"),
			DoctorID:    field(row, "doctor_id"),
			BranchID:    field(row, "branch_id"),
			Available:   parseBool(row["available"]),
			Note:        field(row, "note"),
			LastUpdated: field(row, "last_updated"),
		})
	}
	return out, nil
}
