/*
workyear.go - Hire-date anniversary arithmetic

PURPOSE:
  Computes which work year a date falls into, the boundaries of a work
  year, and the next-anniversary display projection. All comparisons use
  exact calendar month/day arithmetic, never a naive 365-day divide, so
  leap years cannot drift the boundary.

WORK YEAR NUMBERING:
  Work year 1 covers [hireDate, hireDate+1y); work year N covers
  [hireDate+(N-1)y, hireDate+Ny). An employee hired Feb 29 has their
  anniversary observed Mar 1 in non-leap years (Go's AddDate behavior).

SEE ALSO:
  - allocation.go: Consumes the work year number
  - chain.go: Orders balance records by work year
*/
package engine

import "time"

// =============================================================================
// WORK YEAR CALCULATION
// =============================================================================

// CalculateWorkYear returns the 1-based work year containing asOf for an
// employee hired on hireDate. Fails with InvalidDateError if asOf precedes
// hireDate. Time-of-day and timezone are ignored; only the calendar date
// matters.
func CalculateWorkYear(hireDate, asOf time.Time) (int, error) {
	hire := dateOnly(hireDate)
	at := dateOnly(asOf)

	if at.Before(hire) {
		return 0, &InvalidDateError{HireDate: hire, AsOf: at}
	}

	// Exact anniversary comparison: count full years elapsed, then +1.
	years := at.Year() - hire.Year()
	anniversary := hire.AddDate(years, 0, 0)
	if at.Before(anniversary) {
		years--
	}
	return years + 1, nil
}

// WorkYearStart returns the first day of the given work year.
func WorkYearStart(hireDate time.Time, workYear int) time.Time {
	return dateOnly(hireDate).AddDate(workYear-1, 0, 0)
}

// WorkYearEnd returns the last day of the given work year (the day before
// the next anniversary).
func WorkYearEnd(hireDate time.Time, workYear int) time.Time {
	return dateOnly(hireDate).AddDate(workYear, 0, 0).AddDate(0, 0, -1)
}

// LeaveYearFor returns the calendar year a work year ends in, used to tag
// balance records for reporting.
func LeaveYearFor(hireDate time.Time, workYear int) int {
	return WorkYearEnd(hireDate, workYear).Year()
}

// =============================================================================
// ANNIVERSARY PROJECTION
// =============================================================================

// Anniversary returns the anniversary display projection for an employee
// as of the given date. Fails with InvalidDateError if asOf precedes the
// hire date.
func Anniversary(hireDate, asOf time.Time) (AnniversaryInfo, error) {
	workYear, err := CalculateWorkYear(hireDate, asOf)
	if err != nil {
		return AnniversaryInfo{}, err
	}

	next := WorkYearStart(hireDate, workYear+1)
	days := int(next.Sub(dateOnly(asOf)).Hours() / 24)

	return AnniversaryInfo{
		HireDate:                 dateOnly(hireDate),
		CurrentWorkYear:          workYear,
		NextAnniversary:          next,
		DaysUntilNextAnniversary: days,
	}, nil
}

// dateOnly truncates to midnight UTC so time-of-day never shifts a
// work-year boundary.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
