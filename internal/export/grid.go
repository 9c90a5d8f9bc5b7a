package export

import (
	"fmt"
	"io"

	"deskbook/internal/calendar"
	"deskbook/internal/models"
)

// SheetName is the name of the grid sheet.
const SheetName = "Desks"

// AvailableLabel fills cells of unbooked desks.
const AvailableLabel = "Available"

// WriteGrid writes one row per date and one column per desk. Booked cells hold the
// employee name.
func WriteGrid(wr io.Writer, desks []models.Desk, dates []calendar.WeekDate) error {
	w := NewWriter()
	defer w.Close()

	if err := w.AddSheet(SheetName); err != nil {
		return err
	}

	header := make([]string, 0, len(desks)+2)
	header = append(header, "Date", "Weekday")
	for _, d := range desks {
		header = append(header, d.Name)
	}
	if err := w.WriteHeader(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, day := range dates {
		row := make([]any, 0, len(desks)+2)
		row = append(row, day.Date, day.Weekday)
		for _, d := range desks {
			status := d.BookingFor(day.Date)
			if status.IsAvailable {
				row = append(row, AvailableLabel)
				continue
			}
			row = append(row, status.EmployeeName)
		}
		if err := w.WriteRow(row); err != nil {
			return fmt.Errorf("write row %s: %w", day.Date, err)
		}
	}

	if err := w.Save(wr); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
