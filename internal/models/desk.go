// Package models holds the desk booking domain types shared by the UI and the booking service.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// DateLayout is the calendar date format used on the wire and as booking map keys.
const DateLayout = "2006-01-02"

// DeskID identifies a desk. The booking service may send it as a JSON number or a JSON
// string; it is written back in the form it arrived in.
type DeskID struct {
	value  string
	number bool
}

// StringID is an id that travels as a JSON string.
func StringID(s string) DeskID { return DeskID{value: s} }

// NumberID is an id that travels as a JSON number.
func NumberID(n int64) DeskID {
	return DeskID{value: strconv.FormatInt(n, 10), number: true}
}

// UnmarshalJSON accepts both `1` and `"1"` and remembers which one it saw.
func (id *DeskID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = DeskID{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("desk id: %w", err)
		}
		*id = StringID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("desk id: %w", err)
	}
	*id = DeskID{value: n.String(), number: true}
	return nil
}

// MarshalJSON writes the id in its original form.
func (id DeskID) MarshalJSON() ([]byte, error) {
	if id.number {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// IsNumber reports whether the id travels as a JSON number.
func (id DeskID) IsNumber() bool { return id.number }

// IsZero reports whether the id is unset.
func (id DeskID) IsZero() bool { return id.value == "" }

// String is the id's text, used as the lookup key for form values.
func (id DeskID) String() string { return id.value }

func isInteger(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// BookingStatus is the state of one desk on one date.
type BookingStatus struct {
	IsAvailable  bool   `json:"isAvailable"`
	EmployeeName string `json:"employee_name"`
}

// Available is the status of every date missing from a desk's booking map.
var Available = BookingStatus{IsAvailable: true}

// Desk is a bookable seat with its per-date bookings.
type Desk struct {
	ID       DeskID                   `json:"id"`
	Name     string                   `json:"name"`
	Bookings map[string]BookingStatus `json:"bookings"`
}

// BookingFor returns the status of the desk on date. A date without an entry is available.
func (d Desk) BookingFor(date string) BookingStatus {
	if status, ok := d.Bookings[date]; ok {
		return status
	}
	return Available
}

// Label is the text shown on the desk's grid cell for date.
func (d Desk) Label(date string) string {
	status := d.BookingFor(date)
	if status.IsAvailable {
		return d.Name
	}
	return status.EmployeeName
}

// Clone returns a deep copy so callers cannot mutate a cached desk.
func (d Desk) Clone() Desk {
	out := Desk{ID: d.ID, Name: d.Name}
	if d.Bookings != nil {
		out.Bookings = make(map[string]BookingStatus, len(d.Bookings))
		for k, v := range d.Bookings {
			out.Bookings[k] = v
		}
	}
	return out
}

// SortDesks orders desks by numeric ID when both IDs are integers, otherwise lexically.
func SortDesks(desks []Desk) {
	sort.SliceStable(desks, func(i, j int) bool {
		a, b := desks[i].ID.value, desks[j].ID.value
		if isInteger(a) && isInteger(b) {
			ai, _ := strconv.ParseInt(a, 10, 64)
			bi, _ := strconv.ParseInt(b, 10, 64)
			return ai < bi
		}
		return a < b
	})
}
