package models

import "time"

type Contact struct {
	ID             int64
	FirstName      string
	LastName       string
	Email          string
	PhoneNumber    string
	Birthday       *time.Time
	AdditionalInfo *string
	UserID         int64
}

// ContactFilter holds optional case-insensitive substring filters. Empty
// fields do not constrain the result.
type ContactFilter struct {
	FirstName string
	LastName  string
	Email     string
}

// ContactUpdate carries a partial update; nil fields are left untouched.
// ClearBirthday and ClearAdditionalInfo set the column to NULL.
type ContactUpdate struct {
	FirstName           *string
	LastName            *string
	Email               *string
	PhoneNumber         *string
	Birthday            *time.Time
	ClearBirthday       bool
	AdditionalInfo      *string
	ClearAdditionalInfo bool
}

// Empty reports whether the update changes nothing.
func (u ContactUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil && u.PhoneNumber == nil &&
		u.Birthday == nil && !u.ClearBirthday && u.AdditionalInfo == nil && !u.ClearAdditionalInfo
}

// Apply returns a copy of c with the update applied.
func (u ContactUpdate) Apply(c Contact) Contact {
	if u.FirstName != nil {
		c.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		c.LastName = *u.LastName
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.PhoneNumber != nil {
		c.PhoneNumber = *u.PhoneNumber
	}
	if u.ClearBirthday {
		c.Birthday = nil
	} else if u.Birthday != nil {
		b := *u.Birthday
		c.Birthday = &b
	}
	if u.ClearAdditionalInfo {
		c.AdditionalInfo = nil
	} else if u.AdditionalInfo != nil {
		s := *u.AdditionalInfo
		c.AdditionalInfo = &s
	}
	return c
}

// ContactPage is one page of an offset-paginated listing. TotalCount
// counts the whole filtered set.
type ContactPage struct {
	TotalCount int64
	Skip       int
	Limit      int
	Contacts   []Contact
}

// BirthdayWindow is a month/day range compared field by field, without
// calendar arithmetic.
type BirthdayWindow struct {
	FromMonth int
	FromDay   int
	ToMonth   int
	ToDay     int
}

// NewBirthdayWindow spans from today's month/day to the month/day of
// today plus days.
func NewBirthdayWindow(today time.Time, days int) BirthdayWindow {
	until := today.AddDate(0, 0, days)
	return BirthdayWindow{
		FromMonth: int(today.Month()),
		FromDay:   today.Day(),
		ToMonth:   int(until.Month()),
		ToDay:     until.Day(),
	}
}

// Matches reports whether birthday falls in the window: same month as the
// start and on or after its day, or same month as the end and on or before
// its day.
func (w BirthdayWindow) Matches(birthday time.Time) bool {
	m, d := int(birthday.Month()), birthday.Day()
	return (m == w.FromMonth && d >= w.FromDay) || (m == w.ToMonth && d <= w.ToDay)
}
