package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is the identity record everything else references. Patients are
// never deleted, only hidden.
type Patient struct {
	ID          uuid.UUID `db:"id" json:"id"`
	MRN         string    `db:"mrn" json:"mrn"`
	FullName    string    `db:"full_name" json:"full_name"`
	DateOfBirth time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender      string    `db:"gender" json:"gender"`
	Contact     *string   `db:"contact" json:"contact,omitempty"`
	Hidden      bool      `db:"hidden" json:"hidden"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Age returns the patient's age in whole years at the given date.
func (p *Patient) Age(at time.Time) int {
	years := at.Year() - p.DateOfBirth.Year()
	anniversary := p.DateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	return years
}
