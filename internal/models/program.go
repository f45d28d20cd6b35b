package models

// ProgramFormatOneOnOne is the only program format that can be booked by slot.
const ProgramFormatOneOnOne = "1:1"

// Program is a read-only view of the catalog entry a session is booked under.
type Program struct {
	ID       string `db:"id" json:"id"`
	MentorID string `db:"mentor_id" json:"mentorId"`
	Title    string `db:"title" json:"title"`
	Format   string `db:"format" json:"format"`
}

// IsOneOnOne reports whether the program books individual slots.
func (p *Program) IsOneOnOne() bool {
	return p != nil && p.Format == ProgramFormatOneOnOne
}
