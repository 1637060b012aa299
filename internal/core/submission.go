package core

import "time"

// Submission is the audit record of one computed form submission: the three
// section results plus the aggregate total, as rendered to the user.
type Submission struct {
	ID        int64
	CreatedAt time.Time
	Results   []SectionResult
	Total     TotalResult
}
