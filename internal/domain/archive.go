package domain

import "time"

// ArchiveFilter selects archived sent records. Nil fields are not applied.
type ArchiveFilter struct {
	Source  *Source
	Success *bool
	From    *time.Time
	To      *time.Time
	Page    int
	Limit   int
}

// Normalize clamps paging to sane bounds.
func (f *ArchiveFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}
