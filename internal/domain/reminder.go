package domain

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"time"
)

// Source identifies the producer category of a reminder. It only shapes the
// payload; dispatch logic never branches on it.
type Source string

const (
	SourceChecklist      Source = "checklist"
	SourceKanban         Source = "kanban"
	SourceReminderWidget Source = "reminder-widget"
)

func (s Source) IsValid() bool {
	switch s {
	case SourceChecklist, SourceKanban, SourceReminderWidget:
		return true
	}
	return false
}

// Recipient is the optional addressee of a reminder.
type Recipient struct {
	Email string `json:"email" yaml:"email"`
	Name  string `json:"name,omitempty" yaml:"name"`
}

// WatchItem is one deadline-bearing work item supplied on every watch registration.
type WatchItem struct {
	ItemID    string    `json:"item_id" yaml:"item_id"`
	Text      string    `json:"text" yaml:"text"`
	Deadline  time.Time `json:"deadline" yaml:"deadline"`
	Completed bool      `json:"completed" yaml:"completed"`
}

// WatchConfig registers a cancellable set of deadline timers under WatchID.
// The caller remains the source of truth; the scheduler only keeps a copy
// to support recovery passes.
type WatchConfig struct {
	WatchID   string      `json:"watch_id" yaml:"watch_id"`
	Source    Source      `json:"source" yaml:"source"`
	Title     string      `json:"title" yaml:"title"`
	Items     []WatchItem `json:"items" yaml:"items"`
	Recipient *Recipient  `json:"recipient,omitempty" yaml:"recipient"`
	ShowToast bool        `json:"show_toast" yaml:"show_toast"`
}

func (c *WatchConfig) Validate() error {
	if c.WatchID == "" {
		return ErrInvalidWatchID
	}
	if !c.Source.IsValid() {
		return ErrInvalidSource
	}
	if c.Title == "" {
		return ErrInvalidTitle
	}
	return nil
}

// Clone returns a shallow copy whose Items slice is not shared with c.
func (c WatchConfig) Clone() WatchConfig {
	c.Items = append([]WatchItem(nil), c.Items...)
	return c
}

// EmailItem is the per-item shape carried inside a Payload.
type EmailItem struct {
	Text      string     `json:"text"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	Completed bool       `json:"completed,omitempty"`
}

// Payload is one logical reminder send. It is treated as immutable once enqueued.
type Payload struct {
	Source        Source      `json:"source"`
	Title         string      `json:"title"`
	Items         []EmailItem `json:"items"`
	Recipient     *Recipient  `json:"recipient,omitempty"`
	Message       string      `json:"message,omitempty"`
	TimeRemaining string      `json:"time_remaining,omitempty"`
	WatchID       string      `json:"watch_id,omitempty"`
}

func (p *Payload) Validate() error {
	if !p.Source.IsValid() {
		return ErrInvalidSource
	}
	if p.Title == "" {
		return ErrInvalidTitle
	}
	if len(p.Items) == 0 && p.Message == "" {
		return ErrNoItems
	}
	return nil
}

// Clone returns a copy that shares no slices or pointers with p.
func (p Payload) Clone() Payload {
	p.Items = append([]EmailItem(nil), p.Items...)
	if p.Recipient != nil {
		r := *p.Recipient
		p.Recipient = &r
	}
	return p
}

// RecipientEmail returns the recipient address or "" when none is set.
func (p *Payload) RecipientEmail() string {
	if p.Recipient == nil {
		return ""
	}
	return p.Recipient.Email
}

// Fingerprint is the dedup key of the payload. Changing the source, title,
// any item text, the recipient or the phase label yields a different key.
func (p *Payload) Fingerprint() string {
	h := fnv.New64a()
	field := func(v string) {
		_ = binary.Write(h, binary.BigEndian, uint32(len(v)))
		_, _ = io.WriteString(h, v)
	}
	field(string(p.Source))
	field(p.Title)
	_ = binary.Write(h, binary.BigEndian, uint32(len(p.Items)))
	for _, it := range p.Items {
		field(it.Text)
	}
	field(p.RecipientEmail())
	field(p.TimeRemaining)
	return fmt.Sprintf("%016x", h.Sum64())
}

// SendResult is the terminal outcome of one Submit call.
type SendResult struct {
	Success      bool   `json:"success"`
	MessageID    string `json:"message_id,omitempty"`
	Error        string `json:"error,omitempty"`
	Deduplicated bool   `json:"deduplicated,omitempty"`
	Cancelled    bool   `json:"cancelled,omitempty"`
}

// SentRecord is one entry of the audit trail.
type SentRecord struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Source    Source    `json:"source"`
	Title     string    `json:"title"`
	SentAt    time.Time `json:"sent_at"`
	Recipient string    `json:"recipient"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Attempts  int       `json:"attempts"`
}

// Phase is a fixed offset before a deadline at which a reminder may fire.
type Phase struct {
	Label  string
	Offset time.Duration
}

// IsOverdue reports whether the phase fires at the deadline itself.
func (p Phase) IsOverdue() bool { return p.Offset == 0 }

const OverdueLabel = "overdue"

// DefaultPhases are ordered from the earliest reminder to the deadline.
var DefaultPhases = []Phase{
	{Label: "30 minutes", Offset: 30 * time.Minute},
	{Label: "10 minutes", Offset: 10 * time.Minute},
	{Label: "5 minutes", Offset: 5 * time.Minute},
	{Label: OverdueLabel, Offset: 0},
}
