package collector

import (
	"time"

	"github.com/google/uuid"
	"github.com/pevans/listwatch/record"
)

// Stage names the part of a cycle an item was handled in.
type Stage string

const (
	StageRecheck Stage = "recheck"
	StageScan    Stage = "scan"
)

// Outcome is what happened to a single record during a cycle.
type Outcome string

const (
	// OutcomeAdded: an unseen candidate was enriched, scored and stored.
	OutcomeAdded Outcome = "added"

	// OutcomeUpdated: a stored record was re-fetched and rescored.
	OutcomeUpdated Outcome = "updated"

	// OutcomeDeleted: a stored record's page is gone and it was removed.
	OutcomeDeleted Outcome = "deleted"

	// OutcomeKnown: a listing candidate was already stored.
	OutcomeKnown Outcome = "known"

	// OutcomeGone: an unseen candidate's detail page is gone.
	OutcomeGone Outcome = "gone"

	// OutcomeFailed: the fetch or parse failed and nothing changed.
	OutcomeFailed Outcome = "failed"
)

// ItemResult records the handling of one record.
type ItemResult struct {
	ID        string  `json:"id"`
	Stage     Stage   `json:"stage"`
	Outcome   Outcome `json:"outcome"`
	Score     float64 `json:"score,omitempty"`
	Qualified bool    `json:"qualified,omitempty"`
	Err       error   `json:"-"`
}

// PageResult records the handling of one listing page.
type PageResult struct {
	Page       int    `json:"page"`
	URL        string `json:"url"`
	Candidates int    `json:"candidates"`
	Err        error  `json:"-"`
}

// CycleResult summarises one collection cycle. Delta holds the records to
// notify about, in the order they qualified.
type CycleResult struct {
	ID         uuid.UUID       `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Delta      []record.Record `json:"delta"`
	Items      []ItemResult    `json:"items"`
	Pages      []PageResult    `json:"pages"`
	Rechecked  int             `json:"rechecked"`
	Added      int             `json:"added"`
	Updated    int             `json:"updated"`
	Deleted    int             `json:"deleted"`
	Known      int             `json:"known"`
	Failed     int             `json:"failed"`
	Saved      bool            `json:"saved"`
	Err        error           `json:"-"`
}

// Duration returns how long the cycle ran.
func (r *CycleResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *CycleResult) addItem(item ItemResult) {
	r.Items = append(r.Items, item)

	switch item.Outcome {
	case OutcomeAdded:
		r.Added++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeDeleted:
		r.Deleted++
	case OutcomeKnown:
		r.Known++
	case OutcomeFailed:
		r.Failed++
	}
}

// deltaSet keeps qualifying records in insertion order, each ID once.
type deltaSet struct {
	seen    map[string]bool
	records []record.Record
}

func newDeltaSet() *deltaSet {
	return &deltaSet{seen: make(map[string]bool)}
}

// add appends r unless its ID is already present and reports whether it
// was added.
func (d *deltaSet) add(r record.Record) bool {
	if d.seen[r.ID] {
		return false
	}
	d.seen[r.ID] = true
	d.records = append(d.records, r.Clone())
	return true
}

func (d *deltaSet) list() []record.Record {
	if d.records == nil {
		return []record.Record{}
	}
	return d.records
}
