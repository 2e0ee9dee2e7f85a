// Package models holds the records muniwatch persists and serves.
package models

import (
	"time"

	"github.com/lib/pq"
)

// Status is the reviewer lifecycle state of a mention.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeleted  Status = "deleted"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDeleted:
		return true
	}
	return false
}

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityNormal || p == PriorityHigh
}

type UtilityType string

const (
	UtilityElectric UtilityType = "Electric"
	UtilityWater    UtilityType = "Water"
	UtilityGas      UtilityType = "Gas"
	UtilityMulti    UtilityType = "Multi-utility"
)

type Stage string

const (
	StageExploratory Stage = "Exploratory"
	StageActive      Stage = "Active"
	StageLitigation  Stage = "Litigation"
	StageBallot      Stage = "Ballot Measure"
)

// Mention is one classified municipalization artifact. URL is its identity:
// the mentions table enforces uniqueness on it.
type Mention struct {
	ID          string         `db:"id"           json:"id"`
	Title       string         `db:"title"        json:"title"`
	Snippet     string         `db:"snippet"      json:"snippet"`
	URL         string         `db:"url"          json:"url"`
	Source      string         `db:"source"       json:"source"`
	Location    string         `db:"location"     json:"location"`
	Utility     string         `db:"utility"      json:"utility"`
	UtilityType UtilityType    `db:"utility_type" json:"utilityType"`
	Stage       Stage          `db:"stage"        json:"stage"`
	Priority    Priority       `db:"priority"     json:"priority"`
	CapturedAt  time.Time      `db:"captured_at"  json:"capturedAt"`
	PublishedAt *time.Time     `db:"published_at" json:"publishedAt"`
	Status      Status         `db:"status"       json:"status"`
	Tags        pq.StringArray `db:"tags"         json:"tags"`
	Notes       *string        `db:"notes"        json:"notes,omitempty"`
	UpdatedAt   *time.Time     `db:"updated_at"   json:"updated_at,omitempty"`
}

// MentionFilter narrows a mention listing. Empty fields match everything.
type MentionFilter struct {
	Status   Status
	Location string
	Priority Priority
}

// MentionPatch carries the reviewer-mutable fields. Nil means unchanged.
type MentionPatch struct {
	Status   *Status   `json:"status"`
	Tags     *[]string `json:"tags"`
	Notes    *string   `json:"notes"`
	Priority *Priority `json:"priority"`
}

// Stats summarizes the review queue.
type Stats struct {
	Total         int `json:"total"`
	Pending       int `json:"pending"`
	Approved      int `json:"approved"`
	Deleted       int `json:"deleted"`
	TodayCaptured int `json:"today_captured"`
}
