// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Status is a WorkItem's position in the pipeline. Statuses are ordered; a
// WorkItem never moves to a lower status.
type Status int

const (
	StatusNew Status = iota
	StatusAcquired
	StatusClassified
	StatusAnalyzed
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusAcquired:
		return "acquired"
	case StatusClassified:
		return "classified"
	case StatusAnalyzed:
		return "analyzed"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of String. Unknown names map to StatusNew.
func ParseStatus(s string) Status {
	switch s {
	case "acquired":
		return StatusAcquired
	case "classified":
		return StatusClassified
	case "analyzed":
		return StatusAnalyzed
	default:
		return StatusNew
	}
}

// AtLeast reports whether s is at or beyond other.
func (s Status) AtLeast(other Status) bool { return s >= other }

// MarshalYAML writes the status by name.
func (s Status) MarshalYAML() (any, error) { return s.String(), nil }

// UnmarshalYAML reads a status by name.
func (s *Status) UnmarshalYAML(unmarshal func(any) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	*s = ParseStatus(name)
	return nil
}

// ItemState is the snapshot written to state.yaml after each transition.
// It mirrors what probing the artifacts yields and is never trusted over them.
type ItemState struct {
	Slug      string    `yaml:"slug"`
	Title     string    `yaml:"title"`
	Status    Status    `yaml:"status"`
	UpdatedAt time.Time `yaml:"updated_at"`

	// Documents is the number of downloaded full texts.
	Documents int `yaml:"documents"`

	// Unavailable is the number of citing papers without a full text.
	Unavailable int `yaml:"unavailable"`

	// Accepted is the number of papers that passed classification.
	Accepted int `yaml:"accepted"`

	// Positive is the number of papers with positive comments.
	Positive int `yaml:"positive"`
}
