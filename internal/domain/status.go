package domain

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an access request. There is no terminal
// state: an admin may reset an approved or rejected request back to pending.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a caller-supplied status string. Unknown values are
// rejected here, before any upstream write, so the tag and metafield views
// cannot diverge.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(s), nil
	default:
		return "", fmt.Errorf("invalid status %q", s)
	}
}

func (s Status) IsPending() bool  { return s == StatusPending }
func (s Status) IsApproved() bool { return s == StatusApproved }
func (s Status) IsRejected() bool { return s == StatusRejected }

// statusTag maps a status to its tag in the customer tag set.
func statusTag(s Status) string {
	switch s {
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	default:
		return "pending-review"
	}
}

// TagsForStatus rewrites a customer's comma-separated tag string for a new
// status. The access-request vocabulary (access-request, pending-review,
// approved, rejected) is fully owned by this system and replaced; any other
// tags already on the customer are preserved.
func TagsForStatus(existingTags string, s Status) string {
	owned := map[string]bool{
		RequestTag:       true,
		"pending-review": true,
		"approved":       true,
		"rejected":       true,
	}

	tags := []string{RequestTag, statusTag(s)}
	for _, t := range strings.Split(existingTags, ",") {
		t = strings.TrimSpace(t)
		if t == "" || owned[strings.ToLower(t)] {
			continue
		}
		tags = append(tags, t)
	}
	return strings.Join(tags, ",")
}

// StatusFromMetafield interprets a stored metafield value, defaulting a
// missing or unrecognized value to pending.
func StatusFromMetafield(value string) Status {
	if st, err := ParseStatus(value); err == nil {
		return st
	}
	return StatusPending
}

// HasTag reports whether a comma-separated tag string contains the given tag,
// case-insensitively.
func HasTag(tags, want string) bool {
	for _, t := range strings.Split(tags, ",") {
		if strings.EqualFold(strings.TrimSpace(t), want) {
			return true
		}
	}
	return false
}
