package models

import "strings"

// Priority tags assigned by the classifier.
const (
	PriorityP0 = "p0"
	PriorityP1 = "p1"
	PriorityP2 = "p2"
)

// ClassifyPriority maps a subject line to a priority tag using
// case-insensitive substring matching. An empty subject is p2.
func ClassifyPriority(subject string) string {
	sub := strings.ToLower(subject)
	if strings.Contains(sub, "urgent") || strings.Contains(sub, "action required") {
		return PriorityP0
	}
	if strings.Contains(sub, "important") {
		return PriorityP1
	}
	return PriorityP2
}
