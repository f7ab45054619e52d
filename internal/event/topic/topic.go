// Package topic defines the hierarchical topic type used to address
// change notifications, along with wildcard pattern matching for
// subscriptions.
package topic

import "strings"

// Topic represents a hierarchical event type using dot notation.
// Examples: "object.moved", "drag.hover.changed", "anomaly.flagged".
type Topic string

// Wildcard constants for pattern matching.
const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more segments.
	WildcardMulti = "**"

	// Separator is the character used to separate topic segments.
	Separator = "."
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// Parent returns the parent topic by removing the last segment.
// Returns an empty topic if there is no parent.
func (t Topic) Parent() Topic {
	s := string(t)
	idx := strings.LastIndex(s, Separator)
	if idx < 0 {
		return ""
	}
	return Topic(s[:idx])
}

// Child returns a new topic with the segment appended.
func (t Topic) Child(segment string) Topic {
	if t == "" {
		return Topic(segment)
	}
	return Topic(string(t) + Separator + segment)
}

// HasWildcard returns true if the topic contains wildcard segments.
func (t Topic) HasWildcard() bool {
	for _, seg := range t.Segments() {
		if seg == WildcardSingle || seg == WildcardMulti {
			return true
		}
	}
	return false
}

// IsValid returns true if the topic is well formed: non-empty, with no
// empty segments.
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// Match reports whether the concrete topic t matches the given pattern.
// The pattern may contain "*" (exactly one segment) and "**" (zero or
// more segments). The topic itself must be concrete.
func (t Topic) Match(pattern Topic) bool {
	return matchSegments(pattern.Segments(), t.Segments())
}

// matchSegments matches pattern segments against topic segments.
func matchSegments(pattern, topic []string) bool {
	// Both exhausted: match.
	if len(pattern) == 0 {
		return len(topic) == 0
	}

	if pattern[0] == WildcardMulti {
		// "**" matches zero segments...
		if matchSegments(pattern[1:], topic) {
			return true
		}
		// ...or one-plus segments.
		if len(topic) > 0 {
			return matchSegments(pattern, topic[1:])
		}
		return false
	}

	if len(topic) == 0 {
		return false
	}

	if pattern[0] == WildcardSingle || pattern[0] == topic[0] {
		return matchSegments(pattern[1:], topic[1:])
	}

	return false
}
