// Package message defines the immutable unit of data that flows along the
// connections of a graph during a run.
//
// A Message is never modified after construction. Every transformation
// (WithPayload, WithPath, Fork, Merge) returns a new value, and the maps and
// slices held by a message are never written to once it has been built, so a
// message can be shared freely between branches and goroutines.
package message

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Message is an immutable payload plus its lineage metadata.
type Message struct {
	id        string
	createdAt time.Time
	createdBy string

	payload map[string]any

	path      []string
	branchID  string
	parentIDs []string
}

// New originates a brand-new message on behalf of a source node.
func New(createdBy string, payload map[string]any) Message {
	return NewAt(createdBy, payload, time.Now())
}

// NewAt is New with an explicit creation time.
func NewAt(createdBy string, payload map[string]any, at time.Time) Message {
	return Message{
		id:        uuid.NewString(),
		createdAt: at,
		createdBy: createdBy,
		payload:   maps.Clone(payload),
		branchID:  uuid.NewString(),
	}
}

// ID returns the message identifier. It survives WithPayload and WithPath.
func (m Message) ID() string { return m.id }

// CreatedAt returns the time the message (or its fork root) was created.
func (m Message) CreatedAt() time.Time { return m.createdAt }

// CreatedBy returns the id of the node that originated the message.
func (m Message) CreatedBy() string { return m.createdBy }

// BranchID identifies the lineage this message belongs to.
func (m Message) BranchID() string { return m.branchID }

// ParentIDs returns the ids this message was derived from: one id for a
// fork, every merged id for a merge, none for an original message.
func (m Message) ParentIDs() []string { return slices.Clone(m.parentIDs) }

// Path returns a copy of the ordered list of node ids this message visited.
func (m Message) Path() []string { return slices.Clone(m.path) }

// LastPathNode returns the most recently visited node id, or "".
func (m Message) LastPathNode() string {
	if len(m.path) == 0 {
		return ""
	}
	return m.path[len(m.path)-1]
}

// Visited reports whether nodeID appears in the message path.
func (m Message) Visited(nodeID string) bool {
	return slices.Contains(m.path, nodeID)
}

// Payload returns a shallow copy of the payload.
func (m Message) Payload() map[string]any {
	if m.payload == nil {
		return map[string]any{}
	}
	return maps.Clone(m.payload)
}

// Value returns the payload value stored under key.
func (m Message) Value(key string) (any, bool) {
	v, ok := m.payload[key]
	return v, ok
}

// Has reports whether the payload carries key.
func (m Message) Has(key string) bool {
	_, ok := m.payload[key]
	return ok
}

// Len returns the number of payload keys.
func (m Message) Len() int { return len(m.payload) }

// IsZero reports whether m is the zero Message.
func (m Message) IsZero() bool { return m.id == "" }

// WithPayload returns a copy of m whose payload is the union of the current
// payload and additions, additions winning on collision. Id and lineage are kept.
func (m Message) WithPayload(additions map[string]any) Message {
	next := make(map[string]any, len(m.payload)+len(additions))
	maps.Copy(next, m.payload)
	maps.Copy(next, additions)

	out := m
	out.payload = next
	return out
}

// WithPath returns a copy of m with nodeID appended to its path.
func (m Message) WithPath(nodeID string) Message {
	path := make([]string, len(m.path), len(m.path)+1)
	copy(path, m.path)

	out := m
	out.path = append(path, nodeID)
	return out
}

// SplitKey is the payload key Fork uses to record the branch a copy took.
func SplitKey(nodeID string) string { return "_split_" + nodeID }

// MergeKey is the payload key Merge uses to record its inputs.
func MergeKey(nodeID string) string { return "_merged_" + nodeID }

// Fork returns an independent copy of m for branch index of total. The copy
// gets a fresh id and branch id, keeps createdAt and createdBy, and records
// the branch under SplitKey(LastPathNode()).
func (m Message) Fork(index, total int) Message {
	payload := make(map[string]any, len(m.payload)+1)
	maps.Copy(payload, m.payload)
	payload[SplitKey(m.LastPathNode())] = map[string]any{
		"branchIndex": index,
		"branchCount": total,
	}

	return Message{
		id:        uuid.NewString(),
		createdAt: m.createdAt,
		createdBy: m.createdBy,
		payload:   payload,
		path:      slices.Clone(m.path),
		branchID:  uuid.NewString(),
		parentIDs: []string{m.id},
	}
}

// Merge combines messages arriving at nodeID into one. Payloads are unioned
// left to right, paths are unioned without duplicates, and MergeKey(nodeID)
// records the arrival count and source ids. It returns false for an empty input.
func Merge(messages []Message, nodeID string) (Message, bool) {
	return MergeAt(messages, nodeID, time.Now())
}

// MergeAt is Merge with an explicit creation time for the merged message.
func MergeAt(messages []Message, nodeID string, at time.Time) (Message, bool) {
	if len(messages) == 0 {
		return Message{}, false
	}

	payload := make(map[string]any)
	seen := make(map[string]struct{})
	var path []string
	ids := make([]string, 0, len(messages))

	for _, msg := range messages {
		maps.Copy(payload, msg.payload)
		for _, p := range msg.path {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			path = append(path, p)
		}
		ids = append(ids, msg.id)
	}

	payload[MergeKey(nodeID)] = map[string]any{
		"arrivedCount": len(messages),
		"mergedFrom":   slices.Clone(ids),
	}

	return Message{
		id:        uuid.NewString(),
		createdAt: at,
		createdBy: messages[0].createdBy,
		payload:   payload,
		path:      path,
		branchID:  uuid.NewString(),
		parentIDs: ids,
	}, true
}

// String implements fmt.Stringer for log output.
func (m Message) String() string {
	return fmt.Sprintf("message(%s branch=%s path=%v)", m.id, m.branchID, m.path)
}
