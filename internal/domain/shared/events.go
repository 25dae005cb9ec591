// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - each event represents something significant that
// happened in the domain.
const (
	// Sync events
	EventSyncCompleted EventType = "sync.completed"
	EventSyncFailed    EventType = "sync.failed"

	// Skill events
	EventSkillLevelUp    EventType = "skill.level_up"
	EventTargetUpdated   EventType = "skill.target_updated"
	EventCategoryTouched EventType = "skill.category_touched"

	// Problem events
	EventProblemSolved   EventType = "problem.solved"
	EventProblemRescored EventType = "problem.rescored"

	// Notification events
	EventNotificationSent   EventType = "notification.sent"
	EventNotificationFailed EventType = "notification.failed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// SyncCompletedEvent is emitted when a subject's sync run finishes.
type SyncCompletedEvent struct {
	BaseEvent
	SubjectID         string        `json:"subject_id"`
	SubjectKind       string        `json:"subject_kind"`
	NewSolves         int           `json:"new_solves"`
	CategoriesTouched int           `json:"categories_touched"`
	Duration          time.Duration `json:"duration"`
}

// Payload implements Event interface.
func (e SyncCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"subject_id":         e.SubjectID,
		"subject_kind":       e.SubjectKind,
		"new_solves":         e.NewSolves,
		"categories_touched": e.CategoriesTouched,
		"duration":           e.Duration.String(),
	}
}

// NewSyncCompletedEvent creates a new SyncCompletedEvent.
func NewSyncCompletedEvent(subjectID, kind string, newSolves, touched int, d time.Duration) SyncCompletedEvent {
	return SyncCompletedEvent{
		BaseEvent:         NewBaseEvent(EventSyncCompleted, subjectID),
		SubjectID:         subjectID,
		SubjectKind:       kind,
		NewSolves:         newSolves,
		CategoriesTouched: touched,
		Duration:          d,
	}
}

// SkillLevelUpEvent is emitted when a subject's overall integer level rises.
type SkillLevelUpEvent struct {
	BaseEvent
	SubjectID string  `json:"subject_id"`
	OldLevel  float64 `json:"old_level"`
	NewLevel  float64 `json:"new_level"`
	NewTitle  string  `json:"new_title"`
}

// Payload implements Event interface.
func (e SkillLevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"subject_id": e.SubjectID,
		"old_level":  e.OldLevel,
		"new_level":  e.NewLevel,
		"new_title":  e.NewTitle,
	}
}

// NewSkillLevelUpEvent creates a new SkillLevelUpEvent.
func NewSkillLevelUpEvent(subjectID string, oldLevel, newLevel float64, title string) SkillLevelUpEvent {
	return SkillLevelUpEvent{
		BaseEvent: NewBaseEvent(EventSkillLevelUp, subjectID),
		SubjectID: subjectID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		NewTitle:  title,
	}
}

// ProblemSolvedEvent is emitted for every newly observed solve.
type ProblemSolvedEvent struct {
	BaseEvent
	SubjectID string    `json:"subject_id"`
	ProblemID string    `json:"problem_id"`
	OJName    string    `json:"oj_name"`
	SolvedAt  time.Time `json:"solved_at"`
}

// Payload implements Event interface.
func (e ProblemSolvedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"subject_id": e.SubjectID,
		"problem_id": e.ProblemID,
		"oj_name":    e.OJName,
		"solved_at":  e.SolvedAt.Format(time.RFC3339),
	}
}

// NewProblemSolvedEvent creates a new ProblemSolvedEvent.
func NewProblemSolvedEvent(subjectID, problemID, ojName string, solvedAt time.Time) ProblemSolvedEvent {
	return ProblemSolvedEvent{
		BaseEvent: NewBaseEvent(EventProblemSolved, subjectID),
		SubjectID: subjectID,
		ProblemID: problemID,
		OJName:    ojName,
		SolvedAt:  solvedAt,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
