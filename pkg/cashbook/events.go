package cashbook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
)

// Event is a domain event to append to the event store.
type Event struct {
	RtID          uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       any
	CausedBy      uuid.UUID
}

// AppendEvent writes ev as the next version of its aggregate. The unique
// (rt_id, aggregate_id, aggregate_version) index rejects a concurrent writer
// that computed the same version.
func AppendEvent(ctx context.Context, tx *gorm.DB, ev Event) (*models.EventRecord, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", ev.EventType, err)
	}
	var version int
	if err := tx.WithContext(ctx).Model(&models.EventRecord{}).
		Where("rt_id = ? AND aggregate_id = ?", ev.RtID, ev.AggregateID).
		Select("COALESCE(MAX(aggregate_version), 0)").
		Scan(&version).Error; err != nil {
		return nil, fmt.Errorf("read version of %s %s: %w", ev.AggregateType, ev.AggregateID, err)
	}
	rec := models.EventRecord{
		RtID:             ev.RtID,
		AggregateID:      ev.AggregateID,
		AggregateType:    ev.AggregateType,
		EventType:        ev.EventType,
		EventPayload:     string(payload),
		OccurredAt:       now(),
		CausedByUserID:   ev.CausedBy,
		AggregateVersion: version + 1,
	}
	if err := tx.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("append %s: %w", ev.EventType, err)
	}
	return &rec, nil
}

// EventFilter narrows ListEvents.
type EventFilter struct {
	AggregateType string
	AggregateID   *uuid.UUID
	Offset        int
	Limit         int
}

// ListEvents returns the RT's events newest first together with the total
// number of matching events.
func ListEvents(ctx context.Context, tx *gorm.DB, rtID uuid.UUID, f EventFilter) ([]models.EventRecord, int64, error) {
	q := tx.WithContext(ctx).Model(&models.EventRecord{}).Where("rt_id = ?", rtID)
	if f.AggregateType != "" {
		q = q.Where("aggregate_type = ?", f.AggregateType)
	}
	if f.AggregateID != nil {
		q = q.Where("aggregate_id = ?", *f.AggregateID)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.EventRecord
	page := q.Order("event_id desc")
	if f.Limit > 0 {
		page = page.Offset(f.Offset).Limit(f.Limit)
	}
	if err := page.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
