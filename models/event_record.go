package models

import (
	"time"

	"github.com/google/uuid"
)

// Aggregate types written to the event store.
const (
	AggregateRt           = "RT"
	AggregateResident     = "RESIDENT"
	AggregateContribution = "CONTRIBUTION"
	AggregateCashflow     = "CASHFLOW"
	AggregateUser         = "USER"
)

// EventRecord is one append-only entry of the audit/event log. Versions are
// counted per (RtID, AggregateID) starting at 1.
type EventRecord struct {
	EventID          int64     `gorm:"column:event_id;primaryKey;autoIncrement" json:"EventId"`
	RtID             uuid.UUID `gorm:"column:rt_id;size:36;not null;uniqueIndex:idx_rt_agg_ver,priority:1;index:idx_rt_type_time,priority:1;index:idx_rt_user_time,priority:1" json:"RtId"`
	AggregateID      uuid.UUID `gorm:"column:aggregate_id;size:36;not null;uniqueIndex:idx_rt_agg_ver,priority:2" json:"AggregateId"`
	AggregateType    string    `gorm:"size:100;not null;index:idx_rt_type_time,priority:2" json:"AggregateType"`
	EventType        string    `gorm:"size:100;not null" json:"EventType"`
	EventPayload     string    `gorm:"type:text;not null" json:"EventPayload"`
	OccurredAt       time.Time `gorm:"not null;index:idx_rt_type_time,priority:3;index:idx_rt_user_time,priority:3" json:"OccurredAt"`
	CausedByUserID   uuid.UUID `gorm:"column:caused_by_user_id;size:36;not null;index:idx_rt_user_time,priority:2" json:"CausedByUserId"`
	AggregateVersion int       `gorm:"not null;uniqueIndex:idx_rt_agg_ver,priority:3" json:"AggregateVersion"`
}

func (EventRecord) TableName() string { return "event_store" }
