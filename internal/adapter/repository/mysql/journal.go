// Package mysql persists the ledger's event side channel. The journal is
// write-behind bookkeeping: a failed insert is logged, never surfaced, so a
// database hiccup cannot fail a settled loan operation.
package mysql

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"gorm.io/gorm"

	"loandesk/internal/ledger"
)

// LoanEvent is one journal row per committed state transition.
type LoanEvent struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	Type          string    `gorm:"size:64;index"`
	ApplicationID uint64    `gorm:"index"`
	LoanID        uint64    `gorm:"index"`
	Caller        string    `gorm:"size:64"`
	Payload       string    `gorm:"type:json"`
	OccurredAt    time.Time `gorm:"index"`
}

func (LoanEvent) TableName() string { return "loan_events" }

type EventJournal struct{ db *gorm.DB }

func NewEventJournal(db *gorm.DB) *EventJournal { return &EventJournal{db: db} }

func (j *EventJournal) Migrate() error {
	return j.db.AutoMigrate(&LoanEvent{})
}

// Record implements ledger.Recorder.
func (j *EventJournal) Record(ctx context.Context, e ledger.Event) {
	var payload string
	if len(e.Payload) > 0 {
		b, err := json.Marshal(e.Payload)
		if err != nil {
			log.Printf("event journal: marshal %s payload: %v", e.Type, err)
		} else {
			payload = string(b)
		}
	}
	row := LoanEvent{
		Type:          string(e.Type),
		ApplicationID: e.ApplicationID,
		LoanID:        e.LoanID,
		Caller:        e.Caller,
		Payload:       payload,
		OccurredAt:    e.At,
	}
	if err := j.db.WithContext(ctx).Create(&row).Error; err != nil {
		log.Printf("event journal: insert %s: %v", e.Type, err)
	}
}

// ByLoanID returns the journal rows of one loan, oldest first.
func (j *EventJournal) ByLoanID(ctx context.Context, loanID uint64) ([]LoanEvent, error) {
	var out []LoanEvent
	err := j.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// ByApplicationID returns the journal rows of one application, oldest first.
func (j *EventJournal) ByApplicationID(ctx context.Context, appID uint64) ([]LoanEvent, error) {
	var out []LoanEvent
	err := j.db.WithContext(ctx).
		Where("application_id = ?", appID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
