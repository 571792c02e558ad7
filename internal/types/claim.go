package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
)

const (
  ClaimStatusPending   = "pending"
  ClaimStatusAccepted  = "accepted"
  ClaimStatusRejected  = "rejected"
  ClaimStatusCompleted = "completed"
)

// Claim is the audit trail of a handoff attempt. Rows are never deleted;
// status only moves pending->accepted->completed or pending->rejected.
// Two partial unique indexes enforce the cross-row invariants at the
// database: at most one accepted or completed claim per item, and at most
// one non-rejected claim per claimant per item.
type Claim struct {
  gorm.Model
  ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
  ItemID          uuid.UUID  `gorm:"index;not null;uniqueIndex:ux_claim_item_winner,where:(status = 'accepted' OR status = 'completed') AND deleted_at IS NULL;uniqueIndex:ux_claim_item_claimant,priority:1,where:status <> 'rejected' AND deleted_at IS NULL" json:"item_id"`
  Item            *Item      `gorm:"constraint:OnDelete:CASCADE;foreignKey:ItemID;references:ID" json:"item,omitempty"`
  ClaimantID      uuid.UUID  `gorm:"index;not null;uniqueIndex:ux_claim_item_claimant,priority:2" json:"claimant_id"`
  Claimant        *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:ClaimantID;references:ID" json:"claimant,omitempty"`
  Message         string     `gorm:"column:message" json:"message"`
  Status          string     `gorm:"not null;default:'pending';index;column:status" json:"status"`
  ResponseMessage string     `gorm:"column:response_message" json:"response_message"`
  MeetingLocation string     `gorm:"column:meeting_location" json:"meeting_location"`
  MeetingTime     *time.Time `gorm:"column:meeting_time" json:"meeting_time"`
  CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
  UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (Claim) TableName() string {
  return "claim"
}
