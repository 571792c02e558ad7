package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
)

const (
  TrustReasonReported            = "reported"
  TrustReasonRecoveredAsFinder   = "recovered_as_finder"
  TrustReasonRecoveredAsClaimant = "recovered_as_claimant"
)

// TrustLedgerEntry is an append-only reputation adjustment. The composite
// unique index makes reward issuance idempotent per (claim, reason) even
// under concurrent finalize retries.
type TrustLedgerEntry struct {
  gorm.Model
  ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
  UserID    uuid.UUID  `gorm:"index;not null" json:"user_id"`
  User      *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
  Delta     int        `gorm:"not null;column:delta" json:"delta"`
  Reason    string     `gorm:"not null;uniqueIndex:ux_trust_claim_reason,priority:2;column:reason" json:"reason"`
  ClaimID   *uuid.UUID `gorm:"uniqueIndex:ux_trust_claim_reason,priority:1" json:"claim_id,omitempty"`
  CreatedAt time.Time  `gorm:"not null" json:"created_at"`
  UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (TrustLedgerEntry) TableName() string {
  return "trust_ledger_entry"
}
