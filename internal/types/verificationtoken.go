package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
)

// VerificationToken is a short-lived one-time code bound to an accepted
// claim. Codes are unique among active tokens only; expired or consumed
// codes may be minted again, so the column is indexed but not unique.
type VerificationToken struct {
  gorm.Model
  ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
  ClaimID   uuid.UUID `gorm:"index;not null" json:"claim_id"`
  Claim     *Claim    `gorm:"constraint:OnDelete:CASCADE;foreignKey:ClaimID;references:ID" json:"-"`
  Code      string    `gorm:"index;not null;column:code" json:"-"`
  ExpiresAt time.Time `gorm:"index;not null;column:expires_at" json:"expires_at"`
  Consumed  bool      `gorm:"not null;default:false;column:consumed" json:"consumed"`
  CreatedAt time.Time `gorm:"not null" json:"created_at"`
  UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (VerificationToken) TableName() string {
  return "verification_token"
}

func (t *VerificationToken) Active(now time.Time) bool {
  return t != nil && !t.Consumed && t.ExpiresAt.After(now)
}
