package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
)

// MatchCandidate caches one ranked suggestion from the match producer.
// Confidence and rationale are opaque pass-through fields.
type MatchCandidate struct {
  gorm.Model
  ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
  ItemID          uuid.UUID `gorm:"uniqueIndex:ux_match_item_candidate,priority:1;not null" json:"item_id"`
  Item            *Item     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ItemID;references:ID" json:"-"`
  CandidateItemID uuid.UUID `gorm:"uniqueIndex:ux_match_item_candidate,priority:2;not null" json:"candidate_item_id"`
  CandidateItem   *Item     `gorm:"constraint:OnDelete:CASCADE;foreignKey:CandidateItemID;references:ID" json:"candidate_item,omitempty"`
  Confidence      int       `gorm:"not null;column:confidence" json:"confidence"`
  Rationale       string    `gorm:"column:rationale" json:"rationale"`
  CreatedAt       time.Time `gorm:"not null" json:"created_at"`
  UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (MatchCandidate) TableName() string {
  return "match_candidate"
}
