package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

const (
  ItemTypeLost  = "lost"
  ItemTypeFound = "found"

  ItemStatusUnresolved = "unresolved"
  ItemStatusClaimed    = "claimed"
)

type Item struct {
  gorm.Model
  ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
  UserID      uuid.UUID      `gorm:"index;not null" json:"user_id"`
  User        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"reporter,omitempty"`
  Type        string         `gorm:"not null;index;column:type" json:"type"`
  Description string         `gorm:"not null;column:description" json:"description"`
  Location    string         `gorm:"column:location" json:"location"`
  Category    string         `gorm:"column:category" json:"category"`
  Color       string         `gorm:"column:color" json:"color"`
  Brand       string         `gorm:"column:brand" json:"brand"`
  Features    datatypes.JSON `gorm:"column:features" json:"features"`
  ImageURL    string         `gorm:"column:image_url" json:"image_url"`
  ContactInfo string         `gorm:"column:contact_info" json:"contact_info"`
  Status      string         `gorm:"not null;default:'unresolved';index;column:status" json:"status"`
  ReportedAt  time.Time      `gorm:"not null;column:reported_at" json:"reported_at"`
  CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
  UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Item) TableName() string {
  return "item"
}

// OppositeType returns the item type a match search should look at.
func (i *Item) OppositeType() string {
  if i.Type == ItemTypeLost {
    return ItemTypeFound
  }
  return ItemTypeLost
}
