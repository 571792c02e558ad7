package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

type User struct {
  gorm.Model
  ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
  Email             string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
  Password          string         `gorm:"not null;column:password" json:"-"`
  Name              string         `gorm:"not null;column:name" json:"name"`
  Phone             string         `gorm:"column:phone" json:"phone"`
  ProfilePhoto      string         `gorm:"column:profile_photo" json:"profile_photo"`
  FCMToken          string         `gorm:"column:fcm_token" json:"-"`
  ReadNotifications datatypes.JSON `gorm:"column:read_notifications" json:"-"`
  CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
  UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string {
  return "user"
}
