package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Strategy struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string         `gorm:"type:varchar(200);not null" json:"name"`
	Kind       string         `gorm:"type:varchar(20);not null" json:"kind"`
	Asset      string         `gorm:"type:varchar(50)" json:"asset"`
	Timeframe  string         `gorm:"type:varchar(10)" json:"timeframe"`
	Code       string         `gorm:"type:text;not null" json:"code"`
	CodeHash   string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"code_hash"`
	Parameters datatypes.JSON `gorm:"type:jsonb" json:"parameters"`
	Warnings   datatypes.JSON `gorm:"type:jsonb" json:"warnings"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Strategy) TableName() string {
	return "strategies"
}

func (s *Strategy) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
