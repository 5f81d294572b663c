package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Convoy 表示一個車隊：一群朝同一目的地移動的成員
type Convoy struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string     `gorm:"not null" json:"name"`
	InviteCode      string     `gorm:"uniqueIndex;not null" json:"invite_code"` // 六位邀請碼，用於加入車隊
	DestinationName string     `json:"destination_name"`
	DestinationLat  *float64   `json:"destination_lat"` // 目的地座標，可能尚未設置
	DestinationLon  *float64   `json:"destination_lon"`
	StartTime       *time.Time `json:"start_time"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Members []ConvoyMember `gorm:"foreignKey:ConvoyID" json:"members"`
}

// BeforeCreate 在寫入前生成 UUID 主鍵
func (c *Convoy) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ConvoyRole 定義成員在車隊中的角色
type ConvoyRole string

const (
	RoleLeader ConvoyRole = "leader" // 建立車隊的人
	RoleMember ConvoyRole = "member"
)

// ConvoyMember 表示車隊成員關係
type ConvoyMember struct {
	gorm.Model
	ConvoyID uuid.UUID  `gorm:"type:uuid;index;not null" json:"convoy_id"`
	UserID   uint       `gorm:"index;not null" json:"user_id"`
	Role     ConvoyRole `gorm:"not null" json:"role"`
}
