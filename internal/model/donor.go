package model

import (
	"strings"
	"time"
)

const AnonymousName = "Anonymous"

// Donor 非会员捐赠人，每次捐赠新建一条，不做去重
type Donor struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(32)" json:"phone"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Donor) TableName() string {
	return "donor"
}

// NameOrAnonymous 空白名字回落为 Anonymous
func NameOrAnonymous(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return AnonymousName
}
