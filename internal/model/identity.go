package model

import (
	"time"
)

const (
	IdentityRoleAdmin   = "Admin"
	IdentityRoleManager = "Manager"
)

func IsValidIdentityRole(role string) bool {
	return role == IdentityRoleAdmin || role == IdentityRoleManager
}

// Identity 登录账号，Manager 成员与之一一关联
type Identity struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	LoginName    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"loginName"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Role         string    `gorm:"type:varchar(16);index;not null" json:"role"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Identity) TableName() string {
	return "identity"
}
