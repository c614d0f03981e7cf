package model

import (
	"time"
)

const (
	MemberRoleUser    = "User"
	MemberRoleManager = "Manager"
	MemberRoleAdmin   = "Admin"
)

func IsValidMemberRole(role string) bool {
	switch role {
	case MemberRoleUser, MemberRoleManager, MemberRoleAdmin:
		return true
	}
	return false
}

// Member 会员
//
// Contribution 是该会员已付款流水 paidAmount 之和的冗余缓存，
// 只能通过 MemberRepository.ApplyContributionDelta 修改
type Member struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"type:varchar(128);not null" json:"name"`
	Role         string    `gorm:"type:varchar(16);not null" json:"role"`
	Position     string    `gorm:"type:varchar(64)" json:"position"`
	Phone        string    `gorm:"type:varchar(32)" json:"phone"`
	AadhaarID    string    `gorm:"type:varchar(32)" json:"aadhaarId"`
	Active       bool      `gorm:"not null;index" json:"active"`
	Contribution int64     `gorm:"not null;default:0" json:"contribution"`
	JoiningDate  time.Time `gorm:"not null" json:"joiningDate"`
	IdentityID   *int64    `gorm:"index" json:"identityId,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Identity *Identity `gorm:"foreignKey:IdentityID" json:"identity,omitempty"`
}

func (Member) TableName() string {
	return "member"
}
