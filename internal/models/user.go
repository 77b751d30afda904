package models

import (
	"time"
)

// User 用户表
// 管理员、超级管理员、配送员与客户共用一张表，以 role 区分。
type User struct {
	ID        string    `gorm:"type:varchar(64);primarykey" json:"id"`          // 用户ID
	Name      string    `gorm:"type:varchar(200);not null" json:"name"`         // 姓名
	Email     string    `gorm:"type:varchar(200);uniqueIndex" json:"email"`     // 邮箱
	Role      string    `gorm:"type:varchar(20);index;not null" json:"role"`    // 角色
	Phone     string    `gorm:"type:varchar(64)" json:"phone,omitempty"`        // 电话
	CreatedAt time.Time `json:"created_at"`                                     // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                     // 更新时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Session 已认证会话
// 角色在会话生命周期内不可变，变更角色需要重新认证；
// 会话只在边界显式传入，核心不读取任何全局登录态。
type Session struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}
