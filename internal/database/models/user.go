package models

// Global platform roles. Community-level roles live on Membership.
type GlobalRole string

const (
	GlobalRoleSuperAdmin GlobalRole = "super_admin"
	GlobalRoleUser       GlobalRole = "user"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type User struct {
	Base
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Name         string     `json:"name"`
	Bio          string     `json:"bio,omitempty"`
	GlobalRole   GlobalRole `gorm:"default:'user'" json:"global_role"`
	Status       UserStatus `gorm:"default:'active'" json:"status"`

	Memberships []Membership `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}
