package models

import "github.com/google/uuid"

type MembershipRole string

const (
	MembershipRoleOwner     MembershipRole = "owner"
	MembershipRoleAdmin     MembershipRole = "admin"
	MembershipRoleModerator MembershipRole = "moderator"
	MembershipRoleMember    MembershipRole = "member"
)

type MembershipStatus string

const (
	MembershipStatusPending   MembershipStatus = "pending"
	MembershipStatusActive    MembershipStatus = "active"
	MembershipStatusSuspended MembershipStatus = "suspended"
	MembershipStatusBanned    MembershipStatus = "banned"
)

// Membership joins a user to a community. At most one row per
// (community, user) pair; concurrent joins converge through an
// upsert on the composite unique index. Removal deletes the row so
// the pair can join again later.
type Membership struct {
	JoinBase
	CommunityID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_community_user" json:"community_id"`
	UserID      uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_community_user" json:"user_id"`
	Role        MembershipRole   `gorm:"default:'member'" json:"role"`
	Status      MembershipStatus `gorm:"default:'pending'" json:"status"`

	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Community *Community `gorm:"foreignKey:CommunityID" json:"-"`
}

func (Membership) TableName() string {
	return "memberships"
}

func (m *Membership) IsActive() bool {
	return m.Status == MembershipStatusActive
}

// RoleRank orders community roles for downgrade protection.
func RoleRank(r MembershipRole) int {
	switch r {
	case MembershipRoleOwner:
		return 4
	case MembershipRoleAdmin:
		return 3
	case MembershipRoleModerator:
		return 2
	case MembershipRoleMember:
		return 1
	}
	return 0
}
