package models

import (
	"gorm.io/gorm"
)

// Role values carried on User accounts.
const (
	RoleStudent   = "student"
	RoleProfessor = "professor"
)

// User represents a login account. Profile data lives on the matching
// Student or Professor row.
type User struct {
	gorm.Model

	// Authentication fields
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"not null;index" json:"role"` // student, professor

	// Profile information
	Name string `json:"name,omitempty"`

	// Account status
	IsActive     bool `gorm:"default:true" json:"is_active"`
	TokenVersion int  `gorm:"default:1" json:"-"`
}

// Professor holds the profile of a professor account.
type Professor struct {
	gorm.Model
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`

	FirstName   string `gorm:"size:100" json:"first_name"`
	LastName    string `gorm:"size:100" json:"last_name"`
	ProfessorID string `gorm:"size:10;uniqueIndex;not null" json:"professor_id"` // external 10-char id
	PhoneNumber string `gorm:"size:15" json:"phone_number"`

	// Relations
	User     User      `json:"-"`
	Projects []Project `gorm:"foreignKey:ProfessorID" json:"projects,omitempty"`
}

// Student holds the profile of a student account.
type Student struct {
	gorm.Model
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`

	FirstName    string `gorm:"size:100" json:"first_name"`
	LastName     string `gorm:"size:100" json:"last_name"`
	StudentID    string `gorm:"size:10;uniqueIndex;not null" json:"student_id"` // external 10-char id
	PhoneNumber  string `gorm:"size:15" json:"phone_number"`
	YearAttended int    `gorm:"default:0" json:"year_attended"`

	// Relations
	User User `json:"-"`
}

// FullName joins the profile name fields for display and notifications.
func (s *Student) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	return s.FirstName + " " + s.LastName
}

func (p *Professor) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	return p.FirstName + " " + p.LastName
}
