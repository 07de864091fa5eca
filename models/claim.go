package models

import (
	"time"

	"gorm.io/gorm"
)

// ProjectClaim is a group claim against a project. A claim is pending until a
// professor approves it; rejection and cancellation delete the row. At most
// one approved claim may exist per project.
type ProjectClaim struct {
	gorm.Model
	ProjectID uint `gorm:"not null;index" json:"project_id"`

	Approved   bool       `gorm:"default:false;index" json:"approved"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`

	// Relations
	Project Project       `json:"-"`
	Members []ClaimMember `gorm:"foreignKey:ClaimID" json:"members,omitempty"`
}

// ClaimMember names one student on a claim.
type ClaimMember struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	ClaimID uint `gorm:"not null;index" json:"claim_id"`

	StudentID uint `gorm:"not null;index" json:"student_id"`

	// Relations
	Student Student `json:"student,omitempty"`
}

// StudentIDs returns the internal ids of every student on the claim.
func (c *ProjectClaim) StudentIDs() []uint {
	ids := make([]uint, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.StudentID)
	}
	return ids
}

// Names a student on the claim.
func (c *ProjectClaim) HasStudent(studentID uint) bool {
	for _, m := range c.Members {
		if m.StudentID == studentID {
			return true
		}
	}
	return false
}
