package models

import (
	"time"
)

// Capacity bounds for a project group.
const (
	MinCapacity = 1
	MaxCapacity = 4
)

// Project identifiers are allocated by the claim engine: max existing id plus
// one, wrapping back to ProjectIDFloor once the value would pass ProjectIDCeil.
// After wraparound the allocator can collide with surviving low-numbered
// projects; this is a known limitation kept for compatibility.
const (
	ProjectIDFloor = 1000
	ProjectIDCeil  = 9999
)

// Project is a unit of work a professor offers for claiming.
//
// IsAvailable is derived state: true iff the committed roster is smaller than
// Capacity. It is recomputed by the claim engine and never set by clients.
type Project struct {
	ID          uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ProfessorID uint   `gorm:"not null;index" json:"professor_id"`
	Title       string `gorm:"size:100;uniqueIndex;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Capacity    int    `gorm:"not null;default:1" json:"capacity"`
	IsAvailable bool   `gorm:"default:true" json:"is_available"`

	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Deliverable file, one per project, last writer wins.
	FileName       string     `json:"file_name,omitempty"`
	FilePath       string     `json:"-"`
	FileSize       int64      `json:"file_size,omitempty"`
	FileUploadedAt *time.Time `json:"file_uploaded_at,omitempty"`

	// Relations
	Professor Professor       `json:"professor,omitempty"`
	Members   []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
	Claims    []ProjectClaim  `gorm:"foreignKey:ProjectID" json:"claims,omitempty"`
}

// ProjectMember is one committed student on a project roster. Rows are written
// only by claim approval and removed only by the clear-claims maintenance
// operation.
type ProjectMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;index" json:"project_id"`
	StudentID uint      `gorm:"not null;uniqueIndex" json:"student_id"` // one committed project per student
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Student Student `json:"student,omitempty"`
}
