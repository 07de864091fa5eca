package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"projectclaim/models"
	"projectclaim/utils"
)

type DashboardController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewDashboardController(db *gorm.DB, logger *log.Logger) *DashboardController {
	return &DashboardController{DB: db, Logger: logger}
}

// ProfessorDashboard returns the caller's projects with their rosters and any
// pending claims awaiting a decision.
func (dc *DashboardController) ProfessorDashboard(c *fiber.Ctx) error {
	professor := c.Locals("professor").(*models.Professor)

	var projects []models.Project
	if err := dc.DB.
		Preload("Members.Student").
		Where("professor_id = ?", professor.ID).
		Order("id").
		Find(&projects).Error; err != nil {
		utils.LogError("professor_dashboard", err, map[string]interface{}{"professor_id": professor.ID})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load projects", nil)
	}

	projectIDs := make([]uint, 0, len(projects))
	for _, p := range projects {
		projectIDs = append(projectIDs, p.ID)
	}

	var pending []models.ProjectClaim
	if len(projectIDs) > 0 {
		if err := dc.DB.
			Preload("Members").
			Where("project_id IN ? AND approved = ?", projectIDs, false).
			Order("created_at").
			Find(&pending).Error; err != nil {
			utils.LogError("professor_dashboard", err, map[string]interface{}{"professor_id": professor.ID})
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load claims", nil)
		}
	}

	claimsByProject := make(map[uint][]claimSummary)
	for _, claim := range pending {
		claimsByProject[claim.ProjectID] = append(claimsByProject[claim.ProjectID], dc.summarizeClaim(claim))
	}

	entries := make([]fiber.Map, 0, len(projects))
	for _, p := range projects {
		entries = append(entries, fiber.Map{
			"project":        p,
			"pending_claims": claimsByProject[p.ID],
		})
	}

	return c.JSON(fiber.Map{
		"professor": professor,
		"projects":  entries,
	})
}

// StudentDashboard returns the caller's committed project, if any, and the
// claims still pending that name them.
func (dc *DashboardController) StudentDashboard(c *fiber.Ctx) error {
	student := c.Locals("student").(*models.Student)

	var membership models.ProjectMember
	var committed *models.Project
	err := dc.DB.Where("student_id = ?", student.ID).First(&membership).Error
	if err == nil {
		var project models.Project
		if err := dc.DB.
			Preload("Professor").
			Preload("Members.Student").
			First(&project, "id = ?", membership.ProjectID).Error; err != nil {
			utils.LogError("student_dashboard", err, map[string]interface{}{"student_id": student.ID})
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load project", nil)
		}
		committed = &project
	} else if err != gorm.ErrRecordNotFound {
		utils.LogError("student_dashboard", err, map[string]interface{}{"student_id": student.ID})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load membership", nil)
	}

	var pending []models.ProjectClaim
	if err := dc.DB.
		Preload("Members").
		Joins("JOIN claim_members ON claim_members.claim_id = project_claims.id").
		Where("claim_members.student_id = ? AND project_claims.approved = ?", student.ID, false).
		Order("project_claims.created_at").
		Find(&pending).Error; err != nil {
		utils.LogError("student_dashboard", err, map[string]interface{}{"student_id": student.ID})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load claims", nil)
	}

	pendingOut := make([]fiber.Map, 0, len(pending))
	for _, claim := range pending {
		var project models.Project
		projectTitle := ""
		if dc.DB.First(&project, "id = ?", claim.ProjectID).Error == nil {
			projectTitle = project.Title
		}
		summary := dc.summarizeClaim(claim)
		pendingOut = append(pendingOut, fiber.Map{
			"claim_id":      summary.ID,
			"project_id":    claim.ProjectID,
			"project_title": projectTitle,
			"students":      summary.Students,
			"submitted_at":  summary.SubmittedAt,
		})
	}

	return c.JSON(fiber.Map{
		"student":           student,
		"committed_project": committed,
		"pending_claims":    pendingOut,
	})
}

type claimSummary struct {
	ID          uint             `json:"id"`
	Students    []models.Student `json:"students"`
	SubmittedAt string           `json:"submitted_at"`
}

func (dc *DashboardController) summarizeClaim(claim models.ProjectClaim) claimSummary {
	var students []models.Student
	if ids := claim.StudentIDs(); len(ids) > 0 {
		dc.DB.Where("id IN ?", ids).Find(&students)
	}
	return claimSummary{
		ID:          claim.ID,
		Students:    students,
		SubmittedAt: claim.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
