package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"projectclaim/claims"
	"projectclaim/models"
	"projectclaim/utils"
)

type ClaimController struct {
	DB     *gorm.DB
	Engine *claims.Engine
	Mailer *utils.Mailer
	Logger *log.Logger
}

func NewClaimController(db *gorm.DB, engine *claims.Engine, mailer *utils.Mailer, logger *log.Logger) *ClaimController {
	return &ClaimController{
		DB:     db,
		Engine: engine,
		Mailer: mailer,
		Logger: logger,
	}
}

// claimError translates lifecycle engine failures into JSON responses.
// Anything unclassified is an internal error and goes to Sentry.
func claimError(c *fiber.Ctx, err error) error {
	if e, ok := claims.AsError(err); ok {
		return utils.ErrorResponse(c, e.HTTPStatus(), e.Message, nil)
	}
	utils.LogError("claim_engine", err, map[string]interface{}{
		"path":   c.Path(),
		"method": c.Method(),
	})
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Internal server error", nil)
}

// SubmitClaim records a pending group claim. The submitting student must be
// part of the group.
func (cc *ClaimController) SubmitClaim(c *fiber.Ctx) error {
	student := c.Locals("student").(*models.Student)
	projectID := utils.ParseUint(c.Params("id"))

	var input struct {
		StudentIDs []string `json:"student_ids" validate:"required,min=1,max=4,dive,len=10"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	included := false
	for _, ext := range input.StudentIDs {
		if ext == student.StudentID {
			included = true
			break
		}
	}
	if !included {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "The submitting student must be part of the group", nil)
	}

	claim, err := cc.Engine.Submit(c.Context(), projectID, input.StudentIDs)
	if err != nil {
		return claimError(c, err)
	}

	cc.notifyProfessor(claim)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Claim submitted successfully",
		"claim":   claim,
	})
}

// ApproveClaim commits a pending claim on a project owned by the caller.
func (cc *ClaimController) ApproveClaim(c *fiber.Ctx) error {
	professor := c.Locals("professor").(*models.Professor)
	claimID := utils.ParseUint(c.Params("id"))

	claim, err := cc.Engine.Approve(c.Context(), claimID, professor.ID)
	if err != nil {
		return claimError(c, err)
	}

	cc.notifyStudents(claim, "approved")

	return c.JSON(fiber.Map{
		"message": "Claim approved successfully",
		"claim":   claim,
	})
}

// RejectClaim discards a pending claim on a project owned by the caller.
func (cc *ClaimController) RejectClaim(c *fiber.Ctx) error {
	professor := c.Locals("professor").(*models.Professor)
	claimID := utils.ParseUint(c.Params("id"))

	// Snapshot before deletion so the notification can still name recipients.
	var claim models.ProjectClaim
	hadClaim := cc.DB.Preload("Members").First(&claim, "id = ?", claimID).Error == nil

	if err := cc.Engine.Reject(c.Context(), claimID, professor.ID); err != nil {
		return claimError(c, err)
	}

	if hadClaim {
		cc.notifyStudents(&claim, "rejected")
	}

	return c.JSON(fiber.Map{"message": "Claim rejected successfully"})
}

// CancelClaim withdraws the calling student's pending claim on a project.
func (cc *ClaimController) CancelClaim(c *fiber.Ctx) error {
	student := c.Locals("student").(*models.Student)
	projectID := utils.ParseUint(c.Params("id"))

	if err := cc.Engine.Cancel(c.Context(), projectID, student.ID); err != nil {
		return claimError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Claim canceled successfully"})
}

// ProfessorCancelClaim removes a pending claim naming the given student from
// a project owned by the caller.
func (cc *ClaimController) ProfessorCancelClaim(c *fiber.Ctx) error {
	professor := c.Locals("professor").(*models.Professor)
	projectID := utils.ParseUint(c.Params("id"))
	externalStudentID := c.Params("studentID")

	if err := cc.Engine.ProfessorCancel(c.Context(), projectID, externalStudentID, professor.ID); err != nil {
		return claimError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Claim canceled successfully"})
}

func (cc *ClaimController) notifyProfessor(claim *models.ProjectClaim) {
	if !cc.Mailer.Enabled() {
		return
	}

	var project models.Project
	if err := cc.DB.Preload("Professor").First(&project, "id = ?", claim.ProjectID).Error; err != nil {
		return
	}
	var owner models.User
	if err := cc.DB.First(&owner, project.Professor.UserID).Error; err != nil {
		return
	}

	var names []string
	var students []models.Student
	if err := cc.DB.Where("id IN ?", claim.StudentIDs()).Find(&students).Error; err == nil {
		for _, s := range students {
			names = append(names, s.FullName())
		}
	}

	cc.Mailer.NotifyClaimSubmitted(owner.Email, project.Title, names)
}

func (cc *ClaimController) notifyStudents(claim *models.ProjectClaim, decision string) {
	if !cc.Mailer.Enabled() {
		return
	}

	var project models.Project
	if err := cc.DB.First(&project, "id = ?", claim.ProjectID).Error; err != nil {
		return
	}

	var emails []string
	var students []models.Student
	if err := cc.DB.Where("id IN ?", claim.StudentIDs()).Find(&students).Error; err != nil {
		return
	}
	for _, s := range students {
		var account models.User
		if err := cc.DB.First(&account, s.UserID).Error; err == nil {
			emails = append(emails, account.Email)
		}
	}

	cc.Mailer.NotifyClaimDecided(emails, project.Title, decision)
}
