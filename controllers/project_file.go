package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"projectclaim/config"
	"projectclaim/models"
	"projectclaim/utils"
)

// UploadFile attaches the deliverable to an owned project. One file per
// project: a second upload replaces the first.
func (pc *ProjectController) UploadFile(c *fiber.Ctx) error {
	professor := c.Locals("professor").(*models.Professor)
	projectID := utils.ParseUint(c.Params("id"))

	var project models.Project
	if err := pc.DB.First(&project, "id = ?", projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch project", err)
	}
	if project.ProfessorID != professor.ID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the owning professor may upload files", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File upload error", err)
	}
	if file.Size > config.AppConfig.MaxUploadSize {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File too large", nil)
	}

	if err := pc.Files.Prepare(projectID); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to prepare upload", err)
	}
	path := pc.Files.PathFor(projectID, file.Filename)
	if err := c.SaveFile(file, path); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save file", err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"file_name":        file.Filename,
		"file_path":        path,
		"file_size":        file.Size,
		"file_uploaded_at": now,
	}
	if err := pc.DB.Model(&project).Updates(updates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record upload", err)
	}

	pc.Logger.Printf("File %q uploaded for project %d", file.Filename, projectID)
	return c.JSON(fiber.Map{
		"message":   "File uploaded successfully",
		"file_name": file.Filename,
		"file_size": file.Size,
	})
}

// DownloadFile streams the project deliverable. Committed students and the
// owning professor may download.
func (pc *ProjectController) DownloadFile(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := utils.ParseUint(c.Params("id"))

	var project models.Project
	if err := pc.DB.First(&project, "id = ?", projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch project", err)
	}
	if project.FilePath == "" {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Project has no file", nil)
	}

	allowed := false
	switch user.Role {
	case models.RoleProfessor:
		var professor models.Professor
		if err := pc.DB.Where("user_id = ?", user.ID).First(&professor).Error; err == nil {
			allowed = professor.ID == project.ProfessorID
		}
	case models.RoleStudent:
		var student models.Student
		if err := pc.DB.Where("user_id = ?", user.ID).First(&student).Error; err == nil {
			var count int64
			pc.DB.Model(&models.ProjectMember{}).
				Where("project_id = ? AND student_id = ?", projectID, student.ID).
				Count(&count)
			allowed = count > 0
		}
	}
	if !allowed {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "File access requires an approved claim", nil)
	}

	return c.Download(project.FilePath, project.FileName)
}
