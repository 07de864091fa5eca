package controller

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"projectclaim/claims"
	"projectclaim/models"
	"projectclaim/storage"
	"projectclaim/utils"
)

type ProjectController struct {
	DB     *gorm.DB
	Engine *claims.Engine
	Files  *storage.LocalStore
	Logger *log.Logger
}

func NewProjectController(db *gorm.DB, engine *claims.Engine, files *storage.LocalStore, logger *log.Logger) *ProjectController {
	return &ProjectController{
		DB:     db,
		Engine: engine,
		Files:  files,
		Logger: logger,
	}
}

// CreateProject posts a new project owned by the calling professor. The
// identifier comes from the wraparound allocator, not the database sequence.
func (pc *ProjectController) CreateProject(c *fiber.Ctx) error {
	professor := c.Locals("professor").(*models.Professor)

	var input struct {
		Title       string `json:"title" validate:"required,max=100"`
		Description string `json:"description" validate:"omitempty"`
		Capacity    int    `json:"capacity" validate:"required,min=1,max=4"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	// Titles are unique across the directory
	var existing models.Project
	if err := pc.DB.Where("title = ?", input.Title).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "A project with this title already exists", nil)
	}

	project := models.Project{
		ProfessorID: professor.ID,
		Title:       input.Title,
		Description: input.Description,
		Capacity:    input.Capacity,
	}

	if err := pc.Engine.CreateProject(c.Context(), &project); err != nil {
		return claimError(c, err)
	}

	pc.Logger.Printf("Project %d created by professor %d", project.ID, professor.ID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Project created successfully",
		"project": project,
	})
}

// GetProjects lists projects with availability, capacity and text filters.
func (pc *ProjectController) GetProjects(c *fiber.Ctx) error {
	// Pagination
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := pc.DB.Model(&models.Project{}).Preload("Professor")

	if available := c.Query("available"); available != "" {
		query = query.Where("projects.is_available = ?", available == "true")
	}
	if minCapacity := c.Query("min_capacity"); minCapacity != "" {
		mc, err := strconv.Atoi(minCapacity)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid min_capacity", err)
		}
		query = query.Where("projects.capacity >= ?", mc)
	}
	if q := c.Query("q"); q != "" {
		pattern := "%" + q + "%"
		query = query.
			Joins("JOIN professors ON professors.id = projects.professor_id").
			Where("projects.title LIKE ? OR professors.first_name LIKE ? OR professors.last_name LIKE ?",
				pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count projects", err)
	}

	var projects []models.Project
	if err := query.Offset(offset).Limit(limit).Order("projects.id").Find(&projects).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch projects", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  projects,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetProject returns one project with its professor and committed roster.
func (pc *ProjectController) GetProject(c *fiber.Ctx) error {
	projectID := utils.ParseUint(c.Params("id"))

	var project models.Project
	err := pc.DB.Preload("Professor").Preload("Members.Student").First(&project, "id = ?", projectID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch project", err)
	}

	return c.JSON(utils.SuccessResponse(project))
}

// DeleteProject removes an owned project, its claims, roster and file.
func (pc *ProjectController) DeleteProject(c *fiber.Ctx) error {
	professor := c.Locals("professor").(*models.Professor)
	projectID := utils.ParseUint(c.Params("id"))

	if err := pc.Engine.DeleteProject(c.Context(), projectID, professor.ID); err != nil {
		return claimError(c, err)
	}
	if err := pc.Files.Remove(projectID); err != nil {
		pc.Logger.Printf("Failed to remove files for project %d: %v", projectID, err)
	}

	return c.JSON(fiber.Map{"message": "Project deleted successfully"})
}

// ClearClaims wipes every claim and roster entry on an owned project and
// re-opens it.
func (pc *ProjectController) ClearClaims(c *fiber.Ctx) error {
	professor := c.Locals("professor").(*models.Professor)
	projectID := utils.ParseUint(c.Params("id"))

	if err := pc.Engine.ClearClaims(c.Context(), projectID, professor.ID); err != nil {
		return claimError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Claims cleared successfully"})
}
