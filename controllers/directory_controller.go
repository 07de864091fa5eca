package controller

import (
	"github.com/gofiber/fiber/v2"

	"projectclaim/config"
	"projectclaim/models"
	"projectclaim/utils"
)

// GetProfessors lists professors together with how many projects each has
// posted.
func GetProfessors(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := config.DB.Model(&models.Professor{})
	if q := c.Query("q"); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("first_name ILIKE ? OR last_name ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count professors", nil)
	}

	var professors []models.Professor
	if err := query.
		Preload("Projects").
		Order("last_name, first_name").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&professors).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch professors", nil)
	}

	entries := make([]fiber.Map, 0, len(professors))
	for _, p := range professors {
		entries = append(entries, fiber.Map{
			"id":            p.ID,
			"professor_id":  p.ProfessorID,
			"name":          p.FullName(),
			"phone_number":  p.PhoneNumber,
			"project_count": len(p.Projects),
		})
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  entries,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetStudents lists students and whether each is already committed to a
// project.
func GetStudents(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := config.DB.Model(&models.Student{})
	if q := c.Query("q"); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("first_name ILIKE ? OR last_name ILIKE ? OR student_id LIKE ?", pattern, pattern, pattern)
	}
	if year := c.QueryInt("year", 0); year > 0 {
		query = query.Where("year_attended = ?", year)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count students", nil)
	}

	var students []models.Student
	if err := query.
		Order("last_name, first_name").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&students).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch students", nil)
	}

	studentIDs := make([]uint, 0, len(students))
	for _, s := range students {
		studentIDs = append(studentIDs, s.ID)
	}
	committed := make(map[uint]uint)
	if len(studentIDs) > 0 {
		var memberships []models.ProjectMember
		if err := config.DB.Where("student_id IN ?", studentIDs).Find(&memberships).Error; err == nil {
			for _, m := range memberships {
				committed[m.StudentID] = m.ProjectID
			}
		}
	}

	entries := make([]fiber.Map, 0, len(students))
	for _, s := range students {
		entry := fiber.Map{
			"id":            s.ID,
			"student_id":    s.StudentID,
			"name":          s.FullName(),
			"year_attended": s.YearAttended,
			"committed":     false,
		}
		if projectID, ok := committed[s.ID]; ok {
			entry["committed"] = true
			entry["project_id"] = projectID
		}
		entries = append(entries, entry)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  entries,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
