package middleware

import (
	"github.com/gofiber/fiber/v2"

	"projectclaim/config"
	"projectclaim/models"
)

// RequireProfessor gates a route to professor accounts and loads the
// professor profile into the context.
func RequireProfessor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)
		if user.Role != models.RoleProfessor {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Professor role required",
			})
		}

		var professor models.Professor
		if err := config.DB.Where("user_id = ?", user.ID).First(&professor).Error; err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Professor profile not found",
			})
		}

		c.Locals("professor", &professor)
		return c.Next()
	}
}

// RequireStudent gates a route to student accounts and loads the student
// profile into the context.
func RequireStudent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)
		if user.Role != models.RoleStudent {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Student role required",
			})
		}

		var student models.Student
		if err := config.DB.Where("user_id = ?", user.ID).First(&student).Error; err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Student profile not found",
			})
		}

		c.Locals("student", &student)
		return c.Next()
	}
}
