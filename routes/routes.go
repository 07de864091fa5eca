package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"projectclaim/claims"
	"projectclaim/config"
	controller "projectclaim/controllers"
	"projectclaim/middleware"
	"projectclaim/storage"
	"projectclaim/utils"
)

func SetupAuthRoutes(app *fiber.App) {
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Post("/change-password", controller.ChangePassword)
	protectedAuth.Get("/me", controller.GetCurrentUser)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	engine := claims.NewEngine(claims.NewGormStore(db), logrus.StandardLogger())

	files, err := storage.NewLocalStore(config.AppConfig.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}
	mailer := utils.NewMailer(config.AppConfig.SMTP)

	projectController := controller.NewProjectController(db, engine, files, log.New(os.Stdout, "PROJECT: ", log.LstdFlags))
	claimController := controller.NewClaimController(db, engine, mailer, log.New(os.Stdout, "CLAIM: ", log.LstdFlags))
	dashboardController := controller.NewDashboardController(db, log.New(os.Stdout, "DASHBOARD: ", log.LstdFlags))

	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Project routes
	project := api.Group("/projects")
	project.Get("/", projectController.GetProjects)
	project.Get("/:id", projectController.GetProject)
	project.Post("/", middleware.RequireProfessor(), projectController.CreateProject)
	project.Delete("/:id", middleware.RequireProfessor(), projectController.DeleteProject)
	project.Post("/:id/file", middleware.RequireProfessor(), projectController.UploadFile)
	project.Get("/:id/file", projectController.DownloadFile)
	project.Post("/:id/clear-claims", middleware.RequireProfessor(), projectController.ClearClaims)

	// Claim routes
	project.Post("/:id/claims", middleware.RequireStudent(), middleware.ClaimRateLimiter(), claimController.SubmitClaim)
	project.Delete("/:id/claim", middleware.RequireStudent(), claimController.CancelClaim)
	project.Delete("/:id/claims/:studentID", middleware.RequireProfessor(), claimController.ProfessorCancelClaim)
	claim := api.Group("/claims", middleware.RequireProfessor())
	claim.Post("/:id/approve", claimController.ApproveClaim)
	claim.Post("/:id/reject", claimController.RejectClaim)

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.Get("/professor", middleware.RequireProfessor(), dashboardController.ProfessorDashboard)
	dashboard.Get("/student", middleware.RequireStudent(), dashboardController.StudentDashboard)

	// Directory routes
	api.Get("/professors", controller.GetProfessors)
	api.Get("/students", controller.GetStudents)

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app)
	SetupAPIRoutes(app, db)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
