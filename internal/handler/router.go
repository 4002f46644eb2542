package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/office-hours-api/internal/middleware"
	"github.com/noah-isme/office-hours-api/internal/models"
)

// Routes groups the handlers mounted under the API prefix.
type Routes struct {
	Appointments  *AppointmentHandler
	Availability  *AvailabilityHandler
	Notifications *NotificationHandler
	Reviews       *ReviewHandler
}

// Register mounts every API route on group behind auth.
func (r Routes) Register(group *gin.RouterGroup, auth gin.HandlerFunc) {
	group.Use(auth, middleware.WithResponseMeta())

	students := middleware.RequireRoles(models.RoleStudent)
	professors := middleware.RequireRoles(models.RoleProfessor)

	appointments := group.Group("/appointments")
	appointments.POST("", students, r.Appointments.Book)
	appointments.GET("/mine", students, r.Appointments.ListMine)
	appointments.GET("/export", r.Appointments.Export)
	appointments.PATCH("/:appointmentId/cancel", professors, r.Appointments.Cancel)

	availability := group.Group("/availability")
	availability.POST("", professors, r.Availability.Publish)
	availability.GET("/:professorId", r.Availability.ListFor)

	notifications := group.Group("/notifications")
	notifications.GET("", r.Notifications.List)
	notifications.PATCH("/:notificationId/read", r.Notifications.MarkRead)

	reviews := group.Group("/reviews")
	reviews.POST("", students, r.Reviews.Create)
	reviews.GET("/professor/:professorId", r.Reviews.ListForProfessor)
}
