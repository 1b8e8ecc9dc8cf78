package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/http/handlers"
	httpMW "github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/http/middleware"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	HealthHandler  *httpH.HealthHandler
	BookingHandler *httpH.BookingHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(otelgin.Middleware("booking-orchestrator"))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.BookingHandler != nil {
			api.POST("/bookings", cfg.BookingHandler.CreateBooking)
			api.POST("/bookings/:id/milestones", cfg.BookingHandler.AddMilestone)
			api.PATCH("/bookings/:id/venue", cfg.BookingHandler.UpdateVenue)
			api.PATCH("/bookings/:id/addons", cfg.BookingHandler.UpdateAddons)
			api.PATCH("/bookings/:id/team", cfg.BookingHandler.UpdateTeam)
			api.DELETE("/bookings/:id", cfg.BookingHandler.DeleteBooking)
		}
	}

	return r
}
