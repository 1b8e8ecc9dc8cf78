package app

import (
	"github.com/gin-gonic/gin"

	internalhttp "github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/http"
	httpH "github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/http/handlers"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/logger"
)

type Handlers struct {
	Health  *httpH.HealthHandler
	Booking *httpH.BookingHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(),
		Booking: httpH.NewBookingHandler(
			log,
			services.Creator,
			services.Milestone,
			services.Editor,
			services.Deleter,
		),
	}
}

func wireRouter(log *logger.Logger, handlers Handlers) *gin.Engine {
	return internalhttp.NewRouter(internalhttp.RouterConfig{
		Log:            log,
		HealthHandler:  handlers.Health,
		BookingHandler: handlers.Booking,
	})
}
