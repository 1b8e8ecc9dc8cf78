package app

import (
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/logger"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/services"
)

type Services struct {
	Catalog   services.CatalogService
	Creator   services.CreatorService
	Milestone services.MilestoneService
	Editor    services.EditorService
	Deleter   services.DeleterService
}

func wireServices(log *logger.Logger, clients Clients) Services {
	log.Info("Wiring services...")
	catalog := services.NewCatalogService(clients.Store, log)
	return Services{
		Catalog:   catalog,
		Creator:   services.NewCreatorService(clients.Store, catalog, log),
		Milestone: services.NewMilestoneService(clients.Store, log),
		Editor:    services.NewEditorService(clients.Store, catalog, log),
		Deleter:   services.NewDeleterService(clients.Store, log),
	}
}
