package app

import (
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/clients/erpnext"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/logger"
)

type Clients struct {
	Store erpnext.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	store, err := erpnext.New(log, cfg.ERPNext)
	if err != nil {
		return Clients{}, err
	}
	return Clients{Store: store}, nil
}
