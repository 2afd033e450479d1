package handlers

import (
	"github.com/stayserve/hotel-orders/internal/service"
	"github.com/stayserve/hotel-orders/pkg/config"
)

type Handlers struct {
	mfaService   service.MFAService
	guestService service.GuestService
	config       *config.Config
}

func New(mfaService service.MFAService, guestService service.GuestService, config *config.Config) *Handlers {
	return &Handlers{
		mfaService:   mfaService,
		guestService: guestService,
		config:       config,
	}
}
