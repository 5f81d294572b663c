package service

import (
	"convoy_web/internal/repository"
	"convoy_web/internal/routing"
	"convoy_web/pkg/config"
)

type Services struct {
	User    *UserService
	Convoy  *ConvoyService
	Tracker *ConvoyTracker
	Routing *routing.Client
}

func NewServices(repos *repository.Repositories, cfg *config.Config) *Services {
	routingClient := routing.NewClient(cfg.Routing.OSRMURL)

	userService := NewUserService(repos.User)
	convoyService := NewConvoyService(repos.Convoy)

	// 車隊服務同時作為追蹤器的目的地解析器
	tracker := NewConvoyTracker(routingClient, convoyService)

	return &Services{
		User:    userService,
		Convoy:  convoyService,
		Tracker: tracker,
		Routing: routingClient,
	}
}
