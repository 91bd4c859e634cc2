package subscribers

import (
	"blogsmith/internal/adapters/ws/userws"
	"blogsmith/internal/domain"
)

type DeploymentStatusChanged struct {
	hub *userws.Hub
}

func NewDeploymentStatusChanged(hub *userws.Hub) *DeploymentStatusChanged {
	return &DeploymentStatusChanged{hub: hub}
}

func (s *DeploymentStatusChanged) Handle(event any) {
	evt, ok := event.(domain.EventDeploymentStatusChanged)
	if !ok {
		return
	}

	s.hub.Send(evt.OwnerID, &userws.ServerEvent{
		Event:   "deployment_status_changed",
		Payload: evt,
	})
}
