package subscribers

import (
	"blogsmith/internal/adapters/ws/userws"
	"blogsmith/internal/domain"
)

type DeploymentLive struct {
	hub *userws.Hub
}

func NewDeploymentLive(hub *userws.Hub) *DeploymentLive {
	return &DeploymentLive{hub: hub}
}

func (s *DeploymentLive) Handle(event any) {
	evt, ok := event.(domain.EventDeploymentLive)
	if !ok {
		return
	}

	s.hub.Send(evt.OwnerID, &userws.ServerEvent{
		Event:   "deployment_live",
		Payload: evt,
	})
}
