package subscribers

import (
	"blogsmith/internal/adapters/ws/userws"
	"blogsmith/internal/domain"
)

type DeploymentDeleted struct {
	hub *userws.Hub
}

func NewDeploymentDeleted(hub *userws.Hub) *DeploymentDeleted {
	return &DeploymentDeleted{hub: hub}
}

func (s *DeploymentDeleted) Handle(event any) {
	evt, ok := event.(domain.EventDeploymentDeleted)
	if !ok {
		return
	}

	s.hub.Send(evt.OwnerID, &userws.ServerEvent{
		Event:   "deployment_deleted",
		Payload: evt,
	})
}
