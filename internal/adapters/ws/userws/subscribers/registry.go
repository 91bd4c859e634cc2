// Package subscribers binds bus events to websocket fan-out.
package subscribers

import (
	"blogsmith/internal/adapters/ws/userws"
	"blogsmith/internal/event"
)

type EventBus interface {
	Subscribe(eventName string, handler event.Handler)
}

func Register(bus EventBus, hub *userws.Hub) {
	statusChanged := NewDeploymentStatusChanged(hub)
	live := NewDeploymentLive(hub)
	deleted := NewDeploymentDeleted(hub)

	bus.Subscribe("deployment_status_changed", statusChanged.Handle)
	bus.Subscribe("deployment_live", live.Handle)
	bus.Subscribe("deployment_deleted", deleted.Handle)
}
