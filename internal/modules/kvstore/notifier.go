package kvstore

import (
	"github.com/aristath/reportdesk/internal/events"
)

// moduleName tags the events published by the store.
const moduleName = "kvstore"

// notifier publishes committed writes as events.KeyChanged and fans them out to key
// subscribers.
type notifier struct {
	bus *events.Bus
}

func (n notifier) publish(change Change) {
	n.bus.EmitTyped(moduleName, &events.KeyChangedData{
		Key:     change.Key,
		Origin:  change.Origin,
		Deleted: change.Deleted,
	})
}

func (n notifier) subscribe(key string, fn func(Change)) func() {
	return n.bus.Subscribe(events.KeyChanged, func(event *events.Event) {
		data, ok := event.GetTypedData().(*events.KeyChangedData)
		if !ok {
			return
		}
		if key != "" && data.Key != key {
			return
		}
		fn(Change{Key: data.Key, Origin: data.Origin, Deleted: data.Deleted})
	})
}
