package presentation

import "log/slog"

type Fanout []Sink

func (f Fanout) Publish(evt Event) {
	for _, sink := range f {
		if sink != nil {
			sink.Publish(evt)
		}
	}
}

type Publisher interface {
	Publish(subject string, payload any) error
}

// NATSSink forwards events to a message bus subject. Publish failures are
// logged and otherwise ignored so the refresh loop never blocks on the bus.
type NATSSink struct {
	Publisher Publisher
	Subject   string
	Logger    *slog.Logger
}

func (n NATSSink) Publish(evt Event) {
	if n.Publisher == nil {
		return
	}
	if err := n.Publisher.Publish(n.Subject, evt); err != nil && n.Logger != nil {
		n.Logger.Warn("publish display event failed", slog.String("subject", n.Subject), slog.String("error", err.Error()))
	}
}
