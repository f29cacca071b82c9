package bus

import (
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"
)

const (
	DefaultToggleSubject = "datawatch.toggle"
	SessionSubjectPrefix = "datawatch.session."
)

// ToggleEvent asks the watcher to flip the auto-refresh flag of a session.
type ToggleEvent struct {
	SessionID string `json:"session_id"`
}

type Conn struct {
	Conn *nats.Conn
}

func Connect(url string) (*Conn, error) {
	conn, err := nats.Connect(url, nats.Name("datawatch"))
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn}, nil
}

func (c *Conn) Close() {
	if c.Conn != nil {
		c.Conn.Drain()
		c.Conn.Close()
	}
}

func (c *Conn) Publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.Conn.Publish(subject, data)
}

// SubscribeToggle delivers every well formed toggle event to handler.
// Messages without a session id are dropped.
func (c *Conn) SubscribeToggle(subject string, handler func(ToggleEvent)) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultToggleSubject
	}
	return c.Conn.Subscribe(subject, func(msg *nats.Msg) {
		evt, ok := DecodeToggle(msg.Data)
		if !ok {
			return
		}
		handler(evt)
	})
}

func DecodeToggle(data []byte) (ToggleEvent, bool) {
	var evt ToggleEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return ToggleEvent{}, false
	}
	evt.SessionID = strings.TrimSpace(evt.SessionID)
	return evt, evt.SessionID != ""
}

func SessionSubject(sessionID string) string {
	return SessionSubjectPrefix + sessionID
}
