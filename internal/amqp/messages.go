package amqp

import (
	"encoding/json"
	"strings"
	"time"

	"familybudget/internal/core"
	"familybudget/internal/gateway"
)

const (
	changePrefix = "change"
	alertPrefix  = "alert"
)

// ChangeMessage is the wire form of a gateway change event.
type ChangeMessage struct {
	FamilyID   string    `json:"family_id"`
	Collection string    `json:"collection"`
	DocID      string    `json:"doc_id"`
	Op         string    `json:"op"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewChangeMessage converts ev, stamping it when ev carries no timestamp.
func NewChangeMessage(ev gateway.ChangeEvent) *ChangeMessage {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ChangeMessage{
		FamilyID:   ev.FamilyID,
		Collection: string(ev.Collection),
		DocID:      ev.DocID,
		Op:         string(ev.Op),
		Timestamp:  ts,
	}
}

// Event converts the message back to a change event.
func (m *ChangeMessage) Event() gateway.ChangeEvent {
	return gateway.ChangeEvent{
		FamilyID:   m.FamilyID,
		Collection: gateway.Collection(m.Collection),
		DocID:      m.DocID,
		Op:         gateway.Op(m.Op),
		Timestamp:  m.Timestamp,
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AlertMessage is the wire form of a raised spending alert. Amounts are
// in cents.
type AlertMessage struct {
	FamilyID   string    `json:"family_id"`
	Kind       string    `json:"kind"`
	Key        string    `json:"key"`
	TotalCents int64     `json:"total_cents"`
	LimitCents int64     `json:"limit_cents"`
	Category   string    `json:"category,omitempty"`
	EntryID    string    `json:"entry_id,omitempty"`
	Message    string    `json:"message"`
	RaisedAt   time.Time `json:"raised_at"`
}

func NewAlertMessage(a core.Alert) *AlertMessage {
	return &AlertMessage{
		FamilyID:   a.FamilyID,
		Kind:       string(a.Kind),
		Key:        a.Key,
		TotalCents: a.Total.Cents,
		LimitCents: a.Limit.Cents,
		Category:   a.Category,
		EntryID:    a.EntryID,
		Message:    a.Message,
		RaisedAt:   a.RaisedAt,
	}
}

func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ChangeRoutingKey returns change.<family>.<collection>.
func ChangeRoutingKey(familyID string, c gateway.Collection) string {
	return changePrefix + "." + routingSegment(familyID) + "." + routingSegment(string(c))
}

// AlertRoutingKey returns alert.<family>.<kind>.
func AlertRoutingKey(familyID string, kind core.AlertKind) string {
	return alertPrefix + "." + routingSegment(familyID) + "." + routingSegment(string(kind))
}

// ChangeBindingKey matches every change of one family.
func ChangeBindingKey(familyID string) string {
	return changePrefix + "." + routingSegment(familyID) + ".*"
}

var segmentReplacer = strings.NewReplacer(".", "_", "*", "_", "#", "_")

// routingSegment keeps a value inside one topic word.
func routingSegment(s string) string {
	if s == "" {
		return "_"
	}
	return segmentReplacer.Replace(s)
}
