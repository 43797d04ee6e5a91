package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// ID identifies a message or group. Server ids are positive; ids minted
// locally for optimistic entities are negative.
type ID int64

// IsProvisional reports whether the id was minted locally.
func (id ID) IsProvisional() bool {
	return id < 0
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses a decimal id.
func ParseID(raw string) (ID, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// Sender identifies the author of a message.
type Sender struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Message is a chat message as exchanged with the gateway.
type Message struct {
	ID        ID        `json:"id"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ReplyTo   *Message  `json:"replyTo,omitempty"`
	RepliedBy []Message `json:"repliedBy,omitempty"`
}

type messageAlias Message

type messageWire struct {
	messageAlias
	ReplyTo json.RawMessage `json:"replyTo,omitempty"`
}

// UnmarshalJSON accepts replyTo either as a nested message or as a bare id.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire messageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*m = Message(wire.messageAlias)
	m.ReplyTo = nil

	raw := bytes.TrimSpace(wire.ReplyTo)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '{' {
		var parent Message
		if err := json.Unmarshal(raw, &parent); err != nil {
			return err
		}
		m.ReplyTo = &parent
		return nil
	}
	var id ID
	if err := json.Unmarshal(raw, &id); err != nil {
		return err
	}
	m.ReplyTo = &Message{ID: id}
	return nil
}

// Group is a chat group. MessageCount is filled in client-side.
type Group struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Creator      string `json:"creator"`
	MessageCount *int   `json:"message_count,omitempty"`
}

// Count returns the message count, or 0 when unknown.
func (g Group) Count() int {
	if g.MessageCount == nil {
		return 0
	}
	return *g.MessageCount
}

// User is the authenticated user's profile.
type User struct {
	ID        ID     `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Tokens is the credential pair issued at login.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// NewMessage is the payload for posting a message.
type NewMessage struct {
	Content string `json:"content"`
	Group   ID     `json:"group"`
	ReplyTo *ID    `json:"replyTo,omitempty"`
}

// Registration is the payload for creating an account.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// Credentials is the login payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ConfigEntry is a stored key/value pair.
type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
