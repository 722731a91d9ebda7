package types

type MessageType string

const (
	// Commands sent by a UI shell over the bridge.
	TypeLogin    MessageType = "login"
	TypeRegister MessageType = "register"
	TypeLogout   MessageType = "logout"
	TypeState    MessageType = "state"

	// Replies pushed by the bridge.
	TypeSnapshot MessageType = "snapshot"
	TypeError    MessageType = "error"
)

// Command is an inbound bridge message.
type Command struct {
	Type     MessageType `json:"type"`
	Username string      `json:"username,omitempty"`
	Email    string      `json:"email,omitempty"`
	Password string      `json:"password,omitempty"`
}

// StateMessage is an outbound bridge message describing the session.
type StateMessage struct {
	Type          MessageType `json:"type"`
	State         string      `json:"state,omitempty"`
	Authenticated bool        `json:"authenticated"`
	Profile       *Profile    `json:"profile,omitempty"`
	Greeting      string      `json:"greeting,omitempty"`
	Error         string      `json:"error,omitempty"`
	Seq           uint64      `json:"seq"`
	Timestamp     int64       `json:"timestamp"`
}
