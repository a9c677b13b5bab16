package domain

// ConnectionState is the lifecycle state of a chat session.
type ConnectionState int32

const (
	Idle ConnectionState = iota
	FetchingCredentials
	Connecting
	Authenticating
	Connected
	Reconnecting
	Closing
	Closed
)

var stateNames = [...]string{
	Idle:                "idle",
	FetchingCredentials: "fetching_credentials",
	Connecting:          "connecting",
	Authenticating:      "authenticating",
	Connected:           "connected",
	Reconnecting:        "reconnecting",
	Closing:             "closing",
	Closed:              "closed",
}

func (s ConnectionState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition may happen.
func (s ConnectionState) Terminal() bool {
	return s == Closing || s == Closed
}
