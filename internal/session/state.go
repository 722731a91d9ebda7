package session

import (
	"time"

	"authflow/internal/types"
)

type State int

const (
	Unauthenticated State = iota
	Authenticating
	AuthenticationFailed
	Authenticated
	FetchingProfile
	Ready
	ProfileFetchFailed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case AuthenticationFailed:
		return "authentication_failed"
	case Authenticated:
		return "authenticated"
	case FetchingProfile:
		return "fetching_profile"
	case Ready:
		return "ready"
	case ProfileFetchFailed:
		return "profile_fetch_failed"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of the flow state taken under its lock.
type Snapshot struct {
	State   State
	Token   string
	Profile *types.Profile
	Err     string
	Seq     uint64
}

func (s Snapshot) Authenticated() bool { return s.Token != "" }

func (s Snapshot) Greeting(now time.Time) string {
	if s.Profile == nil {
		return ""
	}
	return Greeting(now, *s.Profile)
}
