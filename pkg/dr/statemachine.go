package dr

import "github.com/edgeops/veco-dr-orchestrator/pkg/veco"

// Decision is the state machine's verdict on a requested role change.
type Decision int

const (
	// Deny means the transition is not a legal edge.
	Deny Decision = iota
	// Allow means the transition may be requested on the remote node.
	Allow
	// NoOp means the node already holds the target role. Already-satisfied,
	// not an error.
	NoOp
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case NoOp:
		return "noop"
	default:
		return "deny"
	}
}

// Transition decides whether a node with the given current role may be asked
// to take the target role. Pure function, no I/O; the remote node remains
// authoritative for what the roles actually are.
//
// Legal edges:
//
//	STANDALONE, UNCONFIGURED                       -> STANDBY
//	ACTIVE, STANDBY, STANDBY_CANDIDATE, UNCONFIGURED -> STANDALONE
func Transition(current, target veco.Role) Decision {
	if current == target {
		return NoOp
	}

	switch target {
	case veco.RoleStandby:
		switch current {
		case veco.RoleStandalone, veco.RoleUnconfigured:
			return Allow
		}
	case veco.RoleStandalone:
		switch current {
		case veco.RoleActive, veco.RoleStandby, veco.RoleStandbyCandidate, veco.RoleUnconfigured:
			return Allow
		}
	}
	return Deny
}
