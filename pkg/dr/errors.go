package dr

import (
	"fmt"
	"time"

	"github.com/edgeops/veco-dr-orchestrator/pkg/veco"
)

// IllegalTransitionError reports a role change the state machine denies.
// State-machine denials are decisions, not remote faults.
type IllegalTransitionError struct {
	Node    string
	Current veco.Role
	Target  veco.Role
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal role transition on %s: %s -> %s", e.Node, e.Current, e.Target)
}

// RoleTimeoutError reports that a node did not reach the target role before
// the deadline. LastRole is the last successfully observed role, which may be
// empty if every read during the window failed.
type RoleTimeoutError struct {
	Node     string
	Target   veco.Role
	LastRole veco.Role
	Timeout  time.Duration
}

func (e *RoleTimeoutError) Error() string {
	return fmt.Sprintf("%s did not reach role %s within %s (last observed %q)",
		e.Node, e.Target, e.Timeout, e.LastRole)
}

// ClientsPresentError blocks Establish when the secondary still serves
// clients and the force flag was not given.
type ClientsPresentError struct {
	Node  string
	Count int
}

func (e *ClientsPresentError) Error() string {
	return fmt.Sprintf("%d clients attached to %s; refusing standby assignment without force", e.Count, e.Node)
}

// EstablishTimeoutError reports that the secondary never converged to
// STANDBY. The caller is expected to revert both nodes.
type EstablishTimeoutError struct {
	Node string
	Err  error
}

func (e *EstablishTimeoutError) Error() string {
	return fmt.Sprintf("establish: %s did not converge to standby: %v", e.Node, e.Err)
}

func (e *EstablishTimeoutError) Unwrap() error { return e.Err }

// DrConfigurationError reports that the DR-link configuration call on the
// primary was rejected. The caller must revert both nodes; no automatic
// rollback is attempted.
type DrConfigurationError struct {
	Node string
	Err  error
}

func (e *DrConfigurationError) Error() string {
	return fmt.Sprintf("DR configuration on %s failed: %v", e.Node, e.Err)
}

func (e *DrConfigurationError) Unwrap() error { return e.Err }

// NotConfiguredError reports that a node has no usable DR pairing to promote
// within. Distinct from a transition error: there is nothing to act on.
type NotConfiguredError struct {
	Node string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("DR is not configured on %s", e.Node)
}

// PromotionNotAllowedError rejects promotion of a node whose role cannot be
// promoted.
type PromotionNotAllowedError struct {
	Node string
	Role veco.Role
}

func (e *PromotionNotAllowedError) Error() string {
	return fmt.Sprintf("will not promote %s with role %s", e.Node, e.Role)
}

// HealthCheckError reports a promotion that was applied but whose edge
// reattachment never passed the health policy. The role change has happened;
// the operator must inspect edge health manually.
type HealthCheckError struct {
	Node     string
	Baseline veco.EdgeCountSnapshot
	Last     veco.EdgeCountSnapshot
	Reason   string
}

func (e *HealthCheckError) Error() string {
	return fmt.Sprintf("edge health check failed on %s: %s (baseline connected=%d, last connected=%d)",
		e.Node, e.Reason, e.Baseline.Connected, e.Last.Connected)
}

// BreakIncompleteError reports the nodes that failed to confirm STANDALONE
// during Break. Per-node results accompany it so callers see exactly which
// node failed.
type BreakIncompleteError struct {
	Failed []string
}

func (e *BreakIncompleteError) Error() string {
	return fmt.Sprintf("nodes failed to enter STANDALONE: %v", e.Failed)
}
