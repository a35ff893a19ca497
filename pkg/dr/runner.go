// Package dr drives a pair of orchestrator nodes through the disaster
// recovery role workflows: establish a replication pair, break or revert it,
// and promote a standby after verifying edge reattachment. Execution is
// strictly sequential; every remote call blocks and every polling loop is a
// sleep-then-call cycle with a hard wall-clock deadline.
package dr

import (
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/edgeops/veco-dr-orchestrator/pkg/auth"
	"github.com/edgeops/veco-dr-orchestrator/pkg/clock"
	"github.com/edgeops/veco-dr-orchestrator/pkg/veco"
)

// Default deadlines and intervals for the polling loops.
const (
	DefaultRoleChangeWait = 180 * time.Second
	DefaultEstablishWait  = 300 * time.Second
	DefaultStabilizeWait  = 60 * time.Second
	DefaultMonitorWindow  = 300 * time.Second

	rolePollInterval    = 5 * time.Second
	monitorPollInterval = 5 * time.Second
	promoteConfirmPolls = 5
)

// Node is the capability surface the workflows need from one orchestrator
// node. *veco.Client satisfies it; tests use a scripted fake.
type Node interface {
	Name() string
	FQDN() string
	Login(username, password string) error
	IsAuthenticated() bool
	GetRole() (veco.Role, error)
	GetReplicationStatus() (*veco.ReplicationStatus, error)
	GetEdgeCounts() (veco.EdgeCountSnapshot, error)
	GetClientCount() (int, error)
	GetSystemProperty(name string) (*veco.SystemProperty, error)
	CreateSystemProperty(prop veco.SystemProperty) error
	UpdateSystemProperty(prop veco.SystemProperty) error
	GetUserID(username string) (int, error)
	CreateOperatorSuperuser(username, password, firstName, lastName string) error
	DeleteOperatorUser(username string) error
	SetRoleStandby() error
	SetRoleStandalone() error
	PromoteToActive(force bool) error
	ConfigureDrLink(cfg veco.DrLinkConfig) error
}

// Dialer opens a handle on a node discovered at runtime, such as the active
// peer resolved from replication status during Promote.
type Dialer func(address string) (Node, error)

// Config carries the credentials and deadlines for a Runner. Zero durations
// take the package defaults.
type Config struct {
	Credentials auth.Credentials

	RoleChangeWait time.Duration
	EstablishWait  time.Duration
	StabilizeWait  time.Duration
	MonitorWindow  time.Duration

	Dial  Dialer
	Clock clock.Clock
	Gate  *auth.Gate
}

// Runner executes the DR workflows against one node pair. It holds no node
// state across invocations; the remote nodes are authoritative.
type Runner struct {
	creds auth.Credentials
	gate  *auth.Gate
	clock clock.Clock
	dial  Dialer

	roleChangeWait time.Duration
	establishWait  time.Duration
	stabilizeWait  time.Duration
	monitorWindow  time.Duration
}

// New builds a Runner, defaulting any unset deadline, clock or gate.
func New(cfg Config) *Runner {
	r := &Runner{
		creds:          cfg.Credentials,
		gate:           cfg.Gate,
		clock:          cfg.Clock,
		dial:           cfg.Dial,
		roleChangeWait: cfg.RoleChangeWait,
		establishWait:  cfg.EstablishWait,
		stabilizeWait:  cfg.StabilizeWait,
		monitorWindow:  cfg.MonitorWindow,
	}
	if r.clock == nil {
		r.clock = clock.Real{}
	}
	if r.gate == nil {
		r.gate = &auth.Gate{MaxWait: auth.DefaultMaxWait, Clock: r.clock}
	}
	if r.dial == nil {
		r.dial = func(address string) (Node, error) {
			return veco.New(address), nil
		}
	}
	if r.roleChangeWait <= 0 {
		r.roleChangeWait = DefaultRoleChangeWait
	}
	if r.establishWait <= 0 {
		r.establishWait = DefaultEstablishWait
	}
	if r.stabilizeWait <= 0 {
		r.stabilizeWait = DefaultStabilizeWait
	}
	if r.monitorWindow <= 0 {
		r.monitorWindow = DefaultMonitorWindow
	}
	return r
}

// configureRole asks the state machine whether the change is legal and, if
// so, issues the matching command. A NoOp decision succeeds without any
// remote call.
func (r *Runner) configureRole(node Node, target veco.Role) error {
	current, err := node.GetRole()
	if err != nil {
		return fmt.Errorf("read role of %s: %w", node.Name(), err)
	}

	decision := Transition(current, target)
	klog.InfoS("Configuring role", "node", node.Name(), "current", current, "target", target, "decision", decision.String())

	switch decision {
	case NoOp:
		return nil
	case Allow:
		switch target {
		case veco.RoleStandby:
			return node.SetRoleStandby()
		case veco.RoleStandalone:
			return node.SetRoleStandalone()
		}
	}
	return &IllegalTransitionError{Node: node.Name(), Current: current, Target: target}
}

// WaitForRole polls a node until it reports the target role or the timeout
// elapses. Each iteration re-authenticates first, because the remote node
// drops sessions while restarting internal services mid-transition. Errors
// expected during that instability are swallowed and logged; anything else
// aborts the wait.
func (r *Runner) WaitForRole(node Node, target veco.Role, timeout time.Duration) error {
	deadline := r.clock.Now().Add(timeout)
	var lastRole veco.Role

	for r.clock.Now().Before(deadline) {
		remaining := deadline.Sub(r.clock.Now()).Round(time.Second)
		klog.InfoS("Waiting for role", "node", node.FQDN(), "target", target, "remaining", remaining)
		r.clock.Sleep(rolePollInterval)

		if err := r.gate.EnsureAuthenticated(node, r.creds); err != nil {
			klog.InfoS("Portal not responding, retrying", "node", node.FQDN(), "err", err)
			continue
		}

		role, err := node.GetRole()
		if err != nil {
			if veco.IsTransient(err) {
				klog.InfoS("Portal not responding, retrying", "node", node.FQDN(), "err", err)
				continue
			}
			return fmt.Errorf("read role of %s: %w", node.Name(), err)
		}
		lastRole = role
		if role == target {
			return nil
		}
	}

	klog.ErrorS(nil, "Role change did not complete", "node", node.FQDN(), "target", target, "lastRole", lastRole)
	return &RoleTimeoutError{Node: node.Name(), Target: target, LastRole: lastRole, Timeout: timeout}
}

// Authenticate runs the auth gate on a node with the runner's credentials.
func (r *Runner) Authenticate(node Node) error {
	return r.gate.EnsureAuthenticated(node, r.creds)
}
