// Package auth implements the bounded-retry login gate used before every
// workflow and every role poll. Portal sessions are invalidated whenever the
// remote node restarts internal services mid-transition, so authentication is
// re-established rather than assumed.
package auth

import (
	"errors"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/edgeops/veco-dr-orchestrator/pkg/clock"
	"github.com/edgeops/veco-dr-orchestrator/pkg/veco"
)

const (
	// DefaultMaxWait bounds one EnsureAuthenticated call.
	DefaultMaxWait = 120 * time.Second

	loginRetryInterval = 10 * time.Second
	recheckInterval    = 5 * time.Second
)

// Session is the slice of the node capability surface the gate needs.
type Session interface {
	Name() string
	Login(username, password string) error
	IsAuthenticated() bool
}

// Credentials is an operator username/password pair.
type Credentials struct {
	Username string
	Password string
}

// TimeoutError reports that a session could not be established within the
// gate's wait window.
type TimeoutError struct {
	Node    string
	MaxWait time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("failed to authenticate on %s within %s", e.Node, e.MaxWait)
}

// Gate retries login on a node until a usable session exists or MaxWait
// elapses.
type Gate struct {
	MaxWait time.Duration
	Clock   clock.Clock
}

// NewGate returns a gate with the default wait window on the real clock.
func NewGate() *Gate {
	return &Gate{MaxWait: DefaultMaxWait, Clock: clock.Real{}}
}

// EnsureAuthenticated logs in and confirms the session is usable, retrying
// transient request failures. Login success alone is not trusted; a separate
// authenticated read must succeed before the gate returns.
func (g *Gate) EnsureAuthenticated(node Session, creds Credentials) error {
	maxWait := g.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	clk := g.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	start := clk.Now()
	klog.InfoS("Logging in", "node", node.Name(), "username", creds.Username)
	for {
		if clk.Now().Sub(start) >= maxWait {
			klog.ErrorS(nil, "Login window exceeded", "node", node.Name(), "maxWait", maxWait)
			return &TimeoutError{Node: node.Name(), MaxWait: maxWait}
		}

		if err := node.Login(creds.Username, creds.Password); err != nil {
			var reqErr *veco.RequestError
			if errors.As(err, &reqErr) {
				klog.InfoS("Login failed, retrying", "node", node.Name(), "cause", reqErr.Cause.String())
				clk.Sleep(loginRetryInterval)
				continue
			}
			return fmt.Errorf("login to %s: %w", node.Name(), err)
		}

		if node.IsAuthenticated() {
			klog.V(2).InfoS("Login succeeded", "node", node.Name())
			return nil
		}
		clk.Sleep(recheckInterval)
	}
}
