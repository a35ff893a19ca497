package dr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeops/veco-dr-orchestrator/pkg/auth"
	"github.com/edgeops/veco-dr-orchestrator/pkg/clock"
	"github.com/edgeops/veco-dr-orchestrator/pkg/veco"
)

// newPromotePair wires a standby node and its active peer into a runner whose
// dialer resolves the peer address.
func newPromotePair(clk clock.Clock) (*Runner, *fakeNode, *fakeNode) {
	standby := newFakeNode("vco2", veco.RoleStandby)
	standby.status = &veco.ReplicationStatus{
		Role:          veco.RoleStandby,
		DrState:       veco.DrStateStandbyRunning,
		ActiveAddress: "vco1.dr.example.test",
	}

	active := newFakeNode("vco1", veco.RoleActive)

	r := New(Config{
		Credentials: auth.Credentials{Username: "op", Password: "secret"},
		Clock:       clk,
		Gate:        &auth.Gate{MaxWait: auth.DefaultMaxWait, Clock: clk},
		Dial: func(address string) (Node, error) {
			if address != "vco1.dr.example.test" {
				return nil, fmt.Errorf("unexpected dial %q", address)
			}
			return active, nil
		},
	})
	return r, standby, active
}

func TestPromoteSucceeds(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	r, standby, active := newPromotePair(clk)

	active.edges = []veco.EdgeCountSnapshot{{Connected: 100, Down: 4, Degraded: 2}}
	// First post-promotion sample already clears 95% of baseline.
	standby.edges = []veco.EdgeCountSnapshot{{Connected: 96, Down: 4, Degraded: 2}}

	err := r.Promote(standby)
	require.NoError(t, err)

	assert.Equal(t, 1, standby.countCalls("PromoteToActive"))
	assert.Equal(t, 1, active.countCalls("GetEdgeCounts"), "baseline is read exactly once, before the cutover")
}

func TestPromoteRejectedForActiveRole(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	r := New(Config{
		Credentials: auth.Credentials{Username: "op", Password: "secret"},
		Clock:       clk,
		Gate:        &auth.Gate{MaxWait: auth.DefaultMaxWait, Clock: clk},
	})

	standby := newFakeNode("vco2", veco.RoleActive)
	peer := newFakeNode("vco1", veco.RoleStandby)
	standby.status = &veco.ReplicationStatus{
		Role:        veco.RoleActive,
		DrState:     veco.DrStateStandbyRunning,
		StandbyList: []veco.StandbyEntry{{StandbyAddress: "vco1.dr.example.test"}},
	}
	r.dial = func(address string) (Node, error) { return peer, nil }

	err := r.Promote(standby)

	var notAllowed *PromotionNotAllowedError
	require.ErrorAs(t, err, &notAllowed)
	assert.Equal(t, veco.RoleActive, notAllowed.Role)
	assert.Empty(t, standby.stateChangingCalls(), "a rejected promotion must not issue any state-changing call")
	assert.Empty(t, peer.stateChangingCalls())
}

func TestPromoteFailsWhenDrNotConfigured(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	r := newTestRunner(clk)

	node := newFakeNode("vco2", veco.RoleStandalone)
	node.status = &veco.ReplicationStatus{Role: veco.RoleStandalone, DrState: veco.DrStateUnconfigured}

	err := r.Promote(node)

	var notConfigured *NotConfiguredError
	require.ErrorAs(t, err, &notConfigured)
	assert.Empty(t, node.stateChangingCalls())
}

func TestPromoteTreatsCommandRequestErrorAsNonFatal(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	r, standby, active := newPromotePair(clk)

	active.edges = []veco.EdgeCountSnapshot{{Connected: 100}}
	standby.edges = []veco.EdgeCountSnapshot{{Connected: 100}}
	// The promote command times out server-side but the promotion still
	// takes effect: role reads after the command report standalone.
	standby.promoteErr = &veco.RequestError{Op: "promoteOrchestrator", Cause: veco.CauseTimeout, Err: errors.New("timeout")}
	reads := 0
	standby.getRole = func() (veco.Role, error) {
		reads++
		if reads == 1 {
			return veco.RoleStandby, nil
		}
		return veco.RoleStandalone, nil
	}

	err := r.Promote(standby)
	require.NoError(t, err)
	assert.Equal(t, 1, standby.countCalls("PromoteToActive"))
}

func TestPromoteIdempotentWhenAlreadyStandalone(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	r, standby, active := newPromotePair(clk)

	// Mid-transition shape: replication status still reports a running pair
	// while the node itself has already reached standalone.
	standby.role = veco.RoleStandalone
	active.edges = []veco.EdgeCountSnapshot{{Connected: 50}}
	standby.edges = []veco.EdgeCountSnapshot{{Connected: 50}}

	err := r.Promote(standby)
	require.NoError(t, err)
	assert.Zero(t, standby.countCalls("PromoteToActive"))
}

func TestPromoteReportsHealthFailureAfterRoleChange(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	r, standby, active := newPromotePair(clk)

	active.edges = []veco.EdgeCountSnapshot{{Connected: 100}}
	// Reattachment stalls: three consecutive non-improving samples.
	standby.edges = []veco.EdgeCountSnapshot{{Connected: 40}, {Connected: 39}, {Connected: 39}}

	err := r.Promote(standby)

	var healthErr *HealthCheckError
	require.ErrorAs(t, err, &healthErr)
	assert.Equal(t, 1, standby.countCalls("PromoteToActive"), "the role change itself was applied")
}

func TestActivePeerAddress(t *testing.T) {
	tests := []struct {
		name   string
		status veco.ReplicationStatus
		want   string
	}{
		{
			name:   "standby with running pair",
			status: veco.ReplicationStatus{Role: veco.RoleStandby, DrState: veco.DrStateStandbyRunning, ActiveAddress: "a.example"},
			want:   "a.example",
		},
		{
			name: "active with running pair",
			status: veco.ReplicationStatus{Role: veco.RoleActive, DrState: veco.DrStateStandbyRunning,
				StandbyList: []veco.StandbyEntry{{StandbyAddress: "s.example"}}},
			want: "s.example",
		},
		{
			name:   "standalone",
			status: veco.ReplicationStatus{Role: veco.RoleStandalone, DrState: veco.DrStateStandbyRunning, ActiveAddress: "a.example"},
			want:   "",
		},
		{
			name:   "zombie",
			status: veco.ReplicationStatus{Role: veco.RoleZombie, DrState: veco.DrStateStandbyRunning},
			want:   "",
		},
		{
			name:   "unconfigured dr state",
			status: veco.ReplicationStatus{Role: veco.RoleStandby, DrState: veco.DrStateUnconfigured, ActiveAddress: "a.example"},
			want:   "",
		},
		{
			name:   "promoted dr state is not a running pair",
			status: veco.ReplicationStatus{Role: veco.RoleStandby, DrState: veco.DrStateStandbyPromoted, ActiveAddress: "a.example"},
			want:   "",
		},
		{
			name:   "active with empty standby list",
			status: veco.ReplicationStatus{Role: veco.RoleActive, DrState: veco.DrStateStandbyRunning},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, activePeerAddress(&tt.status))
		})
	}
}
