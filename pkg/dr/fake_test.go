package dr

import (
	"github.com/edgeops/veco-dr-orchestrator/pkg/veco"
)

// fakeNode is a scripted Node. Role reads can be overridden per test via
// getRole; role-change commands mutate the fake's role in place unless a hook
// replaces them. Every call is recorded by method name so tests can assert
// which remote calls a workflow made.
type fakeNode struct {
	name        string
	role        veco.Role
	status      *veco.ReplicationStatus
	statusErr   error
	clientCount int

	edges   []veco.EdgeCountSnapshot
	edgeErr error

	users map[string]int
	props map[string]veco.SystemProperty

	loginErrs       []error
	unauthenticated bool

	getRole    func() (veco.Role, error)
	promoteErr error

	calls []string
}

func newFakeNode(name string, role veco.Role) *fakeNode {
	return &fakeNode{
		name:  name,
		role:  role,
		users: make(map[string]int),
		props: make(map[string]veco.SystemProperty),
	}
}

func (f *fakeNode) record(method string) { f.calls = append(f.calls, method) }

func (f *fakeNode) countCalls(method string) int {
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

// stateChangingCalls returns the subset of recorded calls that mutate remote
// state.
func (f *fakeNode) stateChangingCalls() []string {
	mutating := map[string]bool{
		"SetRoleStandby":          true,
		"SetRoleStandalone":       true,
		"PromoteToActive":         true,
		"ConfigureDrLink":         true,
		"CreateOperatorSuperuser": true,
		"DeleteOperatorUser":      true,
		"CreateSystemProperty":    true,
		"UpdateSystemProperty":    true,
	}
	var out []string
	for _, c := range f.calls {
		if mutating[c] {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeNode) Name() string { return f.name }
func (f *fakeNode) FQDN() string { return f.name + ".dr.example.test" }

func (f *fakeNode) Login(username, password string) error {
	f.record("Login")
	if len(f.loginErrs) > 0 {
		err := f.loginErrs[0]
		f.loginErrs = f.loginErrs[1:]
		return err
	}
	return nil
}

func (f *fakeNode) IsAuthenticated() bool { return !f.unauthenticated }

func (f *fakeNode) GetRole() (veco.Role, error) {
	f.record("GetRole")
	if f.getRole != nil {
		return f.getRole()
	}
	return f.role, nil
}

func (f *fakeNode) GetReplicationStatus() (*veco.ReplicationStatus, error) {
	f.record("GetReplicationStatus")
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.status != nil {
		return f.status, nil
	}
	return &veco.ReplicationStatus{Role: f.role}, nil
}

func (f *fakeNode) GetEdgeCounts() (veco.EdgeCountSnapshot, error) {
	f.record("GetEdgeCounts")
	if f.edgeErr != nil {
		return veco.EdgeCountSnapshot{}, f.edgeErr
	}
	if len(f.edges) == 0 {
		return veco.EdgeCountSnapshot{}, nil
	}
	snap := f.edges[0]
	if len(f.edges) > 1 {
		f.edges = f.edges[1:]
	}
	return snap, nil
}

func (f *fakeNode) GetClientCount() (int, error) {
	f.record("GetClientCount")
	return f.clientCount, nil
}

func (f *fakeNode) GetSystemProperty(name string) (*veco.SystemProperty, error) {
	f.record("GetSystemProperty")
	prop, ok := f.props[name]
	if !ok {
		return nil, &veco.PropertyNotFoundError{Name: name}
	}
	return &prop, nil
}

func (f *fakeNode) CreateSystemProperty(prop veco.SystemProperty) error {
	f.record("CreateSystemProperty")
	f.props[prop.Name] = prop
	return nil
}

func (f *fakeNode) UpdateSystemProperty(prop veco.SystemProperty) error {
	f.record("UpdateSystemProperty")
	f.props[prop.Name] = prop
	return nil
}

func (f *fakeNode) GetUserID(username string) (int, error) {
	f.record("GetUserID")
	id, ok := f.users[username]
	if !ok {
		return 0, &veco.NoSuchUserError{Username: username}
	}
	return id, nil
}

func (f *fakeNode) CreateOperatorSuperuser(username, password, firstName, lastName string) error {
	f.record("CreateOperatorSuperuser")
	f.users[username] = len(f.users) + 1
	return nil
}

func (f *fakeNode) DeleteOperatorUser(username string) error {
	f.record("DeleteOperatorUser")
	delete(f.users, username)
	return nil
}

func (f *fakeNode) SetRoleStandby() error {
	f.record("SetRoleStandby")
	f.role = veco.RoleStandby
	return nil
}

func (f *fakeNode) SetRoleStandalone() error {
	f.record("SetRoleStandalone")
	f.role = veco.RoleStandalone
	return nil
}

func (f *fakeNode) PromoteToActive(force bool) error {
	f.record("PromoteToActive")
	if f.promoteErr != nil {
		return f.promoteErr
	}
	f.role = veco.RoleStandalone
	return nil
}

func (f *fakeNode) ConfigureDrLink(cfg veco.DrLinkConfig) error {
	f.record("ConfigureDrLink")
	return nil
}
