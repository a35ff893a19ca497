// Package veco provides a typed client for the orchestrator portal API.
// It covers the small capability surface the DR workflows need: session
// login, role and replication-status reads, edge counts, system properties,
// operator users and the role-change / DR-configuration commands.
package veco

// Role is a replication role as reported by an orchestrator node. Roles are
// only ever observed from the remote node or requested by a caller; they are
// never synthesized locally.
type Role string

const (
	RoleUnconfigured     Role = "UNCONFIGURED"
	RoleStandalone       Role = "STANDALONE"
	RoleActive           Role = "ACTIVE"
	RoleStandbyCandidate Role = "STANDBY_CANDIDATE"
	RoleStandby          Role = "STANDBY"
	// RoleZombie is reported by a former active node after it has been cut
	// out of the replication pair. It is never a valid transition target.
	RoleZombie Role = "ZOMBIE"
)

// DR states observed in ReplicationStatus.DrState.
const (
	DrStateUnconfigured    = "UNCONFIGURED"
	DrStateStandbyRunning  = "STANDBY_RUNNING"
	DrStateStandbyPromoted = "STANDBY_PROMOTED"
)

// StandbyEntry is one standby node as listed by the active node.
type StandbyEntry struct {
	StandbyAddress string `json:"standbyAddress"`
}

// ClientCount is the per-pair client attachment breakdown reported in
// replication status.
type ClientCount struct {
	ActiveEdgeCount     int `json:"activeEdgeCount"`
	StandbyEdgeCount    int `json:"standbyEdgeCount"`
	ActiveGatewayCount  int `json:"activeGatewayCount"`
	StandbyGatewayCount int `json:"standbyGatewayCount"`
}

// ReplicationStatus is a point-in-time snapshot of a node's view of the
// replication pair. ActiveAddress is populated when the node is STANDBY;
// StandbyList is populated when the node is ACTIVE.
type ReplicationStatus struct {
	Role          Role           `json:"role"`
	DrState       string         `json:"drState"`
	ActiveAddress string         `json:"activeAddress"`
	StandbyList   []StandbyEntry `json:"standbyList"`
	VcoIP         string         `json:"vcoIp"`
	VcoReplIP     string         `json:"vcoReplicationIp"`
	VcoUUID       string         `json:"vcoUuid"`
	ClientCount   ClientCount    `json:"clientCount"`
}

// EdgeCountSnapshot is the edge attachment state of one node at one point in
// time. It is compared across samples within a single promotion, never
// persisted.
type EdgeCountSnapshot struct {
	Connected int
	Down      int
	Degraded  int
}

// SystemProperty is a named configuration property on one node. Properties
// are upserted: created on first write, updated thereafter, never deleted.
type SystemProperty struct {
	Name         string `json:"name"`
	Value        string `json:"value"`
	DefaultValue string `json:"defaultValue"`
	IsReadOnly   bool   `json:"isReadOnly"`
	IsPassword   bool   `json:"isPassword"`
	DataType     string `json:"dataType"`
	Description  string `json:"description"`
}

// DrLinkConfig is the payload of the "configure for DR" command issued on the
// primary once the secondary has converged to STANDBY.
type DrLinkConfig struct {
	StandbyAddress            string `json:"standbyAddress"`
	StandbyReplicationAddress string `json:"standbyReplicationAddress"`
	StandbyUUID               string `json:"standbyUuid"`
	ReplicationUser           string `json:"drVcoUser"`
	ReplicationPassword       string `json:"drVcoPassword"`
}
