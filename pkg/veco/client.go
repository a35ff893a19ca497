package veco

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"k8s.io/klog/v2"
)

const (
	loginPath  = "/login/operatorLogin"
	portalPath = "/portal/rest/"

	requestTimeout = 30 * time.Second
)

// Error codes carried in portal error payloads.
const (
	codeNoSuchUser       = "NO_SUCH_USER"
	codePropertyNotFound = "PROPERTY_NOT_FOUND"
	replicationCodePfx   = "REPLICATION_"
)

// Client is a handle on one orchestrator node's portal API. It holds a
// session cookie jar; Login must succeed before any other call. A Client is
// not safe for concurrent use, matching the strictly sequential workflows
// that drive it.
type Client struct {
	fqdn     string
	baseURL  string
	username string
	http     *http.Client
}

// New returns a client for the node at fqdn, reached over HTTPS.
func New(fqdn string) *Client {
	return newClient(fqdn, "https://"+fqdn, nil)
}

// NewInsecure returns a client that skips TLS verification. Used against lab
// deployments with self-signed portal certificates.
func NewInsecure(fqdn string) *Client {
	return newClient(fqdn, "https://"+fqdn, &tls.Config{InsecureSkipVerify: true})
}

func newClient(fqdn, baseURL string, tlsConfig *tls.Config) *Client {
	jar, _ := cookiejar.New(nil)
	transport := &http.Transport{TLSClientConfig: tlsConfig}
	return &Client{
		fqdn:    fqdn,
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   requestTimeout,
			Jar:       jar,
			Transport: transport,
		},
	}
}

// FQDN returns the node's fully qualified domain name.
func (c *Client) FQDN() string { return c.fqdn }

// Name returns the node's short name (first DNS label of the FQDN).
func (c *Client) Name() string {
	if i := strings.IndexByte(c.fqdn, '.'); i > 0 {
		return c.fqdn[:i]
	}
	return c.fqdn
}

// Login starts an operator session. A succeeding login does not guarantee a
// usable session; callers must confirm with IsAuthenticated.
func (c *Client) Login(username, password string) error {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	resp, err := c.http.PostForm(c.baseURL+loginPath, form)
	if err != nil {
		return classifyTransport("operatorLogin", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &RequestError{Op: "operatorLogin", Cause: CauseHTTP, Status: resp.StatusCode}
	}

	c.username = username
	return nil
}

// IsAuthenticated reports whether the current session is usable by issuing a
// cheap authenticated read.
func (c *Client) IsAuthenticated() bool {
	var user struct {
		ID int `json:"id"`
	}
	err := c.post("operatorUser/getOperatorUser", map[string]string{"username": c.username}, &user)
	if err == nil {
		return true
	}
	var nsu *NoSuchUserError
	return errors.As(err, &nsu)
}

// GetRole reads the node's current replication role. The portal has no
// role-only endpoint; this is a replication-status read.
func (c *Client) GetRole() (Role, error) {
	status, err := c.GetReplicationStatus()
	if err != nil {
		return "", err
	}
	return status.Role, nil
}

// GetReplicationStatus reads the node's view of the replication pair.
func (c *Client) GetReplicationStatus() (*ReplicationStatus, error) {
	var status ReplicationStatus
	if err := c.post("replication/getReplicationStatus", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetClientCount returns the number of clients currently attached to this
// node, per its own replication status.
func (c *Client) GetClientCount() (int, error) {
	status, err := c.GetReplicationStatus()
	if err != nil {
		return 0, err
	}
	return status.ClientCount.ActiveEdgeCount + status.ClientCount.ActiveGatewayCount, nil
}

type networkEnterprise struct {
	Name  string `json:"name"`
	Edges []struct {
		EdgeState string `json:"edgeState"`
	} `json:"edges"`
}

// GetEdgeCounts aggregates edge attachment state across all enterprises on
// the node.
func (c *Client) GetEdgeCounts() (EdgeCountSnapshot, error) {
	var enterprises []networkEnterprise
	payload := map[string][]string{"with": {"edges"}}
	if err := c.post("network/getNetworkEnterprises", payload, &enterprises); err != nil {
		return EdgeCountSnapshot{}, err
	}
	return aggregateEdgeCounts(enterprises), nil
}

func aggregateEdgeCounts(enterprises []networkEnterprise) EdgeCountSnapshot {
	var snap EdgeCountSnapshot
	for _, ent := range enterprises {
		for _, edge := range ent.Edges {
			switch edge.EdgeState {
			case "CONNECTED":
				snap.Connected++
			case "OFFLINE":
				snap.Down++
			case "DEGRADED":
				snap.Degraded++
			}
		}
	}
	return snap
}

// GetSystemProperty reads one named system property. Returns
// PropertyNotFoundError when the property has never been set.
func (c *Client) GetSystemProperty(name string) (*SystemProperty, error) {
	var prop SystemProperty
	err := c.post("systemProperty/getSystemProperty", map[string]string{"name": name}, &prop)
	if err != nil {
		return nil, err
	}
	return &prop, nil
}

// CreateSystemProperty creates a new system property.
func (c *Client) CreateSystemProperty(prop SystemProperty) error {
	return c.post("systemProperty/insertSystemProperty", prop, nil)
}

// UpdateSystemProperty updates an existing system property in place.
func (c *Client) UpdateSystemProperty(prop SystemProperty) error {
	return c.post("systemProperty/updateSystemProperty", prop, nil)
}

// GetUserID resolves an operator username to its numeric id. Returns
// NoSuchUserError when the user does not exist.
func (c *Client) GetUserID(username string) (int, error) {
	var user struct {
		ID int `json:"id"`
	}
	err := c.post("operatorUser/getOperatorUser", map[string]string{"username": username}, &user)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

// CreateOperatorSuperuser creates a superuser-level operator account.
func (c *Client) CreateOperatorSuperuser(username, password, firstName, lastName string) error {
	payload := map[string]string{
		"username":  username,
		"password":  password,
		"firstName": firstName,
		"lastName":  lastName,
		"roleName":  "SUPERUSER",
	}
	return c.post("operatorUser/insertOperatorUser", payload, nil)
}

// DeleteOperatorUser removes an operator account by username.
func (c *Client) DeleteOperatorUser(username string) error {
	return c.post("operatorUser/deleteOperatorUser", map[string]string{"username": username}, nil)
}

// SetRoleStandby requests the node take the STANDBY role.
func (c *Client) SetRoleStandby() error {
	return c.post("replication/setOrchestratorRole", map[string]string{"role": string(RoleStandby)}, nil)
}

// SetRoleStandalone requests the node take the STANDALONE role.
func (c *Client) SetRoleStandalone() error {
	return c.post("replication/setOrchestratorRole", map[string]string{"role": string(RoleStandalone)}, nil)
}

// PromoteToActive requests promotion of a standby node to the active role.
// The former active node is zombified by the remote service.
func (c *Client) PromoteToActive(force bool) error {
	return c.post("replication/promoteOrchestrator", map[string]bool{"force": force}, nil)
}

// ConfigureDrLink issues the DR configuration command that links the primary
// to a converged standby.
func (c *Client) ConfigureDrLink(cfg DrLinkConfig) error {
	return c.post("replication/configureForDr", cfg, nil)
}

// post issues one portal method call and decodes the result into out (when
// non-nil). All error mapping to the typed taxonomy happens here.
func (c *Client) post(method string, payload, out any) error {
	body := []byte("{}")
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", method, err)
		}
	}

	resp, err := c.http.Post(c.baseURL+portalPath+method, "application/json", bytes.NewReader(body))
	if err != nil {
		return classifyTransport(method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &RequestError{Op: method, Cause: CauseHTTP, Status: resp.StatusCode}
	}

	var result json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &ResponseEmptyError{Op: method}
	}

	return parseResult(method, result, out)
}

// parseResult maps a decoded portal response body to either the typed error
// taxonomy or the caller's result value.
func parseResult(method string, result json.RawMessage, out any) error {
	trimmed := strings.TrimSpace(string(result))
	if trimmed == "" || trimmed == "null" || (out != nil && trimmed == "{}") {
		if out != nil {
			return &ResponseEmptyError{Op: method}
		}
		return nil
	}

	var envelope struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(result, &envelope); err == nil && envelope.Error != nil {
		return mapPortalError(method, envelope.Error.Code, envelope.Error.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

func mapPortalError(method, code, message string) error {
	switch {
	case code == codeNoSuchUser:
		return &NoSuchUserError{Username: message}
	case code == codePropertyNotFound:
		return &PropertyNotFoundError{Name: message}
	case strings.HasPrefix(code, replicationCodePfx):
		return &ReplicationError{Op: method, Code: code, Message: message}
	default:
		return &ResponseError{Op: method, Code: code, Message: message}
	}
}

// classifyTransport maps a transport error to a RequestError with a
// structured cause so polling loops never inspect message text.
func classifyTransport(method string, err error) error {
	cause := CauseConnection

	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.As(err, &dnsErr):
		cause = CauseDNS
	case errors.As(err, &netErr) && netErr.Timeout():
		cause = CauseTimeout
	}

	klog.V(2).InfoS("Portal request failed", "method", method, "cause", cause.String(), "err", err)
	return &RequestError{Op: method, Cause: cause, Err: err}
}
