// Package graph holds the in-memory workflow graph and the pure operations over it.
package graph

import (
	"encoding/json"
	"math/rand/v2"
	"slices"

	"github.com/dukex/flowedit/pkg/models"
)

// ChangeKind names a committed mutation.
type ChangeKind string

const (
	ChangeNodeAdded         ChangeKind = "node.added"
	ChangeNodeUpdated       ChangeKind = "node.updated"
	ChangeNodeDeleted       ChangeKind = "node.deleted"
	ChangeConnectionAdded   ChangeKind = "connection.added"
	ChangeConnectionRemoved ChangeKind = "connection.removed"
	ChangeReplaced          ChangeKind = "graph.replaced"
)

// Change describes one committed mutation. ConnectionIDs lists the connection
// created or removed, including connections removed by a node delete.
type Change struct {
	Kind          ChangeKind
	NodeID        string
	ConnectionIDs []string
}

// Observer is notified synchronously after every committed mutation.
type Observer func(Change)

// NodePatch carries the fields to merge into a node. Nil fields are left alone.
type NodePatch struct {
	Name     *string
	Position *models.Position
	Config   json.RawMessage
}

// IsEmpty reports whether the patch would change nothing.
func (p NodePatch) IsEmpty() bool {
	return p.Name == nil && p.Position == nil && p.Config == nil
}

// Snapshot is a deep copy of the graph.
type Snapshot struct {
	Nodes       []*models.Node       `json:"nodes"`
	Connections []*models.Connection `json:"connections"`
}

// Model owns the nodes and connections of one editing session.
// It is not safe for concurrent use; callers serialize access.
type Model struct {
	canvas      Canvas
	ids         IDGenerator
	rand        *rand.Rand
	nodes       []*models.Node
	connections []*models.Connection
	observers   []*Observer
}

type Option func(*Model)

// WithIDGenerator replaces the default ULID-based generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(m *Model) {
		m.ids = ids
	}
}

// WithRand sets the source used for initial node placement.
func WithRand(r *rand.Rand) Option {
	return func(m *Model) {
		m.rand = r
	}
}

func NewModel(canvas Canvas, opts ...Option) *Model {
	m := &Model{
		canvas:      canvas,
		ids:         NewULIDGenerator(),
		rand:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		nodes:       []*models.Node{},
		connections: []*models.Connection{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Canvas returns the bounds positions are clamped to.
func (m *Model) Canvas() Canvas {
	return m.canvas
}

// Subscribe registers fn and returns a function that removes it.
func (m *Model) Subscribe(fn Observer) func() {
	ref := &fn
	m.observers = append(m.observers, ref)

	return func() {
		m.observers = slices.DeleteFunc(m.observers, func(o *Observer) bool { return o == ref })
	}
}

func (m *Model) notify(change Change) {
	for _, o := range slices.Clone(m.observers) {
		(*o)(change)
	}
}

// AddNode creates a node of the given type at a random position inside the canvas.
func (m *Model) AddNode(desc models.NodeTypeDescriptor) *models.Node {
	node := &models.Node{
		ID:       m.ids.NodeID(),
		Type:     desc.ID,
		Name:     desc.Name,
		Position: m.canvas.RandomPosition(m.rand),
		Config:   defaultConfig(desc),
	}

	if node.Name == "" {
		node.Name = desc.ID
	}

	m.nodes = append(m.nodes, node)
	m.notify(Change{Kind: ChangeNodeAdded, NodeID: node.ID})

	return node.Clone()
}

// UpdateNode merges patch into the node. An unknown id is a silent no-op.
// A config that is not a JSON object rejects the whole patch.
func (m *Model) UpdateNode(id string, patch NodePatch) error {
	idx := m.nodeIndex(id)
	if idx < 0 || patch.IsEmpty() {
		return nil
	}

	if patch.Config != nil && !isJSONObject(patch.Config) {
		return &NodeError{Op: "update", NodeID: id, Err: ErrInvalidConfig}
	}

	node := m.nodes[idx]

	if patch.Name != nil {
		node.Name = *patch.Name
	}

	if patch.Position != nil {
		node.Position = m.canvas.Clamp(*patch.Position)
	}

	if patch.Config != nil {
		node.Config = append(json.RawMessage(nil), patch.Config...)
	}

	m.notify(Change{Kind: ChangeNodeUpdated, NodeID: id})

	return nil
}

// DeleteNode removes the node and every connection touching it in one step.
func (m *Model) DeleteNode(id string) bool {
	idx := m.nodeIndex(id)
	if idx < 0 {
		return false
	}

	var removed []string

	m.connections = slices.DeleteFunc(m.connections, func(c *models.Connection) bool {
		if c.References(id) {
			removed = append(removed, c.ID)

			return true
		}

		return false
	})
	m.nodes = slices.Delete(m.nodes, idx, idx+1)

	m.notify(Change{Kind: ChangeNodeDeleted, NodeID: id, ConnectionIDs: removed})

	return true
}

// Connect links from's output port to to's input port.
func (m *Model) Connect(from, to string) (*models.Connection, error) {
	return m.ConnectPorts(from, "", to, "")
}

// ConnectPorts links two nodes through named ports. Empty names take the defaults.
// Parallel edges and self-loops are accepted.
func (m *Model) ConnectPorts(from, fromPort, to, toPort string) (*models.Connection, error) {
	for _, id := range []string{from, to} {
		if m.nodeIndex(id) < 0 {
			return nil, &EndpointError{From: from, To: to, Missing: id}
		}
	}

	conn := &models.Connection{
		ID:       m.ids.ConnectionID(),
		From:     from,
		To:       to,
		FromPort: fromPort,
		ToPort:   toPort,
	}
	defaultPorts(conn)

	m.connections = append(m.connections, conn)
	m.notify(Change{Kind: ChangeConnectionAdded, ConnectionIDs: []string{conn.ID}})

	return conn.Clone(), nil
}

// Disconnect removes a single connection.
func (m *Model) Disconnect(connectionID string) bool {
	idx := slices.IndexFunc(m.connections, func(c *models.Connection) bool { return c.ID == connectionID })
	if idx < 0 {
		return false
	}

	m.connections = slices.Delete(m.connections, idx, idx+1)
	m.notify(Change{Kind: ChangeConnectionRemoved, ConnectionIDs: []string{connectionID}})

	return true
}

// ReplaceAll swaps the whole graph. Nodes without an id get a fresh one, repeated
// node ids keep the first occurrence, and connections that do not resolve to
// two nodes of the new set are dropped. It returns the number of dropped connections.
func (m *Model) ReplaceAll(nodes []*models.Node, connections []*models.Connection) int {
	nextNodes := make([]*models.Node, 0, len(nodes))
	seen := make(map[string]struct{}, len(nodes))

	for _, n := range nodes {
		if n == nil {
			continue
		}

		node := n.Clone()
		if node.ID == "" {
			node.ID = m.ids.NodeID()
		}

		if _, dup := seen[node.ID]; dup {
			continue
		}

		seen[node.ID] = struct{}{}
		node.Position = m.canvas.Clamp(node.Position)
		nextNodes = append(nextNodes, node)
	}

	nextConnections := make([]*models.Connection, 0, len(connections))
	seenConnections := make(map[string]struct{}, len(connections))
	dropped := 0

	for _, c := range connections {
		if c == nil {
			continue
		}

		_, fromOK := seen[c.From]
		_, toOK := seen[c.To]

		if !fromOK || !toOK {
			dropped++

			continue
		}

		conn := c.Clone()
		if conn.ID == "" {
			conn.ID = m.ids.ConnectionID()
		}

		if _, dup := seenConnections[conn.ID]; dup {
			dropped++

			continue
		}

		seenConnections[conn.ID] = struct{}{}
		defaultPorts(conn)
		nextConnections = append(nextConnections, conn)
	}

	m.nodes = nextNodes
	m.connections = nextConnections
	m.notify(Change{Kind: ChangeReplaced})

	return dropped
}

// Node returns a copy of the node with the given id.
func (m *Model) Node(id string) (*models.Node, bool) {
	idx := m.nodeIndex(id)
	if idx < 0 {
		return nil, false
	}

	return m.nodes[idx].Clone(), true
}

// HasNode reports whether id resolves to a node.
func (m *Model) HasNode(id string) bool {
	return m.nodeIndex(id) >= 0
}

// Nodes returns a deep copy of the nodes in insertion order.
func (m *Model) Nodes() []*models.Node {
	return models.CloneNodes(m.nodes)
}

// Connections returns a copy of the connections in insertion order.
func (m *Model) Connections() []*models.Connection {
	return models.CloneConnections(m.connections)
}

func (m *Model) Snapshot() Snapshot {
	return Snapshot{
		Nodes:       m.Nodes(),
		Connections: m.Connections(),
	}
}

func (m *Model) nodeIndex(id string) int {
	if id == "" {
		return -1
	}

	return slices.IndexFunc(m.nodes, func(n *models.Node) bool { return n.ID == id })
}

func defaultPorts(c *models.Connection) {
	if c.FromPort == "" {
		c.FromPort = models.DefaultFromPort
	}

	if c.ToPort == "" {
		c.ToPort = models.DefaultToPort
	}
}

func defaultConfig(desc models.NodeTypeDescriptor) json.RawMessage {
	if len(desc.DefaultConfig) == 0 {
		return json.RawMessage(`{}`)
	}

	body, err := json.Marshal(desc.DefaultConfig)
	if err != nil {
		return json.RawMessage(`{}`)
	}

	return body
}

func isJSONObject(doc json.RawMessage) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(doc, &obj); err != nil {
		return false
	}

	return obj != nil
}
