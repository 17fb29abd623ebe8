package models

// Default port names used when a connection does not name its ports.
const (
	DefaultFromPort = "output"
	DefaultToPort   = "input"
)

// Connection is a directed edge between two nodes.
type Connection struct {
	ID       string `json:"id"`
	From     string `json:"from"      validate:"required"`
	To       string `json:"to"        validate:"required"`
	FromPort string `json:"from_port"`
	ToPort   string `json:"to_port"`
}

// References reports whether either endpoint is nodeID.
func (c *Connection) References(nodeID string) bool {
	return c.From == nodeID || c.To == nodeID
}

// Clone returns a copy of the connection.
func (c *Connection) Clone() *Connection {
	cc := *c

	return &cc
}

// CloneConnections copies a connection slice.
func CloneConnections(connections []*Connection) []*Connection {
	out := make([]*Connection, 0, len(connections))
	for _, c := range connections {
		if c != nil {
			out = append(out, c.Clone())
		}
	}

	return out
}
