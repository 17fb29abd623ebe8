package graph_test

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sequentialIDs struct {
	nodes, conns int
}

func (s *sequentialIDs) NodeID() string {
	s.nodes++

	return fmt.Sprintf("n%d", s.nodes)
}

func (s *sequentialIDs) ConnectionID() string {
	s.conns++

	return fmt.Sprintf("c%d", s.conns)
}

func newTestModel() *graph.Model {
	return graph.NewModel(graph.DefaultCanvas,
		graph.WithIDGenerator(&sequentialIDs{}),
		graph.WithRand(rand.New(rand.NewPCG(1, 2))),
	)
}

func ptr[T any](v T) *T {
	return &v
}

func TestModel_AddNodeStaysInsideCanvas(t *testing.T) {
	t.Parallel()

	canvas := graph.Canvas{Width: 500, Height: 300, NodeWidth: 200, NodeHeight: 80}
	m := graph.NewModel(canvas)

	for range 200 {
		node := m.AddNode(models.NodeTypeDescriptor{ID: "trigger-http"})

		assert.GreaterOrEqual(t, node.Position.X, 0.0)
		assert.LessOrEqual(t, node.Position.X, 300.0)
		assert.GreaterOrEqual(t, node.Position.Y, 0.0)
		assert.LessOrEqual(t, node.Position.Y, 220.0)
	}
}

func TestModel_AddNodeDefaults(t *testing.T) {
	t.Parallel()

	m := newTestModel()

	plain := m.AddNode(models.NodeTypeDescriptor{ID: "trigger-http"})
	assert.Equal(t, "trigger-http", plain.Type)
	assert.Equal(t, "trigger-http", plain.Name)
	assert.JSONEq(t, `{}`, string(plain.Config))

	described := m.AddNode(models.NodeTypeDescriptor{
		ID:            "action-email",
		Name:          "Send email",
		DefaultConfig: map[string]any{"subject": "hi"},
	})
	assert.Equal(t, "Send email", described.Name)
	assert.JSONEq(t, `{"subject":"hi"}`, string(described.Config))
}

func TestModel_DefaultNodeIDsAreUniqueAndOrdered(t *testing.T) {
	t.Parallel()

	m := graph.NewModel(graph.DefaultCanvas)
	ids := make([]string, 0, 100)

	for range 100 {
		ids = append(ids, m.AddNode(models.NodeTypeDescriptor{ID: "log"}).ID)
	}

	assert.True(t, sort.StringsAreSorted(ids))

	unique := map[string]struct{}{}
	for _, id := range ids {
		unique[id] = struct{}{}
	}

	assert.Len(t, unique, len(ids))
}

func TestModel_ScenarioTwoNodesOneConnection(t *testing.T) {
	t.Parallel()

	m := newTestModel()

	n1 := m.AddNode(models.NodeTypeDescriptor{ID: "trigger-http"})
	n2 := m.AddNode(models.NodeTypeDescriptor{ID: "action-email"})

	conn, err := m.Connect(n1.ID, n2.ID)
	require.NoError(t, err)

	assert.Len(t, m.Nodes(), 2)
	require.Len(t, m.Connections(), 1)
	assert.True(t, m.HasNode(conn.From))
	assert.True(t, m.HasNode(conn.To))
	assert.Equal(t, models.DefaultFromPort, conn.FromPort)
	assert.Equal(t, models.DefaultToPort, conn.ToPort)
}

func TestModel_UpdateUnknownNodeIsNoop(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	a := m.AddNode(models.NodeTypeDescriptor{ID: "a"})
	b := m.AddNode(models.NodeTypeDescriptor{ID: "b"})
	_, err := m.Connect(a.ID, b.ID)
	require.NoError(t, err)

	before, err := json.Marshal(m.Snapshot())
	require.NoError(t, err)

	calls := 0
	m.Subscribe(func(graph.Change) { calls++ })

	err = m.UpdateNode("missing", graph.NodePatch{Name: ptr("x")})
	require.NoError(t, err)

	after, err := json.Marshal(m.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, string(before), string(after))
	assert.Zero(t, calls)
}

func TestModel_UpdateNode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		patch      graph.NodePatch
		wantErr    error
		wantName   string
		wantPos    models.Position
		wantConfig string
	}{
		{
			name:       "name only keeps other fields",
			patch:      graph.NodePatch{Name: ptr("renamed")},
			wantName:   "renamed",
			wantPos:    models.Position{X: 10, Y: 10},
			wantConfig: `{"a":1}`,
		},
		{
			name:       "position is clamped",
			patch:      graph.NodePatch{Position: &models.Position{X: -50, Y: 99999}},
			wantName:   "original",
			wantPos:    models.Position{X: 0, Y: graph.DefaultCanvas.MaxY()},
			wantConfig: `{"a":1}`,
		},
		{
			name:       "valid config replaces document",
			patch:      graph.NodePatch{Config: json.RawMessage(`{"b":[1,2]}`)},
			wantName:   "original",
			wantPos:    models.Position{X: 10, Y: 10},
			wantConfig: `{"b":[1,2]}`,
		},
		{
			name:       "malformed config is rejected with previous value kept",
			patch:      graph.NodePatch{Name: ptr("ignored"), Config: json.RawMessage(`{"b":`)},
			wantErr:    graph.ErrInvalidConfig,
			wantName:   "original",
			wantPos:    models.Position{X: 10, Y: 10},
			wantConfig: `{"a":1}`,
		},
		{
			name:       "non-object config is rejected",
			patch:      graph.NodePatch{Config: json.RawMessage(`[1,2]`)},
			wantErr:    graph.ErrInvalidConfig,
			wantName:   "original",
			wantPos:    models.Position{X: 10, Y: 10},
			wantConfig: `{"a":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newTestModel()
			m.ReplaceAll([]*models.Node{{
				ID:       "n",
				Type:     "log",
				Name:     "original",
				Position: models.Position{X: 10, Y: 10},
				Config:   json.RawMessage(`{"a":1}`),
			}}, nil)

			err := m.UpdateNode("n", tt.patch)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, graph.IsValidationError(err))
			} else {
				require.NoError(t, err)
			}

			node, ok := m.Node("n")
			require.True(t, ok)
			assert.Equal(t, tt.wantName, node.Name)
			assert.Equal(t, tt.wantPos, node.Position)
			assert.JSONEq(t, tt.wantConfig, string(node.Config))
		})
	}
}

func TestModel_DeleteNodeCascades(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	a := m.AddNode(models.NodeTypeDescriptor{ID: "a"})
	b := m.AddNode(models.NodeTypeDescriptor{ID: "b"})
	c := m.AddNode(models.NodeTypeDescriptor{ID: "c"})

	for _, pair := range [][2]string{{a.ID, b.ID}, {b.ID, c.ID}, {c.ID, a.ID}, {b.ID, b.ID}} {
		_, err := m.Connect(pair[0], pair[1])
		require.NoError(t, err)
	}

	var changes []graph.Change
	m.Subscribe(func(ch graph.Change) { changes = append(changes, ch) })

	require.True(t, m.DeleteNode(b.ID))

	for _, conn := range m.Connections() {
		assert.NotEqual(t, b.ID, conn.From)
		assert.NotEqual(t, b.ID, conn.To)
	}

	assert.Len(t, m.Connections(), 1)
	require.Len(t, changes, 1)
	assert.Equal(t, graph.ChangeNodeDeleted, changes[0].Kind)
	assert.Len(t, changes[0].ConnectionIDs, 3)

	assert.False(t, m.DeleteNode(b.ID))
}

func TestModel_ConnectUnknownEndpointLeavesModelUnchanged(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	a := m.AddNode(models.NodeTypeDescriptor{ID: "a"})
	before := m.Snapshot()

	for _, pair := range [][2]string{{a.ID, "ghost"}, {"ghost", a.ID}, {"", ""}} {
		conn, err := m.Connect(pair[0], pair[1])

		require.Error(t, err)
		require.ErrorIs(t, err, graph.ErrNodeNotFound)
		assert.Nil(t, conn)

		var endpointErr *graph.EndpointError
		require.ErrorAs(t, err, &endpointErr)
	}

	assert.Equal(t, before, m.Snapshot())
}

func TestModel_ConnectAllowsParallelEdgesAndSelfLoops(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	a := m.AddNode(models.NodeTypeDescriptor{ID: "a"})
	b := m.AddNode(models.NodeTypeDescriptor{ID: "b"})

	first, err := m.Connect(a.ID, b.ID)
	require.NoError(t, err)
	second, err := m.Connect(a.ID, b.ID)
	require.NoError(t, err)
	_, err = m.Connect(a.ID, a.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, m.Connections(), 3)
}

func TestModel_Disconnect(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	a := m.AddNode(models.NodeTypeDescriptor{ID: "a"})
	b := m.AddNode(models.NodeTypeDescriptor{ID: "b"})
	conn, err := m.Connect(a.ID, b.ID)
	require.NoError(t, err)

	assert.True(t, m.Disconnect(conn.ID))
	assert.False(t, m.Disconnect(conn.ID))
	assert.Empty(t, m.Connections())
	assert.Len(t, m.Nodes(), 2)
}

func TestModel_ReplaceAllDropsDanglingConnections(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	m.AddNode(models.NodeTypeDescriptor{ID: "old"})

	dropped := m.ReplaceAll(
		[]*models.Node{{ID: "a"}},
		[]*models.Connection{{ID: "c1", From: "a", To: "ghost"}},
	)

	assert.Equal(t, 1, dropped)
	nodes := m.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, "a", nodes[0].ID)
	assert.Empty(t, m.Connections())
}

func TestModel_ReplaceAllRepairsCandidate(t *testing.T) {
	t.Parallel()

	m := newTestModel()

	dropped := m.ReplaceAll(
		[]*models.Node{
			{ID: "a", Position: models.Position{X: -10, Y: 5}},
			{ID: "a", Name: "duplicate"},
			{ID: "", Name: "anonymous"},
			nil,
			{ID: "b"},
		},
		[]*models.Connection{
			{ID: "k1", From: "a", To: "b"},
			{ID: "k1", From: "b", To: "a"},
			{From: "b", To: "a", FromPort: "true"},
			nil,
		},
	)

	assert.Equal(t, 1, dropped)

	nodes := m.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, models.Position{X: 0, Y: 5}, nodes[0].Position)
	assert.Empty(t, nodes[0].Name)
	assert.NotEmpty(t, nodes[1].ID)

	conns := m.Connections()
	require.Len(t, conns, 2)
	assert.Equal(t, models.DefaultFromPort, conns[0].FromPort)
	assert.Equal(t, "true", conns[1].FromPort)
	assert.Equal(t, models.DefaultToPort, conns[1].ToPort)
	assert.NotEmpty(t, conns[1].ID)
}

func TestModel_SnapshotsDoNotAliasState(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	node := m.AddNode(models.NodeTypeDescriptor{ID: "a"})
	node.Name = "mutated outside"

	nodes := m.Nodes()
	nodes[0].Name = "also mutated"
	nodes[0].Config[0] = '['

	fresh, ok := m.Node(node.ID)
	require.True(t, ok)
	assert.Equal(t, "a", fresh.Name)
	assert.JSONEq(t, `{}`, string(fresh.Config))
}

func TestModel_ObserversSeeEveryMutation(t *testing.T) {
	t.Parallel()

	m := newTestModel()

	var kinds []graph.ChangeKind
	unsubscribe := m.Subscribe(func(ch graph.Change) { kinds = append(kinds, ch.Kind) })

	a := m.AddNode(models.NodeTypeDescriptor{ID: "a"})
	b := m.AddNode(models.NodeTypeDescriptor{ID: "b"})
	conn, err := m.Connect(a.ID, b.ID)
	require.NoError(t, err)
	require.NoError(t, m.UpdateNode(a.ID, graph.NodePatch{Name: ptr("x")}))
	m.Disconnect(conn.ID)
	m.DeleteNode(b.ID)
	m.ReplaceAll(nil, nil)

	unsubscribe()
	m.AddNode(models.NodeTypeDescriptor{ID: "c"})

	assert.Equal(t, []graph.ChangeKind{
		graph.ChangeNodeAdded,
		graph.ChangeNodeAdded,
		graph.ChangeConnectionAdded,
		graph.ChangeNodeUpdated,
		graph.ChangeConnectionRemoved,
		graph.ChangeNodeDeleted,
		graph.ChangeReplaced,
	}, kinds)
}

func TestModel_ExportDOT(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	m.ReplaceAll(
		[]*models.Node{
			{ID: "n-1", Type: "trigger-http", Name: "Webhook"},
			{ID: "n-2", Type: "action-email"},
		},
		[]*models.Connection{{ID: "c", From: "n-1", To: "n-2"}},
	)

	dot, err := m.ExportDOT("My flow")
	require.NoError(t, err)

	assert.Contains(t, dot, `digraph "My flow"`)
	assert.Contains(t, dot, `"n-1"`)
	assert.Contains(t, dot, `"Webhook"`)
	assert.Contains(t, dot, `"action-email"`)
	assert.Contains(t, dot, `"n-1"->"n-2"`)
}
