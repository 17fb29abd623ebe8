package socketio

import (
	"testing"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []any
		want    []models.Collaborator
		scope   string
		wantErr bool
	}{
		{name: "no arguments", args: nil, want: nil},
		{
			name: "decoded array",
			args: []any{[]any{map[string]any{"id": "u1", "name": "Ana", "color": "#f00", "cursor": map[string]any{"x": 1.5, "y": 2}}}},
			want: []models.Collaborator{{ID: "u1", Name: "Ana", Color: "#f00", Cursor: models.Position{X: 1.5, Y: 2}}},
		},
		{
			name: "envelope object",
			args: []any{map[string]any{"collaborators": []any{map[string]any{"id": "u2"}}}},
			want: []models.Collaborator{{ID: "u2"}},
		},
		{
			name:  "scoped envelope",
			args:  []any{map[string]any{"workflow_id": "wf-7", "collaborators": []any{map[string]any{"id": "u4"}}}},
			want:  []models.Collaborator{{ID: "u4"}},
			scope: "wf-7",
		},
		{
			name: "raw json string",
			args: []any{`[{"id":"u3"}]`},
			want: []models.Collaborator{{ID: "u3"}},
		},
		{name: "garbage", args: []any{"not json"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := decodeArgs(tt.args)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Collaborators)
			assert.Equal(t, tt.scope, got.WorkflowID)
		})
	}
}

func TestSinkDropsAfterClose(t *testing.T) {
	t.Parallel()

	s := newSink()
	s.send([]models.Collaborator{{ID: "a"}})
	s.close()
	s.close()
	s.send([]models.Collaborator{{ID: "b"}})

	first, ok := <-s.ch
	require.True(t, ok)
	assert.Equal(t, "a", first[0].ID)

	_, ok = <-s.ch
	assert.False(t, ok)
}
