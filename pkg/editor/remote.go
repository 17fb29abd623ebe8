package editor

import "time"

// RemoteChanges summarizes edits other sessions committed to this session's
// workflow since it was loaded. The store keeps the last write, so a Save after
// remote changes overwrites them.
type RemoteChanges struct {
	Count         int
	LastAt        time.Time
	LastSessionID string
}

// WorkflowID returns the id of the edited workflow, empty while unsaved.
func (c *Controller) WorkflowID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.workflow.ID
}

// RecordRemoteChange notes an edit that sessionID made to workflowID. Edits to
// other workflows and this session's own edits are ignored.
func (c *Controller) RecordRemoteChange(workflowID, sessionID string, at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || workflowID == "" || workflowID != c.workflow.ID || sessionID == c.sessionID {
		return false
	}

	c.remote.Count++
	c.remote.LastSessionID = sessionID

	if at.After(c.remote.LastAt) {
		c.remote.LastAt = at
	}

	return true
}

func (c *Controller) RemoteChanges() RemoteChanges {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.remote
}
