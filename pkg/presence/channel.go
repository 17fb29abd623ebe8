package presence

import (
	"context"
	"sync"

	"github.com/dukex/flowedit/pkg/models"
)

// ChannelFeed is an in-process feed. Publish fans a snapshot out to every
// subscriber of the same workflow.
type ChannelFeed struct {
	mu          sync.Mutex
	subscribers map[chan []models.Collaborator]string
	closed      bool
}

func NewChannelFeed() *ChannelFeed {
	return &ChannelFeed{subscribers: map[chan []models.Collaborator]string{}}
}

func (f *ChannelFeed) Subscribe(ctx context.Context, workflowID string) (<-chan []models.Collaborator, error) {
	ch := make(chan []models.Collaborator, 16)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)

		return ch, nil
	}

	f.subscribers[ch] = workflowID
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.remove(ch)
	}()

	return ch, nil
}

// Publish delivers snapshot to the subscribers of workflowID. A subscriber that
// is not keeping up misses the snapshot; the next one supersedes it.
func (f *ChannelFeed) Publish(workflowID string, snapshot []models.Collaborator) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch, id := range f.subscribers {
		if id != workflowID {
			continue
		}

		select {
		case ch <- append([]models.Collaborator(nil), snapshot...):
		default:
		}
	}
}

// Subscribers counts the open subscriptions to workflowID.
func (f *ChannelFeed) Subscribers(workflowID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0

	for _, id := range f.subscribers {
		if id == workflowID {
			n++
		}
	}

	return n
}

// Close ends every subscription.
func (f *ChannelFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	for ch := range f.subscribers {
		delete(f.subscribers, ch)
		close(ch)
	}
}

func (f *ChannelFeed) remove(ch chan []models.Collaborator) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.subscribers[ch]; ok {
		delete(f.subscribers, ch)
		close(ch)
	}
}
