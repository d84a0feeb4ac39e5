package app

import (
	"sync"

	"mcq-quiz-service/internal/domain"
)

// Board fans leaderboard snapshots out to live subscribers (the admin view).
type Board struct {
	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewBoard() *Board {
	return &Board{subscribers: make(map[chan domain.Leaderboard]struct{})}
}

// Subscribe registers a subscriber and delivers initial as its first update.
// The caller must invoke the returned cancel function.
func (b *Board) Subscribe(initial domain.Leaderboard) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)
	ch <- initial

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish sends lb to every subscriber. A subscriber that has fallen behind
// loses its oldest pending update rather than blocking the publisher.
func (b *Board) Publish(lb domain.Leaderboard) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

// Subscribers reports the number of live subscribers.
func (b *Board) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
