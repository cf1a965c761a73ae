package screens

// Snapshot is a versioned copy of a screen's state. Version increases by one
// for every state change the screen publishes.
type Snapshot[S any] struct {
	Version int
	State   S
}

// subscribers fans snapshots out to listeners. It is owned by a single loop
// goroutine and is not safe for concurrent use.
type subscribers[S any] struct {
	next int
	subs map[int]chan Snapshot[S]
}

func newSubscribers[S any]() *subscribers[S] {
	return &subscribers[S]{subs: make(map[int]chan Snapshot[S])}
}

func (b *subscribers[S]) add(ch chan Snapshot[S]) int {
	b.next++
	b.subs[b.next] = ch
	return b.next
}

func (b *subscribers[S]) remove(id int) {
	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
}

// broadcast never blocks: a subscriber whose buffer is full is dropped
func (b *subscribers[S]) broadcast(snap Snapshot[S]) {
	for id, ch := range b.subs {
		select {
		case ch <- snap:
		default:
			close(ch)
			delete(b.subs, id)
		}
	}
}

func (b *subscribers[S]) closeAll() {
	for id := range b.subs {
		b.remove(id)
	}
}
