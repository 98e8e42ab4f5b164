package effect

// Subscription identifies one registered listener. The zero value is never issued.
type Subscription uint64

// listeners is an ordered observer list. Dispatch iterates a snapshot, so a
// listener may subscribe or unsubscribe during emission without affecting the
// current round.
type listeners[F any] struct {
	entries []listener[F]
}

type listener[F any] struct {
	sub Subscription
	fn  F
}

func (l *listeners[F]) add(sub Subscription, fn F) {
	l.entries = append(l.entries, listener[F]{sub: sub, fn: fn})
}

func (l *listeners[F]) remove(sub Subscription) bool {
	for i, e := range l.entries {
		if e.sub == sub {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (l *listeners[F]) emit(call func(F)) {
	if len(l.entries) == 0 {
		return
	}
	snapshot := make([]listener[F], len(l.entries))
	copy(snapshot, l.entries)
	for _, e := range snapshot {
		call(e.fn)
	}
}

func (l *listeners[F]) clear() {
	l.entries = nil
}

func (l *listeners[F]) len() int {
	return len(l.entries)
}
