package mqttctl

import "sync"

// seenWindow is 2 per §6: "uniqueness is enforced across the last two
// seen ids per queue class".
const seenWindow = 2

// Dedup tracks the last two request-ids seen per QueueClass and rejects a
// repeat within that window, independently for ODM, special, and FUOTA
// traffic.
type Dedup struct {
	mu   sync.Mutex
	seen map[QueueClass][]string
}

func NewDedup() *Dedup {
	return &Dedup{seen: make(map[QueueClass][]string)}
}

// Admit reports whether requestID is new for class, recording it if so.
// A repeat of either of the last two ids for that class is rejected.
func (d *Dedup) Admit(class QueueClass, requestID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	window := d.seen[class]
	for _, id := range window {
		if id == requestID {
			return false
		}
	}

	window = append(window, requestID)
	if len(window) > seenWindow {
		window = window[len(window)-seenWindow:]
	}
	d.seen[class] = window
	return true
}
