package structure

// EventType describes a change to a tree.
type EventType uint8

const (
	Inserted EventType = iota + 1
	Removed
	Updated
)

func (t EventType) String() string {
	switch t {
	case Inserted:
		return "inserted"
	case Removed:
		return "removed"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}

// Event is delivered to observers after a mutation completed.
type Event struct {
	Type  EventType
	Node  *Node // Node whose children changed
	Field Field // Inserted, removed or updated field
	Index int   // Position of Field within Node (before removal for Removed)
}

// Observer receives change notifications, typically a presentation layer.
// Implementations must not mutate the tree while handling an event.
type Observer interface {
	ResourceChanged(ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev Event)

func (f ObserverFunc) ResourceChanged(ev Event) { f(ev) }

type subscription struct {
	id int
	o  Observer
}

// Subscribe registers o for events raised anywhere in the subtree of n. The
// returned function cancels the subscription.
func (n *Node) Subscribe(o Observer) (cancel func()) {
	n.nextSub++
	id := n.nextSub
	n.subs = append(n.subs, subscription{id: id, o: o})
	return func() {
		for i, s := range n.subs {
			if s.id == id {
				n.subs = append(n.subs[:i], n.subs[i+1:]...)
				return
			}
		}
	}
}

// notify marks the tree changed and delivers ev to every observer between n
// and the root.
func (n *Node) notify(t EventType, f Field, index int) {
	ev := Event{Type: t, Node: n, Field: f, Index: index}
	cur := n
	for depth := 0; cur != nil && depth <= MaxDepth; depth++ {
		for _, s := range cur.subs {
			s.o.ResourceChanged(ev)
		}
		if cur.parent == nil {
			cur.changed = true
		}
		cur = cur.parent
	}
}
