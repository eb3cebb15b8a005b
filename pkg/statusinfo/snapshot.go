package statusinfo

import "sort"

// OperationSnapshot is one operation plus the number of listeners dedicated
// to it.
type OperationSnapshot struct {
	Operation          Operation
	DedicatedListeners int
}

// ThreadSnapshot lists the operations of one thread, leaf first.
type ThreadSnapshot struct {
	Thread     Thread
	Operations []OperationSnapshot
}

// Snapshot is an immutable point-in-time view of the registry. Threads are
// sorted by thread ID. Snapshots taken without an intervening mutation are
// equal under reflect.DeepEqual.
type Snapshot struct {
	Threads   []ThreadSnapshot
	Listeners int
}

// Thread returns the snapshot of th, if it has open operations.
func (s Snapshot) Thread(th Thread) (ThreadSnapshot, bool) {
	for _, ts := range s.Threads {
		if ts.Thread == th {
			return ts, true
		}
	}
	return ThreadSnapshot{}, false
}

// ThreadByID finds a thread by its numeric ID.
func (s Snapshot) ThreadByID(id uint64) (ThreadSnapshot, bool) {
	for _, ts := range s.Threads {
		if ts.Thread.ID == id {
			return ts, true
		}
	}
	return ThreadSnapshot{}, false
}

// Empty reports whether nothing is running and nobody is listening.
func (s Snapshot) Empty() bool {
	return len(s.Threads) == 0 && s.Listeners == 0
}

// OperationCount totals the operations across all threads.
func (s Snapshot) OperationCount() int {
	n := 0
	for _, ts := range s.Threads {
		n += len(ts.Operations)
	}
	return n
}

type snapNode struct {
	op       Operation
	thread   Thread
	parent   Receipt
	children []Receipt
	seq      uint64
}

// Snapshot captures every open operation grouped by thread together with
// listener counts.
func (r *Registry) Snapshot() Snapshot {
	r.statusesMu.Lock()
	nodes := make(map[Receipt]*snapNode, len(r.statuses))
	for receipt, rec := range r.statuses {
		n := &snapNode{
			op:     rec.view(),
			thread: rec.Thread,
			seq:    rec.seq,
		}
		if rec.parent != nil {
			n.parent = rec.parent.Receipt
		}
		for child := range rec.children {
			n.children = append(n.children, child)
		}
		nodes[receipt] = n
	}
	r.listenersMu.Lock()
	total := len(r.listeners)
	dedicated := make(map[Receipt]int)
	for _, reg := range r.listeners {
		if reg.dedicated != "" {
			dedicated[reg.dedicated]++
		}
	}
	r.listenersMu.Unlock()
	r.statusesMu.Unlock()

	return buildSnapshot(nodes, dedicated, total)
}

func buildSnapshot(nodes map[Receipt]*snapNode, dedicated map[Receipt]int, total int) Snapshot {
	byThread := make(map[Thread][]Receipt)
	for receipt, n := range nodes {
		byThread[n.thread] = append(byThread[n.thread], receipt)
	}
	threads := make([]Thread, 0, len(byThread))
	for th := range byThread {
		threads = append(threads, th)
	}
	sort.Slice(threads, func(i, j int) bool {
		if threads[i].ID != threads[j].ID {
			return threads[i].ID < threads[j].ID
		}
		return threads[i].Name < threads[j].Name
	})

	snap := Snapshot{Listeners: total}
	for _, th := range threads {
		receipts := byThread[th]
		sort.Slice(receipts, func(i, j int) bool {
			return nodes[receipts[i]].seq > nodes[receipts[j]].seq
		})
		snap.Threads = append(snap.Threads, ThreadSnapshot{
			Thread:     th,
			Operations: threadChains(th, receipts, nodes, dedicated),
		})
	}
	return snap
}

// threadChains orders one thread's operations leaf to root. receipts must be
// sorted newest first. Each pass picks the newest operation without an
// unvisited same-thread child and climbs while the parent stays on th.
func threadChains(th Thread, receipts []Receipt, nodes map[Receipt]*snapNode, dedicated map[Receipt]int) []OperationSnapshot {
	visited := make(map[Receipt]bool, len(receipts))
	out := make([]OperationSnapshot, 0, len(receipts))
	for len(out) < len(receipts) {
		var leaf Receipt
		for _, receipt := range receipts {
			if !visited[receipt] && !hasPendingChild(nodes[receipt], th, nodes, visited) {
				leaf = receipt
				break
			}
		}
		for cur := leaf; cur != ""; {
			n, ok := nodes[cur]
			if !ok || n.thread != th || visited[cur] {
				break
			}
			visited[cur] = true
			out = append(out, OperationSnapshot{Operation: n.op, DedicatedListeners: dedicated[cur]})
			cur = n.parent
		}
	}
	return out
}

func hasPendingChild(n *snapNode, th Thread, nodes map[Receipt]*snapNode, visited map[Receipt]bool) bool {
	for _, child := range n.children {
		if c, ok := nodes[child]; ok && c.thread == th && !visited[child] {
			return true
		}
	}
	return false
}
