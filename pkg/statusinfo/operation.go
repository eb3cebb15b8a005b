package statusinfo

// NoMaxSteps marks an operation without a declared step budget.
const NoMaxSteps = -1

// Receipt is the capability returned by a start call. It is required to end
// or update the operation and is distinct from the operation ID.
type Receipt string

// Handle is returned when an operation starts.
type Handle struct {
	// ID identifies the logical operation for observers.
	ID string
	// Receipt ends or updates the operation.
	Receipt Receipt
}

// Operation is a read-only view of one tracked operation. Values handed to
// listeners and snapshots are copies and never change after creation.
type Operation struct {
	ID string
	// ParentID is empty for a root operation.
	ParentID     string
	Name         string
	Thread       Thread
	MaxSteps     int
	CurrentSteps int
}

// Bounded reports whether the operation declared a step budget.
func (o Operation) Bounded() bool {
	return o.MaxSteps != NoMaxSteps
}

// record is the mutable node owned by the Registry. Parent and children are
// guarded by Registry.statusesMu.
type record struct {
	ID           string
	Receipt      Receipt
	Name         string
	Thread       Thread
	MaxSteps     int
	CurrentSteps int
	seq          uint64
	parent       *record
	children     map[Receipt]struct{}
}

func (r *record) view() Operation {
	op := Operation{
		ID:           r.ID,
		Name:         r.Name,
		Thread:       r.Thread,
		MaxSteps:     r.MaxSteps,
		CurrentSteps: r.CurrentSteps,
	}
	if r.parent != nil {
		op.ParentID = r.parent.ID
	}
	return op
}

// descendsFrom reports whether r is ancestor or one of its descendants.
func (r *record) descendsFrom(ancestor *record) bool {
	for n := r; n != nil; n = n.parent {
		if n == ancestor {
			return true
		}
	}
	return false
}
