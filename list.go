package pt

// taskRing is the intrusive circular singly-linked list described in
// spec §4.1, translated directly from protothread.c's pt_link/
// pt_unlink/pt_unlink_oldest/pt_find_and_unlink. head always points at
// the newest node; head.next is therefore the oldest node, giving O(1)
// FIFO enqueue and dequeue without a tail pointer.
//
// Every method requires the caller to already hold whatever mutex
// guards the ring (the scheduler mutex, for the ready list and every
// wait bucket); taskRing itself does no locking.
type taskRing struct {
	head *Task
}

// empty reports whether the ring holds no nodes.
func (r *taskRing) empty() bool {
	return r.head == nil
}

// appendNewest links n as the newest node in the ring.
func (r *taskRing) appendNewest(n *Task) {
	if r.head != nil {
		n.next = r.head.next
		r.head.next = n
	} else {
		n.next = n
	}
	r.head = n
}

// removeAfter unlinks the node following prev (prev must be in the
// ring) and returns it, fixing up head if the removed node was the
// head (the newest) or the only node.
func (r *taskRing) removeAfter(prev *Task) *Task {
	next := prev.next
	prev.next = next.next
	if next == prev {
		r.head = nil
	} else if next == r.head {
		r.head = prev
	}
	next.next = nil
	return next
}

// removeOldest unlinks and returns the oldest (last) node, equivalent
// to removeAfter(head) since head is newest and head.next is oldest.
func (r *taskRing) removeOldest() *Task {
	return r.removeAfter(r.head)
}

// findAndRemove walks the ring starting at head.next exactly once,
// unlinking and returning true if target is found.
func (r *taskRing) findAndRemove(target *Task) bool {
	if r.head == nil {
		return false
	}
	prev := r.head
	for {
		n := prev.next
		if n == target {
			r.removeAfter(prev)
			return true
		}
		prev = n
		if prev == r.head {
			return false
		}
	}
}

// removeFirstMatching unlinks and returns the oldest node for which
// pred reports true, or nil if none match. Used by Signal to find the
// oldest waiter on a specific channel within a bucket shared by
// multiple channels.
func (r *taskRing) removeFirstMatching(pred func(*Task) bool) *Task {
	if r.head == nil {
		return nil
	}
	prev := r.head
	for {
		n := prev.next
		if pred(n) {
			return r.removeAfter(prev)
		}
		prev = n
		if prev == r.head {
			return nil
		}
	}
}

// removeAllMatching unlinks and returns every node for which pred
// reports true, oldest first. Used by Broadcast.
func (r *taskRing) removeAllMatching(pred func(*Task) bool) []*Task {
	var out []*Task
	for {
		t := r.removeFirstMatching(pred)
		if t == nil {
			return out
		}
		out = append(out, t)
	}
}

// len counts the nodes in the ring. O(n); used only by metrics and
// tests, never on a scheduler hot path.
func (r *taskRing) len() int {
	if r.head == nil {
		return 0
	}
	n := 1
	for cur := r.head.next; cur != r.head; cur = cur.next {
		n++
	}
	return n
}
