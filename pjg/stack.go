package pjg

import "github.com/fzipp/pascal-jvm/internal/contract"

// LocalStack tracks the operand stack depth of one method body.
//
// Branch targets remember the depth at the branch. After an unconditional
// transfer the following code is unreachable until a label is placed, and
// the label's recorded depth becomes the current depth again.
type LocalStack struct {
	size    int
	max     int
	dead    bool
	targets map[Label]int
}

func NewLocalStack() *LocalStack {
	return &LocalStack{targets: make(map[Label]int)}
}

func (s *LocalStack) Increase(n int) {
	s.size += n
	if s.size > s.max {
		s.max = s.size
	}
}

func (s *LocalStack) Decrease(n int) {
	s.size -= n
	contract.Assertf(s.size >= 0, "operand stack underflow")
}

// Reset empties the stack and forgets the high-water mark.
func (s *LocalStack) Reset() {
	s.size = 0
	s.max = 0
	s.dead = false
	s.targets = make(map[Label]int)
}

// Size returns the current depth.
func (s *LocalStack) Size() int { return s.size }

// Capacity returns the maximum depth reached.
func (s *LocalStack) Capacity() int { return s.max }

func (s *LocalStack) apply(n int) {
	if n >= 0 {
		s.Increase(n)
	} else {
		s.Decrease(-n)
	}
}

// branch records the depth at a jump to l.
func (s *LocalStack) branch(l Label) {
	if d, ok := s.targets[l]; ok {
		contract.Assertf(d == s.size, "inconsistent stack depth at %s: %d and %d", l, d, s.size)
		return
	}
	s.targets[l] = s.size
}

// stop marks the following code as unreachable.
func (s *LocalStack) stop() {
	s.dead = true
}

// place marks the position of l.
func (s *LocalStack) place(l Label) {
	d, ok := s.targets[l]
	switch {
	case s.dead && ok:
		s.size = d
	case ok:
		contract.Assertf(d == s.size, "inconsistent stack depth at %s: %d and %d", l, d, s.size)
	default:
		s.targets[l] = s.size
	}
	s.dead = false
}

// LocalVariables tracks the local variable slots of one method body.
// Slots below the initial count belong to declared parameters and variables;
// further slots are reserved for temporaries.
type LocalVariables struct {
	next  int
	count int
}

func NewLocalVariables(count int) *LocalVariables {
	return &LocalVariables{next: count, count: count}
}

// Reserve returns a fresh slot.
func (lv *LocalVariables) Reserve() int {
	slot := lv.next
	lv.next++
	if lv.next > lv.count {
		lv.count = lv.next
	}
	return slot
}

// Release returns the most recently reserved slot.
func (lv *LocalVariables) Release(slot int) {
	contract.Requiref(slot == lv.next-1, "slot", "release of %d out of order", slot)
	lv.next--
}

// Count returns the number of slots used.
func (lv *LocalVariables) Count() int { return lv.count }
