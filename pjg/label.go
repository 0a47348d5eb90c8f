package pjg

import (
	"fmt"
	"sync/atomic"
)

// Label is a symbolic branch target.
type Label int32

// labelCount is shared by all compilations so that label names are never reused.
var labelCount atomic.Int32

// NewLabel returns a new, unique label.
func NewLabel() Label {
	return Label(labelCount.Add(1))
}

func (l Label) String() string {
	return fmt.Sprintf("L%03d", int32(l))
}
