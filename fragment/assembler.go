package fragment

// Assembler collects validated fragments of a session. Each sequence is
// accepted at most once; the session is complete when every sequence in
// [0, count) has been accepted.
type Assembler struct {
	count     int
	fragments [][]byte
	accepted  []bool
	n         int
}

func NewAssembler(count int) *Assembler {
	if count < 0 {
		count = 0
	}
	return &Assembler{
		count:     count,
		fragments: make([][]byte, count),
		accepted:  make([]bool, count),
	}
}

// Add records payload under seq. It returns false when seq is out of range
// or already accepted, in which case the assembler is unchanged.
func (a *Assembler) Add(seq int, payload []byte) bool {
	if seq < 0 || seq >= a.count || a.accepted[seq] {
		return false
	}
	a.fragments[seq] = payload
	a.accepted[seq] = true
	a.n++
	return true
}

func (a *Assembler) Has(seq int) bool {
	return seq >= 0 && seq < a.count && a.accepted[seq]
}

// Len returns the number of accepted fragments.
func (a *Assembler) Len() int {
	return a.n
}

// Count returns the expected number of fragments.
func (a *Assembler) Count() int {
	return a.count
}

func (a *Assembler) Complete() bool {
	return a.n == a.count
}

// Missing returns the sequences not yet accepted, ascending.
func (a *Assembler) Missing() []int {
	missing := make([]int, 0, a.count-a.n)
	for seq, ok := range a.accepted {
		if !ok {
			missing = append(missing, seq)
		}
	}
	return missing
}

// Fragments returns the accepted payloads ordered by sequence.
func (a *Assembler) Fragments() [][]byte {
	frags := make([][]byte, 0, a.n)
	for seq, ok := range a.accepted {
		if ok {
			frags = append(frags, a.fragments[seq])
		}
	}
	return frags
}

func (a *Assembler) Bytes() []byte {
	return Reassemble(a.Fragments())
}
