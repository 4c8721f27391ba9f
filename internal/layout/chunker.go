package layout

// Chunker tracks chunk and pointer table state while a store is written.
//
// Callers report every sequence as BeginSequence, any number of Advance calls
// bounded by Room, and EndSequence. When Room is zero and more elements must
// be placed, Roll closes the current chunk and returns its table.
type Chunker struct {
	capacity uint64
	ordinal  int
	cur      PointerTable

	inSeq   bool
	pending uint64 // elements of the current sequence placed so far
}

// NewChunker returns a Chunker placing at most capacity elements per chunk.
func NewChunker(capacity uint64) *Chunker {
	if capacity == 0 {
		capacity = 1
	}
	return &Chunker{capacity: capacity}
}

// Capacity returns the number of elements per chunk.
func (c *Chunker) Capacity() uint64 { return c.capacity }

// Ordinal returns the number of the current chunk.
func (c *Chunker) Ordinal() int { return c.ordinal }

// Room returns how many more elements fit in the current chunk.
func (c *Chunker) Room() uint64 { return c.capacity - c.cur.Elements }

// BeginSequence starts a new sequence.
func (c *Chunker) BeginSequence() {
	c.inSeq = true
	c.pending = 0
}

// Advance records n elements of the current sequence. n must not exceed Room.
func (c *Chunker) Advance(n uint64) {
	if n > c.Room() {
		panic("layout: advance beyond chunk capacity")
	}
	c.cur.Elements += n
	c.pending += n
}

// EndSequence records the end of the current sequence in the chunk holding
// its tail.
func (c *Chunker) EndSequence() {
	c.cur.Entries = append(c.cur.Entries, c.cur.Elements)
	c.inSeq = false
	c.pending = 0
}

// Roll closes the current chunk and starts the next one.
func (c *Chunker) Roll() *PointerTable {
	open := c.inSeq && c.pending > 0
	done := c.cur
	done.Open = open
	if open && done.Continued && len(done.Entries) == 0 {
		// The sequence passes through the whole chunk.
		done.Entries = append(done.Entries, done.Elements)
	}
	c.cur = PointerTable{Continued: open}
	c.ordinal++
	return &done
}

// Finish closes the last chunk. It must not be called inside a sequence.
func (c *Chunker) Finish() *PointerTable {
	done := c.cur
	c.cur = PointerTable{}
	return &done
}
