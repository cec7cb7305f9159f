package value

// Record is an insertion-ordered mapping of column names to values.
type Record struct {
	cols []string
	vals []Value
}

// NewRecord returns an empty record with room for n columns.
func NewRecord(n int) *Record {
	return &Record{
		cols: make([]string, 0, n),
		vals: make([]Value, 0, n),
	}
}

// Push appends a column without checking for duplicates.
func (r *Record) Push(col string, v Value) {
	r.cols = append(r.cols, col)
	r.vals = append(r.vals, v)
}

// Insert replaces the value of an existing column in place, or appends the
// column if it is new. It reports whether a column was replaced.
func (r *Record) Insert(col string, v Value) bool {
	for i, c := range r.cols {
		if c == col {
			r.vals[i] = v
			return true
		}
	}
	r.Push(col, v)
	return false
}

// Get returns the value stored under col.
func (r *Record) Get(col string) (Value, bool) {
	for i, c := range r.cols {
		if c == col {
			return r.vals[i], true
		}
	}
	return Value{}, false
}

// Columns returns the column names in order. The slice must not be modified.
func (r *Record) Columns() []string {
	return r.cols
}

// Values returns the values in column order. The slice must not be modified.
func (r *Record) Values() []Value {
	return r.vals
}

func (r *Record) Len() int {
	return len(r.cols)
}
