package indicator

import "math"

// window is a fixed-size ring buffer that can revert its most recent push. It keeps a
// running sum of its defined values; NaN values are counted instead of summed.
type window struct {
	buf   []float64
	head  int // next write position
	count int
	sum   float64
	nans  int
	undo  windowUndo
}

type windowUndo struct {
	head    int
	count   int
	evicted float64
	sum     float64
	nans    int
}

func newWindow(size int) *window {
	return &window{buf: make([]float64, size)}
}

// Push appends v, evicting the oldest value once the window is full.
func (w *window) Push(v float64) {
	w.undo = windowUndo{head: w.head, count: w.count, evicted: w.buf[w.head], sum: w.sum, nans: w.nans}

	if w.Full() {
		w.remove(w.buf[w.head])
	} else {
		w.count++
	}

	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
	w.add(v)
}

func (w *window) add(v float64) {
	if math.IsNaN(v) {
		w.nans++

		return
	}

	w.sum += v
}

func (w *window) remove(v float64) {
	if math.IsNaN(v) {
		w.nans--

		return
	}

	w.sum -= v
}

// Undo reverts the most recent Push. Only one level of undo is kept.
func (w *window) Undo() {
	w.buf[w.undo.head] = w.undo.evicted
	w.head = w.undo.head
	w.count = w.undo.count
	w.sum = w.undo.sum
	w.nans = w.undo.nans
}

// Len returns the number of values held.
func (w *window) Len() int {
	return w.count
}

// Full reports whether the window holds its full size.
func (w *window) Full() bool {
	return w.count == len(w.buf)
}

// At returns the i-th value, 0 being the oldest held.
func (w *window) At(i int) float64 {
	size := len(w.buf)

	return w.buf[(w.head-w.count+i+2*size)%size]
}

// Back returns the value k steps back from the newest (0 is the newest).
func (w *window) Back(k int) float64 {
	return w.At(w.count - 1 - k)
}

// Sum returns the total of the held values, NaN while any of them is NaN.
func (w *window) Sum() float64 {
	if w.nans > 0 {
		return math.NaN()
	}

	return w.sum
}

// Mean returns the average of the held values, NaN when empty.
func (w *window) Mean() float64 {
	if w.count == 0 {
		return math.NaN()
	}

	return w.Sum() / float64(w.count)
}

// StdDev returns the deviation around mean with ddof degrees of freedom removed. It rescans
// the window so that a constant window gives exactly zero.
func (w *window) StdDev(mean float64, ddof int) float64 {
	n := w.count - ddof
	if n <= 0 {
		return math.NaN()
	}

	var squared float64

	for i := 0; i < w.count; i++ {
		diff := w.At(i) - mean
		squared += diff * diff
	}

	return math.Sqrt(squared / float64(n))
}

// Max returns the largest held value.
func (w *window) Max() float64 {
	out := math.Inf(-1)
	for i := 0; i < w.count; i++ {
		out = math.Max(out, w.At(i))
	}

	return out
}

// Min returns the smallest held value.
func (w *window) Min() float64 {
	out := math.Inf(1)
	for i := 0; i < w.count; i++ {
		out = math.Min(out, w.At(i))
	}

	return out
}
