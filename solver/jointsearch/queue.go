package jointsearch

import "github.com/hupe1980/mahd/core"

type node[A comparable, O comparable, Act comparable] struct {
	obs     core.JointObservation[A, O]
	key     string
	g, f    float64
	tie     int
	seq     int
	hint    map[A]Act
	parent  *node[A, O, Act]
	actions map[A]Act
	cost    float64
	index   int
}

// queue implements heap.Interface ordered by f, then tie rank, then
// insertion order.
type queue[A comparable, O comparable, Act comparable] []*node[A, O, Act]

func (q queue[A, O, Act]) Len() int { return len(q) }

func (q queue[A, O, Act]) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.tie != b.tie {
		return a.tie < b.tie
	}
	return a.seq < b.seq
}

func (q queue[A, O, Act]) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue[A, O, Act]) Push(x any) {
	n := x.(*node[A, O, Act])
	n.index = len(*q)
	*q = append(*q, n)
}

func (q *queue[A, O, Act]) Pop() any {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return n
}
