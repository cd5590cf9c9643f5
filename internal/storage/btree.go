// Package storage - B+ tree primary index
//
// EDUCATIONAL NOTES:
// ------------------
// A B+ tree keeps every (key, pointer) pair in its leaves and uses internal
// nodes only for routing. Leaves are chained left to right, so a range scan
// is a descent to the first qualifying leaf followed by a walk along the
// chain.
//
// Key properties of this tree (order m):
// 1. Every node holds at most m keys
// 2. Every node except the root holds at least ceil((m+1)/2)-1 keys
// 3. All leaves sit at the same depth
// 4. A leaf split copies the right half's first key up as a separator;
//    an internal split moves its middle key up
//
// Nodes live in an arena (a slice addressed by index) and reference their
// children by index. Nodes do not know their parent: every operation that
// may need to walk back up records the path it took on the way down.
//
// The on-disk form is a flat dump of distinct (key, pointer) pairs that is
// rebuilt through Insert, so the file never depends on node layout.

package storage

import (
	"fmt"
	"sort"
)

const (
	// DefaultOrder is the order used for new primary indexes.
	DefaultOrder = 5

	// MinOrder is the smallest order that keeps splits and merges sound.
	MinOrder = 3
)

type nodeID int32

const nilNode nodeID = -1

// bpNode is a leaf or an internal node.
//
// For leaf nodes:
//   - keys[i] is paired with ptrs[i]
//   - next is the right sibling leaf, nilNode for the last leaf
//
// For internal nodes:
//   - children[i] holds keys < keys[i]
//   - children[len(keys)] holds keys >= keys[len(keys)-1]
type bpNode struct {
	leaf     bool
	keys     []Value
	ptrs     []RecordPtr
	children []nodeID
	next     nodeID
}

// step is one hop of a descent: the node visited and the child taken.
type step struct {
	node  nodeID
	child int
}

// BPTree maps keys to record pointers. It is not safe for concurrent use.
type BPTree struct {
	order int
	nodes []*bpNode
	free  []nodeID
	root  nodeID
	size  int
}

// NewBPTree creates an empty tree of the given order.
func NewBPTree(order int) (*BPTree, error) {
	if order < MinOrder {
		return nil, fmt.Errorf("b+ tree order must be at least %d, got %d", MinOrder, order)
	}
	return &BPTree{order: order, root: nilNode}, nil
}

// Order returns the maximum number of keys per node.
func (t *BPTree) Order() int { return t.order }

// Len returns the number of distinct keys stored.
func (t *BPTree) Len() int { return t.size }

// minKeys is ceil((order+1)/2) - 1.
func (t *BPTree) minKeys() int { return (t.order+2)/2 - 1 }

// Height returns the number of levels, zero for an empty tree.
func (t *BPTree) Height() int {
	h := 0
	for id := t.root; id != nilNode; {
		h++
		n := t.nodes[id]
		if n.leaf {
			break
		}
		id = n.children[0]
	}
	return h
}

func (t *BPTree) alloc(n *bpNode) nodeID {
	if k := len(t.free); k > 0 {
		id := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[id] = n
		return id
	}
	t.nodes = append(t.nodes, n)
	return nodeID(len(t.nodes) - 1)
}

func (t *BPTree) release(id nodeID) {
	t.nodes[id] = nil
	t.free = append(t.free, id)
}

// childIndex picks the child to follow: the number of separators <= key,
// so a key equal to a separator goes right.
func childIndex(n *bpNode, key Value) int {
	return sort.Search(len(n.keys), func(i int) bool {
		return n.keys[i].Compare(key) > 0
	})
}

// keyIndex returns the first position whose key is >= key.
func keyIndex(n *bpNode, key Value) int {
	return sort.Search(len(n.keys), func(i int) bool {
		return n.keys[i].Compare(key) >= 0
	})
}

// descend walks from the root to the leaf that owns key and returns the
// leaf with the internal nodes visited on the way.
func (t *BPTree) descend(key Value) (nodeID, []step) {
	var path []step
	id := t.root
	for id != nilNode {
		n := t.nodes[id]
		if n.leaf {
			return id, path
		}
		c := childIndex(n, key)
		path = append(path, step{node: id, child: c})
		id = n.children[c]
	}
	return nilNode, path
}

func (t *BPTree) leftmostLeaf() nodeID {
	id := t.root
	for id != nilNode && !t.nodes[id].leaf {
		id = t.nodes[id].children[0]
	}
	return id
}

// Search returns the pointer stored for key.
func (t *BPTree) Search(key Value) (RecordPtr, bool) {
	id, _ := t.descend(key)
	if id == nilNode {
		return NilRecordPtr, false
	}
	n := t.nodes[id]
	i := keyIndex(n, key)
	if i < len(n.keys) && n.keys[i].Equal(key) {
		return n.ptrs[i], true
	}
	return NilRecordPtr, false
}

// Insert stores ptr under key. An existing key has its pointer replaced.
func (t *BPTree) Insert(key Value, ptr RecordPtr) {
	if t.root == nilNode {
		t.root = t.alloc(&bpNode{leaf: true, keys: []Value{key}, ptrs: []RecordPtr{ptr}, next: nilNode})
		t.size = 1
		return
	}

	id, path := t.descend(key)
	leaf := t.nodes[id]
	i := keyIndex(leaf, key)
	if i < len(leaf.keys) && leaf.keys[i].Equal(key) {
		leaf.ptrs[i] = ptr
		return
	}

	leaf.keys = insertAt(leaf.keys, i, key)
	leaf.ptrs = insertAt(leaf.ptrs, i, ptr)
	t.size++

	if len(leaf.keys) <= t.order {
		return
	}
	right, sep := t.splitLeaf(id)
	t.insertIntoParent(path, id, sep, right)
}

// splitLeaf moves the upper half of an overfull leaf into a new right
// sibling. The left leaf keeps ceil((order+1)/2) keys. The returned
// separator is a copy of the right leaf's first key.
func (t *BPTree) splitLeaf(id nodeID) (nodeID, Value) {
	left := t.nodes[id]
	split := (t.order + 2) / 2

	right := &bpNode{
		leaf: true,
		keys: append([]Value(nil), left.keys[split:]...),
		ptrs: append([]RecordPtr(nil), left.ptrs[split:]...),
		next: left.next,
	}
	left.keys = append([]Value(nil), left.keys[:split]...)
	left.ptrs = append([]RecordPtr(nil), left.ptrs[:split]...)

	rightID := t.alloc(right)
	left.next = rightID
	return rightID, right.keys[0]
}

// splitInternal moves the keys above the middle into a new right node and
// returns the middle key, which leaves this level entirely.
func (t *BPTree) splitInternal(id nodeID) (nodeID, Value) {
	left := t.nodes[id]
	mid := (t.order + 1) / 2
	sep := left.keys[mid]

	right := &bpNode{
		keys:     append([]Value(nil), left.keys[mid+1:]...),
		children: append([]nodeID(nil), left.children[mid+1:]...),
		next:     nilNode,
	}
	left.keys = append([]Value(nil), left.keys[:mid]...)
	left.children = append([]nodeID(nil), left.children[:mid+1]...)

	return t.alloc(right), sep
}

// insertIntoParent links a freshly split right node next to left, growing
// a new root when left was the root.
func (t *BPTree) insertIntoParent(path []step, left nodeID, sep Value, right nodeID) {
	if len(path) == 0 {
		t.root = t.alloc(&bpNode{
			keys:     []Value{sep},
			children: []nodeID{left, right},
			next:     nilNode,
		})
		return
	}

	top := path[len(path)-1]
	parent := t.nodes[top.node]
	parent.keys = insertAt(parent.keys, top.child, sep)
	parent.children = insertAt(parent.children, top.child+1, right)

	if len(parent.keys) <= t.order {
		return
	}
	newRight, up := t.splitInternal(top.node)
	t.insertIntoParent(path[:len(path)-1], top.node, up, newRight)
}

// Remove deletes key and reports whether it was present.
//
// EDUCATIONAL NOTE:
// -----------------
// Removing a key can leave its leaf below the minimum occupancy. The leaf
// first tries to borrow a key from its left sibling, then its right one.
// When neither can spare a key the leaf is merged into a sibling and the
// parent loses a separator, which can underflow the parent in turn. The
// same borrow-then-merge rule runs one level up, and an empty root is
// replaced by its only child.
//
// Because leaf keys are copied into internal nodes, a removed key can
// survive as a separator. A final pass replaces any such separator with
// the smallest key of the subtree to its right.
func (t *BPTree) Remove(key Value) bool {
	id, path := t.descend(key)
	if id == nilNode {
		return false
	}
	leaf := t.nodes[id]
	i := keyIndex(leaf, key)
	if i >= len(leaf.keys) || !leaf.keys[i].Equal(key) {
		return false
	}

	leaf.keys = removeAt(leaf.keys, i)
	leaf.ptrs = removeAt(leaf.ptrs, i)
	t.size--

	if len(path) == 0 {
		if len(leaf.keys) == 0 {
			t.release(id)
			t.root = nilNode
		}
		return true
	}

	if len(leaf.keys) < t.minKeys() {
		t.rebalanceLeaf(id, path)
	}
	t.replaceSeparator(key)
	return true
}

// rebalanceLeaf fixes an underflowing non-root leaf.
func (t *BPTree) rebalanceLeaf(id nodeID, path []step) {
	leaf := t.nodes[id]
	top := path[len(path)-1]
	parent := t.nodes[top.node]
	c := top.child

	if c > 0 {
		left := t.nodes[parent.children[c-1]]
		if len(left.keys) > t.minKeys() {
			last := len(left.keys) - 1
			leaf.keys = insertAt(leaf.keys, 0, left.keys[last])
			leaf.ptrs = insertAt(leaf.ptrs, 0, left.ptrs[last])
			left.keys = left.keys[:last]
			left.ptrs = left.ptrs[:last]
			parent.keys[c-1] = leaf.keys[0]
			return
		}
	}

	if c < len(parent.children)-1 {
		right := t.nodes[parent.children[c+1]]
		if len(right.keys) > t.minKeys() {
			leaf.keys = append(leaf.keys, right.keys[0])
			leaf.ptrs = append(leaf.ptrs, right.ptrs[0])
			right.keys = removeAt(right.keys, 0)
			right.ptrs = removeAt(right.ptrs, 0)
			parent.keys[c] = right.keys[0]
			if c > 0 {
				parent.keys[c-1] = leaf.keys[0]
			}
			return
		}
	}

	if c > 0 {
		leftID := parent.children[c-1]
		left := t.nodes[leftID]
		left.keys = append(left.keys, leaf.keys...)
		left.ptrs = append(left.ptrs, leaf.ptrs...)
		left.next = leaf.next
		t.release(id)
		t.removeEntry(path, c-1)
		return
	}

	rightID := parent.children[c+1]
	right := t.nodes[rightID]
	leaf.keys = append(leaf.keys, right.keys...)
	leaf.ptrs = append(leaf.ptrs, right.ptrs...)
	leaf.next = right.next
	t.release(rightID)
	t.removeEntry(path, c)
}

// removeEntry deletes separator k and the child to its right from the last
// node on path, then repairs that node if it underflows.
func (t *BPTree) removeEntry(path []step, k int) {
	top := path[len(path)-1]
	id := top.node
	n := t.nodes[id]
	n.keys = removeAt(n.keys, k)
	n.children = removeAt(n.children, k+1)

	if len(path) == 1 {
		if len(n.keys) == 0 {
			t.root = n.children[0]
			t.release(id)
		}
		return
	}
	if len(n.keys) >= t.minKeys() {
		return
	}

	up := path[len(path)-2]
	parent := t.nodes[up.node]
	c := up.child

	if c > 0 {
		left := t.nodes[parent.children[c-1]]
		if len(left.keys) > t.minKeys() {
			last := len(left.keys) - 1
			n.keys = insertAt(n.keys, 0, parent.keys[c-1])
			n.children = insertAt(n.children, 0, left.children[last+1])
			parent.keys[c-1] = left.keys[last]
			left.keys = left.keys[:last]
			left.children = left.children[:last+1]
			return
		}
	}

	if c < len(parent.children)-1 {
		right := t.nodes[parent.children[c+1]]
		if len(right.keys) > t.minKeys() {
			n.keys = append(n.keys, parent.keys[c])
			n.children = append(n.children, right.children[0])
			parent.keys[c] = right.keys[0]
			right.keys = removeAt(right.keys, 0)
			right.children = removeAt(right.children, 0)
			return
		}
	}

	if c > 0 {
		left := t.nodes[parent.children[c-1]]
		left.keys = append(left.keys, parent.keys[c-1])
		left.keys = append(left.keys, n.keys...)
		left.children = append(left.children, n.children...)
		t.release(id)
		t.removeEntry(path[:len(path)-1], c-1)
		return
	}

	rightID := parent.children[c+1]
	right := t.nodes[rightID]
	n.keys = append(n.keys, parent.keys[c])
	n.keys = append(n.keys, right.keys...)
	n.children = append(n.children, right.children...)
	t.release(rightID)
	t.removeEntry(path[:len(path)-1], c)
}

// replaceSeparator swaps any internal copy of a removed key for the
// smallest key of the subtree on its right.
func (t *BPTree) replaceSeparator(key Value) {
	id := t.root
	for id != nilNode {
		n := t.nodes[id]
		if n.leaf {
			return
		}
		c := childIndex(n, key)
		if c > 0 && n.keys[c-1].Equal(key) {
			n.keys[c-1] = t.minKey(n.children[c])
		}
		id = n.children[c]
	}
}

func (t *BPTree) minKey(id nodeID) Value {
	n := t.nodes[id]
	for !n.leaf {
		n = t.nodes[n.children[0]]
	}
	return n.keys[0]
}

// Ascend calls fn for every pair in key order until fn returns false.
func (t *BPTree) Ascend(fn func(key Value, ptr RecordPtr) bool) {
	for id := t.leftmostLeaf(); id != nilNode; id = t.nodes[id].next {
		n := t.nodes[id]
		for i, k := range n.keys {
			if !fn(k, n.ptrs[i]) {
				return
			}
		}
	}
}

// GreaterThan returns the pointers of every key > key, or >= key when
// orEqual is set, in key order.
func (t *BPTree) GreaterThan(key Value, orEqual bool) []RecordPtr {
	var out []RecordPtr
	start, _ := t.descend(key)
	for id := start; id != nilNode; id = t.nodes[id].next {
		n := t.nodes[id]
		for i, k := range n.keys {
			c := k.Compare(key)
			if c > 0 || (orEqual && c == 0) {
				out = append(out, n.ptrs[i])
			}
		}
	}
	return out
}

// LessThan returns the pointers of every key < key, or <= key when orEqual
// is set, in key order.
func (t *BPTree) LessThan(key Value, orEqual bool) []RecordPtr {
	var out []RecordPtr
	t.Ascend(func(k Value, ptr RecordPtr) bool {
		c := k.Compare(key)
		if c > 0 || (!orEqual && c == 0) {
			return false
		}
		out = append(out, ptr)
		return true
	})
	return out
}

// AllExcept returns the pointers of every key not equal to key.
func (t *BPTree) AllExcept(key Value) []RecordPtr {
	var out []RecordPtr
	t.Ascend(func(k Value, ptr RecordPtr) bool {
		if !k.Equal(key) {
			out = append(out, ptr)
		}
		return true
	})
	return out
}

// Encode writes the order, the key count and every distinct key with its
// pointer in pre-order.
//
// EDUCATIONAL NOTE:
// -----------------
// Internal separators are copies of leaf keys, so a plain pre-order walk
// would emit some keys twice. A visited set keeps the first occurrence and
// the pointer of an internal key is looked up in its leaf.
func (t *BPTree) Encode(e *Encoder) {
	type pair struct {
		key Value
		ptr RecordPtr
	}
	var pairs []pair
	seen := make(map[Value]bool, t.size)

	var walk func(id nodeID)
	walk = func(id nodeID) {
		n := t.nodes[id]
		for i, k := range n.keys {
			if seen[k] {
				continue
			}
			ptr := NilRecordPtr
			if n.leaf {
				ptr = n.ptrs[i]
			} else if p, ok := t.Search(k); ok {
				ptr = p
			} else {
				continue
			}
			seen[k] = true
			pairs = append(pairs, pair{k, ptr})
		}
		if !n.leaf {
			for _, c := range n.children {
				walk(c)
			}
		}
	}
	if t.root != nilNode {
		walk(t.root)
	}

	e.Int32(int32(t.order))
	e.Uint64(uint64(len(pairs)))
	for _, p := range pairs {
		p.key.Encode(e)
		p.ptr.Encode(e)
	}
}

// DecodeBPTree rebuilds a tree written by Encode by inserting every pair.
func DecodeBPTree(d *Decoder) (*BPTree, error) {
	order := int(d.Int32())
	n := d.Count()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("failed to read index header: %w", err)
	}
	t, err := NewBPTree(order)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		key := DecodeValue(d)
		ptr := DecodeRecordPtr(d)
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("failed to read index entry %d of %d: %w", i, n, err)
		}
		t.Insert(key, ptr)
	}
	return t, nil
}

func insertAt[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeAt[T any](s []T, i int) []T {
	copy(s[i:], s[i+1:])
	return s[:len(s)-1]
}
