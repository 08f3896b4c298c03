package aggregates

import (
	"strings"

	"github.com/tidwall/btree"

	"orgmap/domain/core/entities"
	"orgmap/domain/core/valueobjects"
)

type labelItem struct {
	fold  string
	label string
	seq   uint64
	id    valueobjects.NodeID
}

// Items with the same label keep the order their nodes were added in
func labelItemLess(a, b labelItem) bool {
	if a.fold != b.fold {
		return a.fold < b.fold
	}
	if a.label != b.label {
		return a.label < b.label
	}
	if a.seq != b.seq {
		return a.seq < b.seq
	}
	return a.id < b.id
}

// labelIndex orders nodes by case-folded label for exact lookup and autocomplete
type labelIndex struct {
	tree  *btree.BTreeG[labelItem]
	items map[valueobjects.NodeID]labelItem
	seq   uint64
}

func newLabelIndex() *labelIndex {
	return &labelIndex{
		tree:  btree.NewBTreeGOptions(labelItemLess, btree.Options{NoLocks: true}),
		items: make(map[valueobjects.NodeID]labelItem),
	}
}

func (x *labelIndex) add(n *entities.Node) {
	x.seq++
	item := labelItem{fold: strings.ToLower(n.Label), label: n.Label, seq: x.seq, id: n.ID}
	x.items[n.ID] = item
	x.tree.Set(item)
}

func (x *labelIndex) remove(n *entities.Node) {
	if item, ok := x.items[n.ID]; ok {
		x.tree.Delete(item)
		delete(x.items, n.ID)
	}
}

func (x *labelIndex) clear() {
	x.tree.Clear()
	x.items = make(map[valueobjects.NodeID]labelItem)
}

func (x *labelIndex) len() int {
	return x.tree.Len()
}

// exact finds the earliest added node whose label equals label
func (x *labelIndex) exact(label string) (valueobjects.NodeID, bool) {
	if label == "" {
		return "", false
	}
	var found valueobjects.NodeID
	pivot := labelItem{fold: strings.ToLower(label), label: label}
	x.tree.Ascend(pivot, func(item labelItem) bool {
		if item.label == label {
			found = item.id
		}
		return false
	})
	return found, found != ""
}

func (x *labelIndex) prefix(prefix string, limit int) []valueobjects.NodeID {
	fold := strings.ToLower(prefix)
	ids := make([]valueobjects.NodeID, 0)
	x.tree.Ascend(labelItem{fold: fold}, func(item labelItem) bool {
		if !strings.HasPrefix(item.fold, fold) {
			return false
		}
		ids = append(ids, item.id)
		return limit <= 0 || len(ids) < limit
	})
	return ids
}

func (x *labelIndex) each(fn func(valueobjects.NodeID)) {
	x.tree.Scan(func(item labelItem) bool {
		fn(item.id)
		return true
	})
}
