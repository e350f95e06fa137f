package repository

// BatchOpKind is the kind of write in a Batch.
type BatchOpKind int

const (
	OpCreate BatchOpKind = iota
	OpSet
	OpUpdate
	OpDelete
)

func (k BatchOpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpSet:
		return "set"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// BatchOp is one write of an atomic batch.
type BatchOp struct {
	Kind       BatchOpKind
	Collection Collection
	ID         string
	Fields     Fields
	Merge      bool
}

// Batch collects writes that a DocumentStore commits atomically. A Batch is
// not safe for concurrent use.
type Batch struct {
	ops []BatchOp
}

func NewBatch() *Batch {
	return &Batch{}
}

// Create queues a new document and returns the id it will be stored under.
func (b *Batch) Create(coll Collection, fields Fields) string {
	id := NewID()
	b.ops = append(b.ops, BatchOp{Kind: OpCreate, Collection: coll, ID: id, Fields: fields})
	return id
}

func (b *Batch) Set(coll Collection, id string, fields Fields, merge bool) {
	b.ops = append(b.ops, BatchOp{Kind: OpSet, Collection: coll, ID: id, Fields: fields, Merge: merge})
}

// Update queues a patch. The whole batch fails if the document is missing.
func (b *Batch) Update(coll Collection, id string, patch Fields) {
	b.ops = append(b.ops, BatchOp{Kind: OpUpdate, Collection: coll, ID: id, Fields: patch})
}

func (b *Batch) Delete(coll Collection, id string) {
	b.ops = append(b.ops, BatchOp{Kind: OpDelete, Collection: coll, ID: id})
}

func (b *Batch) Ops() []BatchOp {
	return b.ops
}

func (b *Batch) Len() int {
	return len(b.ops)
}

// Collections lists the distinct collections the batch writes to.
func (b *Batch) Collections() []Collection {
	seen := make(map[Collection]bool)
	var out []Collection
	for _, op := range b.ops {
		if !seen[op.Collection] {
			seen[op.Collection] = true
			out = append(out, op.Collection)
		}
	}
	return out
}
