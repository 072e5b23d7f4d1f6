package aggregator

import "github.com/vietddude/dlqdiag/internal/core/domain"

// group is an insertion-ordered multimap of key -> descriptors.
type group struct {
	order []string
	items map[string][]*domain.Descriptor
}

func newGroup() group {
	return group{items: make(map[string][]*domain.Descriptor)}
}

func (g *group) add(key string, d *domain.Descriptor) {
	if _, ok := g.items[key]; !ok {
		g.order = append(g.order, key)
	}
	g.items[key] = append(g.items[key], d)
}

// Buckets groups classified descriptors by category, entity and field.
// Every descriptor lands in exactly one category and one entity bucket, and
// in one field bucket per candidate field it carries.
type Buckets struct {
	categories [domain.NumCategories + 1][]*domain.Descriptor
	catOrder   []domain.Category
	entities   group
	fields     group
	total      int
}

func NewBuckets() *Buckets {
	return &Buckets{
		entities: newGroup(),
		fields:   newGroup(),
	}
}

// Add files d. It must be called after classification.
func (b *Buckets) Add(d *domain.Descriptor) {
	cat := d.Category
	if cat < 0 || cat > domain.CategoryUnknown {
		cat = domain.CategoryUnknown
	}
	if len(b.categories[cat]) == 0 {
		b.catOrder = append(b.catOrder, cat)
	}
	b.categories[cat] = append(b.categories[cat], d)

	entity := d.Entity
	if entity == "" {
		entity = "unknown"
	}
	b.entities.add(entity, d)

	for _, f := range d.CandidateFields {
		if f == "" {
			continue
		}
		b.fields.add(f, d)
	}
	b.total++
}

// Total is the number of descriptors added.
func (b *Buckets) Total() int { return b.total }

// Category returns the descriptors of c in insertion order.
func (b *Buckets) Category(c domain.Category) []*domain.Descriptor {
	if c < 0 || c > domain.CategoryUnknown {
		return nil
	}
	return b.categories[c]
}

// CategoryOrder lists the non-empty categories in first-seen order.
func (b *Buckets) CategoryOrder() []domain.Category {
	return b.catOrder
}

// EntityOrder lists entities in first-seen order.
func (b *Buckets) EntityOrder() []string { return b.entities.order }

// Entity returns the descriptors whose entity is name.
func (b *Buckets) Entity(name string) []*domain.Descriptor { return b.entities.items[name] }

// FieldOrder lists candidate fields in first-seen order.
func (b *Buckets) FieldOrder() []string { return b.fields.order }

// Field returns the descriptors naming field.
func (b *Buckets) Field(name string) []*domain.Descriptor { return b.fields.items[name] }
