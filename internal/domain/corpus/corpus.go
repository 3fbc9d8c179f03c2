// Package corpus groups input records into per-entity documents.
package corpus

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/dendrex/internal/domain"
	"github.com/kailas-cloud/dendrex/internal/domain/record"
)

// DefaultMaxEntities is the default cap on distinct ids per analysis.
const DefaultMaxEntities = 100

// Entity is one distinct id with its concatenated document.
type Entity struct {
	id        string
	document  string
	attribute string
}

// NewEntity creates an Entity.
func NewEntity(id, document, attribute string) Entity {
	return Entity{id: id, document: document, attribute: attribute}
}

// ID returns the entity id.
func (e Entity) ID() string { return e.id }

// Document returns the space-joined text of all the entity's rows.
func (e Entity) Document() string { return e.document }

// Attribute returns the attribute of the entity's first row.
func (e Entity) Attribute() string { return e.attribute }

// Corpus is an ordered, capped list of entities (first-seen order).
type Corpus struct {
	entities  []Entity
	truncated int
}

// New creates a Corpus from already aggregated entities.
func New(entities []Entity) *Corpus {
	return &Corpus{entities: entities}
}

// Aggregate groups records by id in first-seen order.
// Only the first maxEntities ids are kept; rows of later ids are dropped.
// maxEntities <= 0 disables the cap.
func Aggregate(records []record.Record, maxEntities int) *Corpus {
	type acc struct {
		attribute string
		parts     []string
	}

	index := make(map[string]int)
	order := make([]string, 0)
	groups := make([]*acc, 0)
	dropped := make(map[string]struct{})

	for _, r := range records {
		i, ok := index[r.ID()]
		if !ok {
			if _, skip := dropped[r.ID()]; skip {
				continue
			}
			if maxEntities > 0 && len(order) >= maxEntities {
				dropped[r.ID()] = struct{}{}
				continue
			}
			i = len(order)
			index[r.ID()] = i
			order = append(order, r.ID())
			groups = append(groups, &acc{attribute: r.Attribute()})
		}
		if t := r.Text(); t != "" {
			groups[i].parts = append(groups[i].parts, t)
		}
	}

	entities := make([]Entity, len(order))
	for i, id := range order {
		entities[i] = Entity{
			id:        id,
			document:  strings.Join(groups[i].parts, " "),
			attribute: groups[i].attribute,
		}
	}
	return &Corpus{entities: entities, truncated: len(dropped)}
}

// FromColumns rebuilds a corpus from a preprocessed payload: parallel id and document
// columns plus the id -> attribute map. Repeated ids are merged as in Aggregate.
func FromColumns(ids, documents []string, attributes map[string]string, maxEntities int) (*Corpus, error) {
	if len(ids) != len(documents) {
		return nil, fmt.Errorf("%w: %d ids but %d documents", domain.ErrSchema, len(ids), len(documents))
	}
	recs := make([]record.Record, len(ids))
	for i, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("%w: empty id at position %d", domain.ErrSchema, i)
		}
		recs[i] = record.New(id, attributes[id], strings.TrimSpace(documents[i]))
	}
	return Aggregate(recs, maxEntities), nil
}

// Len returns the number of entities.
func (c *Corpus) Len() int { return len(c.entities) }

// Entities returns the entities in corpus order.
func (c *Corpus) Entities() []Entity { return c.entities }

// Truncated returns how many distinct ids were dropped by the cap.
func (c *Corpus) Truncated() int { return c.truncated }

// IDs returns entity ids in corpus order.
func (c *Corpus) IDs() []string {
	ids := make([]string, len(c.entities))
	for i, e := range c.entities {
		ids[i] = e.id
	}
	return ids
}

// Documents returns entity documents in corpus order.
func (c *Corpus) Documents() []string {
	docs := make([]string, len(c.entities))
	for i, e := range c.entities {
		docs[i] = e.document
	}
	return docs
}

// AttributeMap returns id -> attribute for every entity.
func (c *Corpus) AttributeMap() map[string]string {
	m := make(map[string]string, len(c.entities))
	for _, e := range c.entities {
		m[e.id] = e.attribute
	}
	return m
}
