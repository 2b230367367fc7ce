package schema

import (
	"errors"
	"fmt"

	"folio/models"

	"go.uber.org/zap"
)

// Normalizer canonicalizes raw section documents. It never returns an error
// and never mutates its input. Invalid data fields are reset to their
// defaults; documents that cannot be repaired that way fall back to the
// type's default template.
type Normalizer struct {
	registry *Registry
	logger   *zap.Logger
	newID    IDGenerator
}

// Option configures a Normalizer.
type Option func(*Normalizer)

func WithLogger(l *zap.Logger) Option {
	return func(n *Normalizer) { n.logger = l }
}

// WithIDGenerator sets the generator for list items created by writes (Strict).
func WithIDGenerator(gen IDGenerator) Option {
	return func(n *Normalizer) { n.newID = gen }
}

func WithRegistry(r *Registry) Option {
	return func(n *Normalizer) { n.registry = r }
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		registry: DefaultRegistry(),
		logger:   zap.NewNop(),
		newID:    NewItemID,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Registry exposes the descriptor registry the normalizer dispatches on.
func (n *Normalizer) Registry() *Registry {
	return n.registry
}

// Normalize returns the canonical form of raw for section type t. List items
// without an id get one seeded by the document id, so reading the same stored
// document twice yields the same ids.
func (n *Normalizer) Normalize(raw models.Document, t models.SectionType) models.Document {
	return n.NormalizeWith(raw, t, nil)
}

// NormalizeWith is Normalize with an explicit id generator for new list items.
func (n *Normalizer) NormalizeWith(raw models.Document, t models.SectionType, gen IDGenerator) models.Document {
	doc, err := n.resolve(raw, t, gen)
	if err != nil {
		n.logger.Warn("section failed normalization; using default template",
			zap.String("type", string(t)),
			zap.String("id", fmt.Sprint(doc["id"])),
			zap.Error(err))
	}
	return doc
}

// Repair is Normalize for a document about to be rewritten. Mistyped fields
// are reset to their defaults as in Normalize, but a document that only the
// whole default template could replace is reported instead of returned.
func (n *Normalizer) Repair(raw models.Document, t models.SectionType) (models.Document, error) {
	doc, err := n.resolve(raw, t, nil)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Strict normalizes raw but reports a shape it cannot canonicalize instead of
// falling back to the default template. Editors use it to reject bad writes.
func (n *Normalizer) Strict(raw models.Document, t models.SectionType) (models.Document, error) {
	doc, _, err := n.canonical(raw, t, n.newID)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// resolve canonicalizes raw, resetting only the invalid top-level data fields
// when it can. On error the returned document is the default-template fallback.
func (n *Normalizer) resolve(raw models.Document, t models.SectionType, gen IDGenerator) (models.Document, error) {
	doc, desc, err := n.canonical(raw, t, gen)
	if err == nil {
		return doc, nil
	}
	if data, ok := n.repair(doc, desc, err); ok {
		n.logger.Warn("reset invalid section fields to defaults",
			zap.String("type", string(t)),
			zap.String("id", fmt.Sprint(doc["id"])),
			zap.Error(err))
		doc["data"] = data
		return doc, nil
	}
	return n.fallback(doc, desc), err
}

// repair replaces each data field named by the validation error with its
// default and reports whether the result validates.
func (n *Normalizer) repair(doc models.Document, desc Descriptor, err error) (map[string]interface{}, bool) {
	var verr *models.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) == 0 || desc.Validate == nil {
		return nil, false
	}
	data, ok := doc["data"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	defaults := desc.DefaultData()
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	for _, field := range verr.Fields {
		if def, known := defaults[field]; known {
			out[field] = def
		} else {
			delete(out, field)
		}
	}
	if desc.Validate(out) != nil {
		return nil, false
	}
	return out, true
}

func (n *Normalizer) canonical(raw models.Document, t models.SectionType, gen IDGenerator) (doc models.Document, desc Descriptor, err error) {
	src, _ := generic(map[string]interface{}(raw)).(map[string]interface{})
	if src == nil {
		src = map[string]interface{}{}
	}
	doc = envelope(src, t)

	desc, known := n.registry.Lookup(t)
	if !known {
		return doc, desc, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = &models.ValidationError{Type: t, Reason: fmt.Sprintf("normalizer panicked: %v", r)}
			doc["data"] = map[string]interface{}{}
		}
	}()

	data, _ := src["data"].(map[string]interface{})
	if data == nil {
		data = map[string]interface{}{}
	}
	if gen == nil {
		gen = StableIDs(fmt.Sprintf("%v/%s", doc["id"], t))
	}
	ids := newIDAssigner(src, gen)
	data = desc.Normalize(data, src, ids)
	doc["data"] = data

	if desc.Validate != nil {
		if verr := desc.Validate(data); verr != nil {
			return doc, desc, verr
		}
	}
	return doc, desc, nil
}

// NormalizeSection is Normalize returning the typed view.
func (n *Normalizer) NormalizeSection(raw models.Document, t models.SectionType) models.Section {
	return models.SectionFromDocument(n.Normalize(raw, t))
}

// Template returns the default document for a new section of type t.
func (n *Normalizer) Template(userID string, t models.SectionType, order int) (models.Document, error) {
	desc, ok := n.registry.Lookup(t)
	if !ok {
		return nil, n.registry.Check(t)
	}
	return models.Document{
		"id":          models.SectionID(userID, t),
		"type":        string(t),
		"title":       desc.Title,
		"content":     "",
		"data":        desc.DefaultData(),
		"order":       order,
		"visible":     true,
		"lastUpdated": "",
		"userId":      userID,
	}, nil
}

func (n *Normalizer) fallback(doc models.Document, desc Descriptor) models.Document {
	out := models.Document{}
	for k, v := range doc {
		out[k] = v
	}
	if title, _ := out["title"].(string); title == "" {
		out["title"] = desc.Title
	}
	out["data"] = desc.DefaultData()
	return out
}

// envelope builds the canonical top-level fields. Keys outside the section
// schema, including legacy ones, are dropped.
func envelope(src map[string]interface{}, t models.SectionType) models.Document {
	id := stringField(src["id"])
	if id == "" {
		id = models.SectionID(stringField(src["userId"]), t)
	}
	return models.Document{
		"id":          id,
		"type":        string(t),
		"title":       stringField(src["title"]),
		"content":     stringField(src["content"]),
		"data":        map[string]interface{}{},
		"order":       intField(src["order"]),
		"visible":     boolField(src["visible"], true),
		"lastUpdated": timeField(src["lastUpdated"]),
		"userId":      stringField(src["userId"]),
	}
}
