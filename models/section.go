package models

import (
	"time"
)

// SectionType names one of the fixed portfolio blocks.
type SectionType string

const (
	SectionIntro          SectionType = "intro"
	SectionSkills         SectionType = "skills"
	SectionProjects       SectionType = "projects"
	SectionExperience     SectionType = "experience"
	SectionEducation      SectionType = "education"
	SectionCapabilities   SectionType = "capabilities"
	SectionFooterAndLinks SectionType = "footerAndLinks"
)

// SectionTypes lists every known type in default display order.
var SectionTypes = []SectionType{
	SectionIntro,
	SectionSkills,
	SectionProjects,
	SectionExperience,
	SectionEducation,
	SectionCapabilities,
	SectionFooterAndLinks,
}

// Valid reports whether t is one of the known section types.
func (t SectionType) Valid() bool {
	for _, known := range SectionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Document is the raw persisted shape of a section as read from a store or snapshot.
// Nested objects are map[string]interface{} and lists are []interface{}.
type Document = map[string]interface{}

// Section is the canonical, typed view of a section document.
type Section struct {
	ID          string                 `bson:"id" json:"id"`
	Type        SectionType            `bson:"type" json:"type"`
	Title       string                 `bson:"title" json:"title"`
	Content     string                 `bson:"content" json:"content"`
	Data        map[string]interface{} `bson:"data" json:"data"`
	Order       int                    `bson:"order" json:"order"`
	Visible     bool                   `bson:"visible" json:"visible"`
	LastUpdated string                 `bson:"lastUpdated" json:"lastUpdated"`
	UserID      string                 `bson:"userId" json:"userId"`
}

// SectionFromDocument converts an already-canonical document into a Section.
func SectionFromDocument(doc Document) Section {
	s := Section{}
	s.ID, _ = doc["id"].(string)
	if t, ok := doc["type"].(string); ok {
		s.Type = SectionType(t)
	}
	s.Title, _ = doc["title"].(string)
	s.Content, _ = doc["content"].(string)
	s.Data, _ = doc["data"].(map[string]interface{})
	if s.Data == nil {
		s.Data = map[string]interface{}{}
	}
	s.Order, _ = doc["order"].(int)
	s.Visible, _ = doc["visible"].(bool)
	s.LastUpdated, _ = doc["lastUpdated"].(string)
	s.UserID, _ = doc["userId"].(string)
	return s
}

// Document returns the wire/storage shape of the section.
func (s Section) Document() Document {
	data := s.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	return Document{
		"id":          s.ID,
		"type":        string(s.Type),
		"title":       s.Title,
		"content":     s.Content,
		"data":        data,
		"order":       s.Order,
		"visible":     s.Visible,
		"lastUpdated": s.LastUpdated,
		"userId":      s.UserID,
	}
}

// SectionID is the stable document id for a user's section of the given type.
func SectionID(userID string, t SectionType) string {
	if userID == "" {
		return string(t)
	}
	return userID + "_" + string(t)
}

// Timestamp formats t the way lastUpdated is persisted.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// LayoutPatch is the order/visibility subset of a section written by batch saves.
type LayoutPatch struct {
	ID      string      `json:"id"`
	Type    SectionType `json:"type"`
	Order   int         `json:"order"`
	Visible bool        `json:"visible"`
}

// ItemResult is the per-section outcome of a batch save.
type ItemResult struct {
	ID    string      `json:"id"`
	Type  SectionType `json:"type"`
	OK    bool        `json:"ok"`
	Error string      `json:"error,omitempty"`
}
