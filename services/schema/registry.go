package schema

import (
	"fmt"
	"sync"

	"folio/models"
)

// Descriptor bundles what the system knows about one section type.
type Descriptor struct {
	Type  models.SectionType
	Title string
	// DefaultData returns a fresh canonical data object for a new section.
	DefaultData func() map[string]interface{}
	// Normalize canonicalizes data in place. raw is a private copy of the
	// whole incoming document, for types whose legacy fields lived outside data.
	Normalize func(data map[string]interface{}, raw models.Document, ids *IDAssigner) map[string]interface{}
	Validate  func(data map[string]interface{}) error
}

// Registry maps section types to their descriptors.
type Registry struct {
	mu    sync.RWMutex
	types []models.SectionType
	byKey map[models.SectionType]Descriptor
}

func NewRegistry(descriptors ...Descriptor) *Registry {
	r := &Registry{byKey: map[models.SectionType]Descriptor{}}
	for _, d := range descriptors {
		r.Register(d)
	}
	return r
}

// Register adds or replaces the descriptor for d.Type.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[d.Type]; !exists {
		r.types = append(r.types, d.Type)
	}
	r.byKey[d.Type] = d
}

func (r *Registry) Lookup(t models.SectionType) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byKey[t]
	return d, ok
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []models.SectionType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.SectionType, len(r.types))
	copy(out, r.types)
	return out
}

// Check returns ErrValidation for types the registry does not know.
func (r *Registry) Check(t models.SectionType) error {
	if _, ok := r.Lookup(t); !ok {
		return fmt.Errorf("%w: unknown section type %q", models.ErrValidation, t)
	}
	return nil
}

// DefaultRegistry returns the descriptors for every built-in section type.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Descriptor{
			Type:  models.SectionIntro,
			Title: "Intro",
			DefaultData: func() map[string]interface{} {
				return map[string]interface{}{"subtitle": "", "highlight": "", "image": "", "cvLink": ""}
			},
			Normalize: introData,
			Validate:  jsonSchemaValidator(models.SectionIntro),
		},
		Descriptor{
			Type:  models.SectionSkills,
			Title: "Skills",
			DefaultData: func() map[string]interface{} {
				return map[string]interface{}{"skillsList": map[string]interface{}{}}
			},
			Normalize: skillsData,
			Validate:  jsonSchemaValidator(models.SectionSkills),
		},
		Descriptor{
			Type:  models.SectionProjects,
			Title: "Projects",
			DefaultData: func() map[string]interface{} {
				return map[string]interface{}{"projects": []interface{}{}}
			},
			Normalize: projectsData,
			Validate:  jsonSchemaValidator(models.SectionProjects),
		},
		Descriptor{
			Type:  models.SectionExperience,
			Title: "Experience",
			DefaultData: func() map[string]interface{} {
				return map[string]interface{}{"experiences": []interface{}{}}
			},
			Normalize: experienceData,
			Validate:  jsonSchemaValidator(models.SectionExperience),
		},
		Descriptor{
			Type:  models.SectionEducation,
			Title: "Education",
			DefaultData: func() map[string]interface{} {
				return map[string]interface{}{"educations": []interface{}{}}
			},
			Normalize: educationData,
			Validate:  jsonSchemaValidator(models.SectionEducation),
		},
		Descriptor{
			Type:  models.SectionCapabilities,
			Title: "Capabilities",
			DefaultData: func() map[string]interface{} {
				return map[string]interface{}{"capabilities": []interface{}{}}
			},
			Normalize: capabilitiesData,
			Validate:  jsonSchemaValidator(models.SectionCapabilities),
		},
		Descriptor{
			Type:  models.SectionFooterAndLinks,
			Title: "Footer & Links",
			DefaultData: func() map[string]interface{} {
				return map[string]interface{}{
					"contactInfo":    map[string]interface{}{},
					"socialLinks":    []interface{}{},
					"welcomeMessage": "",
					"cvLink":         "",
					"copyrightText":  "",
				}
			},
			Normalize: footerData,
			Validate:  jsonSchemaValidator(models.SectionFooterAndLinks),
		},
	)
}
