package schema

import (
	"sort"

	"folio/models"
)

func introData(data map[string]interface{}, _ models.Document, _ *IDAssigner) map[string]interface{} {
	for _, key := range []string{"subtitle", "highlight", "image", "cvLink"} {
		defaultString(data, key)
	}
	return data
}

func skillsData(data map[string]interface{}, _ models.Document, _ *IDAssigner) map[string]interface{} {
	switch list := data["skillsList"].(type) {
	case nil:
		data["skillsList"] = map[string]interface{}{}
	case map[string]interface{}:
		for category, skills := range list {
			list[category] = skillNames(skills)
		}
	case []interface{}:
		// Older documents stored categories as [{category, skills}].
		if converted, ok := skillCategories(list); ok {
			data["skillsList"] = converted
		}
	}
	return data
}

func skillNames(v interface{}) interface{} {
	var items []interface{}
	switch s := v.(type) {
	case nil:
		return []interface{}{}
	case []interface{}:
		items = s
	default:
		str, ok := scalarString(s)
		if !ok {
			return v
		}
		items = []interface{}{str}
	}

	out := make([]interface{}, 0, len(items))
	seen := map[string]struct{}{}
	for _, item := range items {
		name, ok := scalarString(item)
		if !ok {
			out = append(out, item)
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func skillCategories(list []interface{}) (map[string]interface{}, bool) {
	out := map[string]interface{}{}
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, false
		}
		name := firstString(m, "category", "name", "title")
		if name == "" {
			return nil, false
		}
		var skills interface{}
		for _, key := range []string{"skills", "items", "list"} {
			if v, ok := m[key]; ok {
				skills = v
				break
			}
		}
		merged := skillNames(skills)
		if prev, ok := out[name].([]interface{}); ok {
			if next, ok := merged.([]interface{}); ok {
				merged = skillNames(append(prev, next...))
			}
		}
		out[name] = merged
	}
	return out, true
}

func projectsData(data map[string]interface{}, _ models.Document, ids *IDAssigner) map[string]interface{} {
	list, ok := objectList(data, "projects")
	if !ok {
		return data
	}
	for _, item := range list {
		p, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if _, has := p["name"]; !has {
			if title, ok := p["title"].(string); ok {
				p["name"] = title
			}
		}
		for _, key := range []string{"name", "description", "fullDescription"} {
			defaultString(p, key)
		}
		stringList(p, "images")
		stringList(p, "videos")
		p["link"] = projectLinks(p["link"])
		p["active"] = boolField(p["active"], true)
	}
	ids.Assign(list)
	return data
}

// projectLinks keeps exactly two link slots (typically source and live demo).
func projectLinks(v interface{}) interface{} {
	links := []interface{}{"", ""}
	switch l := v.(type) {
	case nil:
	case []interface{}:
		for i := 0; i < len(l) && i < 2; i++ {
			s, ok := scalarString(l[i])
			if !ok {
				return v
			}
			links[i] = s
		}
	default:
		s, ok := scalarString(l)
		if !ok {
			return v
		}
		links[0] = s
	}
	return links
}

func experienceData(data map[string]interface{}, raw models.Document, ids *IDAssigner) map[string]interface{} {
	if isEmptyList(data["experiences"]) {
		if legacy, ok := raw["experience"].([]interface{}); ok {
			data["experiences"] = generic(legacy)
		}
	}
	return activeList(data, "experiences", ids)
}

func educationData(data map[string]interface{}, _ models.Document, ids *IDAssigner) map[string]interface{} {
	if legacy, ok := data["educationList"]; ok {
		if isEmptyList(data["educations"]) {
			data["educations"] = legacy
		}
		delete(data, "educationList")
	}
	return activeList(data, "educations", ids)
}

func activeList(data map[string]interface{}, key string, ids *IDAssigner) map[string]interface{} {
	list, ok := objectList(data, key)
	if !ok {
		return data
	}
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			m["active"] = boolField(m["active"], true)
		}
	}
	ids.Assign(list)
	return data
}

func capabilitiesData(data map[string]interface{}, _ models.Document, ids *IDAssigner) map[string]interface{} {
	list, ok := objectList(data, "capabilities")
	if !ok {
		return data
	}
	for i, item := range list {
		switch c := item.(type) {
		case string:
			list[i] = map[string]interface{}{"title": c, "description": ""}
		case map[string]interface{}:
			defaultString(c, "title")
			defaultString(c, "description")
		}
	}
	ids.Assign(list)
	return data
}

func footerData(data map[string]interface{}, _ models.Document, ids *IDAssigner) map[string]interface{} {
	if data["contactInfo"] == nil {
		data["contactInfo"] = map[string]interface{}{}
	}
	for _, key := range []string{"welcomeMessage", "cvLink", "copyrightText"} {
		defaultString(data, key)
	}

	switch links := data["socialLinks"].(type) {
	case nil:
		data["socialLinks"] = []interface{}{}
	case map[string]interface{}:
		// platform -> url maps predate the list form
		platforms := make([]string, 0, len(links))
		for platform := range links {
			platforms = append(platforms, platform)
		}
		sort.Strings(platforms)
		list := make([]interface{}, 0, len(platforms))
		for _, platform := range platforms {
			url, _ := scalarString(links[platform])
			list = append(list, map[string]interface{}{"platform": platform, "url": url})
		}
		ids.Assign(list)
		data["socialLinks"] = list
	case []interface{}:
		ids.Assign(links)
	}
	return data
}

// objectList canonicalizes data[key] as a list, defaulting a missing value to
// empty. It reports false when the value is some other shape.
func objectList(data map[string]interface{}, key string) ([]interface{}, bool) {
	switch v := data[key].(type) {
	case nil:
		list := []interface{}{}
		data[key] = list
		return list, true
	case []interface{}:
		return v, true
	default:
		return nil, false
	}
}

func isEmptyList(v interface{}) bool {
	if v == nil {
		return true
	}
	list, ok := v.([]interface{})
	return ok && len(list) == 0
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
