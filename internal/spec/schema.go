package spec

import "strings"

// opaqueSchema is the stub returned when recursion hits the depth cap or a
// reference cannot be followed.
func opaqueSchema(ref string) *Schema {
	return &Schema{Type: "object", Ref: ref}
}

// normalizeSchema converts a raw schema node into the recursive model.
// Local #/ references are resolved by path-walking the raw document; external
// references stay opaque with the reference path retained. Recursion is
// bounded by the parser's depth cap so cyclic reference graphs terminate.
func (p *Parser) normalizeSchema(root map[string]any, raw any, depth int) *Schema {
	if raw == nil {
		return nil
	}
	if depth >= p.maxDepth() {
		return opaqueSchema("")
	}
	sm := asMap(raw)
	if sm == nil {
		return nil
	}

	if ref := asString(sm["$ref"]); ref != "" {
		target := resolveLocalRef(root, ref)
		if target == nil {
			return opaqueSchema(ref)
		}
		resolved := p.normalizeSchema(root, target, depth+1)
		if resolved == nil {
			return opaqueSchema(ref)
		}
		resolved.Ref = ref
		return resolved
	}

	s := &Schema{
		Type:        strings.TrimSpace(asString(sm["type"])),
		Format:      strings.TrimSpace(asString(sm["format"])),
		Description: strings.TrimSpace(asString(sm["description"])),
		Pattern:     asString(sm["pattern"]),
		Nullable:    asBool(sm["nullable"]),
		Default:     sm["default"],
		Example:     sm["example"],
	}
	if enum := asSlice(sm["enum"]); len(enum) > 0 {
		s.Enum = append([]any(nil), enum...)
	}
	if v, ok := asFloat(sm["minimum"]); ok {
		s.Minimum = &v
	}
	if v, ok := asFloat(sm["maximum"]); ok {
		s.Maximum = &v
	}
	if v, ok := asInt(sm["minLength"]); ok {
		s.MinLength = &v
	}
	if v, ok := asInt(sm["maxLength"]); ok {
		s.MaxLength = &v
	}
	for _, req := range asSlice(sm["required"]) {
		if name := asString(req); name != "" {
			s.Required = append(s.Required, name)
		}
	}

	if items := sm["items"]; items != nil {
		s.Items = p.normalizeSchema(root, items, depth+1)
	}
	if props := asMap(sm["properties"]); len(props) > 0 {
		s.Properties = make(map[string]*Schema, len(props))
		for name, prop := range props {
			if child := p.normalizeSchema(root, prop, depth+1); child != nil {
				s.Properties[name] = child
			}
		}
	}
	for _, kind := range []struct {
		key string
		dst *[]*Schema
	}{
		{"oneOf", &s.OneOf},
		{"anyOf", &s.AnyOf},
		{"allOf", &s.AllOf},
	} {
		for _, alt := range asSlice(sm[kind.key]) {
			if child := p.normalizeSchema(root, alt, depth+1); child != nil {
				*kind.dst = append(*kind.dst, child)
			}
		}
	}

	if s.Type == "" {
		switch {
		case len(s.Properties) > 0:
			s.Type = "object"
		case s.Items != nil:
			s.Type = "array"
		case len(s.Enum) > 0:
			s.Type = "string"
		default:
			s.Type = "object"
		}
	}
	return s
}

// resolveLocalRef walks a #/a/b/c pointer through the raw document. External
// and URL references return nil.
func resolveLocalRef(root map[string]any, ref string) any {
	if !strings.HasPrefix(ref, "#/") {
		return nil
	}
	var cur any = root
	for _, part := range strings.Split(strings.TrimPrefix(ref, "#/"), "/") {
		part = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
		m := asMap(cur)
		if m == nil {
			return nil
		}
		next, ok := m[part]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}
