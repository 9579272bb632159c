package spec

import (
	"sort"
	"strings"
)

// securitySchemes normalizes the document's named scheme definitions:
// components.securitySchemes for 3.x, securityDefinitions for 2.0.
func (p *Parser) securitySchemes(root map[string]any, isV3 bool) map[string]SecurityScheme {
	var defs map[string]any
	if isV3 {
		defs = asMap(asMap(root["components"])["securitySchemes"])
	} else {
		defs = asMap(root["securityDefinitions"])
	}
	if len(defs) == 0 {
		return nil
	}
	out := make(map[string]SecurityScheme, len(defs))
	for name, raw := range defs {
		dm := asMap(raw)
		if dm == nil {
			continue
		}
		out[name] = normalizeScheme(name, dm)
	}
	return out
}

func normalizeScheme(name string, dm map[string]any) SecurityScheme {
	s := SecurityScheme{
		Name:        name,
		Description: strings.TrimSpace(asString(dm["description"])),
	}
	typ := strings.ToLower(strings.TrimSpace(asString(dm["type"])))
	switch typ {
	case "apikey":
		s.Kind = SchemeAPIKey
		s.In = strings.TrimSpace(asString(dm["in"]))
	case "http":
		scheme := strings.ToLower(strings.TrimSpace(asString(dm["scheme"])))
		s.Scheme = scheme
		switch scheme {
		case "bearer":
			s.Kind = SchemeBearer
		case "basic":
			s.Kind = SchemeBasic
		default:
			s.Kind = SchemeHTTP
		}
	case "oauth2":
		s.Kind = SchemeOAuth2
	case "openidconnect":
		s.Kind = SchemeOpenID
	case "basic":
		// Swagger 2.0 spells basic auth as its own type.
		s.Kind = SchemeBasic
	default:
		s.Kind = SchemeUnknown
	}
	return s
}

// resolveSecurity maps requirement entries onto the document's named schemes.
// Names with no matching definition are dropped.
func resolveSecurity(requirements []any, schemes map[string]SecurityScheme) []SecurityRequirement {
	if len(requirements) == 0 || len(schemes) == 0 {
		return nil
	}
	var out []SecurityRequirement
	for _, raw := range requirements {
		rm := asMap(raw)
		if rm == nil {
			continue
		}
		names := make([]string, 0, len(rm))
		for name := range rm {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			scheme, ok := schemes[name]
			if !ok {
				continue
			}
			req := SecurityRequirement{SchemeName: name, Scheme: scheme}
			for _, scope := range asSlice(rm[name]) {
				if s := asString(scope); s != "" {
					req.Scopes = append(req.Scopes, s)
				}
			}
			out = append(out, req)
		}
	}
	return out
}
