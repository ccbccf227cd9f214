package providers

import "strings"

// ProviderRef is one entry of the provider chain, e.g. "ollama:llama3.2:3b".
// Alias selects a key (PAPERMIND_<NAME>_KEY_<ALIAS>) for hosted backends
// and a model tag for ollama.
type ProviderRef struct {
	Raw   string
	Name  string
	Alias string
}

func (r ProviderRef) String() string {
	if r.Alias == "" {
		return r.Name
	}
	return r.Name + ":" + r.Alias
}

// ParseProviderList splits a "|" separated chain, most preferred first.
// Names are case-insensitive and a repeated entry keeps its first position.
// An empty chain means the mock backend.
func ParseProviderList(raw string) []ProviderRef {
	seen := make(map[string]bool)
	var out []ProviderRef
	for _, entry := range strings.Split(raw, "|") {
		entry = strings.TrimSpace(entry)
		name, alias, _ := strings.Cut(entry, ":")
		ref := ProviderRef{Raw: entry, Name: strings.ToLower(strings.TrimSpace(name)), Alias: strings.TrimSpace(alias)}
		if ref.Name == "" || seen[ref.String()] {
			continue
		}
		seen[ref.String()] = true
		out = append(out, ref)
	}
	if len(out) == 0 {
		return []ProviderRef{{Raw: "mock", Name: "mock"}}
	}
	return out
}
