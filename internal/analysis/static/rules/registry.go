package rules

import (
	"fmt"
	"slices"
	"strings"
)

// Default returns every built-in rule in invocation order.
func Default() []Rule {
	return []Rule{
		HardcodedSecret{},
		Exposure{},
		PayloadType{},
		OrmExpose{},
		RequireRequest{},
	}
}

// Select filters all by name. An empty enabled list keeps every rule; names
// in disabled are removed afterwards. Unknown names are an error so that a
// typo in config does not silently turn a detector off.
func Select(all []Rule, enabled, disabled []string) ([]Rule, error) {
	known := make(map[string]bool, len(all))
	for _, r := range all {
		known[r.Name()] = true
	}
	for _, name := range append(slices.Clone(enabled), disabled...) {
		if !known[name] {
			return nil, fmt.Errorf("unknown rule %q (available: %s)", name, strings.Join(Names(all), ", "))
		}
	}

	var out []Rule
	for _, r := range all {
		if len(enabled) > 0 && !slices.Contains(enabled, r.Name()) {
			continue
		}
		if slices.Contains(disabled, r.Name()) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Names returns the rule names in order.
func Names(rs []Rule) []string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = r.Name()
	}
	return names
}
