// Package merchantfile loads merchant policies from a YAML file.
package merchantfile

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"3tcapital/ms_extraccion_core/internal/core/document"
	"3tcapital/ms_extraccion_core/internal/core/merchant"
)

// DefaultKey names the policy applied to merchants without their own entry.
const DefaultKey = "default"

type file struct {
	Default   *yaml.Node           `yaml:"default"`
	Merchants map[string]yaml.Node `yaml:"merchants"`
}

// Registry implements merchant.Registry over policies read once at start-up.
// A merchant entry is decoded on top of the default entry: scalars and lists
// it sets replace the default, maps are merged key by key.
type Registry struct {
	policies map[string]merchant.Policy
	fallback *merchant.Policy
}

// Load reads and parses the policy file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read merchant policies: %w", err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return reg, nil
}

// Parse builds a registry from YAML content.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	reg := &Registry{policies: make(map[string]merchant.Policy, len(f.Merchants))}

	if f.Default != nil {
		var p merchant.Policy
		if err := f.Default.Decode(&p); err != nil {
			return nil, fmt.Errorf("default policy: %w", err)
		}
		if err := validateFields(p); err != nil {
			return nil, fmt.Errorf("default policy: %w", err)
		}
		reg.fallback = &p
	}

	for id, node := range f.Merchants {
		key := normalizeID(id)
		if key == "" {
			return nil, fmt.Errorf("merchant policy with empty id")
		}

		var p merchant.Policy
		if f.Default != nil {
			if err := f.Default.Decode(&p); err != nil {
				return nil, fmt.Errorf("default policy: %w", err)
			}
		}
		if err := node.Decode(&p); err != nil {
			return nil, fmt.Errorf("merchant %s: %w", id, err)
		}
		if err := validateFields(p); err != nil {
			return nil, fmt.Errorf("merchant %s: %w", id, err)
		}
		p.MerchantID = id
		reg.policies[key] = p
	}
	return reg, nil
}

// Resolve returns the merchant's policy, the default policy for unknown
// merchants, or merchant.ErrUnknownMerchant when there is no default.
func (r *Registry) Resolve(ctx context.Context, merchantID string) (merchant.Policy, error) {
	if p, ok := r.policies[normalizeID(merchantID)]; ok {
		return clonePolicy(p), nil
	}
	if r.fallback == nil {
		return merchant.Policy{}, fmt.Errorf("%w: %s", merchant.ErrUnknownMerchant, merchantID)
	}
	p := clonePolicy(*r.fallback)
	p.MerchantID = merchantID
	return p, nil
}

// Merchants lists the merchants with their own entry, sorted.
func (r *Registry) Merchants() []string {
	ids := make([]string, 0, len(r.policies))
	for _, p := range r.policies {
		ids = append(ids, p.MerchantID)
	}
	sort.Strings(ids)
	return ids
}

// validateFields rejects required field names that no document field carries.
func validateFields(p merchant.Policy) error {
	if err := checkNames("requiredFields", p.RequiredFields, document.HeaderFields()); err != nil {
		return err
	}
	return checkNames("requiredLineItemFields", p.RequiredLineItemFields, document.LineFields())
}

func checkNames(key string, names, known []string) error {
	valid := make(map[string]bool, len(known))
	for _, name := range known {
		valid[name] = true
	}
	var unknown []string
	for _, name := range names {
		if !valid[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(known)
	return fmt.Errorf("%s: unknown field(s) %s (known: %s)", key, strings.Join(unknown, ", "), strings.Join(known, ", "))
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// clonePolicy copies the maps and slices of p so callers cannot alter the registry.
func clonePolicy(p merchant.Policy) merchant.Policy {
	p.RequiredFields = append([]string(nil), p.RequiredFields...)
	p.RequiredLineItemFields = append([]string(nil), p.RequiredLineItemFields...)
	p.UtilityCategories = append([]string(nil), p.UtilityCategories...)
	p.PromptPaths = cloneMap(p.PromptPaths)
	p.Defaults = cloneMap(p.Defaults)
	if p.FieldAliases != nil {
		aliases := make(map[string][]string, len(p.FieldAliases))
		for k, v := range p.FieldAliases {
			aliases[k] = append([]string(nil), v...)
		}
		p.FieldAliases = aliases
	}
	return p
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var _ merchant.Registry = (*Registry)(nil)
