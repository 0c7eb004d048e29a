/*
Package factory provides JSON to Go policy conversion.

PURPOSE:
  Converts JSON policy-set definitions into engine.PolicySet values.
  This enables policy configuration without code changes - HR can define
  per-category limits in JSON, store them in the database or a config
  file, and the factory creates the proper Go structs at load time.

WHY JSON?
  - Non-developers can modify leave policies
  - Easy integration with admin UI
  - Version control for policy definitions
  - Database storage of policy configs

JSON SCHEMA:
  {
    "categories": [
      {
        "category": "annual",
        "annual_limit": 20,
        "carry_forward_cap": 20,
        "total_cap": 40
      },
      {
        "category": "sick",
        "annual_limit": 10,
        "grants_from_year_one": true
      }
    ]
  }

DEFAULTS:
  - carry_forward_cap omitted: 0, the category never carries forward
  - total_cap omitted: no combined ceiling on carry + new allocation
  - grants_from_year_one omitted: false, the category starts only after
    the first completed work year

KEY FEATURES:
  - Validates JSON structure
  - Normalizes legacy category codes ("AL", "medical", ...)
  - Rejects negative limits and duplicate categories
  - Round-trips back to JSON in stable category order

USAGE:
  factory := NewPolicyFactory()

  // From JSON string
  policies, err := factory.ParsePolicySet(jsonString)

  // From Go presets (recommended starting point)
  import "github.com/warp/leave-engine/leave"
  policies := leave.DefaultPolicySet()

SEE ALSO:
  - engine/types.go: CategoryPolicy and PolicySet definitions
  - leave/policies.go: Go-based default policy configurations
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/leave-engine/engine"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicySetJSON is the JSON representation of a full policy set.
type PolicySetJSON struct {
	Categories []CategoryPolicyJSON `json:"categories"`
}

// CategoryPolicyJSON is the JSON representation of one category's policy.
type CategoryPolicyJSON struct {
	Category          string   `json:"category"`
	AnnualLimit       float64  `json:"annual_limit"`
	CarryForwardCap   float64  `json:"carry_forward_cap,omitempty"`
	TotalCap          *float64 `json:"total_cap,omitempty"`
	GrantsFromYearOne bool     `json:"grants_from_year_one,omitempty"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policy sets to engine types.
type PolicyFactory struct{}

// NewPolicyFactory creates a new policy factory.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicySet parses a JSON string into an engine.PolicySet.
func (f *PolicyFactory) ParsePolicySet(jsonStr string) (engine.PolicySet, error) {
	var psj PolicySetJSON
	if err := json.Unmarshal([]byte(jsonStr), &psj); err != nil {
		return nil, fmt.Errorf("failed to parse policy set JSON: %w", err)
	}

	return f.FromJSON(psj)
}

// FromJSON converts PolicySetJSON to an engine.PolicySet.
func (f *PolicyFactory) FromJSON(psj PolicySetJSON) (engine.PolicySet, error) {
	if len(psj.Categories) == 0 {
		return nil, fmt.Errorf("policy set defines no categories")
	}

	set := make(engine.PolicySet, len(psj.Categories))
	for _, cj := range psj.Categories {
		category, ok := leave.NormalizeCategory(cj.Category)
		if !ok {
			return nil, fmt.Errorf("unknown leave category %q", cj.Category)
		}
		if _, dup := set[category]; dup {
			return nil, fmt.Errorf("duplicate policy for category %q", category)
		}
		if cj.AnnualLimit < 0 {
			return nil, fmt.Errorf("category %q: annual_limit cannot be negative", category)
		}
		if cj.CarryForwardCap < 0 {
			return nil, fmt.Errorf("category %q: carry_forward_cap cannot be negative", category)
		}

		policy := engine.CategoryPolicy{
			Category:          category,
			AnnualLimit:       engine.DaysFrom(cj.AnnualLimit),
			CarryForwardCap:   engine.DaysFrom(cj.CarryForwardCap),
			GrantsFromYearOne: cj.GrantsFromYearOne,
		}
		if cj.TotalCap != nil {
			if *cj.TotalCap < 0 {
				return nil, fmt.Errorf("category %q: total_cap cannot be negative", category)
			}
			policy.TotalCap = engine.DaysPtr(*cj.TotalCap)
		}

		set[category] = policy
	}

	return set, nil
}

// ToJSON converts an engine.PolicySet back to its JSON form. Categories
// come out in sorted order so serialized output is deterministic.
func (f *PolicyFactory) ToJSON(set engine.PolicySet) PolicySetJSON {
	var psj PolicySetJSON
	for _, category := range set.Categories() {
		policy := set[category]
		cj := CategoryPolicyJSON{
			Category:          string(category),
			AnnualLimit:       policy.AnnualLimit.Float64(),
			CarryForwardCap:   policy.CarryForwardCap.Float64(),
			GrantsFromYearOne: policy.GrantsFromYearOne,
		}
		if policy.TotalCap != nil {
			v := policy.TotalCap.Float64()
			cj.TotalCap = &v
		}
		psj.Categories = append(psj.Categories, cj)
	}
	return psj
}
