package reconciler

import (
	"github.com/ELENA-QPA/elena-case-sync/internal/database"
	"github.com/ELENA-QPA/elena-case-sync/internal/normalizer"
	"github.com/ELENA-QPA/elena-case-sync/internal/provider"
)

// derivedFields is everything the engine computes from one change record
// before touching the local case.
type derivedFields struct {
	Office       string
	OfficeTier   normalizer.Tier
	City         string
	Department   string
	ProcessType  string
	Jurisdiction string
}

func deriveFields(rec *provider.ChangeRecord) derivedFields {
	office, tier := normalizer.Normalize(rec.Office, rec.City)

	city := normalizer.CityOf(rec.City)
	if city == "" {
		city = normalizer.CityOf(rec.Office)
	}

	d := derivedFields{
		Office:       office,
		OfficeTier:   tier,
		City:         city,
		Department:   normalizer.DepartmentFor(city),
		ProcessType:  rec.ProcessType,
		Jurisdiction: rec.Jurisdiction,
	}

	// A known defendant fixes the default classification
	if alias, ok := matchAlias(rec.Defendants); ok {
		if d.ProcessType == "" {
			d.ProcessType = alias.ProcessType
		}
		if d.Jurisdiction == "" {
			d.Jurisdiction = alias.Jurisdiction
		}
	}

	return d
}

// mergeRule binds one case field to its externally derived value. The rules
// are applied uniformly: adding a field means adding a row, not a branch.
type mergeRule struct {
	name    string
	extract func(d *derivedFields) string
	get     func(c *database.Case) string
	set     func(c *database.Case, v string)
}

var mergeRules = []mergeRule{
	{
		name:    "office_name",
		extract: func(d *derivedFields) string { return d.Office },
		get:     func(c *database.Case) string { return c.OfficeName },
		set:     func(c *database.Case, v string) { c.OfficeName = v },
	},
	{
		name:    "city",
		extract: func(d *derivedFields) string { return d.City },
		get:     func(c *database.Case) string { return c.City },
		set:     func(c *database.Case, v string) { c.City = v },
	},
	{
		name:    "department",
		extract: func(d *derivedFields) string { return d.Department },
		get:     func(c *database.Case) string { return c.Department },
		set:     func(c *database.Case, v string) { c.Department = v },
	},
	{
		name:    "process_type",
		extract: func(d *derivedFields) string { return d.ProcessType },
		get:     func(c *database.Case) string { return c.ProcessType },
		set:     func(c *database.Case, v string) { c.ProcessType = v },
	},
	{
		name:    "jurisdiction",
		extract: func(d *derivedFields) string { return d.Jurisdiction },
		get:     func(c *database.Case) string { return c.Jurisdiction },
		set:     func(c *database.Case, v string) { c.Jurisdiction = v },
	},
}

// applyMerge fills empty case fields from the derived values and reports
// which fields changed. Non-empty local values are never overwritten.
func applyMerge(c *database.Case, d *derivedFields) []string {
	var changed []string
	for _, rule := range mergeRules {
		incoming := rule.extract(d)
		if incoming == "" || rule.get(c) != "" {
			continue
		}
		rule.set(c, incoming)
		changed = append(changed, rule.name)
	}
	return changed
}
