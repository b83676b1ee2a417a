package prescribing

import (
	"sort"

	"go.prescribing.dev/bqtools"
	"golang.org/x/xerrors"
)

// Names of the registered schemas.
const (
	Prescribing        = "prescribing"
	Presentation       = "presentation"
	Practice           = "practice"
	PracticeStatistics = "practice_statistics"
)

func fields(typ bqtools.FieldType, names ...string) bqtools.Schema {
	s := make(bqtools.Schema, len(names))
	for i, n := range names {
		s[i] = bqtools.Field{Name: n, Type: typ}
	}
	return s
}

func concat(parts ...bqtools.Schema) bqtools.Schema {
	var s bqtools.Schema
	for _, p := range parts {
		s = append(s, p...)
	}
	return s
}

var schemas = map[string]bqtools.Schema{
	Prescribing: {
		{Name: "sha", Type: bqtools.String},
		{Name: "pct", Type: bqtools.String},
		{Name: "practice", Type: bqtools.String},
		{Name: "bnf_code", Type: bqtools.String},
		{Name: "bnf_name", Type: bqtools.String},
		{Name: "items", Type: bqtools.Integer},
		{Name: "net_cost", Type: bqtools.Float},
		{Name: "actual_cost", Type: bqtools.Float},
		{Name: "quantity", Type: bqtools.Integer},
		{Name: "month", Type: bqtools.Timestamp},
	},

	Presentation: {
		{Name: "bnf_code", Type: bqtools.String},
		{Name: "name", Type: bqtools.String},
		{Name: "is_generic", Type: bqtools.Boolean},
		{Name: "active_quantity", Type: bqtools.Float},
		{Name: "adq", Type: bqtools.Float},
		{Name: "adq_unit", Type: bqtools.String},
		{Name: "percent_of_adq", Type: bqtools.Float},
	},

	Practice: concat(
		fields(bqtools.String,
			"code", "name", "address1", "address2", "address3", "address4", "address5",
			"postcode", "location", "area_team_id", "ccg_id"),
		fields(bqtools.Integer, "setting"),
		fields(bqtools.String,
			"close_date", "join_provider_date", "leave_provider_date", "open_date", "status_code"),
	),

	PracticeStatistics: concat(
		fields(bqtools.Timestamp, "month"),
		fields(bqtools.Integer,
			"male_0_4", "female_0_4",
			"male_5_14", "male_15_24", "male_25_34", "male_35_44",
			"male_45_54", "male_55_64", "male_65_74", "male_75_plus",
			"female_5_14", "female_15_24", "female_25_34", "female_35_44",
			"female_45_54", "female_55_64", "female_65_74", "female_75_plus",
			"total_list_size"),
		fields(bqtools.Float, "astro_pu_cost", "astro_pu_items"),
		fields(bqtools.String, "star_pu", "pct_id", "practice"),
	),
}

// Schema returns a copy of the named schema.
func Schema(name string) (bqtools.Schema, error) {
	s, ok := schemas[name]
	if !ok {
		return nil, xerrors.Errorf("unknown schema %q", name)
	}
	return s.Clone(), nil
}

// MustSchema is like Schema but panics for unknown names.
func MustSchema(name string) bqtools.Schema {
	s, err := Schema(name)
	if err != nil {
		panic(err)
	}
	return s
}

// SchemaNames returns the names of every registered schema, sorted.
func SchemaNames() []string {
	names := make([]string, 0, len(schemas))
	for n := range schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
