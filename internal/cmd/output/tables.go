package output

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/apisync"
	"github.com/agentstation/apisync/pkg/differ"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents data formatted for table output.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align
}

// label turns "resources_created" into "Resources Created".
func label(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// ResultData lists the counters of a run, one per row.
func ResultData(r *apisync.Result) Data {
	stats := []struct {
		key   string
		value int
	}{
		{"resources_created", r.Stats.ResourcesCreated},
		{"resources_deleted", r.Stats.ResourcesDeleted},
		{"models_created", r.Stats.ModelsCreated},
		{"models_updated", r.Stats.ModelsUpdated},
		{"models_deleted", r.Stats.ModelsDeleted},
		{"methods_created", r.Stats.MethodsCreated},
		{"parameters_changed", r.Stats.ParametersChanged},
	}

	data := Data{
		Headers:         []string{"Property", "Value"},
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
	data.Rows = append(data.Rows,
		[]string{label("api_id"), r.APIID},
		[]string{label("api_name"), r.APIName},
		[]string{label("state"), string(r.State)},
	)
	for _, s := range stats {
		data.Rows = append(data.Rows, []string{label(s.key), strconv.Itoa(s.value)})
	}
	data.Rows = append(data.Rows, []string{label("duration"), r.Duration.String()})
	for _, w := range r.Warnings {
		data.Rows = append(data.Rows, []string{label("warning"), w})
	}
	return data
}

// ChangesetData lists every planned change, one per row.
func ChangesetData(c *differ.Changeset) Data {
	data := Data{
		Headers:         []string{"Change", "Kind", "Target", "Detail"},
		ColumnAlignment: []Align{AlignCenter, AlignLeft, AlignLeft, AlignLeft},
	}
	add := func(change differ.ChangeType, kind, target, detail string) {
		data.Rows = append(data.Rows, []string{string(change), kind, target, detail})
	}

	for _, r := range c.Resources {
		add(r.Type, "resource", r.Path, r.ID)
	}
	if c.Models != nil {
		for _, m := range c.Models.Added {
			add(differ.ChangeTypeAdd, "model", m.Name, m.ContentType)
		}
		for _, m := range c.Models.Updated {
			add(differ.ChangeTypeUpdate, "model", m.Name, "schema")
		}
		for _, m := range c.Models.Removed {
			add(differ.ChangeTypeRemove, "model", m.Name, "")
		}
	}
	for _, m := range c.Methods {
		add(differ.ChangeTypeAdd, "method", m.HTTPMethod+" "+m.Path, m.AuthorizationType)
	}
	for _, p := range c.Parameters {
		change := differ.ChangeTypeAdd
		if p.Existing != nil {
			change = differ.ChangeTypeUpdate
		}
		add(change, "parameter", p.HTTPMethod+" "+p.Path, p.Expression+" required="+strconv.FormatBool(p.Required))
	}
	return data
}
