package handle

import (
	"net/http"

	"genecross/api/internal/gene"
	"genecross/api/internal/rows"
)

type locus struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

type modeDefaults struct {
	MinParents int `json:"min_parents"`
	Parents    any `json:"parents"`
	Targets    any `json:"targets"`
	NewParent  any `json:"new_parent"`
	NewTarget  any `json:"new_target"`
}

type optionsResponse struct {
	Modes    []rows.Mode                `json:"modes"`
	Sex      []string                   `json:"sex"`
	Loci     []locus                    `json:"loci"`
	Defaults map[rows.Mode]modeDefaults `json:"defaults"`
}

func defaultsFor(m rows.Mode) modeDefaults {
	st := rows.New(m)
	d := modeDefaults{MinParents: rows.MinRows(m, rows.Parents)}
	if m == rows.ModeText {
		d.Parents = rows.Raws(st.Rows(rows.Parents))
		d.Targets = rows.Raws(st.Rows(rows.Targets))
		d.NewParent = rows.DefaultRow(m, rows.Parents).Raw
		d.NewTarget = rows.DefaultRow(m, rows.Targets).Raw
		return d
	}
	d.Parents = rows.Specs(st.Rows(rows.Parents))
	d.Targets = rows.Specs(st.Rows(rows.Targets))
	d.NewParent = rows.DefaultRow(m, rows.Parents).Spec
	d.NewTarget = rows.DefaultRow(m, rows.Targets).Spec
	return d
}

// Options describes the editor: option sets per field and the default rows of
// each mode.
func (h *Handle) Options(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	out := optionsResponse{
		Modes: []rows.Mode{rows.ModeStructured, rows.ModeText},
		Sex:   gene.SexOptions,
		Defaults: map[rows.Mode]modeDefaults{
			rows.ModeStructured: defaultsFor(rows.ModeStructured),
			rows.ModeText:       defaultsFor(rows.ModeText),
		},
	}
	for i, name := range gene.LocusNames {
		out.Loci = append(out.Loci, locus{Name: name, Options: gene.LocusOptions[i]})
	}
	writeJSON(w, http.StatusOK, out)
}
