package server

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"schoolbridge/internal/api"
	"schoolbridge/internal/filter"
	"schoolbridge/pkg/types"
)

var datasetLabels = map[string]string{
	"faraway-schools":      "偏遠地區學校",
	"education-statistics": "教育統計",
	"connected-devices":    "連網設備",
	"volunteer-teams":      "志工團隊",
}

type DatasetOption struct {
	Name  string
	Label string
}

type ExplorerPageData struct {
	types.BasePageData
	Datasets   []DatasetOption
	Dataset    string
	Query      string
	Table      template.HTML
	Schools    template.HTML
	Statistics template.HTML
}

// DatasetTable is one sorted data explorer dataset ready for display.
type DatasetTable struct {
	Columns  []string
	Rows     []types.Row
	Sort     filter.SortState
	BaseLink string
}

func datasetOptions() []DatasetOption {
	out := make([]DatasetOption, 0, len(api.Datasets))
	for name := range api.Datasets {
		label := datasetLabels[name]
		if label == "" {
			label = name
		}
		out = append(out, DatasetOption{Name: name, Label: label})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// columns lists every key present in rows, sorted, with "id" and "name"
// pulled to the front when present.
func columns(rows []types.Row) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			seen[k] = true
		}
	}

	out := make([]string, 0, len(seen))
	for _, lead := range []string{"id", "name"} {
		if seen[lead] {
			out = append(out, lead)
			delete(seen, lead)
		}
	}

	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)

	return append(out, rest...)
}

func (s *Service) handleExplorer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	dataset := query.Get("dataset")
	if _, ok := api.Datasets[dataset]; !ok {
		dataset = "faraway-schools"
	}

	var state filter.SortState
	if err := decoder.Decode(&state, query); err != nil {
		s.logger.WithError(err).Debug("ignoring malformed sort state")
	}

	search := strings.TrimSpace(query.Get("q"))

	base := url.Values{}
	base.Set("dataset", dataset)
	if search != "" {
		base.Set("q", search)
	}
	baseLink := "/dashboard/explorer?" + base.Encode()

	table := newLoader(s, "dataset", func(ctx context.Context) (*DatasetTable, error) {
		rows, err := s.api.Dataset(ctx, dataset)
		if err != nil || len(rows) == 0 {
			return nil, err
		}
		return &DatasetTable{
			Columns:  columns(rows),
			Rows:     filter.SortRows(rows, state),
			Sort:     state,
			BaseLink: baseLink,
		}, nil
	})
	stats := newLoader(s, "statistics", s.api.Statistics)

	chans := []<-chan struct{}{table.Start(ctx), stats.Start(ctx)}

	var schoolsHTML template.HTML
	if search != "" {
		schools := newLoader(s, "schools", func(ctx context.Context) ([]types.School, error) {
			return s.api.SearchSchools(ctx, search)
		})
		chans = append(chans, schools.Start(ctx))
		wait(chans...)
		schoolsHTML = section(s, schools.Snapshot(), "section.schools", r.URL.RequestURI())
	} else {
		wait(chans...)
	}

	data := &ExplorerPageData{
		BasePageData: flash(r),
		Datasets:     datasetOptions(),
		Dataset:      dataset,
		Query:        search,
		Table:        section(s, table.Snapshot(), "section.dataset-table", r.URL.RequestURI()),
		Schools:      schoolsHTML,
		Statistics:   section(s, stats.Snapshot(), "section.statistics", r.URL.RequestURI()),
	}
	data.Title = "資料探索"

	s.renderPage(w, r, "page.explorer", data)
}
