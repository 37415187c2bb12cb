package service

import (
	"sort"
	"strings"

	"github.com/stemsi/perizinan-backend/internal/model"
)

const (
	// DefaultPerPage is the dashboard page size.
	DefaultPerPage = 10
	// UnknownValue replaces a class or dormitory nobody knows.
	UnknownValue = "Unknown"
	// StatusAll disables the status filter.
	StatusAll = "all"
)

// Filter narrows a request list. Zero values disable each predicate.
// Start and End are compared with the full departure time
// ("2006-01-02T15:04"), so a bare date as End stops at midnight of that day:
// End "2024-01-31" excludes "2024-01-31T10:00". Send "2024-01-31T23:59" to
// include the whole day.
type Filter struct {
	Search string
	Status string
	Start  string
	End    string
}

// SortSpec orders a request list by one field.
type SortSpec struct {
	Field model.PerizinanField
	Desc  bool
}

// Page is one page of a filtered request list.
type Page struct {
	Items      []model.Perizinan `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PerPage    int               `json:"per_page"`
	TotalPages int               `json:"total_pages"`
}

var sortableFields = map[model.PerizinanField]bool{
	model.FieldSubjectName: true,
	model.FieldClassName:   true,
	model.FieldDormitory:   true,
	model.FieldReason:      true,
	model.FieldDepartTime:  true,
	model.FieldReturnTime:  true,
	model.FieldStatus:      true,
}

// ParseSortField validates a sort column.
func ParseSortField(raw string) (model.PerizinanField, bool) {
	f := model.PerizinanField(raw)
	return f, sortableFields[f]
}

// Enrich overwrites class and dormitory of each request with the roster entry
// whose name equals the request's subject name. Without a match the stored
// values stay, and empty ones become UnknownValue.
//
// Matching is by display name, not by id, so renamed or duplicate students
// resolve to the wrong entry or to none.
func Enrich(requests []model.Perizinan, roster []model.Student) []model.Perizinan {
	byName := make(map[string]model.Student, len(roster))
	for _, st := range roster {
		if _, seen := byName[st.Name]; !seen {
			byName[st.Name] = st
		}
	}

	out := make([]model.Perizinan, len(requests))
	for i, p := range requests {
		st, ok := byName[p.SubjectName]
		p.ClassName = firstNonEmpty(pick(ok, st.Class), p.ClassName, UnknownValue)
		p.Dormitory = firstNonEmpty(pick(ok, st.Dormitory), p.Dormitory, UnknownValue)
		out[i] = p
	}
	return out
}

func pick(ok bool, v string) string {
	if !ok {
		return ""
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ApplyFilter keeps the requests matching every predicate of f, in their
// original order. Search is a case-insensitive substring match on name, class
// and dormitory. Start and End are inclusive string bounds on the departure
// time; see Filter for how a bare date behaves.
func ApplyFilter(requests []model.Perizinan, f Filter) []model.Perizinan {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]model.Perizinan, 0, len(requests))
	for _, p := range requests {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.SubjectName), search) &&
			!strings.Contains(strings.ToLower(p.ClassName), search) &&
			!strings.Contains(strings.ToLower(p.Dormitory), search) {
			continue
		}
		if f.Status != "" && f.Status != StatusAll && string(p.Status) != f.Status {
			continue
		}
		if f.Start != "" && (p.DepartTime == "" || p.DepartTime < f.Start) {
			continue
		}
		if f.End != "" && (p.DepartTime == "" || p.DepartTime > f.End) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SortRequests returns a copy of requests stably sorted by s.
func SortRequests(requests []model.Perizinan, s SortSpec) []model.Perizinan {
	out := make([]model.Perizinan, len(requests))
	copy(out, requests)
	if s.Field == "" {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Value(s.Field), out[j].Value(s.Field)
		if s.Desc {
			return a > b
		}
		return a < b
	})
	return out
}

// Paginate cuts one page out of requests. Pages start at 1; a page past the
// end is empty.
func Paginate(requests []model.Perizinan, page, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		page = 1
	}
	total := len(requests)
	totalPages := (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	items := make([]model.Perizinan, end-start)
	copy(items, requests[start:end])
	return Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}
}
