package models

import (
	"strconv"
	"strings"
)

// Column names shared by the sheet importers and the normalizer.
const (
	ColName              = "name"
	ColDay               = "day"
	ColStartTime         = "start_time"
	ColEndTime           = "end_time"
	ColTargets           = "targets"
	ColEffort            = "effort"
	ColPriority          = "priority"
	ColDueDate           = "due_date"
	ColEstimatedDuration = "estimated_duration"
	ColRecurrence        = "recurrence"
	ColLastDone          = "last_done"
	ColRemainingDuration = "remaining_duration"
	ColOriginalDuration  = "original_duration"
	ColProgress          = "progress"
	ColSourceDate        = "source_date"
	ColReason            = "reason"
)

// Row is one raw record of a tabular source, keyed by lower-case column name.
type Row map[string]string

// Get returns the trimmed value of a column, matching the key case-insensitively.
func (r Row) Get(key string) string {
	if v, ok := r[key]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range r {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

type FixedItem struct {
	Index     int
	Name      string
	Day       string
	StartTime string
	EndTime   string
	Targets   string
	Effort    string
}

type PriorityItem struct {
	Index             int
	Name              string
	Priority          string
	DueDate           string
	EstimatedDuration string
	Targets           string
	Effort            string
	Recurrence        string
	LastDone          string
}

type IncompleteItem struct {
	Index             int
	Name              string
	Priority          string
	RemainingDuration string
	OriginalDuration  string
	Progress          string
	SourceDate        string
	Targets           string
	Reason            string
}

func FixedItemFromRow(index int, r Row) FixedItem {
	return FixedItem{
		Index:     index,
		Name:      r.Get(ColName),
		Day:       r.Get(ColDay),
		StartTime: r.Get(ColStartTime),
		EndTime:   r.Get(ColEndTime),
		Targets:   r.Get(ColTargets),
		Effort:    r.Get(ColEffort),
	}
}

func PriorityItemFromRow(index int, r Row) PriorityItem {
	return PriorityItem{
		Index:             index,
		Name:              r.Get(ColName),
		Priority:          r.Get(ColPriority),
		DueDate:           r.Get(ColDueDate),
		EstimatedDuration: r.Get(ColEstimatedDuration),
		Targets:           r.Get(ColTargets),
		Effort:            r.Get(ColEffort),
		Recurrence:        r.Get(ColRecurrence),
		LastDone:          r.Get(ColLastDone),
	}
}

func IncompleteItemFromRow(index int, r Row) IncompleteItem {
	return IncompleteItem{
		Index:             index,
		Name:              r.Get(ColName),
		Priority:          r.Get(ColPriority),
		RemainingDuration: r.Get(ColRemainingDuration),
		OriginalDuration:  r.Get(ColOriginalDuration),
		Progress:          r.Get(ColProgress),
		SourceDate:        r.Get(ColSourceDate),
		Targets:           r.Get(ColTargets),
		Reason:            r.Get(ColReason),
	}
}

// SplitTargets splits a comma or semicolon separated target cell, dropping
// empty entries and duplicates.
func SplitTargets(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// ToRow renders the record in the incomplete sheet's column layout.
func (r IncompleteRecord) ToRow() Row {
	return Row{
		ColName:              r.Name,
		ColPriority:          string(r.PriorityLabel),
		ColRemainingDuration: strconv.Itoa(r.RemainingDuration),
		ColOriginalDuration:  strconv.Itoa(r.OriginalDuration),
		ColProgress:          strconv.Itoa(r.Progress),
		ColSourceDate:        r.SourceDate,
		ColTargets:           strings.Join(r.Targets, ", "),
		ColReason:            r.Reason,
	}
}
