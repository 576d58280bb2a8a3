package trainingload

import (
	"sort"
	"strings"

	"github.com/2beens/trainingboard/internal/workouts"
)

const (
	RunMultiplierRunning = 1.1
	RunMultiplierDefault = 1.0

	NegativeResidualWarning = "aerobic miles negative: zone miles exceed total"

	// float noise below this is not a data entry error
	residualEpsilon = 1e-9
)

type TrainingLoadRow struct {
	Week              string  `json:"week"`
	STL               float64 `json:"stl"`
	TrueTrainingHours float64 `json:"trueTrainingHours"`
}

type RunVolumeRow struct {
	Week         string   `json:"week"`
	TotalMiles   float64  `json:"totalMiles"`
	SpeedMiles   float64  `json:"speedMiles"`
	LT1Miles     float64  `json:"lt1Miles"`
	LT2Miles     float64  `json:"lt2Miles"`
	VO2Miles     float64  `json:"vo2Miles"`
	AerobicMiles float64  `json:"aerobicMiles"`
	Warnings     []string `json:"warnings,omitempty"`
}

type WeeklyTotalsRow struct {
	Week            string   `json:"week"`
	TrainingMinutes float64  `json:"trainingMinutes"`
	TrainingHours   float64  `json:"trainingHours"`
	CardioMinutes   float64  `json:"cardioMinutes"`
	CardioHours     float64  `json:"cardioHours"`
	STL             float64  `json:"stl"`
	TotalRunMiles   float64  `json:"totalRunMiles"`
	EasyMiles       float64  `json:"easyMiles"`
	LT1Miles        float64  `json:"lt1Miles"`
	LT2Miles        float64  `json:"lt2Miles"`
	VO2Miles        float64  `json:"vo2Miles"`
	SpeedMiles      float64  `json:"speedMiles"`
	TotalBikeMiles  float64  `json:"totalBikeMiles"`
	TotalRowKs      float64  `json:"totalRowKs"`
	TotalSkiKs      float64  `json:"totalSkiKs"`
	Burpees         float64  `json:"burpees"`
	Wallballs       float64  `json:"wallballs"`
	Warnings        []string `json:"warnings,omitempty"`
}

// RunMultiplier weights running sessions 10% higher.
func RunMultiplier(totalRunMiles *float64) float64 {
	if val(totalRunMiles) > 0 {
		return RunMultiplierRunning
	}
	return RunMultiplierDefault
}

// SubjectiveTrainingLoad is rpe * (minutes / 10) * run multiplier.
func SubjectiveTrainingLoad(w workouts.Workout) float64 {
	return w.RPE * (w.TrainingMinutes / 10) * RunMultiplier(w.TotalRunMiles)
}

// Residual is the run volume not tracked in any intensity zone. It is negative
// when the zone miles exceed the total.
func Residual(total, speed, lt1, lt2, vo2 float64) float64 {
	return total - speed - lt1 - lt2 - vo2
}

// RollingLoad sums the training load and hours per week label, ascending by week.
func RollingLoad(records []workouts.Workout) []TrainingLoadRow {
	rows := make([]TrainingLoadRow, 0)
	for _, group := range groupByWeek(records) {
		row := TrainingLoadRow{Week: group.week}
		for _, w := range group.records {
			row.STL += SubjectiveTrainingLoad(w)
			row.TrueTrainingHours += w.TrainingMinutes / 60
		}
		rows = append(rows, row)
	}
	return rows
}

// RunVolumeMix sums the run miles per zone and week, ascending by week.
// With clamp set, a negative aerobic residual is reported as 0; either way
// the row carries a warning.
func RunVolumeMix(records []workouts.Workout, clamp bool) []RunVolumeRow {
	rows := make([]RunVolumeRow, 0)
	for _, group := range groupByWeek(records) {
		row := RunVolumeRow{Week: group.week}
		for _, w := range group.records {
			row.TotalMiles += val(w.TotalRunMiles)
			row.SpeedMiles += val(w.SpeedMiles)
			row.LT1Miles += val(w.LT1Miles)
			row.LT2Miles += val(w.LT2Miles)
			row.VO2Miles += val(w.VO2Miles)
		}
		row.AerobicMiles, row.Warnings = residualWithWarnings(
			Residual(row.TotalMiles, row.SpeedMiles, row.LT1Miles, row.LT2Miles, row.VO2Miles),
			clamp,
		)
		rows = append(rows, row)
	}
	return rows
}

// WeeklyTotals sums every tracked metric per week, newest week first.
func WeeklyTotals(records []workouts.Workout, clamp bool) []WeeklyTotalsRow {
	rows := make([]WeeklyTotalsRow, 0)
	for _, group := range groupByWeek(records) {
		row := WeeklyTotalsRow{Week: group.week}
		for _, w := range group.records {
			row.TrainingMinutes += w.TrainingMinutes
			row.CardioMinutes += val(w.CardioMinutes)
			row.STL += SubjectiveTrainingLoad(w)
			row.TotalRunMiles += val(w.TotalRunMiles)
			row.LT1Miles += val(w.LT1Miles)
			row.LT2Miles += val(w.LT2Miles)
			row.VO2Miles += val(w.VO2Miles)
			row.SpeedMiles += val(w.SpeedMiles)
			row.TotalBikeMiles += val(w.TotalBikeMiles)
			row.TotalRowKs += val(w.TotalRowKs)
			row.TotalSkiKs += val(w.TotalSkiKs)
			row.Burpees += val(w.Burpees)
			row.Wallballs += val(w.Wallballs)
		}
		row.TrainingHours = row.TrainingMinutes / 60
		row.CardioHours = row.CardioMinutes / 60
		row.EasyMiles, row.Warnings = residualWithWarnings(
			Residual(row.TotalRunMiles, row.SpeedMiles, row.LT1Miles, row.LT2Miles, row.VO2Miles),
			clamp,
		)
		rows = append(rows, row)
	}

	SortWeeklyTotals(rows, "week", true)
	return rows
}

var weeklyTotalsColumns = map[string]func(r WeeklyTotalsRow) float64{
	"trainingMinutes": func(r WeeklyTotalsRow) float64 { return r.TrainingMinutes },
	"trainingHours":   func(r WeeklyTotalsRow) float64 { return r.TrainingHours },
	"cardioMinutes":   func(r WeeklyTotalsRow) float64 { return r.CardioMinutes },
	"cardioHours":     func(r WeeklyTotalsRow) float64 { return r.CardioHours },
	"stl":             func(r WeeklyTotalsRow) float64 { return r.STL },
	"totalRunMiles":   func(r WeeklyTotalsRow) float64 { return r.TotalRunMiles },
	"easyMiles":       func(r WeeklyTotalsRow) float64 { return r.EasyMiles },
	"lt1Miles":        func(r WeeklyTotalsRow) float64 { return r.LT1Miles },
	"lt2Miles":        func(r WeeklyTotalsRow) float64 { return r.LT2Miles },
	"vo2Miles":        func(r WeeklyTotalsRow) float64 { return r.VO2Miles },
	"speedMiles":      func(r WeeklyTotalsRow) float64 { return r.SpeedMiles },
	"totalBikeMiles":  func(r WeeklyTotalsRow) float64 { return r.TotalBikeMiles },
	"totalRowKs":      func(r WeeklyTotalsRow) float64 { return r.TotalRowKs },
	"totalSkiKs":      func(r WeeklyTotalsRow) float64 { return r.TotalSkiKs },
	"burpees":         func(r WeeklyTotalsRow) float64 { return r.Burpees },
	"wallballs":       func(r WeeklyTotalsRow) float64 { return r.Wallballs },
}

// IsWeeklyTotalsColumn reports whether rows can be sorted by column.
func IsWeeklyTotalsColumn(column string) bool {
	_, ok := weeklyTotalsColumns[column]
	return ok || column == "week"
}

// SortWeeklyTotals sorts rows in place by a column (json name). Unknown
// columns sort by week. Equal values keep their week order.
func SortWeeklyTotals(rows []WeeklyTotalsRow, column string, desc bool) {
	byWeek := func(i, j int) bool {
		if desc {
			return rows[i].Week > rows[j].Week
		}
		return rows[i].Week < rows[j].Week
	}

	sort.SliceStable(rows, byWeek)

	colValue, ok := weeklyTotalsColumns[column]
	if !ok {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return colValue(rows[i]) > colValue(rows[j])
		}
		return colValue(rows[i]) < colValue(rows[j])
	})
}

// FilterVisible drops hidden workouts unless includeHidden is set.
func FilterVisible(records []workouts.Workout, includeHidden bool) []workouts.Workout {
	if includeHidden {
		return records
	}
	visible := make([]workouts.Workout, 0, len(records))
	for _, w := range records {
		if !w.IsHidden {
			visible = append(visible, w)
		}
	}
	return visible
}

// FilterRange keeps workouts whose date falls in the range.
func FilterRange(records []workouts.Workout, dr DateRange) []workouts.Workout {
	inRange := make([]workouts.Workout, 0, len(records))
	for _, w := range records {
		if dr.Contains(w.WorkoutDate) {
			inRange = append(inRange, w)
		}
	}
	return inRange
}

type weekGroup struct {
	week    string
	records []workouts.Workout
}

// groupByWeek groups records by exact week label, ascending by label. Records
// within a group are put in a fixed order so float sums do not depend on the
// input order.
func groupByWeek(records []workouts.Workout) []weekGroup {
	index := map[string]int{}
	var groups []weekGroup
	for _, w := range records {
		i, ok := index[w.Week]
		if !ok {
			i = len(groups)
			index[w.Week] = i
			groups = append(groups, weekGroup{week: w.Week})
		}
		groups[i].records = append(groups[i].records, w)
	}

	for _, g := range groups {
		sort.SliceStable(g.records, func(i, j int) bool {
			a, b := g.records[i], g.records[j]
			if a.WorkoutDate != b.WorkoutDate {
				return a.WorkoutDate < b.WorkoutDate
			}
			return strings.Compare(a.ID, b.ID) < 0
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].week < groups[j].week
	})
	return groups
}

func residualWithWarnings(residual float64, clamp bool) (float64, []string) {
	if residual >= 0 {
		return residual, nil
	}
	if residual > -residualEpsilon {
		return 0, nil
	}
	if clamp {
		return 0, []string{NegativeResidualWarning}
	}
	return residual, []string{NegativeResidualWarning}
}

func val(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
