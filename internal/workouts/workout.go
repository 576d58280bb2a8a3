package workouts

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

var (
	ErrWorkoutNotFound = errors.New("workout not found")
	ErrInvalidWorkout  = errors.New("invalid workout")
)

// Workout is a single training session. Optional metrics are nil when not recorded.
type Workout struct {
	ID              string    `json:"id" bson:"_id"`
	WorkoutDate     string    `json:"workoutDate" bson:"workout_date"`
	Week            string    `json:"week" bson:"week"`
	Title           string    `json:"title" bson:"title"`
	RPE             float64   `json:"rpe" bson:"rpe"`
	TrainingMinutes float64   `json:"trainingMinutes" bson:"training_minutes"`
	CardioMinutes   *float64  `json:"cardioMinutes" bson:"cardio_minutes"`
	TotalRunMiles   *float64  `json:"totalRunMiles" bson:"total_run_miles"`
	LT1Miles        *float64  `json:"lt1Miles" bson:"lt1_miles"`
	LT2Miles        *float64  `json:"lt2Miles" bson:"lt2_miles"`
	VO2Miles        *float64  `json:"vo2Miles" bson:"vo2_miles"`
	SpeedMiles      *float64  `json:"speedMiles" bson:"speed_miles"`
	TotalBikeMiles  *float64  `json:"totalBikeMiles" bson:"total_bike_miles"`
	TotalRowKs      *float64  `json:"totalRowKs" bson:"total_row_ks"`
	TotalSkiKs      *float64  `json:"totalSkiKs" bson:"total_ski_ks"`
	Burpees         *float64  `json:"burpees" bson:"burpees"`
	Wallballs       *float64  `json:"wallballs" bson:"wallballs"`
	Tags            []string  `json:"tags" bson:"tags"`
	Notes           string    `json:"notes" bson:"notes"`
	WorkoutPlan     string    `json:"workoutPlan" bson:"workout_plan"`
	IsHidden        bool      `json:"isHidden" bson:"is_hidden"`
	CreatedAt       time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updated_at"`
}

type DateExtent struct {
	MinWorkoutDate string `json:"minWorkoutDate"`
	MaxWorkoutDate string `json:"maxWorkoutDate"`
}

// RangeParams bounds are yyyy-MM-dd strings compared lexically, empty means unbounded.
type RangeParams struct {
	From          string
	To            string
	IncludeHidden bool
}

type ListParams struct {
	Page          int
	Size          int
	IncludeHidden bool
}

// WorkoutRequest is the body of create and update calls.
type WorkoutRequest struct {
	WorkoutDate     string   `json:"workoutDate" validate:"required,datetime=2006-01-02"`
	Week            string   `json:"week" validate:"max=32"`
	Title           string   `json:"title" validate:"max=256"`
	RPE             *float64 `json:"rpe" validate:"required,gte=0,lte=10"`
	TrainingMinutes *float64 `json:"trainingMinutes" validate:"required,gte=0"`
	CardioMinutes   *float64 `json:"cardioMinutes" validate:"omitempty,gte=0"`
	TotalRunMiles   *float64 `json:"totalRunMiles" validate:"omitempty,gte=0"`
	LT1Miles        *float64 `json:"lt1Miles" validate:"omitempty,gte=0"`
	LT2Miles        *float64 `json:"lt2Miles" validate:"omitempty,gte=0"`
	VO2Miles        *float64 `json:"vo2Miles" validate:"omitempty,gte=0"`
	SpeedMiles      *float64 `json:"speedMiles" validate:"omitempty,gte=0"`
	TotalBikeMiles  *float64 `json:"totalBikeMiles" validate:"omitempty,gte=0"`
	TotalRowKs      *float64 `json:"totalRowKs" validate:"omitempty,gte=0"`
	TotalSkiKs      *float64 `json:"totalSkiKs" validate:"omitempty,gte=0"`
	Burpees         *float64 `json:"burpees" validate:"omitempty,gte=0"`
	Wallballs       *float64 `json:"wallballs" validate:"omitempty,gte=0"`
	Tags            []string `json:"tags" validate:"max=20,dive,required,max=64"`
	Notes           string   `json:"notes" validate:"max=4096"`
	WorkoutPlan     string   `json:"workoutPlan" validate:"max=8192"`
	IsHidden        bool     `json:"isHidden"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the request and wraps every violation into ErrInvalidWorkout.
func (req *WorkoutRequest) Validate() error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("%w: %s", ErrInvalidWorkout, err)
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidWorkout, strings.Join(msgs, "; "))
}

// ToWorkout builds a workout from a validated request. An empty week label
// is derived from the workout date.
func (req *WorkoutRequest) ToWorkout() Workout {
	w := Workout{
		WorkoutDate:    req.WorkoutDate,
		Week:           strings.TrimSpace(req.Week),
		Title:          req.Title,
		CardioMinutes:  req.CardioMinutes,
		TotalRunMiles:  req.TotalRunMiles,
		LT1Miles:       req.LT1Miles,
		LT2Miles:       req.LT2Miles,
		VO2Miles:       req.VO2Miles,
		SpeedMiles:     req.SpeedMiles,
		TotalBikeMiles: req.TotalBikeMiles,
		TotalRowKs:     req.TotalRowKs,
		TotalSkiKs:     req.TotalSkiKs,
		Burpees:        req.Burpees,
		Wallballs:      req.Wallballs,
		Tags:           req.Tags,
		Notes:          req.Notes,
		WorkoutPlan:    req.WorkoutPlan,
		IsHidden:       req.IsHidden,
	}
	if req.RPE != nil {
		w.RPE = *req.RPE
	}
	if req.TrainingMinutes != nil {
		w.TrainingMinutes = *req.TrainingMinutes
	}
	if w.Week == "" {
		if label, err := ISOWeekLabel(req.WorkoutDate); err == nil {
			w.Week = label
		}
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}
	return w
}

// ISOWeekLabel returns the YYYY-Www label of the ISO week the date falls in.
func ISOWeekLabel(date string) (string, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parse workout date: %w", err)
	}
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week), nil
}

// CalendarWeek returns the Monday and Sunday of the week containing date.
func CalendarWeek(date string) (monday, sunday string, err error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", "", fmt.Errorf("parse date: %w", err)
	}
	offset := (int(t.Weekday()) + 6) % 7
	start := t.AddDate(0, 0, -offset)
	return start.Format(dateLayout), start.AddDate(0, 0, 6).Format(dateLayout), nil
}
