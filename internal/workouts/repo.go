package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/trainingboard/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

const workoutColumns = `
	id, workout_date, week, title, rpe, training_minutes,
	cardio_minutes, total_run_miles, lt1_miles, lt2_miles, vo2_miles, speed_miles,
	total_bike_miles, total_row_ks, total_ski_ks, burpees, wallballs,
	tags, notes, workout_plan, is_hidden, created_at, updated_at`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if workout.ID == "" {
		workout.ID = uuid.New().String()
	}
	if workout.CreatedAt.IsZero() {
		workout.CreatedAt = time.Now()
	}
	workout.UpdatedAt = workout.CreatedAt
	if workout.Tags == nil {
		workout.Tags = []string{}
	}
	span.SetAttributes(attribute.String("workout.id", workout.ID))

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO workout (`+workoutColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23);`,
		workout.ID, workout.WorkoutDate, workout.Week, workout.Title, workout.RPE, workout.TrainingMinutes,
		workout.CardioMinutes, workout.TotalRunMiles, workout.LT1Miles, workout.LT2Miles, workout.VO2Miles, workout.SpeedMiles,
		workout.TotalBikeMiles, workout.TotalRowKs, workout.TotalSkiKs, workout.Burpees, workout.Wallballs,
		workout.Tags, workout.Notes, workout.WorkoutPlan, workout.IsHidden, workout.CreatedAt, workout.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &workout, nil
}

func (r *Repo) Update(ctx context.Context, workout *Workout) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", workout.ID))

	workout.UpdatedAt = time.Now()
	if workout.Tags == nil {
		workout.Tags = []string{}
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout SET
			workout_date = $1, week = $2, title = $3, rpe = $4, training_minutes = $5,
			cardio_minutes = $6, total_run_miles = $7, lt1_miles = $8, lt2_miles = $9, vo2_miles = $10, speed_miles = $11,
			total_bike_miles = $12, total_row_ks = $13, total_ski_ks = $14, burpees = $15, wallballs = $16,
			tags = $17, notes = $18, workout_plan = $19, is_hidden = $20, updated_at = $21
		WHERE id = $22;`,
		workout.WorkoutDate, workout.Week, workout.Title, workout.RPE, workout.TrainingMinutes,
		workout.CardioMinutes, workout.TotalRunMiles, workout.LT1Miles, workout.LT2Miles, workout.VO2Miles, workout.SpeedMiles,
		workout.TotalBikeMiles, workout.TotalRowKs, workout.TotalSkiKs, workout.Burpees, workout.Wallballs,
		workout.Tags, workout.Notes, workout.WorkoutPlan, workout.IsHidden, workout.UpdatedAt,
		workout.ID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}

	return nil
}

// SetHidden flips the visibility flag of a single workout and nothing else.
func (r *Repo) SetHidden(ctx context.Context, id string, hidden bool) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.sethidden")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id))
	span.SetAttributes(attribute.Bool("hidden", hidden))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout SET is_hidden = $1 WHERE id = $2;`,
		hidden, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+workoutColumns+` FROM workout WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workouts, err := r.rows2workouts(rows)
	if err != nil {
		return nil, err
	}

	if len(workouts) != 1 {
		return nil, ErrWorkoutNotFound
	}

	return &workouts[0], nil
}

// ListByDateRange returns the workouts within the range, oldest first.
func (r *Repo) ListByDateRange(ctx context.Context, params RangeParams) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listbydaterange")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("from", params.From))
	span.SetAttributes(attribute.String("to", params.To))
	span.SetAttributes(attribute.Bool("include-hidden", params.IncludeHidden))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+workoutColumns+` FROM workout
			WHERE ($1::text = '' OR workout_date >= $1)
			AND ($2::text = '' OR workout_date <= $2)
			AND ($3::boolean IS TRUE OR is_hidden IS FALSE)
		ORDER BY workout_date ASC, created_at ASC;`,
		params.From, params.To, params.IncludeHidden,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workouts, err := r.rows2workouts(rows)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("workouts.count", len(workouts)))

	return workouts, nil
}

// DateExtent returns the oldest and newest workout dates, both empty when there are no workouts.
func (r *Repo) DateExtent(ctx context.Context, includeHidden bool) (_ *DateExtent, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.dateextent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var extent DateExtent
	err = r.db.QueryRow(
		ctx,
		`SELECT COALESCE(MIN(workout_date), ''), COALESCE(MAX(workout_date), '')
			FROM workout
			WHERE ($1::boolean IS TRUE OR is_hidden IS FALSE);`,
		includeHidden,
	).Scan(&extent.MinWorkoutDate, &extent.MaxWorkoutDate)
	if err != nil {
		return nil, err
	}

	return &extent, nil
}

// List returns a page of workouts, newest first, and the total count.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []Workout, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))

	if params.Page < 1 || params.Size < 1 {
		return nil, 0, fmt.Errorf("invalid page [%d] or size [%d]", params.Page, params.Size)
	}

	total, err = r.Count(ctx, params.IncludeHidden)
	if err != nil {
		return nil, 0, fmt.Errorf("count workouts: %w", err)
	}

	limit := params.Size
	offset := (params.Page - 1) * params.Size

	rows, err := r.db.Query(
		ctx,
		`SELECT `+workoutColumns+` FROM workout
			WHERE ($1::boolean IS TRUE OR is_hidden IS FALSE)
		ORDER BY workout_date DESC, created_at DESC
		LIMIT $2 OFFSET $3;`,
		params.IncludeHidden, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	workouts, err := r.rows2workouts(rows)
	if err != nil {
		return nil, 0, err
	}

	return workouts, total, nil
}

func (r *Repo) Count(ctx context.Context, includeHidden bool) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	err = r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM workout WHERE ($1::boolean IS TRUE OR is_hidden IS FALSE);`,
		includeHidden,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}

	return count, nil
}

func (r *Repo) rows2workouts(rows pgx.Rows) ([]Workout, error) {
	workouts := make([]Workout, 0)
	for rows.Next() {
		var w Workout
		if err := rows.Scan(
			&w.ID, &w.WorkoutDate, &w.Week, &w.Title, &w.RPE, &w.TrainingMinutes,
			&w.CardioMinutes, &w.TotalRunMiles, &w.LT1Miles, &w.LT2Miles, &w.VO2Miles, &w.SpeedMiles,
			&w.TotalBikeMiles, &w.TotalRowKs, &w.TotalSkiKs, &w.Burpees, &w.Wallballs,
			&w.Tags, &w.Notes, &w.WorkoutPlan, &w.IsHidden, &w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		workouts = append(workouts, w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return workouts, nil
}
