package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/trainingboard/internal/telemetry/tracing"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
)

const workoutsCollectionName = "workouts"

// MongoRepo stores workouts as documents, one per workout, keyed by the uuid.
type MongoRepo struct {
	collection *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{
		collection: db.Collection(workoutsCollectionName),
	}
}

// EnsureIndexes creates the indexes backing the date range and paging queries.
func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "workout_date", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("workout_date_created_at"),
		},
		{
			Keys:    bson.D{{Key: "is_hidden", Value: 1}},
			Options: options.Index().SetName("is_hidden"),
		},
	})
	if err != nil {
		return fmt.Errorf("create workouts indexes: %w", err)
	}
	return nil
}

func (r *MongoRepo) Add(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongorepo.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if workout.ID == "" {
		workout.ID = uuid.New().String()
	}
	if workout.CreatedAt.IsZero() {
		workout.CreatedAt = time.Now().UTC()
	}
	workout.UpdatedAt = workout.CreatedAt
	if workout.Tags == nil {
		workout.Tags = []string{}
	}
	span.SetAttributes(attribute.String("workout.id", workout.ID))

	if _, err := r.collection.InsertOne(ctx, workout); err != nil {
		return nil, err
	}

	return &workout, nil
}

func (r *MongoRepo) Update(ctx context.Context, workout *Workout) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongorepo.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", workout.ID))

	workout.UpdatedAt = time.Now().UTC()
	if workout.Tags == nil {
		workout.Tags = []string{}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": workout.ID}, bson.M{
		"$set": bson.M{
			"workout_date":     workout.WorkoutDate,
			"week":             workout.Week,
			"title":            workout.Title,
			"rpe":              workout.RPE,
			"training_minutes": workout.TrainingMinutes,
			"cardio_minutes":   workout.CardioMinutes,
			"total_run_miles":  workout.TotalRunMiles,
			"lt1_miles":        workout.LT1Miles,
			"lt2_miles":        workout.LT2Miles,
			"vo2_miles":        workout.VO2Miles,
			"speed_miles":      workout.SpeedMiles,
			"total_bike_miles": workout.TotalBikeMiles,
			"total_row_ks":     workout.TotalRowKs,
			"total_ski_ks":     workout.TotalSkiKs,
			"burpees":          workout.Burpees,
			"wallballs":        workout.Wallballs,
			"tags":             workout.Tags,
			"notes":            workout.Notes,
			"workout_plan":     workout.WorkoutPlan,
			"is_hidden":        workout.IsHidden,
			"updated_at":       workout.UpdatedAt,
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *MongoRepo) SetHidden(ctx context.Context, id string, hidden bool) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongorepo.workouts.sethidden")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id))

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"is_hidden": hidden},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *MongoRepo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongorepo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id))

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *MongoRepo) Get(ctx context.Context, id string) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongorepo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id))

	var workout Workout
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&workout); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	return &workout, nil
}

func (r *MongoRepo) ListByDateRange(ctx context.Context, params RangeParams) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongorepo.workouts.listbydaterange")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("from", params.From))
	span.SetAttributes(attribute.String("to", params.To))
	span.SetAttributes(attribute.Bool("include-hidden", params.IncludeHidden))

	findOptions := options.Find().SetSort(bson.D{
		{Key: "workout_date", Value: 1},
		{Key: "created_at", Value: 1},
	})
	return r.find(ctx, rangeFilter(params), findOptions)
}

func (r *MongoRepo) DateExtent(ctx context.Context, includeHidden bool) (_ *DateExtent, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongorepo.workouts.dateextent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: visibilityFilter(includeHidden)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "min", Value: bson.D{{Key: "$min", Value: "$workout_date"}}},
			{Key: "max", Value: bson.D{{Key: "$max", Value: "$workout_date"}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Min string `bson:"min"`
		Max string `bson:"max"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &DateExtent{}, nil
	}
	return &DateExtent{
		MinWorkoutDate: results[0].Min,
		MaxWorkoutDate: results[0].Max,
	}, nil
}

func (r *MongoRepo) List(ctx context.Context, params ListParams) (_ []Workout, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongorepo.workouts.list")
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

	findOptions := options.Find().
		SetSort(bson.D{{Key: "workout_date", Value: -1}, {Key: "created_at", Value: -1}}).
		SetSkip(int64((params.Page - 1) * params.Size)).
		SetLimit(int64(params.Size))
	workouts, err := r.find(ctx, visibilityFilter(params.IncludeHidden), findOptions)
	if err != nil {
		return nil, 0, err
	}

	return workouts, total, nil
}

func (r *MongoRepo) Count(ctx context.Context, includeHidden bool) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongorepo.workouts.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	count, err := r.collection.CountDocuments(ctx, visibilityFilter(includeHidden))
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *MongoRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Workout, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	workouts := make([]Workout, 0)
	if err := cursor.All(ctx, &workouts); err != nil {
		return nil, fmt.Errorf("decode workouts: %w", err)
	}
	return workouts, nil
}

func visibilityFilter(includeHidden bool) bson.M {
	if includeHidden {
		return bson.M{}
	}
	return bson.M{"is_hidden": false}
}

func rangeFilter(params RangeParams) bson.M {
	filter := visibilityFilter(params.IncludeHidden)
	dateCond := bson.M{}
	if params.From != "" {
		dateCond["$gte"] = params.From
	}
	if params.To != "" {
		dateCond["$lte"] = params.To
	}
	if len(dateCond) > 0 {
		filter["workout_date"] = dateCond
	}
	return filter
}
