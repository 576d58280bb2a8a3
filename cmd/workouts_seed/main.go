package main

import (
	"context"
	"flag"
	"math"
	"time"

	"github.com/2beens/trainingboard/internal/config"
	"github.com/2beens/trainingboard/internal/db"
	"github.com/2beens/trainingboard/internal/trainingload"
	"github.com/2beens/trainingboard/internal/workouts"

	"github.com/brianvoe/gofakeit/v6"
	log "github.com/sirupsen/logrus"
)

type workoutAdder interface {
	Add(ctx context.Context, workout workouts.Workout) (*workouts.Workout, error)
}

var workoutTitles = []string{"Easy run", "Threshold intervals", "Long run", "Hyrox sim", "Erg session", "Strength"}

// fills the configured store with fake training weeks, for local dashboards
func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	weeks := flag.Int("weeks", 20, "number of weeks to seed, ending with the current one")
	perWeek := flag.Int("per-week", 5, "max workouts per week")
	seed := flag.Int64("seed", 0, "random seed, 0 for a random one")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	if *seed != 0 {
		gofakeit.Seed(*seed)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var store workoutAdder
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		mongoClient, err := db.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("new mongo client: %s", err)
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.Errorf("disconnect mongo: %s", err)
			}
		}()
		store = workouts.NewMongoRepo(mongoClient.Database(cfg.MongoDBName))
	default:
		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost: cfg.PostgresHost,
			DBPort: cfg.PostgresPort,
			DBName: cfg.PostgresDBName,
		})
		if err != nil {
			log.Fatalf("new db pool: %s", err)
		}
		defer dbPool.Close()
		store = workouts.NewRepo(dbPool)
	}

	added := 0
	firstMonday := trainingload.WeekStart(time.Now()).AddDate(0, 0, -7*(*weeks-1))
	for week := 0; week < *weeks; week++ {
		monday := firstMonday.AddDate(0, 0, 7*week)
		for i := 0; i < gofakeit.Number(1, max(*perWeek, 1)); i++ {
			day := monday.AddDate(0, 0, gofakeit.Number(0, 6))
			if _, err := store.Add(ctx, fakeWorkout(day)); err != nil {
				log.Fatalf("add workout for %s: %s", day.Format(trainingload.DateLayout), err)
			}
			added++
		}
	}

	log.Printf("seeded %d workouts over %d weeks into %s store", added, *weeks, cfg.StoreDriver)
}

func fakeWorkout(day time.Time) workouts.Workout {
	date := day.Format(trainingload.DateLayout)
	week, _ := workouts.ISOWeekLabel(date)
	minutes := float64(gofakeit.Number(20, 120))
	w := workouts.Workout{
		WorkoutDate:     date,
		Week:            week,
		Title:           gofakeit.RandomString(workoutTitles),
		RPE:             float64(gofakeit.Number(3, 9)),
		TrainingMinutes: minutes,
		CardioMinutes:   ptr(round1(minutes * gofakeit.Float64Range(0.3, 1))),
		Notes:           gofakeit.Sentence(8),
		Tags:            []string{gofakeit.Word()},
		IsHidden:        gofakeit.Number(1, 20) == 1,
	}

	if gofakeit.Bool() {
		total := round1(gofakeit.Float64Range(2, 12))
		w.TotalRunMiles = ptr(total)
		w.LT1Miles = ptr(round1(total * gofakeit.Float64Range(0, 0.3)))
		w.LT2Miles = ptr(round1(total * gofakeit.Float64Range(0, 0.2)))
		w.VO2Miles = ptr(round1(total * gofakeit.Float64Range(0, 0.1)))
		w.SpeedMiles = ptr(round1(total * gofakeit.Float64Range(0, 0.05)))
	} else {
		w.TotalBikeMiles = ptr(round1(gofakeit.Float64Range(0, 20)))
		w.TotalRowKs = ptr(round1(gofakeit.Float64Range(0, 8)))
		w.TotalSkiKs = ptr(round1(gofakeit.Float64Range(0, 5)))
		w.Burpees = ptr(float64(gofakeit.Number(0, 100)))
		w.Wallballs = ptr(float64(gofakeit.Number(0, 150)))
	}

	return w
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func ptr(v float64) *float64 {
	return &v
}
