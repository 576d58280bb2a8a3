//go:build integration_test

package test

import (
	"context"
	"time"

	"github.com/2beens/trainingboard/internal/workouts"

	"github.com/brianvoe/gofakeit/v6"
)

func (s *IntegrationTestSuite) TestMongoRepo() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := workouts.NewMongoRepo(s.mongoClient.Database("trainingboard_" + gofakeit.LetterN(8)))
	s.Require().NoError(repo.EnsureIndexes(ctx))

	run := 4.0
	var added []*workouts.Workout
	for _, date := range []string{"2024-01-08", "2024-01-15", "2024-01-22"} {
		week, err := workouts.ISOWeekLabel(date)
		s.Require().NoError(err)
		w, err := repo.Add(ctx, workouts.Workout{
			WorkoutDate:     date,
			Week:            week,
			Title:           gofakeit.Sentence(3),
			RPE:             6,
			TrainingMinutes: 45,
			TotalRunMiles:   &run,
			Tags:            []string{gofakeit.Word()},
		})
		s.Require().NoError(err)
		added = append(added, w)
	}

	got, err := repo.Get(ctx, added[0].ID)
	s.Require().NoError(err)
	s.Equal("2024-01-08", got.WorkoutDate)
	s.Require().NotNil(got.TotalRunMiles)
	s.Equal(4.0, *got.TotalRunMiles)
	s.Nil(got.LT1Miles)

	s.Require().NoError(repo.SetHidden(ctx, added[1].ID, true))

	visible, err := repo.ListByDateRange(ctx, workouts.RangeParams{From: "2024-01-01", To: "2024-01-31"})
	s.Require().NoError(err)
	s.Len(visible, 2)

	all, err := repo.ListByDateRange(ctx, workouts.RangeParams{From: "2024-01-10", IncludeHidden: true})
	s.Require().NoError(err)
	s.Len(all, 2)

	extent, err := repo.DateExtent(ctx, false)
	s.Require().NoError(err)
	s.Equal("2024-01-08", extent.MinWorkoutDate)
	s.Equal("2024-01-22", extent.MaxWorkoutDate)

	page, total, err := repo.List(ctx, workouts.ListParams{Page: 1, Size: 2, IncludeHidden: true})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(page, 2)
	s.Equal("2024-01-22", page[0].WorkoutDate)

	got.RPE = 8
	s.Require().NoError(repo.Update(ctx, got))
	got, err = repo.Get(ctx, added[0].ID)
	s.Require().NoError(err)
	s.Equal(8.0, got.RPE)

	s.Require().NoError(repo.Delete(ctx, added[2].ID))
	_, err = repo.Get(ctx, added[2].ID)
	s.ErrorIs(err, workouts.ErrWorkoutNotFound)
	s.ErrorIs(repo.Delete(ctx, added[2].ID), workouts.ErrWorkoutNotFound)

	count, err := repo.Count(ctx, false)
	s.Require().NoError(err)
	s.Equal(1, count)
}
