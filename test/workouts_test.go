//go:build integration_test

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/2beens/trainingboard/internal/trainingload"
	"github.com/2beens/trainingboard/internal/workouts"

	"github.com/brianvoe/gofakeit/v6"
)

func newWorkoutJSON(date, week string, rpe, minutes float64, runMiles *float64) []byte {
	req := map[string]any{
		"workoutDate":     date,
		"week":            week,
		"title":           gofakeit.Sentence(3),
		"rpe":             rpe,
		"trainingMinutes": minutes,
		"notes":           gofakeit.Sentence(10),
		"tags":            []string{gofakeit.Word()},
	}
	if runMiles != nil {
		req["totalRunMiles"] = *runMiles
	}
	body, _ := json.Marshal(req)
	return body
}

func (s *IntegrationTestSuite) addWorkout(ctx context.Context, token string, body []byte) workouts.Workout {
	statusCode, respBytes := s.doRequest(ctx, "POST", "/workouts", token, body)
	s.Require().Equal(http.StatusCreated, statusCode, string(respBytes))

	var added workouts.Workout
	s.Require().NoError(json.Unmarshal(respBytes, &added))
	s.Require().NotEmpty(added.ID)
	return added
}

func (s *IntegrationTestSuite) TestWorkoutsAndTrainingLoad() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adminToken := s.doLogin(ctx, testAdminUsername)
	clientToken := s.doLogin(ctx, testClientUsername)

	five, zero := 5.0, 0.0
	s.addWorkout(ctx, adminToken, newWorkoutJSON("2024-03-04", "2024-W10", 7, 50, &five))
	s.addWorkout(ctx, adminToken, newWorkoutJSON("2024-03-05", "2024-W10", 5, 30, &zero))
	hidden := s.addWorkout(ctx, adminToken, newWorkoutJSON("2024-02-27", "", 9, 60, nil))
	s.Equal("2024-W09", hidden.Week)

	// clients can read but not write
	statusCode, _ := s.doRequest(ctx, "POST", "/workouts", clientToken, newWorkoutJSON("2024-03-06", "", 5, 20, nil))
	s.Equal(http.StatusForbidden, statusCode)

	// invalid writes are rejected
	statusCode, _ = s.doRequest(ctx, "POST", "/workouts", adminToken, []byte(`{"workoutDate":"2024-03-06","rpe":11,"trainingMinutes":20}`))
	s.Equal(http.StatusBadRequest, statusCode)

	rangeQuery := "?from=2024-01-01&to=2024-12-31"
	var rolling []trainingload.TrainingLoadRow
	s.getJSON(ctx, "/trainingload/rolling"+rangeQuery, clientToken, &rolling)
	s.Require().Len(rolling, 2)
	s.Equal("2024-W09", rolling[0].Week)
	s.InDelta(54.0, rolling[0].STL, 1e-9)
	s.Equal("2024-W10", rolling[1].Week)
	s.InDelta(53.5, rolling[1].STL, 1e-9)
	s.InDelta(80.0/60.0, rolling[1].TrueTrainingHours, 1e-9)

	statusCode, _ = s.doRequest(ctx, "PUT", fmt.Sprintf("/workouts/%s/hidden", hidden.ID), adminToken, []byte(`{"isHidden":true}`))
	s.Require().Equal(http.StatusOK, statusCode)

	s.getJSON(ctx, "/trainingload/rolling"+rangeQuery, clientToken, &rolling)
	s.Require().Len(rolling, 1)
	s.Equal("2024-W10", rolling[0].Week)

	// client include_hidden is ignored, admin one is honored
	s.getJSON(ctx, "/trainingload/rolling"+rangeQuery+"&include_hidden=true", clientToken, &rolling)
	s.Len(rolling, 1)
	s.getJSON(ctx, "/trainingload/rolling"+rangeQuery+"&include_hidden=true", adminToken, &rolling)
	s.Len(rolling, 2)

	statusCode, _ = s.doRequest(ctx, "GET", "/workouts/"+hidden.ID, clientToken, nil)
	s.Equal(http.StatusNotFound, statusCode)
	var got workouts.Workout
	s.getJSON(ctx, "/workouts/"+hidden.ID, adminToken, &got)
	s.True(got.IsHidden)

	var runMix []trainingload.RunVolumeRow
	s.getJSON(ctx, "/trainingload/runmix"+rangeQuery, clientToken, &runMix)
	s.Require().Len(runMix, 1)
	s.Equal(5.0, runMix[0].TotalMiles)
	s.Equal(5.0, runMix[0].AerobicMiles)

	var dashboard trainingload.Dashboard
	s.getJSON(ctx, "/trainingload/dashboard"+rangeQuery, clientToken, &dashboard)
	s.Require().NotNil(dashboard.Extent)
	s.Equal("2024-03-04", dashboard.Extent.MinWorkoutDate)
	s.Equal("2024-03-05", dashboard.Extent.MaxWorkoutDate)
	s.Len(dashboard.WeeklyTotals, 1)

	var calendar workouts.CalendarResponse
	s.getJSON(ctx, "/workouts/calendar?date=2024-03-06", clientToken, &calendar)
	s.Equal("2024-03-04", calendar.From)
	s.Equal("2024-03-10", calendar.To)
	s.Len(calendar.Workouts, 2)

	var list workouts.ListResponse
	s.getJSON(ctx, "/workouts/list/page/1/size/10", adminToken, &list)
	s.Equal(3, list.Total)
	s.getJSON(ctx, "/workouts/list/page/1/size/10", clientToken, &list)
	s.Equal(2, list.Total)

	statusCode, _ = s.doRequest(ctx, "DELETE", "/workouts/"+hidden.ID, adminToken, nil)
	s.Equal(http.StatusOK, statusCode)
	s.getJSON(ctx, "/trainingload/rolling"+rangeQuery+"&include_hidden=true", adminToken, &rolling)
	s.Len(rolling, 1)
}

func (s *IntegrationTestSuite) TestWeeklyTotalsSorting() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adminToken := s.doLogin(ctx, testAdminUsername)

	s.addWorkout(ctx, adminToken, newWorkoutJSON("2023-05-01", "", 5, 90, nil))
	s.addWorkout(ctx, adminToken, newWorkoutJSON("2023-05-08", "", 5, 30, nil))
	s.addWorkout(ctx, adminToken, newWorkoutJSON("2023-05-15", "", 5, 60, nil))

	weeksOf := func(rows []trainingload.WeeklyTotalsRow) []string {
		var weeks []string
		for _, r := range rows {
			weeks = append(weeks, r.Week)
		}
		return weeks
	}

	var weekly []trainingload.WeeklyTotalsRow
	s.getJSON(ctx, "/trainingload/weekly?from=2023-05-01&to=2023-05-31", adminToken, &weekly)
	s.Equal([]string{"2023-W20", "2023-W19", "2023-W18"}, weeksOf(weekly))

	s.getJSON(ctx, "/trainingload/weekly?from=2023-05-01&to=2023-05-31&sort=trainingMinutes&order=asc", adminToken, &weekly)
	s.Equal([]string{"2023-W19", "2023-W20", "2023-W18"}, weeksOf(weekly))

	statusCode, _ := s.doRequest(ctx, "GET", "/trainingload/weekly?sort=nope", adminToken, nil)
	s.Equal(http.StatusBadRequest, statusCode)
}
