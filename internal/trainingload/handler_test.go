package trainingload_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/2beens/trainingboard/internal/auth"
	"github.com/2beens/trainingboard/internal/trainingload"
	"github.com/2beens/trainingboard/internal/workouts"
)

func newTestRouter(t *testing.T) (*mux.Router, *MockworkoutsStore) {
	t.Helper()
	analyzer, storeMock, _ := newTestAnalyzer(t, 0)
	r := mux.NewRouter()
	trainingload.NewHandler(analyzer).SetupRoutes(r)
	return r, storeMock
}

func withRole(req *http.Request, role auth.Role) *http.Request {
	return req.WithContext(auth.WithSession(req.Context(), &auth.Session{Username: "someone", Role: role}))
}

func TestHandler_RollingLoad(t *testing.T) {
	r, storeMock := newTestRouter(t)

	storeMock.EXPECT().
		ListByDateRange(gomock.Any(), workouts.RangeParams{From: "2024-03-01", To: "2024-03-31"}).
		Return(testRecords(), nil)

	req, err := http.NewRequest("GET", "/trainingload/rolling?from=2024-03-01&to=2024-03-31", nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var rows []trainingload.TrainingLoadRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-W10", rows[0].Week)
	assert.InDelta(t, 53.5, rows[0].STL, 1e-9)
}

func TestHandler_EmptyResultIsArray(t *testing.T) {
	r, storeMock := newTestRouter(t)

	storeMock.EXPECT().
		ListByDateRange(gomock.Any(), gomock.Any()).
		Return(nil, nil)

	req, err := http.NewRequest("GET", "/trainingload/runmix", nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestHandler_IncludeHiddenOnlyForAdmin(t *testing.T) {
	for _, tc := range []struct {
		name          string
		role          auth.Role
		includeHidden bool
	}{
		{name: "anonymous", role: "", includeHidden: false},
		{name: "client", role: auth.RoleClient, includeHidden: false},
		{name: "admin", role: auth.RoleAdmin, includeHidden: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r, storeMock := newTestRouter(t)
			storeMock.EXPECT().
				ListByDateRange(gomock.Any(), workouts.RangeParams{From: "2024-01-01", IncludeHidden: tc.includeHidden}).
				Return(testRecords(), nil)

			req, err := http.NewRequest("GET", "/trainingload/rolling?from=2024-01-01&include_hidden=true", nil)
			require.NoError(t, err)
			if tc.role != "" {
				req = withRole(req, tc.role)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			var rows []trainingload.TrainingLoadRow
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
			if tc.includeHidden {
				assert.Len(t, rows, 2)
			} else {
				assert.Len(t, rows, 1)
			}
		})
	}
}

func TestHandler_WeeklyTotals_Sorting(t *testing.T) {
	r, storeMock := newTestRouter(t)

	storeMock.EXPECT().
		ListByDateRange(gomock.Any(), gomock.Any()).
		Return([]workouts.Workout{
			{ID: "a", Week: "2024-W08", WorkoutDate: "2024-02-19", RPE: 5, TrainingMinutes: 90},
			{ID: "b", Week: "2024-W09", WorkoutDate: "2024-02-26", RPE: 5, TrainingMinutes: 30},
			{ID: "c", Week: "2024-W10", WorkoutDate: "2024-03-04", RPE: 5, TrainingMinutes: 60},
		}, nil).
		Times(2)

	get := func(query string) []string {
		req, err := http.NewRequest("GET", "/trainingload/weekly"+query, nil)
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var rows []trainingload.WeeklyTotalsRow
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
		var weeks []string
		for _, row := range rows {
			weeks = append(weeks, row.Week)
		}
		return weeks
	}

	assert.Equal(t, []string{"2024-W10", "2024-W09", "2024-W08"}, get(""))
	assert.Equal(t, []string{"2024-W09", "2024-W10", "2024-W08"}, get("?sort=trainingMinutes&order=asc"))
}

func TestHandler_WeeklyTotals_BadParams(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, query := range []string{"?sort=nope", "?order=sideways", "?sort=stl&order=up"} {
		req, err := http.NewRequest("GET", "/trainingload/weekly"+query, nil)
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestHandler_Dashboard(t *testing.T) {
	r, storeMock := newTestRouter(t)

	storeMock.EXPECT().
		ListByDateRange(gomock.Any(), gomock.Any()).
		Return(testRecords(), nil)
	storeMock.EXPECT().
		DateExtent(gomock.Any(), false).
		Return(&workouts.DateExtent{MinWorkoutDate: "2024-02-27", MaxWorkoutDate: "2024-03-05"}, nil)

	req, err := http.NewRequest("GET", "/trainingload/dashboard", nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var d trainingload.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "2023-10-30", d.Range.From)
	require.NotNil(t, d.Extent)
	assert.Equal(t, "2024-03-05", d.Extent.MaxWorkoutDate)
	assert.Len(t, d.RollingLoad, 1)
	assert.Len(t, d.RunVolumeMix, 1)
	assert.Len(t, d.WeeklyTotals, 1)
}

func TestHandler_StoreError(t *testing.T) {
	r, storeMock := newTestRouter(t)

	storeMock.EXPECT().
		ListByDateRange(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused"))

	req, err := http.NewRequest("GET", "/trainingload/rolling", nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
