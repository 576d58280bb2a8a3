package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/trainingboard/internal/auth"
	"github.com/2beens/trainingboard/internal/telemetry/metrics"
	"github.com/2beens/trainingboard/internal/telemetry/tracing"
	"github.com/2beens/trainingboard/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=workouts_mocks_test.go -package=workouts_test

type workoutsStore interface {
	Add(ctx context.Context, workout Workout) (*Workout, error)
	Get(ctx context.Context, id string) (*Workout, error)
	Update(ctx context.Context, workout *Workout) error
	SetHidden(ctx context.Context, id string, hidden bool) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListParams) (_ []Workout, total int, err error)
	ListByDateRange(ctx context.Context, params RangeParams) ([]Workout, error)
	DateExtent(ctx context.Context, includeHidden bool) (*DateExtent, error)
}

type cacheInvalidator interface {
	Invalidate()
}

type ListResponse struct {
	Workouts []Workout `json:"workouts"`
	Total    int       `json:"total"`
}

type CalendarResponse struct {
	From     string    `json:"from"`
	To       string    `json:"to"`
	Workouts []Workout `json:"workouts"`
}

type UpdateWorkoutResponse struct {
	UpdatedID string `json:"updatedId"`
}

type DeleteWorkoutResponse struct {
	DeletedID string `json:"deletedId"`
}

type setHiddenRequest struct {
	IsHidden *bool `json:"isHidden"`
}

type Handler struct {
	store          workoutsStore
	metricsManager *metrics.Manager
	invalidators   []cacheInvalidator
}

// NewHandler creates the workouts handler; every successful write calls Invalidate on invalidators.
func NewHandler(
	store workoutsStore,
	metricsManager *metrics.Manager,
	invalidators ...cacheInvalidator,
) *Handler {
	return &Handler{
		store:          store,
		metricsManager: metricsManager,
		invalidators:   invalidators,
	}
}

// SetupRoutes registers read routes on readRouter and the admin-only writes on writeRouter.
func (handler *Handler) SetupRoutes(readRouter, writeRouter *mux.Router) {
	readRouter.HandleFunc("/workouts/extent", handler.HandleExtent).Methods("GET", "OPTIONS").Name("workouts-extent")
	readRouter.HandleFunc("/workouts/calendar", handler.HandleCalendar).Methods("GET", "OPTIONS").Name("workouts-calendar")
	readRouter.HandleFunc("/workouts/list/page/{page}/size/{size}", handler.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
	readRouter.HandleFunc("/workouts/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-workout")

	writeRouter.HandleFunc("/workouts", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-workout")
	writeRouter.HandleFunc("/workouts/{id}/hidden", handler.HandleSetHidden).Methods("PUT", "OPTIONS").Name("hide-workout")
	writeRouter.HandleFunc("/workouts/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-workout")
	writeRouter.HandleFunc("/workouts/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-workout")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.new")
	defer span.End()

	req, ok := decodeWorkoutRequest(w, r)
	if !ok {
		return
	}

	added, err := handler.store.Add(ctx, req.ToWorkout())
	if err != nil {
		log.Errorf("failed to add new workout [%s]: %s", req.WorkoutDate, err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}
	span.SetAttributes(attribute.String("workout.id", added.ID))
	handler.written("add")

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("failed to marshal new workout: %s", err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	log.Debugf("new workout added: %s", added.ID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.update")
	defer span.End()

	id, ok := workoutIDVar(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("workout.id", id))

	req, ok := decodeWorkoutRequest(w, r)
	if !ok {
		return
	}

	workout := req.ToWorkout()
	workout.ID = id
	if err := handler.store.Update(ctx, &workout); err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			http.Error(w, "error, workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update workout %s: %s", id, err)
		http.Error(w, "error, failed to update workout", http.StatusInternalServerError)
		return
	}
	handler.written("update")

	resp, err := json.Marshal(UpdateWorkoutResponse{UpdatedID: id})
	if err != nil {
		log.Errorf("failed to marshal update workout response: %s", err)
		http.Error(w, "error, failed to update workout", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, resp)
}

func (handler *Handler) HandleSetHidden(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.sethidden")
	defer span.End()

	id, ok := workoutIDVar(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("workout.id", id))

	var req setHiddenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsHidden == nil {
		http.Error(w, "error, isHidden missing", http.StatusBadRequest)
		return
	}

	if err := handler.store.SetHidden(ctx, id, *req.IsHidden); err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			http.Error(w, "error, workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to set workout %s hidden=%t: %s", id, *req.IsHidden, err)
		http.Error(w, "error, failed to update workout", http.StatusInternalServerError)
		return
	}
	handler.written("set_hidden")

	resp, err := json.Marshal(UpdateWorkoutResponse{UpdatedID: id})
	if err != nil {
		log.Errorf("failed to marshal set hidden response: %s", err)
		http.Error(w, "error, failed to update workout", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, resp)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	id, ok := workoutIDVar(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("workout.id", id))

	if err := handler.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			http.Error(w, "error, workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete workout %s: %s", id, err)
		http.Error(w, "error, failed to delete workout", http.StatusInternalServerError)
		return
	}
	handler.written("delete")

	resp, err := json.Marshal(DeleteWorkoutResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete workout response: %s", err)
		http.Error(w, "error, failed to delete workout", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, resp)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	id, ok := workoutIDVar(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("workout.id", id))

	workout, err := handler.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			http.Error(w, "error, workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get workout %s: %s", id, err)
		http.Error(w, "error, failed to get workout", http.StatusInternalServerError)
		return
	}

	// hidden workouts do not exist for clients
	if workout.IsHidden && !auth.IsAdmin(ctx) {
		http.Error(w, "error, workout not found", http.StatusNotFound)
		return
	}

	resp, err := json.Marshal(workout)
	if err != nil {
		log.Errorf("failed to marshal workout: %s", err)
		http.Error(w, "error, failed to get workout", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, resp)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	vars := mux.Vars(r)
	page, err := strconv.Atoi(vars["page"])
	if err != nil || page < 1 {
		http.Error(w, "error, invalid page", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(vars["size"])
	if err != nil || size < 1 {
		http.Error(w, "error, invalid size", http.StatusBadRequest)
		return
	}

	workouts, total, err := handler.store.List(ctx, ListParams{
		Page:          page,
		Size:          size,
		IncludeHidden: auth.IsAdmin(ctx),
	})
	if err != nil {
		log.Errorf("failed to list workouts: %s", err)
		http.Error(w, "error, failed to list workouts", http.StatusInternalServerError)
		return
	}

	resp, err := json.Marshal(ListResponse{
		Workouts: workouts,
		Total:    total,
	})
	if err != nil {
		log.Errorf("failed to marshal workouts list: %s", err)
		http.Error(w, "error, failed to list workouts", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, resp)
}

// HandleCalendar returns the Monday to Sunday week of workouts around the date query param.
func (handler *Handler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.calendar")
	defer span.End()

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format(dateLayout)
	}

	from, to, err := CalendarWeek(date)
	if err != nil {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("from", from))

	workouts, err := handler.store.ListByDateRange(ctx, RangeParams{
		From:          from,
		To:            to,
		IncludeHidden: auth.IsAdmin(ctx),
	})
	if err != nil {
		log.Errorf("failed to list calendar week %s: %s", from, err)
		http.Error(w, "error, failed to list workouts", http.StatusInternalServerError)
		return
	}

	resp, err := json.Marshal(CalendarResponse{
		From:     from,
		To:       to,
		Workouts: workouts,
	})
	if err != nil {
		log.Errorf("failed to marshal calendar week: %s", err)
		http.Error(w, "error, failed to list workouts", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, resp)
}

func (handler *Handler) HandleExtent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.extent")
	defer span.End()

	extent, err := handler.store.DateExtent(ctx, auth.IsAdmin(ctx))
	if err != nil {
		log.Errorf("failed to get workouts date extent: %s", err)
		http.Error(w, "error, failed to get date extent", http.StatusInternalServerError)
		return
	}

	resp, err := json.Marshal(extent)
	if err != nil {
		log.Errorf("failed to marshal date extent: %s", err)
		http.Error(w, "error, failed to get date extent", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, resp)
}

func (handler *Handler) written(op string) {
	if handler.metricsManager != nil {
		handler.metricsManager.CounterWorkoutWrites.WithLabelValues(op).Inc()
	}
	for _, inv := range handler.invalidators {
		inv.Invalidate()
	}
}

func decodeWorkoutRequest(w http.ResponseWriter, r *http.Request) (*WorkoutRequest, bool) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return nil, false
	}

	var req WorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("workout request, unmarshal json params: %s", err)
		http.Error(w, "error, invalid workout json", http.StatusBadRequest)
		return nil, false
	}

	if err := req.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("error, %s", err), http.StatusBadRequest)
		return nil, false
	}

	return &req, true
}

func workoutIDVar(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		http.Error(w, "error, invalid id", http.StatusBadRequest)
		return "", false
	}
	return id, true
}
