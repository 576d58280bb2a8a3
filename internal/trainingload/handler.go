package trainingload

import (
	"encoding/json"
	"net/http"

	"github.com/2beens/trainingboard/internal/auth"
	"github.com/2beens/trainingboard/internal/telemetry/tracing"
	"github.com/2beens/trainingboard/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type Handler struct {
	analyzer *Analyzer
}

func NewHandler(analyzer *Analyzer) *Handler {
	return &Handler{
		analyzer: analyzer,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/trainingload/rolling", handler.HandleRollingLoad).Methods("GET", "OPTIONS").Name("trainingload-rolling")
	router.HandleFunc("/trainingload/runmix", handler.HandleRunVolumeMix).Methods("GET", "OPTIONS").Name("trainingload-runmix")
	router.HandleFunc("/trainingload/weekly", handler.HandleWeeklyTotals).Methods("GET", "OPTIONS").Name("trainingload-weekly")
	router.HandleFunc("/trainingload/dashboard", handler.HandleDashboard).Methods("GET", "OPTIONS").Name("trainingload-dashboard")
}

type rangeQuery struct {
	from          string
	to            string
	includeHidden bool
}

// parseRangeQuery reads from/to/include_hidden; only admins may see hidden workouts.
func parseRangeQuery(r *http.Request) rangeQuery {
	q := r.URL.Query()
	return rangeQuery{
		from:          q.Get("from"),
		to:            q.Get("to"),
		includeHidden: q.Get("include_hidden") == "true" && auth.IsAdmin(r.Context()),
	}
}

func (handler *Handler) HandleRollingLoad(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainingload.rolling")
	defer span.End()

	rq := parseRangeQuery(r)
	rows, err := handler.analyzer.RollingLoad(ctx, rq.from, rq.to, rq.includeHidden)
	if err != nil {
		log.Errorf("failed to get rolling training load: %s", err)
		http.Error(w, "error, failed to get rolling load", http.StatusInternalServerError)
		return
	}

	writeJSON(w, rows)
}

func (handler *Handler) HandleRunVolumeMix(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainingload.runmix")
	defer span.End()

	rq := parseRangeQuery(r)
	rows, err := handler.analyzer.RunVolumeMix(ctx, rq.from, rq.to, rq.includeHidden)
	if err != nil {
		log.Errorf("failed to get run volume mix: %s", err)
		http.Error(w, "error, failed to get run volume mix", http.StatusInternalServerError)
		return
	}

	writeJSON(w, rows)
}

// HandleWeeklyTotals supports sort=<column> and order=asc|desc, newest week first by default.
func (handler *Handler) HandleWeeklyTotals(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainingload.weekly")
	defer span.End()

	sortColumn := r.URL.Query().Get("sort")
	if sortColumn == "" {
		sortColumn = "week"
	}
	if !IsWeeklyTotalsColumn(sortColumn) {
		http.Error(w, "error, unknown sort column", http.StatusBadRequest)
		return
	}

	order := r.URL.Query().Get("order")
	switch order {
	case "":
		order = "desc"
	case "asc", "desc":
	default:
		http.Error(w, "error, order must be asc or desc", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("sort", sortColumn))
	span.SetAttributes(attribute.String("order", order))

	rq := parseRangeQuery(r)
	rows, err := handler.analyzer.WeeklyTotals(ctx, rq.from, rq.to, rq.includeHidden)
	if err != nil {
		log.Errorf("failed to get weekly totals: %s", err)
		http.Error(w, "error, failed to get weekly totals", http.StatusInternalServerError)
		return
	}

	SortWeeklyTotals(rows, sortColumn, order == "desc")
	writeJSON(w, rows)
}

func (handler *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainingload.dashboard")
	defer span.End()

	rq := parseRangeQuery(r)
	dashboard, err := handler.analyzer.Dashboard(ctx, rq.from, rq.to, rq.includeHidden)
	if err != nil {
		log.Errorf("failed to get training dashboard: %s", err)
		http.Error(w, "error, failed to get dashboard", http.StatusInternalServerError)
		return
	}

	writeJSON(w, dashboard)
}

func writeJSON(w http.ResponseWriter, v any) {
	resp, err := json.Marshal(v)
	if err != nil {
		log.Errorf("failed to marshal trainingload response: %s", err)
		http.Error(w, "error, failed to marshal response", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, resp)
}
