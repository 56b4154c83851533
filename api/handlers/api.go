package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/openward/ward-feedback-api/api"
	"github.com/openward/ward-feedback-api/api/scheduler"
	"github.com/openward/ward-feedback-api/audit"
	"github.com/openward/ward-feedback-api/config"
	"github.com/openward/ward-feedback-api/databases"
	"github.com/openward/ward-feedback-api/lifecycle"
	"github.com/openward/ward-feedback-api/merge"
	"github.com/openward/ward-feedback-api/models"
	"github.com/openward/ward-feedback-api/scope"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	DB        databases.CollectionHelper
	Config    config.Config
	Scheduler *scheduler.Scheduler
	dbHelper  databases.DatabaseHelper
	client    databases.ClientHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	userDB := databases.NewUserDatabase(a.dbHelper)

	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: userDB}
	m.SetupGoGuardian()

	r := mux.NewRouter()
	r.Use(api.MetricsMiddleware)

	caseDB := databases.NewCaseDatabase(a.dbHelper)
	responseDB := databases.NewCaseResponseDatabase(a.dbHelper)
	auditDB := databases.NewAuditDatabase(a.dbHelper)
	householdDB := databases.NewHouseholdDatabase(a.dbHelper)
	residentDB := databases.NewResidentDatabase(a.dbHelper)

	resolver := scope.NewResolver()
	recorder := audit.NewRecorder(auditDB)
	locks := lifecycle.NewKeyedMutex()

	lifecycleEngine := &lifecycle.Engine{
		Cases:     caseDB,
		Responses: responseDB,
		Audit:     recorder,
		Scope:     resolver,
		Txn:       a.client,
		Locks:     locks,
	}
	mergeEngine := &merge.Engine{
		Cases: caseDB,
		Audit: recorder,
		Scope: resolver,
		Txn:   a.client,
		Locks: locks,
	}

	// background jobs share the lifecycle engine so they hold the same
	// per-case locks as the API
	a.Scheduler = scheduler.NewScheduler(
		caseDB,
		userDB,
		databases.NewSchedulerLockDatabase(a.dbHelper),
		lifecycleEngine,
	)

	c := Case{
		DB:        caseDB,
		RDB:       responseDB,
		HDB:       householdDB,
		ResDB:     residentDB,
		Scope:     resolver,
		Audit:     recorder,
		Txn:       a.client,
		Lifecycle: lifecycleEngine,
	}
	mg := Merge{Engine: mergeEngine}
	au := Audit{DB: auditDB, Scope: resolver}
	h := Household{DB: householdDB, ResDB: residentDB, Scope: resolver}
	cloudinaryHandler := CloudinaryHandler{}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/cases", api.Middleware(http.HandlerFunc(c.CaseHandler))).Methods("GET")
	apiCreate.Handle("/cases", api.Middleware(http.HandlerFunc(c.CreateCaseHandler))).Methods("POST")
	apiCreate.Handle("/cases/merge", api.Middleware(http.HandlerFunc(mg.MergeCasesHandler))).Methods("POST")
	apiCreate.Handle("/cases/{case_id}", api.Middleware(http.HandlerFunc(c.CaseByIDHandler))).Methods("GET")
	apiCreate.Handle("/cases/{case_id}", api.Middleware(http.HandlerFunc(c.UpdateCaseStatusHandler))).Methods("PUT")
	apiCreate.Handle("/cases/{case_id}/responses", api.Middleware(http.HandlerFunc(c.CreateCaseResponseHandler))).Methods("POST")

	apiCreate.Handle("/audit", api.Middleware(http.HandlerFunc(au.AuditLogsHandler))).Methods("GET")
	apiCreate.Handle("/audit/{audit_id}", api.Middleware(http.HandlerFunc(au.AuditByIDHandler))).Methods("GET")

	apiCreate.Handle("/households/{household_id}", api.Middleware(http.HandlerFunc(h.HouseholdByIDHandler))).Methods("GET")
	apiCreate.Handle("/households/{household_id}/residents", api.Middleware(http.HandlerFunc(h.ResidentsByHouseholdIDHandler))).Methods("GET")

	apiCreate.Handle("/metrics", api.Middleware(http.HandlerFunc(au.metricsHandler))).Methods("GET")

	apiCreate.Handle("/generate-signature", api.Middleware(http.HandlerFunc(cloudinaryHandler.GenerateSignature))).Methods("POST")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("ward-feedback-api has connected to the database")

	// initialize api router
	a.initializeRoutes()

	// start the background jobs
	a.Scheduler.Start()
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}

// metricsHandler exposes the aggregated request metrics, admin only
func (a Audit) metricsHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := a.Scope.Authorize(principal, scope.ActionViewAudit); err != nil {
		domainErrorStatus("failed to get metrics", w, err)
		return
	}

	b, err := json.Marshal(map[string]interface{}{
		"summary": api.GetMetrics().GetSummary(),
		"routes":  api.GetMetrics().GetRouteMetrics(),
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
