package router

import (
	"database/sql"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	lognotify "msk-care-coordination/internal/adapters/notify"
	mem "msk-care-coordination/internal/adapters/storage/memory"
	pg "msk-care-coordination/internal/adapters/storage/postgres"
	"msk-care-coordination/internal/domain/audit"
	"msk-care-coordination/internal/domain/carerequests"
	"msk-care-coordination/internal/domain/consent"
	"msk-care-coordination/internal/domain/intake"
	"msk-care-coordination/internal/domain/pathway"
	"msk-care-coordination/internal/domain/patients"
	"msk-care-coordination/internal/domain/plans"
	"msk-care-coordination/internal/domain/providers"
	"msk-care-coordination/internal/domain/triage"
	"msk-care-coordination/internal/middleware"
	"msk-care-coordination/internal/ports/auth"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // nil enables dev-header auth

	// Optional: with a DB the repos run on Postgres, without one in-memory.
	DB *sql.DB

	Logger *zap.Logger
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var (
		patientsRepo  patients.Repository
		consentsRepo  consent.Repository
		auditRepo     audit.Repository
		triageRepo    triage.Repository
		intakeRepo    intake.Repository
		plansRepo     plans.Repository
		requestsRepo  carerequests.Repository
		providersRepo providers.Repository
	)

	// Without an explicit DB, try the env DSN (dev/handoff convenience).
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			} else {
				log.Warn("postgres unavailable, falling back to in-memory", zap.Error(err))
			}
		}
	}

	if db != nil {
		patientsRepo = pg.NewPatientsRepo(db)
		consentsRepo = pg.NewConsentsRepo(db)
		auditRepo = pg.NewAuditRepo(db)
		triageRepo = pg.NewTriageRepo(db)
		intakeRepo = pg.NewIntakeRepo(db)
		plansRepo = pg.NewPlansRepo(db)
		requestsRepo = pg.NewCareRequestsRepo(db)
		providersRepo = pg.NewProvidersRepo(db)
	} else {
		patientsRepo = mem.NewPatientsRepo()
		consentsRepo = mem.NewConsentsRepo()
		auditRepo = mem.NewAuditRepo()
		triageRepo = mem.NewTriageRepo()
		intakeRepo = mem.NewIntakeRepo()
		plansRepo = mem.NewPlansRepo()
		requestsRepo = mem.NewCareRequestsRepo()
		providersRepo = mem.NewProvidersRepo(devProviders())
	}

	v := validator.New()
	notifier := lognotify.NewLogNotifier(log)

	auditSvc := audit.NewService(auditRepo, log)
	consentSvc := consent.NewService(consentsRepo, auditSvc)
	patientsSvc := patients.NewService(patientsRepo, auditSvc)
	triageSvc := triage.NewService(triageRepo, auditSvc)
	intakeSvc := intake.NewService(intakeRepo, consentSvc, triageSvc, auditSvc)
	plansSvc := plans.NewService(plansRepo, consentSvc, intakeSvc, auditSvc, log)
	providersSvc := providers.NewService(providersRepo)
	broker := carerequests.NewBroker(requestsRepo, plansSvc, providersSvc, notifier, auditSvc, log)

	patients.RegisterRoutes(r, patientsSvc, v)
	consent.RegisterRoutes(r, consentSvc, v)
	triage.RegisterRoutes(r, triageSvc, notifier, v)
	intake.RegisterRoutes(r, intakeSvc, v)
	plans.RegisterRoutes(r, plansSvc, v)
	providers.RegisterRoutes(r, providersSvc)
	carerequests.RegisterRoutes(r, broker, v)
	audit.RegisterRoutes(r, auditSvc)

	return r
}

// devProviders seeds the in-memory directory; Postgres deployments manage the
// providers table themselves.
func devProviders() []providers.Provider {
	return []providers.Provider{
		{ID: "prov-physio-1", Name: "Moves Physiotherapy Centrum", Discipline: pathway.DisciplinePhysiotherapy, Insurers: []string{"CZ", "VGZ"}, AcceptsNewPatients: true},
		{ID: "prov-physio-2", Name: "FysioFit Amsterdam", Discipline: pathway.DisciplinePhysiotherapy, Insurers: []string{"Zilveren Kruis"}, AcceptsNewPatients: true},
		{ID: "prov-physio-3", Name: "Praktijk Beweging Zuid", Discipline: pathway.DisciplinePhysiotherapy, Insurers: []string{"CZ"}, AcceptsNewPatients: false},
		{ID: "prov-ergo-1", Name: "Ergotherapie Centraal", Discipline: pathway.DisciplineErgotherapy, Insurers: []string{"VGZ", "Menzis"}, AcceptsNewPatients: true},
		{ID: "prov-diet-1", Name: "Voeding & Advies Praktijk", Discipline: pathway.DisciplineDietetics, Insurers: []string{"CZ", "Zilveren Kruis"}, AcceptsNewPatients: true},
		{ID: "prov-smoke-1", Name: "Stoppen met Roken Kliniek", Discipline: pathway.DisciplineSmokingCessation, Insurers: []string{"Menzis"}, AcceptsNewPatients: true},
	}
}
