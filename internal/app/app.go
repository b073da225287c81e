// Package app assembles the HTTP application from configuration and a
// storage backend. The api binary and the router tests share it.
package app

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/internal/config"
	"github.com/jwalitptl/dental-api/internal/email"
	appointmentHandler "github.com/jwalitptl/dental-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/dental-api/internal/handler/auth"
	availabilityHandler "github.com/jwalitptl/dental-api/internal/handler/availability"
	clinicHandler "github.com/jwalitptl/dental-api/internal/handler/clinic"
	dentistHandler "github.com/jwalitptl/dental-api/internal/handler/dentist"
	"github.com/jwalitptl/dental-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/dental-api/internal/handler/patient"
	promhandler "github.com/jwalitptl/dental-api/internal/handler/prometheus"
	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/router"
	"github.com/jwalitptl/dental-api/internal/service/appointment"
	"github.com/jwalitptl/dental-api/internal/service/auth"
	"github.com/jwalitptl/dental-api/internal/service/availability"
	"github.com/jwalitptl/dental-api/internal/service/clinic"
	"github.com/jwalitptl/dental-api/internal/service/dentist"
	"github.com/jwalitptl/dental-api/internal/service/notification"
	"github.com/jwalitptl/dental-api/internal/service/patient"
	jwtauth "github.com/jwalitptl/dental-api/pkg/auth"
	"github.com/jwalitptl/dental-api/pkg/metrics"
	"github.com/jwalitptl/dental-api/pkg/security"
)

const metricsNamespace = "dental"

type Deps struct {
	Config   *config.Config
	Store    *repository.Store
	Mailer   email.Service
	Registry *prometheus.Registry
	Logger   zerolog.Logger
	// Now overrides the wall clock; nil means time.Now.
	Now func() time.Time
	// BcryptCost of zero uses the library default.
	BcryptCost int
}

type App struct {
	Router       *router.Router
	Metrics      *metrics.Metrics
	Availability *availability.Service
	Appointments *appointment.Service
	Notifier     *notification.Service
}

// NewServices builds the domain services without the HTTP layer. The worker
// and the CLI use it directly.
func NewServices(d Deps) (*App, error) {
	if d.Config == nil || d.Store == nil {
		return nil, errors.New("app: config and store are required")
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	if d.Mailer == nil {
		d.Mailer = email.NewLogService(d.Logger)
	}

	loc, err := d.Config.Clinic.Location()
	if err != nil {
		return nil, err
	}

	m := metrics.NewMetrics(metricsNamespace, d.Registry)
	avail := availability.NewService(d.Store, availability.Options{
		Clock:            availability.NewClock(loc, d.Now),
		NoShowThreshold:  d.Config.Clinic.NoShowThreshold,
		NoShowWindowDays: d.Config.Clinic.NoShowWindowDays,
		CacheTTL:         d.Config.Clinic.SlotCacheTTL,
	})
	notifier := notification.NewService(d.Mailer, m, d.Logger, d.Config.Clinic.NotifyTimeout)
	appointments := appointment.NewService(d.Store, avail, notifier, m, d.Logger)

	return &App{
		Metrics:      m,
		Availability: avail,
		Appointments: appointments,
		Notifier:     notifier,
	}, nil
}

// New builds the services and the HTTP router on top of them.
func New(d Deps) (*App, error) {
	if d.Config == nil {
		return nil, errors.New("app: config is required")
	}
	if d.Config.JWT.Secret == "" {
		return nil, errors.New("app: jwt secret is required")
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}

	a, err := NewServices(d)
	if err != nil {
		return nil, err
	}

	cfg := d.Config
	hasher := security.NewBcryptHasher(d.BcryptCost)
	jwtSvc := jwtauth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	authSvc := auth.NewService(d.Store.Users, jwtSvc, hasher, d.Logger)
	patientSvc := patient.NewService(d.Store.Users, d.Store.Patients, a.Availability, hasher, d.Logger)
	dentistSvc := dentist.NewService(d.Store.Dentists, d.Store.Schedules, d.Logger)
	clinicSvc := clinic.NewService(d.Store.Catalog, d.Store.BlockedDates, d.Logger)

	patients := patientHandler.NewHandler(patientSvc)

	a.Router = router.NewRouter(
		router.RouterConfig{
			Mode:           cfg.Server.Mode,
			RateLimit:      cfg.RateLimit,
			CORS:           cfg.CORS,
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		},
		middleware.NewAuthMiddleware(authSvc),
		a.Metrics,
		health.NewHandler(d.Store.Ping),
		promhandler.New(d.Registry),
		[]router.Handler{
			authHandler.NewHandler(authSvc),
			patients,
		},
		[]router.ProtectedHandler{
			appointmentHandler.NewHandler(a.Appointments, cfg.Clinic.SweepBatchSize),
			availabilityHandler.NewHandler(a.Availability),
			dentistHandler.NewHandler(dentistSvc),
			clinicHandler.NewHandler(clinicSvc),
			patients,
		},
	)
	a.Router.Setup()
	return a, nil
}
