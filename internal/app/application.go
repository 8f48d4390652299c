package app

import (
	"context"
	"fmt"

	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/jobs"
	accountingsvc "github.com/R3E-Network/farm_backoffice/internal/app/services/accounting"
	activitysvc "github.com/R3E-Network/farm_backoffice/internal/app/services/activities"
	admissionsvc "github.com/R3E-Network/farm_backoffice/internal/app/services/admissions"
	harvestersvc "github.com/R3E-Network/farm_backoffice/internal/app/services/harvesters"
	inventorysvc "github.com/R3E-Network/farm_backoffice/internal/app/services/inventory"
	membersvc "github.com/R3E-Network/farm_backoffice/internal/app/services/members"
	parcelsvc "github.com/R3E-Network/farm_backoffice/internal/app/services/parcels"
	processingsvc "github.com/R3E-Network/farm_backoffice/internal/app/services/processing"
	zonesvc "github.com/R3E-Network/farm_backoffice/internal/app/services/zones"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage/memory"
	"github.com/R3E-Network/farm_backoffice/internal/app/system"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Members    storage.MemberStore
	Zones      storage.ZoneStore
	Parcels    storage.ParcelStore
	Harvesters storage.HarvesterStore
	Activities storage.ActivityStore
	Admissions storage.AdmissionStore
	Processing storage.ProcessingStore
	Inventory  storage.InventoryStore
	Accounting storage.AccountingStore
}

// Option customises application construction.
type Option func(*options)

type options struct {
	jobs      jobs.Config
	hashCost  int
	extraSvcs []system.Service
}

// WithJobs enables the maintenance scheduler with the given cron specs.
func WithJobs(cfg jobs.Config) Option {
	return func(o *options) { o.jobs = cfg }
}

// WithPasswordCost overrides the bcrypt cost used for member passwords.
func WithPasswordCost(cost int) Option {
	return func(o *options) { o.hashCost = cost }
}

// WithService registers an additional lifecycle-managed component.
func WithService(svc system.Service) Option {
	return func(o *options) { o.extraSvcs = append(o.extraSvcs, svc) }
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Members    *membersvc.Service
	Zones      *zonesvc.Service
	Parcels    *parcelsvc.Service
	Harvesters *harvestersvc.Service
	Activities *activitysvc.Service
	Admissions *admissionsvc.Service
	Processing *processingsvc.Service
	Inventory  *inventorysvc.Service
	Accounting *accountingsvc.Service
	Jobs       *jobs.Scheduler
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, log *logger.Logger, opts ...Option) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	mem := memory.New()
	if stores.Members == nil {
		stores.Members = mem
	}
	if stores.Zones == nil {
		stores.Zones = mem
	}
	if stores.Parcels == nil {
		stores.Parcels = mem
	}
	if stores.Harvesters == nil {
		stores.Harvesters = mem
	}
	if stores.Activities == nil {
		stores.Activities = mem
	}
	if stores.Admissions == nil {
		stores.Admissions = mem
	}
	if stores.Processing == nil {
		stores.Processing = mem
	}
	if stores.Inventory == nil {
		stores.Inventory = mem
	}
	if stores.Accounting == nil {
		stores.Accounting = mem
	}

	memberService := membersvc.New(stores.Members, log.Named("members"))
	if o.hashCost > 0 {
		memberService.WithHashCost(o.hashCost)
	}
	zoneService := zonesvc.New(stores.Members, stores.Zones, stores.Parcels, stores.Harvesters, log.Named("zones"))
	parcelService := parcelsvc.New(stores.Members, stores.Zones, stores.Parcels, stores.Activities, log.Named("parcels"))
	harvesterService := harvestersvc.New(stores.Members, stores.Zones, stores.Harvesters, log.Named("harvesters"))

	accountingService := accountingsvc.New(stores.Members, stores.Accounting, stores.Parcels, log.Named("accounting"))
	inventoryService := inventorysvc.New(stores.Members, stores.Inventory, accountingService, log.Named("inventory"))
	admissionService := admissionsvc.New(stores.Members, stores.Admissions, inventoryService, log.Named("admissions"))
	admissionService.AttachDependencies(stores.Parcels, stores.Harvesters, stores.Activities)
	activityService := activitysvc.New(stores.Members, stores.Activities, log.Named("activities"))
	activityService.AttachDependencies(stores.Parcels, stores.Harvesters, admissionService, accountingService)
	processingService := processingsvc.New(stores.Members, stores.Processing, inventoryService, accountingService, log.Named("processing"))

	manager := system.NewManager()
	for _, name := range []string{"members", "zones", "parcels", "harvesters", "activities", "admissions", "processing", "inventory", "accounting"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	scheduler, err := jobs.NewScheduler(inventoryService, accountingService, o.jobs, log.Named("jobs"))
	if err != nil {
		return nil, fmt.Errorf("configure jobs: %w", err)
	}
	services := append([]system.Service{scheduler}, o.extraSvcs...)
	for _, svc := range services {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:    manager,
		log:        log,
		Members:    memberService,
		Zones:      zoneService,
		Parcels:    parcelService,
		Harvesters: harvesterService,
		Activities: activityService,
		Admissions: admissionService,
		Processing: processingService,
		Inventory:  inventoryService,
		Accounting: accountingService,
		Jobs:       scheduler,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return err
	}
	a.log.WithField("services", a.manager.Names()).Info("application started")
	return nil
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// Running reports whether Start succeeded and Stop has not been called.
func (a *Application) Running() bool {
	return a.manager.Running()
}

// Descriptors lists the descriptors of the domain services.
func (a *Application) Descriptors() []service.Descriptor {
	providers := []service.DescriptorProvider{
		a.Members, a.Zones, a.Parcels, a.Harvesters, a.Activities,
		a.Admissions, a.Processing, a.Inventory, a.Accounting,
	}
	out := make([]service.Descriptor, 0, len(providers))
	for _, p := range providers {
		out = append(out, p.Descriptor())
	}
	return out
}

// ServiceNames lists the registered lifecycle components.
func (a *Application) ServiceNames() []string {
	return a.manager.Names()
}
