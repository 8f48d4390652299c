// Package app composes the farm back office.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	├── storage/            # Store interfaces with memory and postgres implementations
//	├── services/           # One service per resource, enforcing member scoping
//	├── export/             # Spreadsheet formatters
//	├── jobs/               # Scheduled maintenance (reconcile, lease charges)
//	├── auth/               # Access tokens and revocation
//	├── httpapi/            # HTTP handlers and routing
//	├── system/             # Lifecycle manager
//	└── metrics/            # Prometheus collectors
//
// # Side-effect chain
//
// Recording a harvest runs a fixed sequence of service calls:
//
//	activities.Record
//	      │ labor / input expenses ──► accounting
//	      ▼
//	admissions.Admit
//	      ▼
//	inventory.Receive ──► running balance
//
// Processing runs and sales follow the same shape: they move stock through the
// inventory service, which books the monetary side through accounting. The
// calls are sequential and not transactional. A failure part way through
// leaves the earlier effects in place and is logged by the failing service.
//
// # Tenancy
//
// Every record except a member belongs to a member. Services take the member
// id on each call and answer storage.ErrNotFound for records of any other
// member.
package app
