package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/auth"
	"github.com/R3E-Network/farm_backoffice/internal/middleware"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
)

// AuditEntry records one authenticated request.
type AuditEntry struct {
	Time       time.Time `json:"time" db:"occurred_at"`
	RequestID  string    `json:"request_id,omitempty" db:"request_id"`
	MemberID   string    `json:"member_id" db:"member_id"`
	Role       string    `json:"role" db:"role"`
	Tenant     string    `json:"tenant,omitempty" db:"tenant"`
	Path       string    `json:"path" db:"path"`
	Method     string    `json:"method" db:"method"`
	Status     int       `json:"status" db:"status"`
	RemoteAddr string    `json:"remote_addr,omitempty" db:"remote_addr"`
	UserAgent  string    `json:"user_agent,omitempty" db:"user_agent"`
}

// AuditSink persists audit entries.
type AuditSink interface {
	Write(ctx context.Context, entry AuditEntry) error
}

// AuditLog keeps the most recent entries in memory and forwards every entry
// to an optional sink.
type AuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
	max     int
	sink    AuditSink
}

func NewAuditLog(max int, sink AuditSink) *AuditLog {
	if max <= 0 {
		max = 200
	}
	return &AuditLog{max: max, sink: sink}
}

func (l *AuditLog) add(ctx context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	sink := l.sink
	l.mu.Unlock()
	if sink != nil {
		// Sink failures never fail the request.
		_ = sink.Write(ctx, entry)
	}
}

// List returns up to limit of the newest entries, oldest first.
func (l *AuditLog) List(limit int) []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]AuditEntry, limit)
	copy(out, l.entries[len(l.entries)-limit:])
	return out
}

// Middleware records the outcome of authenticated requests that change
// state. Reads are not audited.
func (l *AuditLog) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusCapture{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := AuditEntry{
			Time:       time.Now().UTC(),
			RequestID:  middleware.RequestID(r.Context()),
			Tenant:     mux.Vars(r)["memberID"],
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     rec.status,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		}
		if claims, ok := auth.FromContext(r.Context()); ok {
			entry.MemberID = claims.MemberID
			entry.Role = string(claims.Role)
		}
		l.add(context.WithoutCancel(r.Context()), entry)
	})
}

type statusCapture struct {
	http.ResponseWriter
	status int
}

func (s *statusCapture) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// FileAuditSink appends audit entries as JSONL.
type FileAuditSink struct {
	mu   sync.Mutex
	file *os.File
}

func NewFileAuditSink(path string) (*FileAuditSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &FileAuditSink{file: f}, nil
}

func (s *FileAuditSink) Write(_ context.Context, entry AuditEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.file.Write(append(b, '\n'))
	return err
}

func (s *FileAuditSink) Close() error {
	return s.file.Close()
}

// PostgresAuditSink inserts audit entries into the audit_log table.
type PostgresAuditSink struct {
	db *sqlx.DB
}

func NewPostgresAuditSink(db *sqlx.DB) *PostgresAuditSink {
	return &PostgresAuditSink{db: db}
}

func (s *PostgresAuditSink) Write(ctx context.Context, entry AuditEntry) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO audit_log (occurred_at, request_id, member_id, role, tenant, path, method, status, remote_addr, user_agent)
		VALUES (:occurred_at, :request_id, :member_id, :role, :tenant, :path, :method, :status, :remote_addr, :user_agent)`, entry)
	return err
}
