package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Parvesbd02/doctor-backend/internal/domain"
	"github.com/Parvesbd02/doctor-backend/internal/domain/doctor"
	"github.com/Parvesbd02/doctor-backend/internal/repository"
	"github.com/Parvesbd02/doctor-backend/pkg/database"
	"github.com/Parvesbd02/doctor-backend/pkg/lock"
	"github.com/Parvesbd02/doctor-backend/pkg/metrics"
)

type testEnv struct {
	db       *gorm.DB
	store    *repository.GormStore
	metrics  *metrics.Collector
	audit    *AuditService
	ledger   *SlotLedgerService
	bookings *BookingService
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(zap.NewNop(), time.Second))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection: sqlite serializes writers anyway and the in-memory
	// database lives as long as that connection.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, nil)
}

// newTestEnvWithStore lets a test wrap the real store, e.g. to inject stale writes.
func newTestEnvWithStore(t *testing.T, wrap func(repository.Store) repository.Store) *testEnv {
	t.Helper()

	db := openTestDB(t)
	store := repository.NewGormStore(db)
	m := metrics.NewCollector("test", prometheus.NewRegistry())
	audit := NewAuditService(repository.NewGormAuditRepository(db), m, zap.NewNop())
	t.Cleanup(audit.Shutdown)

	var ledgerStore repository.Store = store
	if wrap != nil {
		ledgerStore = wrap(store)
	}
	ledger := NewSlotLedgerService(ledgerStore, lock.NewKeyedMutex(), m, 3, zap.NewNop())

	return &testEnv{
		db:       db,
		store:    store,
		metrics:  m,
		audit:    audit,
		ledger:   ledger,
		bookings: NewBookingService(store, ledger, audit, m, zap.NewNop()),
	}
}

func (e *testEnv) createUser(t *testing.T, name string) *domain.User {
	t.Helper()
	u := &domain.User{
		Name:         name,
		Email:        fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		PasswordHash: "x",
		Phone:        "0000000000",
		AddressLine1: "1 Main St",
	}
	if err := e.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) createDoctor(t *testing.T, available bool) *doctor.Doctor {
	t.Helper()
	ctx := context.Background()
	d := &doctor.Doctor{
		Name:         "Dr. Rao",
		Email:        fmt.Sprintf("doc-%s@example.com", uuid.NewString()[:8]),
		PasswordHash: "x",
		Speciality:   "General physician",
		Degree:       "MBBS",
		Experience:   "4 Years",
		About:        "Primary care",
		Fees:         50,
		Address:      "Clinic road",
		Available:    true,
	}
	if err := e.store.Doctors().Create(ctx, d); err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	if !available {
		updated, err := e.store.Doctors().SetAvailability(ctx, d.ID, false)
		if err != nil {
			t.Fatalf("set availability: %v", err)
		}
		d = updated
	}
	return d
}

func (e *testEnv) reloadDoctor(t *testing.T, id uuid.UUID) *doctor.Doctor {
	t.Helper()
	d, err := e.store.Doctors().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload doctor: %v", err)
	}
	return d
}

func userCaller(u *domain.User) Caller {
	return Caller{Subject: u.ID.String(), Role: domain.RoleUser, IP: "127.0.0.1"}
}

var adminCaller = Caller{Subject: "admin@example.com", Role: domain.RoleAdmin, IP: "127.0.0.1"}

// staleStore fails the first n ledger writes with doctor.ErrStaleLedger, as if
// another writer had committed in between.
type staleStore struct {
	repository.Store
	remaining *int
}

func (s staleStore) Doctors() doctor.Repository {
	return staleDoctors{Repository: s.Store.Doctors(), remaining: s.remaining}
}

func (s staleStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(staleStore{Store: tx, remaining: s.remaining})
	})
}

type staleDoctors struct {
	doctor.Repository
	remaining *int
}

func (r staleDoctors) SaveLedger(ctx context.Context, id uuid.UUID, expectedVersion int64, ledger doctor.SlotLedger) error {
	if *r.remaining > 0 {
		*r.remaining--
		return doctor.ErrStaleLedger
	}
	return r.Repository.SaveLedger(ctx, id, expectedVersion, ledger)
}
