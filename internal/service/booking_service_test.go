package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Parvesbd02/doctor-backend/internal/domain"
	"github.com/Parvesbd02/doctor-backend/internal/domain/appointment"
	"github.com/Parvesbd02/doctor-backend/internal/domain/doctor"
	"github.com/Parvesbd02/doctor-backend/internal/repository"
	"github.com/Parvesbd02/doctor-backend/pkg/metrics"
)

func bookCmd(u *domain.User, d *doctor.Doctor, date, slotTime string) *appointment.BookAppointmentCommand {
	return &appointment.BookAppointmentCommand{
		UserID:   u.ID,
		DoctorID: d.ID,
		SlotDate: date,
		SlotTime: slotTime,
	}
}

func TestBookAppointment_SecondBookingOfSameSlotConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	doc := env.createDoctor(t, true)

	first, err := env.bookings.BookAppointment(ctx, bookCmd(alice, doc, "2024-07-01", "10:00 AM"), userCaller(alice))
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if first.Amount != doc.Fees {
		t.Errorf("amount = %v, want doctor fees %v", first.Amount, doc.Fees)
	}
	if first.UserData.Data().Name != "alice" {
		t.Errorf("user snapshot name = %q", first.UserData.Data().Name)
	}
	if first.DoctorData.Data().ID != doc.ID {
		t.Errorf("doctor snapshot id = %v, want %v", first.DoctorData.Data().ID, doc.ID)
	}

	_, err = env.bookings.BookAppointment(ctx, bookCmd(bob, doc, "2024-07-01", "10:00 AM"), userCaller(bob))
	if !errors.Is(err, doctor.ErrSlotConflict) {
		t.Fatalf("second booking err = %v, want ErrSlotConflict", err)
	}

	ledger := env.reloadDoctor(t, doc.ID).Ledger()
	if got := ledger["2024-07-01"]; len(got) != 1 || got[0] != "10:00 AM" {
		t.Errorf("ledger for 2024-07-01 = %v, want [10:00 AM]", got)
	}

	bobs, err := env.bookings.ListUserAppointments(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bobs) != 0 {
		t.Errorf("bob has %d appointments, want 0", len(bobs))
	}

	if got := testutil.ToFloat64(env.metrics.BookingsTotal.WithLabelValues(metrics.OutcomeConflict)); got != 1 {
		t.Errorf("conflict outcome count = %v, want 1", got)
	}
}

func TestBookAppointment_UnavailableDoctorLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "carol")
	doc := env.createDoctor(t, false)
	before := env.reloadDoctor(t, doc.ID)

	_, err := env.bookings.BookAppointment(ctx, bookCmd(u, doc, "2024-07-01", "11:00 AM"), userCaller(u))
	if !errors.Is(err, doctor.ErrDoctorUnavailable) {
		t.Fatalf("err = %v, want ErrDoctorUnavailable", err)
	}

	after := env.reloadDoctor(t, doc.ID)
	if after.Ledger().Count() != 0 {
		t.Errorf("ledger = %v, want empty", after.Ledger())
	}
	if after.Version != before.Version {
		t.Errorf("version moved from %d to %d", before.Version, after.Version)
	}
	appts, _ := env.bookings.ListUserAppointments(ctx, u.ID)
	if len(appts) != 0 {
		t.Errorf("got %d appointments, want 0", len(appts))
	}
}

func TestBookAppointment_Preconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "dave")
	doc := env.createDoctor(t, true)

	tests := []struct {
		name    string
		cmd     *appointment.BookAppointmentCommand
		wantErr error
		wantVal bool
	}{
		{
			name:    "no subject",
			cmd:     &appointment.BookAppointmentCommand{DoctorID: doc.ID, SlotDate: "2024-07-01", SlotTime: "10:00"},
			wantErr: ErrUnauthenticated,
		},
		{
			name:    "bad date",
			cmd:     bookCmd(u, doc, "01/07/2024", "10:00"),
			wantVal: true,
		},
		{
			name:    "empty time",
			cmd:     bookCmd(u, doc, "2024-07-01", "   "),
			wantVal: true,
		},
		{
			name:    "time too long",
			cmd:     bookCmd(u, doc, "2024-07-01", "this label is far too long to be a slot"),
			wantVal: true,
		},
		{
			name:    "unknown doctor",
			cmd:     &appointment.BookAppointmentCommand{UserID: u.ID, DoctorID: uuid.New(), SlotDate: "2024-07-01", SlotTime: "10:00"},
			wantErr: doctor.ErrDoctorNotFound,
		},
		{
			name:    "unknown user",
			cmd:     &appointment.BookAppointmentCommand{UserID: uuid.New(), DoctorID: doc.ID, SlotDate: "2024-07-01", SlotTime: "10:00"},
			wantErr: domain.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.bookings.BookAppointment(ctx, tt.cmd, Caller{})
			if tt.wantVal {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("err = %v, want ValidationError", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// None of the rejected attempts may have touched the ledger.
	if n := env.reloadDoctor(t, doc.ID).Ledger().Count(); n != 0 {
		t.Errorf("ledger count = %d, want 0", n)
	}
}

func TestBookAppointment_ConcurrentRequestsForOneSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc := env.createDoctor(t, true)

	const n = 8
	users := make([]*domain.User, n)
	for i := range users {
		users[i] = env.createUser(t, "patient")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for _, u := range users {
		wg.Add(1)
		go func(u *domain.User) {
			defer wg.Done()
			<-start
			_, err := env.bookings.BookAppointment(ctx, bookCmd(u, doc, "2024-08-15", "09:30 AM"), userCaller(u))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, doctor.ErrSlotConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(u)
	}
	close(start)
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if successes != 1 || conflicts != n-1 {
		t.Fatalf("successes=%d conflicts=%d, want 1 and %d", successes, conflicts, n-1)
	}
	if got := env.reloadDoctor(t, doc.ID).Ledger()["2024-08-15"]; len(got) != 1 {
		t.Errorf("ledger = %v, want one entry", got)
	}
}

func TestBookAppointment_DifferentSlotsAllSucceed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc := env.createDoctor(t, true)
	u := env.createUser(t, "erin")

	times := []string{"10:00 AM", "10:30 AM", "11:00 AM"}
	for _, tm := range times {
		if _, err := env.bookings.BookAppointment(ctx, bookCmd(u, doc, "2024-07-02", tm), userCaller(u)); err != nil {
			t.Fatalf("book %s: %v", tm, err)
		}
	}

	d := env.reloadDoctor(t, doc.ID)
	got := d.Ledger()["2024-07-02"]
	if len(got) != len(times) {
		t.Fatalf("ledger = %v, want %v", got, times)
	}
	for i := range times {
		if got[i] != times[i] {
			t.Errorf("ledger[%d] = %q, want %q (booking order)", i, got[i], times[i])
		}
	}
	if d.Version != int64(len(times)) {
		t.Errorf("version = %d, want %d", d.Version, len(times))
	}
}

func TestCancelAppointment_OwnershipAndRelease(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner")
	other := env.createUser(t, "other")
	doc := env.createDoctor(t, true)

	appt, err := env.bookings.BookAppointment(ctx, bookCmd(owner, doc, "2024-07-01", "10:00 AM"), userCaller(owner))
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	_, err = env.bookings.CancelAppointment(ctx, &appointment.CancelAppointmentCommand{
		AppointmentID: appt.ID,
		CancelledBy:   other.ID,
	}, userCaller(other))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("cancel by other: err = %v, want ErrForbidden", err)
	}
	if !env.reloadDoctor(t, doc.ID).Ledger().IsBooked("2024-07-01", "10:00 AM") {
		t.Fatal("slot released by a forbidden cancel")
	}

	cancelled, err := env.bookings.CancelAppointment(ctx, &appointment.CancelAppointmentCommand{
		AppointmentID: appt.ID,
		CancelledBy:   owner.ID,
	}, userCaller(owner))
	if err != nil {
		t.Fatalf("cancel by owner: %v", err)
	}
	if !cancelled.Cancelled || cancelled.CancelledAt == nil {
		t.Errorf("appointment not marked cancelled: %+v", cancelled)
	}
	if cancelled.Status() != appointment.StatusCancelled {
		t.Errorf("status = %s", cancelled.Status())
	}

	ledger := env.reloadDoctor(t, doc.ID).Ledger()
	if _, ok := ledger["2024-07-01"]; ok {
		t.Errorf("empty date key not removed: %v", ledger)
	}

	stored, err := env.store.Appointments().GetByID(ctx, appt.ID)
	if err != nil {
		t.Fatalf("reload appointment: %v", err)
	}
	if !stored.Cancelled {
		t.Error("stored appointment is not cancelled")
	}

	// The freed slot can be booked again, by anyone.
	if _, err := env.bookings.BookAppointment(ctx, bookCmd(other, doc, "2024-07-01", "10:00 AM"), userCaller(other)); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
}

func TestCancelAppointment_Twice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "frank")
	doc := env.createDoctor(t, true)

	appt, err := env.bookings.BookAppointment(ctx, bookCmd(u, doc, "2024-07-01", "10:00 AM"), userCaller(u))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	cmd := &appointment.CancelAppointmentCommand{AppointmentID: appt.ID, CancelledBy: u.ID}
	if _, err := env.bookings.CancelAppointment(ctx, cmd, userCaller(u)); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	version := env.reloadDoctor(t, doc.ID).Version

	_, err = env.bookings.CancelAppointment(ctx, cmd, userCaller(u))
	if !errors.Is(err, appointment.ErrAlreadyCancelled) {
		t.Fatalf("second cancel err = %v, want ErrAlreadyCancelled", err)
	}
	if v := env.reloadDoctor(t, doc.ID).Version; v != version {
		t.Errorf("ledger version moved on re-cancel: %d -> %d", version, v)
	}
}

func TestCancelAppointment_NotFoundAndUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "gina")

	_, err := env.bookings.CancelAppointment(ctx, &appointment.CancelAppointmentCommand{
		AppointmentID: uuid.New(),
		CancelledBy:   u.ID,
	}, userCaller(u))
	if !errors.Is(err, appointment.ErrAppointmentNotFound) {
		t.Errorf("err = %v, want ErrAppointmentNotFound", err)
	}

	_, err = env.bookings.CancelAppointment(ctx, &appointment.CancelAppointmentCommand{AppointmentID: uuid.New()}, Caller{})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestBookAppointment_RetriesStaleLedgerWrite(t *testing.T) {
	stale := 2
	env := newTestEnvWithStore(t, func(s repository.Store) repository.Store {
		return staleStore{Store: s, remaining: &stale}
	})
	ctx := context.Background()
	u := env.createUser(t, "hank")
	doc := env.createDoctor(t, true)

	appt, err := env.bookings.BookAppointment(ctx, bookCmd(u, doc, "2024-07-03", "12:00 PM"), userCaller(u))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if got := testutil.ToFloat64(env.metrics.LedgerRetries); got != 2 {
		t.Errorf("ledger retries = %v, want 2", got)
	}

	// Rolled-back attempts must not leave duplicate appointments behind.
	appts, err := env.bookings.ListUserAppointments(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(appts) != 1 || appts[0].ID != appt.ID {
		t.Errorf("appointments = %d, want exactly the booked one", len(appts))
	}
}

func TestBookAppointment_GivesUpWhenLedgerStaysStale(t *testing.T) {
	stale := 100
	env := newTestEnvWithStore(t, func(s repository.Store) repository.Store {
		return staleStore{Store: s, remaining: &stale}
	})
	ctx := context.Background()
	u := env.createUser(t, "ivy")
	doc := env.createDoctor(t, true)

	_, err := env.bookings.BookAppointment(ctx, bookCmd(u, doc, "2024-07-03", "12:00 PM"), userCaller(u))
	if !errors.Is(err, doctor.ErrLedgerBusy) {
		t.Fatalf("err = %v, want ErrLedgerBusy", err)
	}

	appts, _ := env.bookings.ListUserAppointments(ctx, u.ID)
	if len(appts) != 0 {
		t.Errorf("got %d appointments after exhausted retries, want 0", len(appts))
	}
	if env.reloadDoctor(t, doc.ID).Ledger().Count() != 0 {
		t.Error("ledger changed after exhausted retries")
	}
}

func TestBookAppointment_LockWaitTimeoutIsBusy(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "jon")
	doc := env.createDoctor(t, true)

	// Another request is holding this doctor's lock.
	release, err := env.ledger.locker.Acquire(context.Background(), lockKey(doc.ID))
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = env.bookings.BookAppointment(ctx, bookCmd(u, doc, "2024-07-05", "10:00 AM"), userCaller(u))
	if !errors.Is(err, doctor.ErrLedgerBusy) {
		t.Fatalf("err = %v, want ErrLedgerBusy", err)
	}

	appts, _ := env.bookings.ListUserAppointments(context.Background(), u.ID)
	if len(appts) != 0 {
		t.Errorf("got %d appointments after lock timeout, want 0", len(appts))
	}
}
