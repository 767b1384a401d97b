package doctor

import "testing"

func TestSlotLedger_ReserveRelease(t *testing.T) {
	l := SlotLedger{}

	if l.IsBooked("2024-07-01", "10:00") {
		t.Fatal("missing date key must read as free")
	}
	if !l.Reserve("2024-07-01", "10:00") {
		t.Fatal("first reserve failed")
	}
	if l.Reserve("2024-07-01", "10:00") {
		t.Fatal("double reserve succeeded")
	}
	if !l.Reserve("2024-07-01", "10:30") || !l.Reserve("2024-07-02", "10:00") {
		t.Fatal("reserving other slots failed")
	}
	if l.Count() != 3 {
		t.Errorf("count = %d, want 3", l.Count())
	}

	if !l.Release("2024-07-02", "10:00") {
		t.Fatal("release of booked slot reported false")
	}
	if _, ok := l["2024-07-02"]; ok {
		t.Error("empty date key kept after release")
	}
	if l.Release("2024-07-02", "10:00") {
		t.Error("second release reported true")
	}
	if l.Release("2024-07-01", "23:00") {
		t.Error("release of unbooked time reported true")
	}
	if got := l["2024-07-01"]; len(got) != 2 || got[0] != "10:00" || got[1] != "10:30" {
		t.Errorf("2024-07-01 = %v", got)
	}
}

func TestSlotLedger_CloneIsDeep(t *testing.T) {
	l := SlotLedger{"2024-07-01": {"10:00"}}
	c := l.Clone()
	c.Reserve("2024-07-01", "11:00")
	c.Release("2024-07-01", "10:00")

	if !l.IsBooked("2024-07-01", "10:00") || l.IsBooked("2024-07-01", "11:00") {
		t.Errorf("clone mutation leaked into original: %v", l)
	}
}

func TestDoctor_LedgerNeverNil(t *testing.T) {
	var d Doctor
	l := d.Ledger()
	if l == nil {
		t.Fatal("Ledger returned nil")
	}
	l.Reserve("2024-07-01", "10:00")
	if d.SlotsBooked.Data() != nil {
		t.Error("mutating the returned ledger changed the doctor")
	}
}

func TestDoctor_PublicAndSnapshotHideCredentials(t *testing.T) {
	d := Doctor{Name: "Dr. A", Email: "a@example.com", PasswordHash: "hash", Fees: 40}

	p := d.Public()
	if p.Email != "" || p.PasswordHash != "" {
		t.Errorf("public copy = %+v", p)
	}
	if d.Email == "" {
		t.Error("Public mutated the receiver")
	}
	if s := d.Snapshot(); s.Fees != 40 || s.Name != "Dr. A" {
		t.Errorf("snapshot = %+v", s)
	}
}
