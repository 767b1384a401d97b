package appointment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Parvesbd02/doctor-backend/internal/domain"
	"github.com/Parvesbd02/doctor-backend/internal/domain/doctor"
)

// State transitions:
//
//	pending → cancelled
//
// Cancelled is terminal.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusCancelled AppointmentStatus = "cancelled"
)

const SlotDateLayout = "2006-01-02"

type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	UserID   uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`
	DoctorID uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index" json:"docId"`

	// Captured once at booking and never rewritten.
	UserData   datatypes.JSONType[domain.UserSnapshot] `gorm:"column:user_data" json:"userData"`
	DoctorData datatypes.JSONType[doctor.Snapshot]     `gorm:"column:doctor_data" json:"docData"`

	Amount   float64 `gorm:"column:amount;not null" json:"amount"`
	SlotDate string  `gorm:"column:slot_date;type:varchar(10);not null;index" json:"slotDate"`
	SlotTime string  `gorm:"column:slot_time;type:varchar(32);not null" json:"slotTime"`

	Cancelled   bool       `gorm:"column:cancelled;not null;default:false;index" json:"cancelled"`
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelledAt,omitempty"`

	Payment        bool   `gorm:"column:payment;not null;default:false" json:"payment"`
	PaymentOrderID string `gorm:"column:payment_order_id;type:varchar(64)" json:"paymentOrderId,omitempty"`
	IsCompleted    bool   `gorm:"column:is_completed;not null;default:false" json:"isCompleted"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (a *Appointment) Status() AppointmentStatus {
	if a.Cancelled {
		return StatusCancelled
	}
	return StatusPending
}

func (a *Appointment) IsOwnedBy(userID uuid.UUID) bool {
	return a.UserID == userID
}

func (a *Appointment) Cancel(at time.Time) error {
	if a.Cancelled {
		return ErrAlreadyCancelled
	}
	a.Cancelled = true
	a.CancelledAt = &at
	return nil
}

// New builds a pending appointment with snapshots of both parties.
func New(u *domain.User, d *doctor.Doctor, slotDate, slotTime string) *Appointment {
	return &Appointment{
		ID:         uuid.New(),
		UserID:     u.ID,
		DoctorID:   d.ID,
		UserData:   datatypes.NewJSONType(u.Snapshot()),
		DoctorData: datatypes.NewJSONType(d.Snapshot()),
		Amount:     d.Fees,
		SlotDate:   slotDate,
		SlotTime:   slotTime,
	}
}

type BookAppointmentCommand struct {
	UserID   uuid.UUID
	DoctorID uuid.UUID
	SlotDate string
	SlotTime string
}

type CancelAppointmentCommand struct {
	AppointmentID uuid.UUID
	CancelledBy   uuid.UUID
}
