package doctor

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Doctor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Name         string  `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Email        string  `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email,omitempty"`
	PasswordHash string  `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Image        string  `gorm:"column:image;type:text" json:"image"`
	Speciality   string  `gorm:"column:speciality;type:varchar(100);not null;index" json:"speciality"`
	Degree       string  `gorm:"column:degree;type:varchar(100)" json:"degree"`
	Experience   string  `gorm:"column:experience;type:varchar(50)" json:"experience"`
	About        string  `gorm:"column:about;type:text" json:"about"`
	Fees         float64 `gorm:"column:fees;not null" json:"fees"`
	Address      string  `gorm:"column:address;type:text" json:"address"`

	Available   bool                           `gorm:"column:available;not null;default:true" json:"available"`
	SlotsBooked datatypes.JSONType[SlotLedger] `gorm:"column:slots_booked" json:"slots_booked"`

	// Version is bumped on every ledger or availability write and guards
	// the conditional update that commits a reservation.
	Version int64 `gorm:"column:version;not null;default:0" json:"-"`
}

func (Doctor) TableName() string {
	return "doctors"
}

func (d *Doctor) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.SlotsBooked.Data() == nil {
		d.SlotsBooked = datatypes.NewJSONType(SlotLedger{})
	}
	return nil
}

// Ledger returns a private, never-nil copy of the booked slots.
func (d *Doctor) Ledger() SlotLedger {
	l := d.SlotsBooked.Data()
	if l == nil {
		return SlotLedger{}
	}
	return l.Clone()
}

// Snapshot is the copy of a doctor's public profile embedded into an
// appointment at booking time. It carries neither credentials nor the ledger.
type Snapshot struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Image      string    `json:"image"`
	Speciality string    `json:"speciality"`
	Degree     string    `json:"degree"`
	Experience string    `json:"experience"`
	About      string    `json:"about"`
	Fees       float64   `json:"fees"`
	Address    string    `json:"address"`
}

func (d *Doctor) Snapshot() Snapshot {
	return Snapshot{
		ID:         d.ID,
		Name:       d.Name,
		Image:      d.Image,
		Speciality: d.Speciality,
		Degree:     d.Degree,
		Experience: d.Experience,
		About:      d.About,
		Fees:       d.Fees,
		Address:    d.Address,
	}
}

// Public strips the fields the public doctor list must not expose.
func (d Doctor) Public() Doctor {
	d.Email = ""
	d.PasswordHash = ""
	return d
}

type CreateDoctorCommand struct {
	Name       string
	Email      string
	Password   string
	Image      string
	Speciality string
	Degree     string
	Experience string
	About      string
	Fees       float64
	Address    string
}
