package core

import (
	"errors"
	"math"
	"time"
)

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"

	// TierCentral marks generals registered under the central (TW) tier.
	TierCentral = "TW"
)

type (
	Status string

	// Money is an amount in whole Vietnamese đồng. Decoded amounts keep
	// their sub-đồng remainder so a sum is rounded once, not per record.
	Money struct {
		Dong int64
		rest float64
	}

	// SquareMeters is a land area.
	SquareMeters float64

	// Timestamp is a point in time as stored by the record registers.
	// Floating timestamps were written without a zone.
	Timestamp struct {
		time.Time
		floating bool
	}

	// Meta holds the fields every record kind shares.
	// A zero UpdatedAt means the record was never updated.
	Meta struct {
		ID        string    `json:"id"`
		Status    Status    `json:"Status"`
		CreatedAt Timestamp `json:"CreatedAt"`
		UpdatedAt Timestamp `json:"UpdatedAt"`
	}

	HouseRecord struct {
		Meta
		Number string `json:"SoNha"`
		Street string `json:"Duong"`
		Owner  string `json:"ChuHo"`
	}

	LandRecord struct {
		Meta
		Parcel string       `json:"SoThua"`
		Sheet  string       `json:"SoTo"`
		Area   SquareMeters `json:"Dientich"`
		Usage  string       `json:"HienTrang"`
	}

	GeneralRecord struct {
		Meta
		FullName string `json:"HoTen"`
		Rank     string `json:"CapBac"`
		Tier     string `json:"Dien"`
	}

	MeritRecord struct {
		Meta
		FullName string `json:"HoTen"`
		Kind     string `json:"DienUuDai"`
		Amount   Money  `json:"SoTien"`
	}

	MedalRecord struct {
		Meta
		FullName string `json:"HoTen"`
		Medal    string `json:"LoaiHuanChuong"`
		Amount   Money  `json:"SoTien"`
	}

	PolicyRecord struct {
		Meta
		FullName string `json:"HoTen"`
		Kind     string `json:"DienChinhSach"`
		Amount   Money  `json:"SoTien"`
	}

	SocialRecord struct {
		Meta
		FullName string `json:"HoTen"`
		Kind     string `json:"DienBaoTro"`
		Amount   Money  `json:"SoTien"`
	}

	// Dataset is the full set of collections the dashboard reports on.
	Dataset struct {
		Houses   []HouseRecord
		Lands    []LandRecord
		Generals []GeneralRecord
		Merits   []MeritRecord
		Medals   []MedalRecord
		Policies []PolicyRecord
		Socials  []SocialRecord
	}
)

// Record is implemented by every record kind through the embedded Meta.
type Record interface {
	EffectiveDate() Timestamp
	RecordStatus() Status
}

var (
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidDate   = errors.New("invalid date")
)

// EffectiveDate is the last time the record was touched: its update time
// when set, its creation time otherwise.
func (m Meta) EffectiveDate() Timestamp {
	if !m.UpdatedAt.IsZero() {
		return m.UpdatedAt
	}
	return m.CreatedAt
}

func (m Meta) RecordStatus() Status {
	return m.Status
}

func (s Status) IsActive() bool {
	return s == StatusActive
}

// At wraps t as a Timestamp.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// Resolve returns the instant t names on loc's calendar. Times that
// carried a zone are returned unchanged.
func (t Timestamp) Resolve(loc *time.Location) time.Time {
	if !t.floating || loc == nil || t.IsZero() {
		return t.Time
	}
	y, mo, d := t.Date()
	h, mi, sec := t.Clock()
	return time.Date(y, mo, d, h, mi, sec, t.Nanosecond(), loc)
}

// NewMoney converts a decoded amount, rounding to the nearest đồng.
func NewMoney(v float64) Money {
	whole := math.Round(v)
	return Money{Dong: int64(whole), rest: v - whole}
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	rest := m.rest + o.rest
	carry := math.Round(rest)
	return Money{Dong: m.Dong + o.Dong + int64(carry), rest: rest - carry}
}

// Len returns the number of records across all collections.
func (d Dataset) Len() int {
	return len(d.Houses) + len(d.Lands) + len(d.Generals) + len(d.Merits) +
		len(d.Medals) + len(d.Policies) + len(d.Socials)
}
