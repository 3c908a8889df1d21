package models

import "time"

// FeeStatus is the derived payment label of a student's ledger.
type FeeStatus string

const (
	FeeStatusPaid    FeeStatus = "Paid"
	FeeStatusPending FeeStatus = "Pending"
)

// Student is a member occupying a paid cabin in a study hall.
type Student struct {
	ID                    string    `db:"id" json:"id"`
	Name                  string    `db:"name" json:"name"`
	Cabin                 string    `db:"cabin" json:"cabin"`
	Hall                  string    `db:"hall" json:"hall"`
	Phone                 string    `db:"phone" json:"phone"`
	FeePaid               int64     `db:"fee_paid" json:"feePaid"`
	FeeDue                int64     `db:"fee_due" json:"feeDue"`
	Status                FeeStatus `db:"status" json:"status"`
	JoinDate              Date      `db:"join_date" json:"joinDate"`
	LeftDate              *Date     `db:"left_date" json:"leftDate"`
	MonthlyFee            int64     `db:"monthly_fee" json:"monthlyFee"`
	LastFeeCalculatedDate *Date     `db:"last_fee_calculated_date" json:"lastFeeCalculatedDate"`
	CreatedAt             time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time `db:"updated_at" json:"updatedAt"`
}

// Active reports whether the student has not departed. An empty stored left date counts as active.
func (s Student) Active() bool {
	return s.LeftDate == nil || s.LeftDate.IsZero()
}

// LastAccrual returns the last accrual stamp and whether one exists.
func (s Student) LastAccrual() (Date, bool) {
	if s.LastFeeCalculatedDate == nil || s.LastFeeCalculatedDate.IsZero() {
		return Date{}, false
	}
	return *s.LastFeeCalculatedDate, true
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Hall      string
	Status    FeeStatus
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AccrualUpdate is a conditional ledger write: it only lands when the stored
// record still matches PrevFeeDue and is still eligible as of Cutoff.
type AccrualUpdate struct {
	StudentID     string
	PrevFeeDue    int64
	NewFeeDue     int64
	MonthlyFee    int64
	Status        FeeStatus
	ReferenceDate Date
	Cutoff        Date
}

// PaymentUpdate is a conditional ledger write recording a manual payment.
type PaymentUpdate struct {
	StudentID  string
	PrevFeeDue int64
	NewFeeDue  int64
	Amount     int64
	Status     FeeStatus
}
