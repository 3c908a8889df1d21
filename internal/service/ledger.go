package service

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/study-hall-api/internal/models"
)

var hundred = decimal.NewFromInt(100)

// DeriveStatus maps an outstanding balance to its payment label.
// Only an exactly settled balance is Paid; negative balances are Pending too.
func DeriveStatus(feeDue int64) models.FeeStatus {
	if feeDue == 0 {
		return models.FeeStatusPaid
	}
	return models.FeeStatusPending
}

// AccrualStatus is the status written by an accrual cycle. It can force Pending
// but never flips a record back to Paid.
func AccrualStatus(prev models.FeeStatus, newFeeDue, monthlyFee int64) models.FeeStatus {
	if monthlyFee > 0 && newFeeDue > 0 {
		return models.FeeStatusPending
	}
	return prev
}

// AccrualCutoff is the date a previous accrual stamp must be strictly older than.
func AccrualCutoff(referenceDate models.Date) models.Date {
	return referenceDate.AddMonths(-1)
}

// AccrualEligible reports whether a student is due a monthly charge as of referenceDate.
func AccrualEligible(student models.Student, referenceDate models.Date) bool {
	if !student.Active() || student.MonthlyFee <= 0 {
		return false
	}
	last, ok := student.LastAccrual()
	if !ok {
		return true
	}
	return last.Before(AccrualCutoff(referenceDate))
}

// NextFeeDate is the join date before the first accrual, then one month after the last one.
func NextFeeDate(student models.Student) models.Date {
	if last, ok := student.LastAccrual(); ok {
		return last.AddMonths(1)
	}
	return student.JoinDate
}

// CollectionRate renders collected/total as a percentage rounded to one decimal, "0%" when nothing is billed.
func CollectionRate(collected, total int64) string {
	if total == 0 {
		return "0%"
	}
	rate := decimal.NewFromInt(collected).Mul(hundred).Div(decimal.NewFromInt(total)).Round(1)
	return rate.String() + "%"
}
