package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/study-hall-api/internal/models"
)

func datePtr(raw string) *models.Date {
	d := models.MustParseDate(raw)
	return &d
}

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, models.FeeStatusPaid, DeriveStatus(0))
	assert.Equal(t, models.FeeStatusPending, DeriveStatus(1))
	assert.Equal(t, models.FeeStatusPending, DeriveStatus(500))
	assert.Equal(t, models.FeeStatusPending, DeriveStatus(-10))
}

func TestAccrualStatusNeverForcesPaid(t *testing.T) {
	assert.Equal(t, models.FeeStatusPending, AccrualStatus(models.FeeStatusPaid, 500, 500))
	assert.Equal(t, models.FeeStatusPending, AccrualStatus(models.FeeStatusPending, 0, 0))
	assert.Equal(t, models.FeeStatusPaid, AccrualStatus(models.FeeStatusPaid, -500, 500))
}

func TestAccrualEligible(t *testing.T) {
	ref := models.MustParseDate("2024-02-02")

	cases := []struct {
		name    string
		student models.Student
		want    bool
	}{
		{"never accrued", models.Student{MonthlyFee: 500}, true},
		{"exempt", models.Student{MonthlyFee: 0}, false},
		{"departed", models.Student{MonthlyFee: 500, LeftDate: datePtr("2024-01-15")}, false},
		{"empty left date is active", models.Student{MonthlyFee: 500, LeftDate: &models.Date{}}, true},
		{"stamped over a month ago", models.Student{MonthlyFee: 500, LastFeeCalculatedDate: datePtr("2024-01-01")}, true},
		{"stamped exactly a month ago", models.Student{MonthlyFee: 500, LastFeeCalculatedDate: datePtr("2024-01-02")}, false},
		{"stamped on reference date", models.Student{MonthlyFee: 500, LastFeeCalculatedDate: datePtr("2024-02-02")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AccrualEligible(tc.student, ref))
		})
	}
}

func TestNextFeeDate(t *testing.T) {
	student := models.Student{JoinDate: models.MustParseDate("2024-03-10")}
	assert.Equal(t, "2024-03-10", NextFeeDate(student).String())

	student.LastFeeCalculatedDate = datePtr("2024-03-10")
	assert.Equal(t, "2024-04-10", NextFeeDate(student).String())
}

func TestCollectionRate(t *testing.T) {
	assert.Equal(t, "0%", CollectionRate(0, 0))
	assert.Equal(t, "100%", CollectionRate(1000, 1000))
	assert.Equal(t, "50%", CollectionRate(500, 1000))
	assert.Equal(t, "33.3%", CollectionRate(1, 3))
	assert.Equal(t, "66.7%", CollectionRate(2, 3))
	assert.Equal(t, "0%", CollectionRate(0, 700))
}
