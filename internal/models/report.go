package models

import "time"

// DashboardSummary is the system-wide ledger snapshot.
type DashboardSummary struct {
	TotalStudents       int   `json:"totalStudents"`
	TotalHalls          int   `json:"totalHalls"`
	ActiveStudents      int   `json:"activeStudents"`
	LeftStudents        int   `json:"leftStudents"`
	MonthlyRevenue      int64 `json:"monthlyRevenue"`
	TotalFeesCollected  int64 `json:"totalFeesCollected"`
	TotalFeesPending    int64 `json:"totalFeesPending"`
	TotalFeeAmount      int64 `json:"totalFeeAmount"`
	StudentsWithPending int   `json:"studentsWithPending"`
}

// UpcomingFee is an active fee-paying student annotated with the date of the next charge.
type UpcomingFee struct {
	Student
	NextFeeDate Date `json:"nextFeeDate"`
}

// HallFeeCollection summarises the ledger of one study hall.
type HallFeeCollection struct {
	HallID         string `json:"hallId"`
	HallName       string `json:"hallName"`
	TotalStudents  int    `json:"totalStudents"`
	FeesCollected  int64  `json:"feesCollected"`
	FeesPending    int64  `json:"feesPending"`
	TotalFeeAmount int64  `json:"totalFeeAmount"`
	CollectionRate string `json:"collectionRate"`
}

// AccrualRun records one execution of the monthly accrual.
type AccrualRun struct {
	ReferenceDate Date      `json:"referenceDate"`
	Affected      int       `json:"affectedCount"`
	Trigger       string    `json:"trigger"`
	RanAt         time.Time `json:"ranAt"`
	Duration      string    `json:"duration"`
}

const (
	AccrualTriggerManual    = "manual"
	AccrualTriggerScheduler = "scheduler"
)
