package models

import "time"

// JobLock marks one run of a scheduled job as claimed, so a job scheduled on
// several replicas executes once. RunKey identifies the run (the day, for a daily job).
type JobLock struct {
	ID         uint      `gorm:"primaryKey"`
	Job        string    `gorm:"uniqueIndex:idx_job_run;size:100;not null"`
	RunKey     string    `gorm:"uniqueIndex:idx_job_run;size:64;not null"`
	Owner      string    `gorm:"size:100"`
	AcquiredAt time.Time `gorm:"not null"`
}

func (JobLock) TableName() string { return "job_locks" }
