package storage

import (
	"time"

	"github.com/uptrace/bun"

	"useretl/pkg/models"
)

// UserDao maps directly to the 'random_users' table. Username, password,
// hash and timezone offset are derived per run and are not persisted.
type UserDao struct {
	bun.BaseModel `bun:"table:random_users,alias:ru"`
	ID            int64     `bun:"id,pk,autoincrement"`
	FullName      string    `bun:"full_name,type:varchar(255)"`
	Gender        string    `bun:"gender,type:varchar(50)"`
	Email         string    `bun:"email,type:varchar(255)"`
	DOB           time.Time `bun:"dob,type:timestamp"`
	Age           int       `bun:"age,type:integer"`
	City          string    `bun:"city,type:varchar(255)"`
	State         string    `bun:"state,type:varchar(255)"`
	Country       string    `bun:"country,type:varchar(255)"`
	Phone         string    `bun:"phone,type:varchar(50)"`
	Nationality   string    `bun:"nationality,type:varchar(50)"`
}

// RunDao maps to the 'ingest_runs' audit table, one row per batch run
type RunDao struct {
	bun.BaseModel    `bun:"table:ingest_runs,alias:ir"`
	ID               int64     `bun:"id,pk,autoincrement"`
	RunID            string    `bun:"run_id,unique,notnull,type:uuid"`
	StartIndex       int       `bun:"start_index,notnull,use_zero"`
	EndIndex         int       `bun:"end_index,notnull,use_zero"`
	CheckpointBefore int       `bun:"checkpoint_before,notnull,use_zero"`
	CheckpointAfter  int       `bun:"checkpoint_after,notnull,use_zero"`
	Fetched          int       `bun:"fetched,notnull,use_zero"`
	Inserted         int       `bun:"inserted,notnull,use_zero"`
	Skipped          int       `bun:"skipped,notnull,use_zero"`
	SkippedIndices   []int64   `bun:"skipped_indices,array"`
	Policy           string    `bun:"policy,notnull,type:varchar(16)"`
	Error            *string   `bun:"error,type:text"`
	StartedAt        time.Time `bun:"started_at,notnull"`
	FinishedAt       time.Time `bun:"finished_at,notnull"`
}

// toUserDao converts a transformed user into its stored row
func toUserDao(u *models.UserInfo) *UserDao {
	return &UserDao{
		FullName:    u.FullName,
		Gender:      u.Gender,
		Email:       u.Email,
		DOB:         u.DateOfBirth,
		Age:         u.Age,
		City:        u.City,
		State:       u.State,
		Country:     u.Country,
		Phone:       u.Phone,
		Nationality: u.Nationality,
	}
}
