package ingest

import (
	"context"

	"useretl/pkg/models"
	"useretl/pkg/randomuser"
	"useretl/pkg/storage"
)

// Fetcher returns one raw user per call, or a fetch error once retries are exhausted
type Fetcher interface {
	FetchUser(ctx context.Context) (*randomuser.User, error)
}

// Store persists transformed users and the run audit row
type Store interface {
	InsertUser(ctx context.Context, user *models.UserInfo) error
	RecordRun(ctx context.Context, run *storage.RunDao) error
}

// Checkpointer persists the last successfully processed index
type Checkpointer interface {
	Read() (int, error)
	Write(index int) error
}

// Progress is notified once per attempted index
type Progress interface {
	Attempted(index int, inserted bool)
}
