package master

import (
	"context"
	"time"

	"prealert/internal/config"
	"prealert/internal/storage"
)

// SyncService refreshes the local master reference table from the Orion API.
type SyncService struct {
	db     *storage.DB
	client *Client
}

func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg)}
}

// FullSync replaces the stored master table with the complete API export.
func (s *SyncService) FullSync(ctx context.Context) (int, error) {
	records, err := s.client.GetPOLinesScrollAll(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.ReplaceMasterRecords(records, "orion-api"); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata("master.last_full_sync", time.Now().UTC().Format(time.RFC3339))
	return len(records), nil
}

// IncrementalSync appends lines updated within the configured lookback window.
func (s *SyncService) IncrementalSync(ctx context.Context) (int, error) {
	records, err := s.client.GetPOLinesIncremental(ctx)
	if err != nil {
		return 0, err
	}
	if len(records) > 0 {
		if err := s.db.AppendMasterRecords(records, "orion-api"); err != nil {
			return 0, err
		}
	}
	_ = s.db.SetMetadata("master.last_incremental_sync", time.Now().UTC().Format(time.RFC3339))
	return len(records), nil
}
