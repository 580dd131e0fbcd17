package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"prealert/internal/config"
	"prealert/internal/connectors"
	gmailconnector "prealert/internal/connectors/gmail"
	imapconnector "prealert/internal/connectors/imap"
	"prealert/internal/pipeline"
	"prealert/internal/storage"
)

type Service struct {
	db  *storage.DB
	cfg config.Config
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			fmt.Printf("listener cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.MailListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := s.makeConnector(provider)
	if err != nil {
		return err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg)
	processedMessages, processedInvoices, err := processor.ProcessPending(s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	if s.cfg.MailListenerAutoExport {
		if err := s.exportMatched(provider); err != nil {
			return err
		}
	}

	fmt.Printf("listener cycle done provider=%s fetched=%d stored=%d messages=%d invoices=%d\n",
		provider, fetchResult.Fetched, fetchResult.Stored, processedMessages, processedInvoices)
	_ = ctx
	return nil
}

func (s *Service) exportMatched(provider string) error {
	invoices, err := s.db.ListInvoicesByStatus("matched", 200)
	if err != nil {
		return err
	}

	batch := pipeline.BatchContext{ETS: DefaultETS(), UOM: s.cfg.DefaultUOM}
	for _, inv := range invoices {
		if inv.Provider != provider {
			continue
		}
		items, err := s.db.GetInvoiceLines(inv.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			continue
		}
		filename := fmt.Sprintf("%d_%s.xlsx", inv.ID, sanitizeRef(firstNonEmpty(inv.Header.InvoiceNumber, inv.SourceRef)))
		outputPath := filepath.Join(s.cfg.OutputDir, "listener", filename)
		if err := pipeline.ExportPreAlertXLSX(inv.Header, items, batch, outputPath); err != nil {
			return err
		}
		_ = s.db.UpdateInvoiceStatus(inv.ID, "exported")
	}
	return nil
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}

// DefaultETS is the shipment date written into new batches: tomorrow, in the
// dd/mm/yyyy form the upload expects.
func DefaultETS() string {
	return time.Now().AddDate(0, 0, 1).Format("02/01/2006")
}

func sanitizeRef(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
