package pipeline

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"prealert/internal"
	"prealert/internal/config"
	"prealert/internal/master"
	"prealert/internal/storage"
)

type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
}

func NewProcessingService(db *storage.DB, cfg config.Config) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg}
}

type ProcessResult struct {
	MessageID int
	Invoices  int
	Lines     int
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	msg, err := s.db.MustMessageByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessMessage(msg)
}

func (s *ProcessingService) ProcessPending(limit int, provider string) (int, int, error) {
	pending, err := s.db.ListMessagesByStatus("fetched", limit)
	if err != nil {
		return 0, 0, err
	}
	processedMessages := 0
	processedInvoices := 0
	for _, msg := range pending {
		if provider != "" && msg.Provider != provider {
			continue
		}
		res, err := s.ProcessMessage(msg)
		if err != nil {
			return processedMessages, processedInvoices, err
		}
		processedMessages++
		processedInvoices += res.Invoices
	}
	return processedMessages, processedInvoices, nil
}

// ProcessMessage extracts the invoices from a fetched message and matches
// every line. Each PDF attachment becomes its own invoice record.
func (s *ProcessingService) ProcessMessage(msg internal.MessageRow) (ProcessResult, error) {
	raw, err := os.ReadFile(msg.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	invoices, subject, attachmentNames, err := ExtractInvoicesFromEmailRaw(raw)
	if err != nil {
		return ProcessResult{}, err
	}

	detect := DetectInvoiceEmail(firstNonEmpty(subject, msg.Subject), "", "", attachmentNames)
	if !detect.IsInvoice || len(invoices) == 0 {
		_ = s.db.UpdateMessageStatus(msg.ID, "skipped")
		return ProcessResult{MessageID: msg.ID}, nil
	}

	matcher, err := s.loadMatcher()
	if err != nil {
		return ProcessResult{}, err
	}

	totalLines := 0
	for _, inv := range invoices {
		sourceRef := firstNonEmpty(inv.Attachment, msg.MessageID)
		messageID := msg.ID
		_, lines, err := s.storeAndMatch(&messageID, msg.Provider, sourceRef, msg.RawRef, inv, matcher)
		if err != nil {
			return ProcessResult{}, err
		}
		totalLines += lines
	}

	if err := s.db.UpdateMessageStatus(msg.ID, "processed"); err != nil {
		return ProcessResult{}, err
	}
	return ProcessResult{MessageID: msg.ID, Invoices: len(invoices), Lines: totalLines}, nil
}

// ProcessInvoicePDF ingests a PDF supplied directly on disk, outside the mail
// flow, and returns the stored invoice.
func (s *ProcessingService) ProcessInvoicePDF(path string) (internal.InvoiceRow, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return internal.InvoiceRow{}, err
	}

	inv, err := ParseInvoicePDF(content)
	if err != nil {
		return internal.InvoiceRow{}, err
	}
	inv.Attachment = filepath.Base(path)

	matcher, err := s.loadMatcher()
	if err != nil {
		return internal.InvoiceRow{}, err
	}

	stored, _, err := s.storeAndMatch(nil, "file", path, path, inv, matcher)
	return stored, err
}

func (s *ProcessingService) loadMatcher() (*Matcher, error) {
	records, err := s.db.ListMasterRecords()
	if err != nil {
		return nil, err
	}
	return NewMatcher(master.BuildIndex(records)), nil
}

func (s *ProcessingService) storeAndMatch(messageID *int, provider, sourceRef, rawRef string, inv ExtractedInvoice, matcher *Matcher) (internal.InvoiceRow, int, error) {
	start := time.Now()

	stored, err := s.db.UpsertInvoice(messageID, provider, sourceRef, invoiceHash(inv), rawRef, "extracted", inv.Header)
	if err != nil {
		return internal.InvoiceRow{}, 0, err
	}
	if err := s.db.ClearInvoiceProcessing(stored.ID); err != nil {
		return internal.InvoiceRow{}, 0, err
	}

	greenCount, yellowCount, redCount := 0, 0, 0
	for i, line := range inv.Lines {
		outcome, diag := matcher.MatchLine(inv.Header.PONumber, line, i)
		lineID, err := s.db.InsertInvoiceLine(stored.ID, line)
		if err != nil {
			return internal.InvoiceRow{}, 0, err
		}
		if err := s.db.InsertOutcome(lineID, outcome, diag); err != nil {
			return internal.InvoiceRow{}, 0, err
		}

		switch outcome.Highlight {
		case internal.HighlightYellow:
			yellowCount++
		case internal.HighlightRed:
			redCount++
		default:
			greenCount++
		}
	}

	if err := s.db.UpdateInvoiceStatus(stored.ID, "matched"); err != nil {
		return internal.InvoiceRow{}, 0, err
	}
	_ = s.db.InsertRun(traceID(), stored.ID,
		map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
		map[string]int{"lines": len(inv.Lines), "green": greenCount, "yellow": yellowCount, "red": redCount})

	return stored, len(inv.Lines), nil
}

func invoiceHash(inv ExtractedInvoice) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s\n", inv.Header.PONumber, inv.Header.InvoiceNumber, inv.Header.DellOrderNo)
	for _, l := range inv.Lines {
		fmt.Fprintf(h, "%d|%s|%s|%s\n", l.LineNo, l.ItemCode, l.Quantity, l.UnitPrice)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
