package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"prealert/internal/config"
	"prealert/internal/connectors"
	gmailconnector "prealert/internal/connectors/gmail"
	imapconnector "prealert/internal/connectors/imap"
	"prealert/internal/listener"
	"prealert/internal/master"
	"prealert/internal/pipeline"
	"prealert/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "master:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "master xlsx path")
		headerRow := fs.Int("headerRow", cfg.MasterHeaderRow, "1-based header row in the sheet")
		replace := fs.Bool("replace", true, "replace the stored table instead of appending")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		records, err := master.LoadXLSX(*file, *headerRow)
		must(err)
		if *replace {
			must(db.ReplaceMasterRecords(records, "xlsx:"+filepath.Base(*file)))
		} else {
			must(db.AppendMasterRecords(records, "xlsx:"+filepath.Base(*file)))
		}
		fmt.Printf("master import done records=%d file=%s\n", len(records), *file)
	case "master:sync":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		mode := fs.String("mode", "full", "full|incremental")
		_ = fs.Parse(os.Args[2:])
		svc := master.NewSyncService(db, cfg)
		var count int
		switch *mode {
		case "full":
			count, err = svc.FullSync(context.Background())
		case "incremental":
			count, err = svc.IncrementalSync(context.Background())
		default:
			err = fmt.Errorf("unsupported sync mode: %s", *mode)
		}
		must(err)
		fmt.Printf("master sync complete mode=%s records=%d\n", *mode, count)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewProcessingService(db, cfg)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(*provider, *messageID)
			must(err)
			fmt.Printf("processed message id=%d invoices=%d lines=%d\n", res.MessageID, res.Invoices, res.Lines)
			return
		}
		processedMessages, processedInvoices, err := processor.ProcessPending(*batch, *provider)
		must(err)
		fmt.Printf("processed pending messages=%d invoices=%d\n", processedMessages, processedInvoices)
	case "invoice:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "invoice pdf path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		processor := pipeline.NewProcessingService(db, cfg)
		inv, err := processor.ProcessInvoicePDF(*file)
		must(err)
		fmt.Printf("processed invoice id=%d po=%s invoiceNo=%s\n", inv.ID, inv.Header.PONumber, inv.Header.InvoiceNumber)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		invoiceID := fs.Int("invoiceId", 0, "internal invoice id")
		out := fs.String("out", "", "output xlsx path")
		ets := fs.String("ets", listener.DefaultETS(), "ETS date dd/mm/yyyy")
		_ = fs.Parse(os.Args[2:])
		if *invoiceID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--invoiceId and --out are required"))
		}
		inv, err := db.GetInvoiceByID(*invoiceID)
		must(err)
		if inv == nil {
			must(fmt.Errorf("invoice not found: id=%d", *invoiceID))
		}
		items, err := db.GetInvoiceLines(*invoiceID)
		must(err)
		if len(items) == 0 {
			must(fmt.Errorf("no matched lines for invoiceId=%d", *invoiceID))
		}
		batch := pipeline.BatchContext{ETS: *ets, UOM: cfg.DefaultUOM}
		must(pipeline.ExportPreAlertXLSX(inv.Header, items, batch, *out))
		must(db.UpdateInvoiceStatus(*invoiceID, "exported"))
		fmt.Printf("exported %d rows to %s\n", len(items), *out)
	case "mail:listen":
		s := listener.NewService(db, cfg)
		must(s.Run(context.Background()))
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		masterPath := fs.String("master", "", "master xlsx path")
		headerRow := fs.Int("headerRow", cfg.MasterHeaderRow, "1-based header row in the master sheet")
		inType := fs.String("type", "pdf", "pdf|text")
		outputDir := fs.String("outputDir", cfg.OutputDir, "directory for the workbooks")
		ets := fs.String("ets", listener.DefaultETS(), "ETS date dd/mm/yyyy")
		_ = fs.Parse(os.Args[2:])
		inputs := fs.Args()
		if strings.TrimSpace(*masterPath) == "" || len(inputs) == 0 {
			must(fmt.Errorf("--master and at least one invoice input are required"))
		}
		batch := pipeline.BatchContext{ETS: *ets, UOM: cfg.DefaultUOM}
		written, err := pipeline.RunOneShot(*masterPath, *headerRow, *inType, inputs, batch, *outputDir)
		must(err)
		for _, p := range written {
			fmt.Printf("wrote %s\n", p)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func usage() {
	fmt.Println("usage: prealert <command>")
	fmt.Println("commands:")
	fmt.Println("  master:import --file=./master.xlsx [--headerRow=9] [--replace=true]")
	fmt.Println("  master:sync --mode=full|incremental")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process --provider=gmail|imap [--messageId=...] [--batch=20]")
	fmt.Println("  invoice:process --file=./invoice.pdf")
	fmt.Println("  export:xlsx --invoiceId=1 --out=./out/prealert.xlsx [--ets=dd/mm/yyyy]")
	fmt.Println("  mail:listen")
	fmt.Println("  run --master=./master.xlsx [--type=pdf|text] [--outputDir=./out] invoice1.pdf [invoice2.pdf ...]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
