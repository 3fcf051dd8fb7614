package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foxzi/textry/internal/app"
	"github.com/foxzi/textry/internal/contacts"
	"github.com/foxzi/textry/internal/delimited"
	"github.com/foxzi/textry/internal/history"
	"github.com/foxzi/textry/internal/mapping"
	"github.com/foxzi/textry/internal/recipient"
	"github.com/foxzi/textry/internal/session"
	"github.com/foxzi/textry/internal/template"
	"github.com/foxzi/textry/internal/transport"
)

var (
	sendFile      string
	sendContacts  string
	sendMessage   string
	sendTemplate  string
	sendDryRun    bool
	phoneCol      int
	fullNameCol   int
	firstNameCol  int
	lastNameCol   int
	customFields  []string
	importFile    string
	importPreview int
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Run a send session from a delimited file or a contacts file",
	RunE:  runSend,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Parse a delimited file, validate the mapping and preview records",
	RunE:  runImport,
}

func init() {
	sendCmd.Flags().StringVar(&sendFile, "file", "", "delimited recipients file (CSV/TSV)")
	sendCmd.Flags().StringVar(&sendContacts, "contacts", "", "YAML contacts file")
	sendCmd.Flags().StringVarP(&sendMessage, "message", "m", "", "message text, may contain {{placeholders}}")
	sendCmd.Flags().StringVarP(&sendTemplate, "template", "t", "", "stored template name")
	sendCmd.Flags().BoolVar(&sendDryRun, "dry-run", false, "capture messages in the sandbox instead of sending")
	addMappingFlags(sendCmd)

	importCmd.Flags().StringVar(&importFile, "file", "", "delimited recipients file (CSV/TSV)")
	importCmd.Flags().IntVar(&importPreview, "preview", 5, "number of records to preview")
	addMappingFlags(importCmd)

	rootCmd.AddCommand(sendCmd, importCmd)
}

func addMappingFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&phoneCol, "phone-col", mapping.NoColumn, "phone column index")
	cmd.Flags().IntVar(&fullNameCol, "name-col", mapping.NoColumn, "full name column index")
	cmd.Flags().IntVar(&firstNameCol, "first-col", mapping.NoColumn, "first name column index")
	cmd.Flags().IntVar(&lastNameCol, "last-col", mapping.NoColumn, "last name column index")
	cmd.Flags().StringArrayVar(&customFields, "field", nil, "custom field mapping, index=name (repeatable)")
}

// buildMapping assembles the column mapping from flags.
func buildMapping() (mapping.ColumnMapping, error) {
	m := mapping.NewColumnMapping()
	m.PhoneColumn = phoneCol
	m.FullNameColumn = fullNameCol
	m.FirstNameColumn = firstNameCol
	m.LastNameColumn = lastNameCol

	for _, f := range customFields {
		parts := strings.SplitN(f, "=", 2)
		if len(parts) != 2 {
			return m, fmt.Errorf("invalid --field %q, expected index=name", f)
		}
		idx, err := strconv.Atoi(parts[0])
		if err != nil {
			return m, fmt.Errorf("invalid --field index %q", parts[0])
		}
		m.CustomFields[idx] = parts[1]
	}

	if m.HasConflict() {
		return m, fmt.Errorf("conflicting mapping: --name-col cannot be combined with --first-col/--last-col")
	}
	return m, nil
}

// loadFileRecipients parses a delimited file and builds records.
func loadFileRecipients(path string) ([]recipient.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	result, err := delimited.Parse(data)
	if err != nil {
		return nil, err
	}

	m, err := buildMapping()
	if err != nil {
		return nil, err
	}

	return mapping.BuildRecords(result.Rows, m)
}

func runSend(cmd *cobra.Command, args []string) error {
	if sendFile == "" && sendContacts == "" {
		return fmt.Errorf("either --file or --contacts is required")
	}
	if sendMessage == "" && sendTemplate == "" {
		return fmt.Errorf("either --message or --template is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := app.SetupLogger(cfg.Logging)

	var records []recipient.Record
	switch {
	case sendFile != "":
		records, err = loadFileRecipients(sendFile)
		if err != nil {
			return err
		}
	case sendContacts != "":
		source := contacts.NewFileSource(sendContacts)
		if status := source.CheckPermission(); status != contacts.Authorized {
			return fmt.Errorf("contacts access %s", status)
		}
		all, err := source.FetchAll(cmd.Context())
		if err != nil {
			return err
		}
		for _, c := range all {
			records = append(records, c.Record())
		}
	}

	if len(records) == 0 {
		return fmt.Errorf("no sendable recipients found")
	}

	db, err := app.OpenStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	templates, err := template.NewStorage(db)
	if err != nil {
		return err
	}
	hist, err := history.NewStore(db)
	if err != nil {
		return err
	}

	message := sendMessage
	personalize := false
	if sendTemplate != "" {
		tmpl, err := templates.GetByName(cmd.Context(), sendTemplate)
		if err != nil {
			return err
		}
		if tmpl == nil {
			return fmt.Errorf("template %q not found", sendTemplate)
		}
		message = tmpl.Content
		personalize = true
	}

	var tr transport.Transport
	if sendDryRun {
		tr = transport.NewSandbox(logger.With("component", "transport"))
	} else {
		tr = app.NewTransport(cfg, logger)
	}

	orch := session.NewOrchestrator(tr, cfg.Send.Delay, logger.With("component", "orchestrator"))
	orch.SetRecorder(func(tasks []session.Task) {
		entries := make([]history.Entry, 0, len(tasks))
		for _, t := range tasks {
			var status history.Status
			switch {
			case t.Status == session.StatusSent:
				status = history.StatusSent
			case t.Status == session.StatusFailed && t.FailureReason == session.CancelledReason:
				status = history.StatusCancelled
			case t.Status == session.StatusFailed:
				status = history.StatusFailed
			default:
				continue
			}
			entries = append(entries, history.Entry{
				RecipientName: t.Recipient.Name,
				Phone:         t.Recipient.Phone,
				Status:        status,
				TemplateName:  sendTemplate,
			})
		}
		if err := hist.Append(entries...); err != nil {
			logger.Error("failed to append history", "error", err)
		}
	})

	sendables := make([]recipient.Sendable, len(records))
	for i, r := range records {
		sendables[i] = r
	}

	ctx := context.Background()
	if personalize || len(template.ExtractVariables(message)) > 0 {
		orch.StartPersonalized(ctx, sendables, message)
	} else {
		orch.Start(ctx, sendables, message)
	}

	summary := orch.Summary()
	fmt.Printf("Session finished: %d total, %d sent, %d failed (%.0f%% success)\n",
		summary.Total, summary.Sent, summary.Failed, summary.SuccessRate())

	if sendDryRun {
		if sandbox, ok := tr.(*transport.Sandbox); ok {
			for _, m := range sandbox.Captured() {
				fmt.Printf("  -> %s: %s\n", m.Destination, m.Message)
			}
		}
	}

	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	if importFile == "" {
		return fmt.Errorf("--file is required")
	}

	data, err := os.ReadFile(importFile)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	result, err := delimited.Parse(data)
	if err != nil {
		return err
	}

	fmt.Printf("Delimiter: %q\n", result.Delimiter)
	fmt.Printf("Header:    %v\n", result.Header())
	fmt.Printf("Data rows: %d\n", len(result.DataRows()))

	m, err := buildMapping()
	if err != nil {
		return err
	}

	if discovered := mapping.DiscoverCustomFields(result.Header(), m); len(discovered) > 0 {
		fmt.Printf("Unmapped columns (candidate custom fields): %v\n", discovered)
	}

	if !m.IsValid() {
		fmt.Println("Mapping incomplete: set --phone-col and either --name-col or --first-col/--last-col to build records")
		return nil
	}

	records, err := mapping.BuildRecords(result.Rows, m)
	if err != nil {
		return err
	}

	fmt.Printf("Records:   %d\n", len(records))
	for i, r := range records {
		if i >= importPreview {
			fmt.Printf("  ... %d more\n", len(records)-importPreview)
			break
		}
		fmt.Printf("  %s  %s\n", r.DisplayName(), r.Phone)
	}

	return nil
}
