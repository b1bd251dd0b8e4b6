package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/janiosantos/siscom-settlement/pkg/boleto"
	"github.com/janiosantos/siscom-settlement/pkg/cnab"
	"github.com/janiosantos/siscom-settlement/pkg/config"
	"github.com/janiosantos/siscom-settlement/pkg/extrato"
	"github.com/janiosantos/siscom-settlement/pkg/models"
	"github.com/janiosantos/siscom-settlement/pkg/reconcile"
	"github.com/janiosantos/siscom-settlement/pkg/report"
	"github.com/janiosantos/siscom-settlement/pkg/service"
	"github.com/janiosantos/siscom-settlement/pkg/store"
)

var (
	cfgFile  string
	debug    bool
	layout   string
	manifest string
	output   string
)

func newLogger() *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "settlement",
		Level:           level,
	})
}

var rootCmd = &cobra.Command{
	Use:   "settlement",
	Short: "Bank settlement pipeline: CNAB remittance/return and statement reconciliation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var remessaCmd = &cobra.Command{
	Use:   "remessa <manifest.yaml>",
	Short: "Issue the manifest's titles and build a CNAB remittance file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		ctx := context.Background()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		st, err := seedStore(ctx, cfg)
		if err != nil {
			return err
		}

		m, err := config.LoadManifest(args[0])
		if err != nil {
			return err
		}
		profile, slips, err := issueTitles(ctx, st, logger, m)
		if err != nil {
			return err
		}

		generatedAt := time.Now()
		var file string
		switch layout {
		case "240":
			file, err = cnab.BuildRemessa240(profile, slips, m.Sequence, generatedAt)
		case "400":
			file, err = cnab.BuildRemessa400(profile, slips, m.Sequence, generatedAt)
		default:
			return fmt.Errorf("unknown layout %q, want 240 or 400", layout)
		}
		if err != nil {
			return err
		}

		if output == "" {
			fmt.Println(file)
			return nil
		}
		if err := os.WriteFile(output, []byte(file), 0o644); err != nil {
			return err
		}
		logger.Info("remittance written", "file", output, "titles", len(slips), "layout", layout)
		return nil
	},
}

var retornoCmd = &cobra.Command{
	Use:   "retorno <file>",
	Short: "Inspect a CNAB return file: decoded events and line errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		logger := newLogger()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		detected, err := service.DetectLayout(data)
		if err != nil {
			return err
		}

		var events []cnab.SettlementEvent
		var errs []cnab.LineError
		if detected == service.Layout240 {
			events, errs = cnab.ParseRetorno240(string(data))
		} else {
			events, errs = cnab.ParseRetorno400(string(data))
		}

		if debug {
			pp.Println(events)
		}
		for _, e := range errs {
			logger.Warn("line skipped", "line", e.Line, "error", e.Err)
		}
		for _, ev := range events {
			fmt.Printf("line %d: %s nosso_numero=%s occurrence=%s value=%s\n",
				ev.Line, ev.Kind, ev.NossoNumero, ev.Occurrence, ev.PaidValue.StringFixed(2))
		}
		fmt.Printf("%d events, %d line errors (%s)\n", len(events), len(errs), detected)
		return nil
	},
}

var importarCmd = &cobra.Command{
	Use:   "importar <extrato-file>",
	Short: "Parse a statement export and show the lines it would ingest",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		logger := newLogger()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		lines, err := extrato.New(logger).ProcessBytes(data, args[0])
		if err != nil {
			return err
		}
		for _, l := range lines {
			fmt.Printf("%s;%s;%s;%s\n", l.Date.Format("02/01/2006"), l.Description, l.Document, l.Amount.StringFixed(2))
		}
		logger.Info("statement parsed", "lines", len(lines))
		return nil
	},
}

var conciliarCmd = &cobra.Command{
	Use:   "conciliar <extrato-file>",
	Short: "Ingest a statement and run automatic reconciliation",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		logger := newLogger()
		ctx := context.Background()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		st, err := seedStore(ctx, cfg)
		if err != nil {
			return err
		}
		if manifest != "" {
			m, err := config.LoadManifest(manifest)
			if err != nil {
				return err
			}
			if _, _, err := issueTitles(ctx, st, logger, m); err != nil {
				return err
			}
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		scope := cfg.ModelScope()
		if _, err := extrato.NewImporter(st, logger).Import(ctx, data, args[0], scope); err != nil {
			return err
		}

		engine := reconcile.New(st, logger)
		summary, err := engine.Automatic(ctx, scope, time.Time{}, time.Time{})
		if err != nil {
			return err
		}
		if debug {
			pp.Println(summary.Matches)
		}
		fmt.Printf("examined=%d pix=%d boleto=%d pending=%d\n",
			summary.Examined, summary.MatchedPix, summary.MatchedBoleto, summary.Pending)
		return nil
	},
}

var relatorioCmd = &cobra.Command{
	Use:   "relatorio",
	Short: "Build the period report as CSV on stdout",
	RunE: func(_ *cobra.Command, _ []string) error {
		logger := newLogger()
		ctx := context.Background()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		st, err := seedStore(ctx, cfg)
		if err != nil {
			return err
		}
		if len(cfg.Profiles) == 0 {
			return fmt.Errorf("no profiles configured")
		}
		profile, err := cfg.Profiles[0].Profile()
		if err != nil {
			return err
		}
		if manifest != "" {
			m, err := config.LoadManifest(manifest)
			if err != nil {
				return err
			}
			if _, _, err := issueTitles(ctx, st, logger, m); err != nil {
				return err
			}
		}

		engine := reconcile.New(st, logger)
		facade := report.New(st, engine)
		r, err := facade.Build(ctx, profile.ID, cfg.ModelScope(), time.Time{}, time.Time{}, time.Now())
		if err != nil {
			return err
		}
		return report.WriteCSV(os.Stdout, r)
	},
}

// seedStore loads every configured profile into a fresh in-memory store.
func seedStore(ctx context.Context, cfg *config.Config) (*store.Memory, error) {
	st := store.NewMemory()
	for _, pc := range cfg.Profiles {
		profile, err := pc.Profile()
		if err != nil {
			return nil, err
		}
		if err := st.SaveProfile(ctx, profile); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// issueTitles issues every manifest title under its profile and returns
// the profile plus the slips in manifest order.
func issueTitles(ctx context.Context, st *store.Memory, logger *log.Logger, m *config.RemessaManifest) (*models.BankAccountProfile, []*models.BankSlip, error) {
	profileID, err := uuidParse(m.ProfileID)
	if err != nil {
		return nil, nil, err
	}
	profile, err := st.ProfileByID(ctx, profileID)
	if err != nil {
		return nil, nil, fmt.Errorf("manifest profile %s: %w", m.ProfileID, err)
	}

	issuer := boleto.NewIssuer(st, logger)
	slips := make([]*models.BankSlip, 0, len(m.Titles))
	for _, t := range m.Titles {
		req, err := t.IssueRequest()
		if err != nil {
			return nil, nil, err
		}
		slip, err := issuer.Issue(ctx, profileID, req)
		if err != nil {
			return nil, nil, err
		}
		slips = append(slips, slip)
	}
	return profile, slips, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is settlement.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug logging and event dumps")

	remessaCmd.Flags().StringVar(&layout, "layout", "240", "CNAB layout: 240 or 400")
	remessaCmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	conciliarCmd.Flags().StringVar(&manifest, "manifest", "", "Remittance manifest to seed slips from")
	relatorioCmd.Flags().StringVar(&manifest, "manifest", "", "Remittance manifest to seed slips from")

	rootCmd.AddCommand(remessaCmd)
	rootCmd.AddCommand(retornoCmd)
	rootCmd.AddCommand(importarCmd)
	rootCmd.AddCommand(conciliarCmd)
	rootCmd.AddCommand(relatorioCmd)
}

func uuidParse(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid profile id %q: %w", s, err)
	}
	return id, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
