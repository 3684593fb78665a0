package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"concierge/internal/backup"
	"concierge/internal/briefing"
	"concierge/internal/contacts"
	"concierge/internal/ics"
	appLog "concierge/internal/log"
	"concierge/internal/store"
)

var outPath string

var briefingCmd = &cobra.Command{
	Use:   "briefing",
	Short: "Print today's briefing",
	Args:  cobra.NoArgs,
	RunE:  runBriefing,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the household state as JSON",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the household state with a JSON export",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Exchange events as iCalendar",
}

var calendarExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write household events as .ics",
	Args:  cobra.NoArgs,
	RunE:  runCalendarExport,
}

var calendarImportCmd = &cobra.Command{
	Use:   "import <file.ics>",
	Short: "Add the events of an .ics file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalendarImport,
}

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Exchange contacts as CSV",
}

var contactsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write contacts as CSV",
	Args:  cobra.NoArgs,
	RunE:  runContactsExport,
}

var contactsImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Add the contacts of a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE:  runContactsImport,
}

func init() {
	for _, c := range []*cobra.Command{exportCmd, calendarExportCmd, contactsExportCmd} {
		c.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default stdout)")
	}
	calendarCmd.AddCommand(calendarExportCmd, calendarImportCmd)
	contactsCmd.AddCommand(contactsExportCmd, contactsImportCmd)
	rootCmd.AddCommand(briefingCmd, exportCmd, importCmd, calendarCmd, contactsCmd)
}

// withStore loads config, opens the store and runs fn against it.
func withStore(cmd *cobra.Command, fn func(*store.Store, *session) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(st, &session{cmd: cmd, loc: cfg.Location(), buffer: cfg.TravelBuffer()})
}

type session struct {
	cmd    *cobra.Command
	loc    *time.Location
	buffer time.Duration
}

func (e *session) write(body string) error {
	if outPath == "" {
		_, err := io.WriteString(e.cmd.OutOrStdout(), body)
		return err
	}
	if err := os.WriteFile(outPath, []byte(body), 0o600); err != nil {
		return err
	}
	appLog.Info("export written", "path", outPath, "bytes", len(body))
	return nil
}

func runBriefing(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(st *store.Store, env *session) error {
		snap := st.Snapshot()
		buffer := env.buffer
		if snap.Settings.TravelBufferMinutes > 0 {
			buffer = time.Duration(snap.Settings.TravelBufferMinutes) * time.Minute
		}
		b := briefing.Build(snap, time.Now(), env.loc, buffer)
		_, err := fmt.Fprintln(cmd.OutOrStdout(), renderBriefing(b, env.loc))
		return err
	})
}

func runExport(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(st *store.Store, env *session) error {
		data, err := backup.Export(st.Snapshot())
		if err != nil {
			return err
		}
		return env.write(string(data) + "\n")
	})
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	state, err := backup.Import(data)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return withStore(cmd, func(st *store.Store, env *session) error {
		if err := st.Replace(cmd.Context(), state); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "imported", args[0])
		return nil
	})
}

func runCalendarExport(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(st *store.Store, env *session) error {
		return env.write(ics.EncodeEvents(st.Snapshot().Events, ics.EncodeOptions{Location: env.loc}))
	})
}

func runCalendarImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	return withStore(cmd, func(st *store.Store, env *session) error {
		parsed, err := ics.ParseICS(ics.Source{ID: args[0]}, data)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		n, err := st.ImportEvents(cmd.Context(), ics.ToEvents(parsed, env.loc))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d events\n", n)
		return nil
	})
}

func runContactsExport(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(st *store.Store, env *session) error {
		return env.write(contacts.Encode(st.Snapshot().Contacts) + "\n")
	})
}

func runContactsImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	return withStore(cmd, func(st *store.Store, env *session) error {
		n, err := st.ImportContacts(cmd.Context(), contacts.Decode(string(data)))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d contacts\n", n)
		return nil
	})
}
