package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"hostel-portal/internal/apiclient"
	"hostel-portal/internal/audit"
	"hostel-portal/internal/export"
	"hostel-portal/internal/models"
	"hostel-portal/internal/reports"
	"hostel-portal/internal/services"
	"hostel-portal/internal/session"
	"hostel-portal/internal/workflow"

	"golang.org/x/term"
)

const usage = `Usage: hostelctl <command> -email <admin email> [-password <password>] [-api <url>] [flags]

Commands:
  bookings                     list bookings
  approve|reject -id <id>      decide a pending booking
  confirm|cancel -id <id>      confirm or cancel a pending payment
  report [-format csv|html] [-out <file>]
                               write the hostel report

Status changes are published to -amqp (default $AMQP_URL) when it is set.
`

// Swapped in tests.
var (
	newPublisher = audit.NewAMQPPublisher
	createReport = func(name string) (io.WriteCloser, error) { return os.Create(name) }
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("missing command")
	}
	command := args[0]

	fs := flag.NewFlagSet("hostelctl "+command, flag.ContinueOnError)
	fs.SetOutput(stderr)

	apiURL := fs.String("api", os.Getenv("API_BASE_URL"), "Backend base URL")
	email := fs.String("email", "", "Admin email")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	timeout := fs.Duration("timeout", 15*time.Second, "Per-request timeout")
	id := fs.Int64("id", 0, "Booking id")
	format := fs.String("format", "csv", "Report format: csv or html")
	out := fs.String("out", "", "Report file (default stdout)")
	amqpURL := fs.String("amqp", os.Getenv("AMQP_URL"), "RabbitMQ URL for audit events (empty disables them)")
	auditQueue := fs.String("audit-queue", os.Getenv("AUDIT_QUEUE"), "Audit queue name")

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	var action workflow.Action
	switch command {
	case "bookings", "report":
	default:
		a, ok := workflow.LookupAny(command)
		if !ok {
			fmt.Fprint(stdout, usage)
			return fmt.Errorf("unknown command %q", command)
		}
		if *id <= 0 {
			return fmt.Errorf("missing required flags: id")
		}
		action = a
	}
	if command == "report" && *format != "csv" && *format != "html" {
		return fmt.Errorf("unknown report format %q", *format)
	}

	if *email == "" {
		fmt.Fprint(stdout, usage)
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout) // Print newline after password input
	}

	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	set := services.NewSet(apiclient.New(*apiURL, *timeout), os.Getenv("BOOKING_STATUS_METHOD"))
	holder := session.NewHolder(
		session.Deps{Auth: set.Auth, Profiles: set.Students, Logger: logger},
		session.NewMemoryStore(session.Persisted{}),
		session.Persisted{},
	)

	ctx := context.Background()
	resp, err := holder.Login(ctx, *email, password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	if resp.Role != models.RoleAdmin {
		return fmt.Errorf("%s is not an admin account", *email)
	}
	ctx = holder.Context(ctx)

	switch command {
	case "bookings":
		bookings, err := set.Bookings.List(ctx)
		if err != nil {
			return fmt.Errorf("list bookings: %w", err)
		}
		return printBookings(stdout, bookings)
	case "report":
		return writeReport(ctx, set, *format, *out, stdout)
	default:
		publisher := newPublisher(*amqpURL, *auditQueue, logger)
		processor := workflow.NewProcessor(set.Bookings, publisher, logger)
		actor := "hostelctl:" + *email
		bookings, err := processor.Apply(ctx, workflow.Request{Owner: actor, Actor: actor, ID: *id, Action: action})
		if err != nil {
			return fmt.Errorf("%s booking %d: %w", action.Name, *id, err)
		}
		status := "?"
		for _, b := range bookings {
			if b.ID == *id {
				status = b.Status.Label()
			}
		}
		fmt.Fprintf(stdout, "Booking %d is now %s\n", *id, status)
		return nil
	}
}

func printBookings(w io.Writer, bookings []models.Booking) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTUDENT\tHOSTEL\tROOM\tSTATUS\tPAYMENT")
	for _, b := range bookings {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, dash(b.StudentName), dash(b.HostelName), dash(b.RoomNumber),
			b.Status.Label(), reports.PaymentStatusOf(b))
	}
	return tw.Flush()
}

func writeReport(ctx context.Context, set *services.Set, format, out string, stdout io.Writer) error {
	hostels, err := set.Hostels.List(ctx)
	if err != nil {
		return fmt.Errorf("list hostels: %w", err)
	}
	rooms, err := set.Rooms.List(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	bookings, err := set.Bookings.List(ctx)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}
	report := reports.Build(hostels, rooms, bookings, time.Now())

	if out == "" {
		if err := encodeReport(stdout, format, report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		return nil
	}

	f, err := createReport(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := encodeReport(f, format, report); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}
	fmt.Fprintf(stdout, "Report written to %s\n", out)
	return nil
}

func encodeReport(w io.Writer, format string, report reports.Report) error {
	if format == "html" {
		return export.WriteHTML(w, report, false)
	}
	return export.WriteCSV(w, report)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func readPassword(stdin io.Reader) (string, error) {
	// Check if stdin is a terminal
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
