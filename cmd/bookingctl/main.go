// bookingctl is a terminal dashboard for the booking service. It lists the
// caller's bookings and runs the transitions and payments the dashboard
// offers for them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"localserve/client"
	"localserve/config"
	"localserve/lifecycle"
	"localserve/models"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", client.UserMessage(err))
		os.Exit(1)
	}
}

type options struct {
	amount    string
	note      string
	serviceID string
	address   string
	verbose   bool
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("bookingctl", pflag.ContinueOnError)
	flagSet.String("api", "", "booking service base URL (API_BASE_URL)")
	flagSet.String("token", "", "bearer token (API_TOKEN)")
	flagSet.String("role", "", "viewer role: user, provider or admin (ROLE)")
	flagSet.String("party", "", "user or provider id of the viewer (PARTY_ID)")
	flagSet.String("checkout-url", "", "payment script checked before paying (CHECKOUT_URL)")
	flagSet.StringVar(&opts.amount, "amount", "", "amount to charge when accepting")
	flagSet.StringVar(&opts.note, "note", "", "provider note, or user note when booking")
	flagSet.StringVar(&opts.serviceID, "service", "", "service id to book")
	flagSet.StringVar(&opts.address, "address", "", "address for a new booking")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log requests to stderr")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet, stdout)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(flagSet, stdout)
		return nil
	}

	v := viper.New()
	for key, flag := range map[string]string{
		"API_BASE_URL": "api",
		"API_TOKEN":    "token",
		"ROLE":         "role",
		"PARTY_ID":     "party",
		"CHECKOUT_URL": "checkout-url",
	} {
		if err := v.BindPFlag(key, flagSet.Lookup(flag)); err != nil {
			return err
		}
	}
	if err := config.Load(v); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.AppConfig

	logger := zap.NewNop()
	if opts.verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	api, err := client.New(client.Config{
		BaseURL:    cfg.APIBaseURL,
		Token:      cfg.APIToken,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	orchestrator := client.NewOrchestrator(api, client.OrchestratorConfig{
		Loader:       scriptLoader(httpClient, cfg.CheckoutURL),
		Checkout:     client.CallbackCheckout{Widget: newTerminalWidget(stdin, stdout)},
		MerchantName: cfg.MerchantName,
	})
	dashboard := client.NewDashboard(api, client.NewGateway(api), orchestrator, cfg.Role, cfg.PartyID)

	ctx := context.Background()
	command, rest := flagSet.Arg(0), flagSet.Args()[1:]

	if command == "book" {
		return book(ctx, api, opts, stdout)
	}
	if err := dashboard.Refresh(ctx); err != nil {
		return err
	}
	if command == "list" {
		renderDashboard(stdout, dashboard)
		return nil
	}

	action, ok := commandActions[command]
	if !ok {
		return fmt.Errorf("unknown command %q", command)
	}
	if len(rest) != 1 {
		return fmt.Errorf("%s needs exactly one booking id", command)
	}
	bookingID := rest[0]

	in := lifecycle.Input{Amount: opts.amount}
	if opts.note != "" {
		in.Note = &opts.note
	}
	b, err := dashboard.Perform(ctx, bookingID, action, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s booking %s\n", successVerb(action), b.ID)
	renderBooking(stdout, *b, dashboard.Actions(b.ID))
	return nil
}

var commandActions = map[string]lifecycle.Action{
	"accept":   lifecycle.ActionAccept,
	"reject":   lifecycle.ActionReject,
	"progress": lifecycle.ActionMarkInProgress,
	"note":     lifecycle.ActionAddNote,
	"complete": lifecycle.ActionComplete,
	"pay":      lifecycle.ActionPay,
}

func successVerb(a lifecycle.Action) string {
	switch a {
	case lifecycle.ActionAccept:
		return "Accepted"
	case lifecycle.ActionReject:
		return "Rejected"
	case lifecycle.ActionMarkInProgress:
		return "Started"
	case lifecycle.ActionAddNote:
		return "Noted"
	case lifecycle.ActionComplete:
		return "Completed"
	case lifecycle.ActionPay:
		return "Paid for"
	}
	return "Updated"
}

func book(ctx context.Context, api *client.Client, opts options, stdout io.Writer) error {
	req := models.CreateBookingRequest{ServiceID: opts.serviceID, Address: opts.address}
	if note := strings.TrimSpace(opts.note); note != "" {
		req.UserNote = &note
	}
	b, err := api.CreateBooking(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Booked %s\n", b.ID)
	renderBooking(stdout, *b, nil)
	return nil
}

// scriptLoader checks that the hosted checkout script is reachable, which
// is what loading the SDK amounts to in a terminal.
func scriptLoader(httpClient *http.Client, url string) client.SDKLoader {
	return client.SDKLoaderFunc(func(ctx context.Context) error {
		if url == "" {
			return nil
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("checkout script answered %s", resp.Status)
		}
		return nil
	})
}

func printHelp(flagSet *pflag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `bookingctl: manage local service bookings from the terminal.

Usage:
  bookingctl [flags] <command> [booking id]

Commands:
  list                         show your bookings and what you can do with them
  accept <id> --amount 500     accept a booking at a price (provider)
  reject <id> [--note ...]     reject a booking (provider)
  progress <id> [--note ...]   mark a booking in progress (provider)
  note <id> --note ...         add a note without changing status (provider)
  complete <id>                complete a booking (provider)
  pay <id>                     pay for an accepted booking (user)
  book --service <id>          book a service (user)

Settings may also come from config.yaml or the environment
(API_BASE_URL, API_TOKEN, ROLE, PARTY_ID).

Flags:
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
