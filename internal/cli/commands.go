package cli

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dukerupert/toolshub/internal/marketplace"
	"github.com/dukerupert/toolshub/internal/model"
)

// NewRootCommand builds the toolshubctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "toolshubctl",
		Short:         "Rent and list shared tool subscriptions from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to config file (default: $XDG_CONFIG_HOME/toolshub/config.yaml)")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "Server base URL")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newLoginCommand(a),
		newLogoutCommand(a),
		newToolsCommand(a),
		newListingsCommand(a),
		newCreateListingCommand(a),
		newToggleCommand(a),
		newRentedCommand(a),
		newRentedOutCommand(a),
		newCredentialsCommand(a),
		newConnectCommand(a),
		newRentCommand(a),
		newReconcileCommand(a),
	)
	return root
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func newLoginCommand(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				p, err := readPassword(cmd)
				if err != nil {
					return err
				}
				password = p
			}
			sess, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return describe(err)
			}
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", sess.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

// readPassword prompts without echo on a terminal and reads a line
// otherwise.
func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.SessionToken != "" {
				if err := a.client.Logout(cmd.Context()); err != nil {
					a.logger.Warn("logout request failed", "error", err)
				}
			}
			a.cfg.SessionToken = ""
			if err := SaveConfig(a.configPath, Config{BaseURL: a.cfg.BaseURL, LogLevel: a.cfg.LogLevel}); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func newToolsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tool catalog and its plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.marketplace(cmd.Context())
			if err != nil {
				return err
			}
			tools, err := m.FetchTools(cmd.Context())
			if err != nil {
				return describe(err)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOOL\tNAME\tPLAN\tPLAN NAME\tSEATS\tPRICE")
			for _, t := range tools {
				for _, p := range t.Plans {
					fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%.2f\n", t.ID, t.Name, p.ID, p.Name, p.TotalUsers, p.Price)
				}
			}
			return tw.Flush()
		},
	}
}

func seats(l model.Listing) string {
	n, unlimited := marketplace.AvailableSlots(l)
	if unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d/%d", n, l.TotalUsers)
}

func newListingsCommand(a *app) *cobra.Command {
	var (
		toolID, ownerID    int64
		minPrice, maxPrice float64
		limit, offset      int
	)
	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Browse active rent listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.marketplace(cmd.Context())
			if err != nil {
				return err
			}
			f := &model.ListingFilter{Limit: limit, Offset: offset}
			if cmd.Flags().Changed("tool-id") {
				f.ToolID = &toolID
			}
			if cmd.Flags().Changed("owner-id") {
				f.OwnerID = &ownerID
			}
			if cmd.Flags().Changed("min-price") {
				f.MinPrice = &minPrice
			}
			if cmd.Flags().Changed("max-price") {
				f.MaxPrice = &maxPrice
			}
			if _, err := m.FetchRentListings(cmd.Context(), f); err != nil {
				return describe(err)
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTOOL\tPLAN\tOWNER\tPRICE\tAVAILABLE\tACTION")
			for _, c := range m.Cards() {
				lc, ok := c.(marketplace.ListingCard)
				if !ok {
					continue
				}
				l := lc.Listing
				label := lc.ActionLabel()
				if !lc.Action().Enabled {
					label = "(" + label + ")"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\t%s\t%s\n", l.ID, l.ToolName, l.PlanName, l.OwnerName, l.Price, seats(l), label)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d of %d listings\n", len(m.Listings()), m.ListingTotal())
			return nil
		},
	}
	cmd.Flags().Int64Var(&toolID, "tool-id", 0, "Only listings of this tool")
	cmd.Flags().Int64Var(&ownerID, "owner-id", 0, "Only listings by this owner")
	cmd.Flags().Float64Var(&minPrice, "min-price", 0, "Minimum price")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "Maximum price")
	cmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	return cmd
}

func newCreateListingCommand(a *app) *cobra.Command {
	var in marketplace.NewListingInput
	cmd := &cobra.Command{
		Use:   "create-listing",
		Short: "Offer seats of a tool plan for rent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.marketplace(ctx)
			if err != nil {
				return err
			}
			d, err := m.AttemptOpenListingCreation(ctx)
			if err != nil {
				return describe(err)
			}
			if d.Route == marketplace.RouteAccountLinking {
				fmt.Fprintln(a.out, "A validated Stripe account is required before you can list tools.")
				fmt.Fprintln(a.out, "Run `toolshubctl connect validate <acct_id>` or `toolshubctl connect create`.")
				return nil
			}
			if _, err := m.FetchTools(ctx); err != nil {
				return describe(err)
			}
			l, err := m.CreateListing(ctx, in)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(a.out, "Created listing %d: %s %s at %.2f\n", l.ID, l.ToolName, l.PlanName, l.Price)
			return nil
		},
	}
	cmd.Flags().Int64Var(&in.ToolID, "tool-id", 0, "Tool ID")
	cmd.Flags().Int64Var(&in.PlanID, "plan-id", 0, "Plan ID")
	cmd.Flags().Float64Var(&in.Price, "price", 0, "Price per seat")
	cmd.Flags().IntVar(&in.TotalUsers, "total-users", 0, "Number of seats")
	cmd.Flags().BoolVar(&in.UnlimitedUsers, "unlimited", false, "Unlimited seats")
	return cmd
}

func newToggleCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <listing-id>",
		Short: "Activate or deactivate one of your listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := a.marketplace(cmd.Context())
			if err != nil {
				return err
			}
			active, err := m.ToggleListingActive(cmd.Context(), id)
			if err != nil {
				return describe(err)
			}
			state := "inactive"
			if active {
				state = "active"
			}
			fmt.Fprintf(a.out, "Listing %d is now %s\n", id, state)
			return nil
		},
	}
}

func printRentals(a *app, rentals []model.RentedTool, who string) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tTOOL\tPLAN\t%s\tPRICE\tACTIVE\tCREDENTIALS\n", strings.ToUpper(who))
	for _, r := range rentals {
		party := r.RenterEmail
		if who == "listing" {
			party = strconv.FormatInt(r.ListingID, 10)
		}
		creds := "pending"
		if r.Login != nil || r.Password != nil {
			creds = "issued"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\t%t\t%s\n", r.ID, r.ToolName, r.PlanName, party, r.Price, r.IsActive, creds)
	}
	return tw.Flush()
}

func newRentedCommand(a *app) *cobra.Command {
	var (
		toolName           string
		minPrice, maxPrice float64
	)
	cmd := &cobra.Command{
		Use:   "rented",
		Short: "Tools you rent from others",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.marketplace(cmd.Context())
			if err != nil {
				return err
			}
			var f marketplace.RentedFilters
			if toolName != "" {
				f.ToolName = &toolName
			}
			if cmd.Flags().Changed("min-price") {
				f.MinPrice = &minPrice
			}
			if cmd.Flags().Changed("max-price") {
				f.MaxPrice = &maxPrice
			}
			rentals, err := m.FetchRentedByMe(cmd.Context(), &f)
			if err != nil {
				return describe(err)
			}
			return printRentals(a, rentals, "listing")
		},
	}
	cmd.Flags().StringVar(&toolName, "tool", "", "Filter by tool name")
	cmd.Flags().Float64Var(&minPrice, "min-price", 0, "Minimum price")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "Maximum price")
	return cmd
}

func newRentedOutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rented-out",
		Short: "Rentals of your listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.marketplace(cmd.Context())
			if err != nil {
				return err
			}
			rentals, err := m.FetchRentedOut(cmd.Context())
			if err != nil {
				return describe(err)
			}
			return printRentals(a, rentals, "renter")
		},
	}
}

func newCredentialsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Show or issue rental credentials",
	}

	show := &cobra.Command{
		Use:   "show <rental-id>",
		Short: "Reveal the credentials of a rental",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := a.marketplace(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := m.FetchRentedByMe(cmd.Context(), nil); err != nil {
				return describe(err)
			}
			if _, err := m.FetchRentedOut(cmd.Context()); err != nil {
				return describe(err)
			}
			creds, err := m.RevealCredentials(id)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(a.out, "Login:    %s\nPassword: %s\n", orDash(creds.Login), orDash(creds.Password))
			return nil
		},
	}

	var login, password string
	set := &cobra.Command{
		Use:   "set <rental-id>",
		Short: "Issue credentials to a renter of your listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := a.marketplace(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := m.FetchRentedOut(cmd.Context()); err != nil {
				return describe(err)
			}
			if err := m.UpdateCredentials(cmd.Context(), id, login, password); err != nil {
				return describe(err)
			}
			fmt.Fprintf(a.out, "Credentials updated for rental %d\n", id)
			return nil
		},
	}
	set.Flags().StringVar(&login, "login", "", "Login to share")
	set.Flags().StringVar(&password, "password", "", "Password to share")

	cmd.AddCommand(show, set)
	return cmd
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func newConnectCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Link a Stripe account to receive rental payments",
	}

	validate := &cobra.Command{
		Use:   "validate <account-id>",
		Short: "Link an existing Stripe account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.marketplace(cmd.Context())
			if err != nil {
				return err
			}
			if err := m.SubmitConnectAccountID(cmd.Context(), args[0]); err != nil {
				return describe(err)
			}
			fmt.Fprintln(a.out, "Stripe account validated, you can now create listings")
			return nil
		},
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a Stripe account and start onboarding",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.marketplace(cmd.Context())
			if err != nil {
				return err
			}
			return describe(m.RequestAccountProvisioning(cmd.Context()))
		},
	}

	cmd.AddCommand(validate, create)
	return cmd
}

func newRentCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rent <listing-id>",
		Short: "Start checkout for a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := a.marketplace(cmd.Context())
			if err != nil {
				return err
			}
			listings, err := m.FetchRentListings(cmd.Context(), &model.ListingFilter{Limit: 100})
			if err != nil {
				return describe(err)
			}
			for _, l := range listings {
				if l.ID == id {
					return describe(m.InitiateRentalCheckout(cmd.Context(), l))
				}
			}
			return fmt.Errorf("listing %d not found among active listings", id)
		},
	}
}

func newReconcileCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <return-url>",
		Short: "Interpret a Stripe return URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := url.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse url: %w", err)
			}
			t := terminal{out: a.out}
			rec := marketplace.NewReconciler(t, t).Run(u)
			if len(rec.Notifications) == 0 {
				fmt.Fprintln(a.out, "No payment or account status in this URL")
			}
			if rec.SessionID != "" {
				fmt.Fprintf(a.out, "Checkout session: %s\n", rec.SessionID)
			}
			return nil
		},
	}
}
