package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Urientropy/centavo/apiclient"
	"github.com/Urientropy/centavo/app"
	"github.com/Urientropy/centavo/auth"
	"github.com/Urientropy/centavo/finance"
	"github.com/Urientropy/centavo/internal/config"
	clienterrors "github.com/Urientropy/centavo/internal/errors"
	"github.com/Urientropy/centavo/production"
	"github.com/Urientropy/centavo/resources"
	"github.com/spf13/cobra"
)

type cli struct {
	cfg        config.Config
	out        io.Writer
	verbose    bool
	app        *app.App
	nav        *terminalNavigator
	appOptions []app.Option
}

func newCLI(cfg config.Config, out io.Writer, options ...app.Option) *cli {
	return &cli{
		cfg:        cfg,
		out:        out,
		nav:        &terminalNavigator{Router: auth.NewRouter(auth.RouteDashboard), out: out},
		appOptions: options,
	}
}

// application builds the app on first use, after flags are parsed.
func (c *cli) application(ctx context.Context) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	options := c.appOptions
	if c.verbose {
		options = append(options, app.WithClientOptions(apiclient.WithTrace(c.trace)))
	}
	a, err := app.New(ctx, c.cfg, c.nav, options...)
	if err != nil {
		return nil, err
	}
	if !a.Auth.IsAuthenticated() {
		c.nav.Router = auth.NewRouter(auth.RouteLogin)
	}
	c.app = a
	return a, nil
}

func (c *cli) close() {
	if c.app != nil {
		_ = c.app.Close()
	}
}

func (c *cli) trace(method, path string, status int, elapsed time.Duration) {
	displayMethod := method
	if color, ok := methodColors[method]; ok {
		displayMethod = color + fmt.Sprintf(" %-7s", method) + ResetColor
	}
	fmt.Fprintf(c.out, "[%s] %s %s%d%s %s\n", displayMethod, path, statusColor(status), status, ResetColor, Gray+elapsed.Round(time.Millisecond).String()+ResetColor)
}

// terminalNavigator tells the user when the session ends.
type terminalNavigator struct {
	*auth.Router
	out io.Writer
}

func (n *terminalNavigator) Navigate(to auth.Route) {
	if to == auth.RouteLogin && n.CurrentRoute() != auth.RouteLogin {
		fmt.Fprintln(n.out, "Session ended. Run `centavo login` to sign in again.")
	}
	n.Router.Navigate(to)
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "centavo",
		Short:         "Command line client for the Centavo inventory and finance API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			displayAppname(c.out, c.cfg.GetAppName())
			return cmd.Help()
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "print every HTTP exchange")

	root.AddCommand(
		newLoginCmd(c),
		newRegisterCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newMaterialsCmd(c),
		newBatchesCmd(c),
		newProductsCmd(c),
		newProductionCmd(c),
		newEntriesCmd(c, finance.Incomes, "income"),
		newEntriesCmd(c, finance.Expenses, "expense"),
		newEnvCmd(),
	)
	return root
}

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the supported environment variables",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.Usage())
		},
	}
}

// listFlags are the flags shared by every list command.
type listFlags struct {
	page   int
	search string
	order  string
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.page, "page", "p", 1, "page to show")
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "search term")
	cmd.Flags().StringVarP(&f.order, "order", "o", "", `ordering, e.g. "name" or "-date"`)
}

// fetch applies the flags to store and loads the page.
func fetch[T any](ctx context.Context, store *resources.Store[T], f listFlags) error {
	if f.order != "" {
		store.UseOrdering(f.order)
	}
	if err := store.FetchList(ctx, f.page, f.search); err != nil {
		return err
	}
	return store.State().Err
}

// describeError renders server and validation errors for the terminal.
func describeError(err error) string {
	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	if shortage, ok := production.AsStockShortage(err); ok {
		return fmt.Sprintf("%s (required %s, available %s)", shortage.Detail, shortage.QuantityRequired, shortage.QuantityAvailable)
	}
	if errors.Is(err, clienterrors.ErrNoRefreshToken) || errors.Is(err, clienterrors.ErrNotLoggedIn) {
		return "not signed in, run `centavo login`"
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message()
		if msg == "" {
			msg = fmt.Sprintf("server answered %d", apiErr.StatusCode)
		}
		if errors.Is(err, clienterrors.ErrUnauthorized) && apiErr.Path != apiclient.PathLogin {
			msg += ", run `centavo login`"
		}
		return msg
	}
	return err.Error()
}
