// Command preorderctl is a terminal client for the pre-order API: browse the
// daily menu, price and place an order, and watch orders refresh live.
//
// The API address and token come from PREORDER_URL and PREORDER_TOKEN (a .env
// file is read if present).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/preorder/cart"
	"github.com/ray-remotestate/preorder/client"
	"github.com/ray-remotestate/preorder/models"
	"github.com/ray-remotestate/preorder/poller"
)

const usage = `usage: preorderctl <command> [flags]

commands:
  menu   -date YYYY-MM-DD                      list the menu for a day
  quote  -date ... -item id[:qty] ...          price a cart
  order  -date ... -item id[:qty] ... -pickup  place an order
  watch  -view vendor|consumer                 refresh orders until interrupted
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("failed to load .env")
	}
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(getEnv("PREORDER_URL", "http://localhost:8080"), os.Getenv("PREORDER_TOKEN"), nil)

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "menu":
		err = runMenu(ctx, api, args, os.Stdout)
	case "quote":
		err = runQuote(ctx, api, args, os.Stdout)
	case "order":
		err = runOrder(ctx, api, args, os.Stdout)
	case "watch":
		err = runWatch(ctx, api, args, os.Stdout)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if errors.Is(err, client.ErrUnauthorized) {
		fmt.Fprintln(os.Stderr, "login required: set PREORDER_TOKEN to a valid access token")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// itemFlags collects repeated -item id[:qty] values.
type itemFlags []string

func (f *itemFlags) String() string { return strings.Join(*f, ",") }

func (f *itemFlags) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func parseItem(arg string) (uuid.UUID, int, error) {
	rawID, rawQty, hasQty := strings.Cut(arg, ":")
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("item %q: invalid id", arg)
	}
	qty := 1
	if hasQty {
		qty, err = strconv.Atoi(rawQty)
		if err != nil || qty < 1 {
			return uuid.Nil, 0, fmt.Errorf("item %q: quantity must be a positive number", arg)
		}
	}
	return id, qty, nil
}

// buildCart adds each requested item to a cart, one unit at a time, against
// the given menu. Items from a second vendor are rejected the same way the
// server rejects them.
func buildCart(menu []models.MenuItem, requested []string) (cart.State, error) {
	byID := make(map[uuid.UUID]models.MenuItem, len(menu))
	for _, it := range menu {
		byID[it.ID] = it
	}

	var state cart.State
	for _, arg := range requested {
		id, qty, err := parseItem(arg)
		if err != nil {
			return cart.State{}, err
		}
		item, ok := byID[id]
		if !ok {
			return cart.State{}, fmt.Errorf("item %s is not on this menu", id)
		}
		for i := 0; i < qty; i++ {
			if state, err = state.Add(cart.ItemFromMenu(item)); err != nil {
				return cart.State{}, err
			}
		}
	}
	if state.IsEmpty() {
		return cart.State{}, errors.New("at least one -item is required")
	}
	return state, nil
}

func cartFromFlags(ctx context.Context, api *client.Client, date string, items itemFlags) (cart.State, error) {
	menu, err := api.DailyMenu(ctx, date)
	if err != nil {
		return cart.State{}, err
	}
	return buildCart(menu, items)
}

func today() string {
	return time.Now().Format(models.DateLayout)
}

func runMenu(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("menu", flag.ContinueOnError)
	date := fs.String("date", today(), "offer date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	items, err := api.DailyMenu(ctx, *date)
	if err != nil {
		return err
	}
	printMenu(out, items)
	return nil
}

func runQuote(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	date := fs.String("date", today(), "offer date (YYYY-MM-DD)")
	var items itemFlags
	fs.Var(&items, "item", "menu item id[:quantity], repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	state, err := cartFromFlags(ctx, api, *date, items)
	if err != nil {
		return err
	}
	printCart(out, state)

	quote, err := api.Quote(ctx, state.Lines())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "server total: %s\n", quote.Total)
	return nil
}

func runOrder(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("order", flag.ContinueOnError)
	date := fs.String("date", today(), "offer date (YYYY-MM-DD)")
	pickup := fs.String("pickup", "30m", "pickup time (RFC3339) or delay from now (e.g. 45m)")
	var items itemFlags
	fs.Var(&items, "item", "menu item id[:quantity], repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	at, err := parsePickup(*pickup, time.Now())
	if err != nil {
		return err
	}
	state, err := cartFromFlags(ctx, api, *date, items)
	if err != nil {
		return err
	}

	order, err := api.CreateOrder(ctx, state.Lines(), at)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "order %s placed: %s, total %s, pickup %s\n",
		order.ID, order.Status, order.Total, order.PickupTime.Local().Format(time.Kitchen))
	return nil
}

func parsePickup(raw string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(raw); err == nil {
		return now.Add(d), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("pickup %q: want RFC3339 or a duration", raw)
	}
	return t, nil
}

func runWatch(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	view := fs.String("view", "consumer", "vendor (all orders) or consumer (own orders)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	interval, fetch := poller.ConsumerTrackingInterval, api.MyOrders
	switch *view {
	case "consumer":
	case "vendor":
		interval, fetch = poller.VendorDashboardInterval, api.AllOrders
	default:
		return fmt.Errorf("unknown view %q", *view)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var unauthorized bool
	p := poller.New(interval, fetch,
		poller.WithOnUpdate(func(orders []models.Order) {
			fmt.Fprintf(out, "\n%s\n", time.Now().Format(time.TimeOnly))
			printOrders(out, orders)
		}),
		poller.WithOnError[[]models.Order](func(err error) {
			logrus.WithError(err).Warn("refresh failed, showing last known orders")
		}),
		poller.WithOnUnauthorized[[]models.Order](func() {
			unauthorized = true
			cancel()
		}),
	)
	p.Start(ctx)
	<-ctx.Done()
	p.Stop()

	if unauthorized {
		return client.ErrUnauthorized
	}
	return nil
}

func printMenu(out io.Writer, items []models.MenuItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "no items on the menu")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVENDOR\tNAME\tPRICE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.VendorName, it.Name, it.Price)
	}
	tw.Flush()
}

func printCart(out io.Writer, state cart.State) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tQTY\tUNIT\tSUBTOTAL")
	for _, e := range state.Entries() {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.Item.Name, e.Quantity, e.Item.Price, e.Subtotal())
	}
	fmt.Fprintf(tw, "total\t\t\t%s\n", state.Total())
	tw.Flush()
}

func printOrders(out io.Writer, orders []models.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(out, "no orders")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tSTATUS\tPICKUP\tTOTAL\tITEMS")
	for _, o := range orders {
		names := make([]string, 0, len(o.Lines))
		for _, l := range o.Lines {
			name := l.Name
			if l.Removed {
				name = "Item removed"
			}
			names = append(names, fmt.Sprintf("%dx %s", l.Quantity, name))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.ID.String()[:8], o.Status,
			o.PickupTime.Local().Format(time.Kitchen), o.Total, strings.Join(names, ", "))
	}
	tw.Flush()
}
