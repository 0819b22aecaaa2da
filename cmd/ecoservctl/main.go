// Command ecoservctl queries a running ecoserv API.
//
//	ecoservctl [-api URL] [-actor ID] list|get|delete|next-number|pdf <resource> [id]
//	ecoservctl [-api URL] dashboard [-months N]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/ecoserv/ecoserv/internal/apiclient"
	"github.com/ecoserv/ecoserv/internal/clients"
	"github.com/ecoserv/ecoserv/internal/docnum"
	"github.com/ecoserv/ecoserv/internal/equipment"
	"github.com/ecoserv/ecoserv/internal/purchaseorders"
	"github.com/ecoserv/ecoserv/internal/quotations"
	"github.com/ecoserv/ecoserv/internal/serviceorders"
	"github.com/ecoserv/ecoserv/internal/store"
	"github.com/ecoserv/ecoserv/internal/users"
)

const defaultAPI = "http://localhost:8080"

var errUsage = errors.New("usage: ecoservctl [-api URL] [-actor ID] list|get|delete|next-number|pdf <resource> [id] | dashboard [-months N]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.Default().Error("ecoservctl", slog.Any("error", err))
		os.Exit(1)
	}
}

type cli struct {
	client *apiclient.Client
	out    io.Writer
	now    func() time.Time
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ecoservctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	base := fs.String("api", envOr("ECOSERV_API", defaultAPI), "API base URL")
	actor := fs.Int64("actor", 0, "user id sent as X-Actor-ID")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	c := &cli{client: apiclient.New(*base, apiclient.WithActor(*actor)), out: out, now: time.Now}
	return c.run(ctx, fs.Args())
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if args[0] == "dashboard" {
		return c.dashboard(ctx, args[1:])
	}
	if len(args) < 2 {
		return errUsage
	}
	verb, resource, rest := args[0], args[1], args[2:]

	switch resource {
	case "clients":
		return dispatch(ctx, c, verb, c.client.Clients(), store.Keys[clients.Client]{
			ID: func(v clients.Client) int64 { return v.ID },
		}, "", rest)
	case "equipment":
		return dispatch(ctx, c, verb, c.client.Equipment(), store.Keys[equipment.Equipment]{
			ID: func(v equipment.Equipment) int64 { return v.ID },
		}, "", rest)
	case "users":
		return dispatch(ctx, c, verb, c.client.Users(), store.Keys[users.User]{
			ID: func(v users.User) int64 { return v.ID },
		}, "", rest)
	case "quotations":
		return dispatch(ctx, c, verb, c.client.Quotations(), store.Keys[quotations.Quotation]{
			ID:     func(v quotations.Quotation) int64 { return v.ID },
			Number: func(v quotations.Quotation) string { return v.Number },
		}, docnum.PrefixQuotation, rest)
	case "service-orders":
		return dispatch(ctx, c, verb, c.client.ServiceOrders(), store.Keys[serviceorders.ServiceOrder]{
			ID:     func(v serviceorders.ServiceOrder) int64 { return v.ID },
			Number: func(v serviceorders.ServiceOrder) string { return v.Number },
		}, docnum.PrefixServiceOrder, rest)
	case "purchase-orders":
		return dispatch(ctx, c, verb, c.client.PurchaseOrders(), store.Keys[purchaseorders.PurchaseOrder]{
			ID:     func(v purchaseorders.PurchaseOrder) int64 { return v.ID },
			Number: func(v purchaseorders.PurchaseOrder) string { return v.Number },
		}, docnum.PrefixPurchaseOrder, rest)
	default:
		return fmt.Errorf("unknown resource %q", resource)
	}
}

func dispatch[T any](ctx context.Context, c *cli, verb string, res *apiclient.Resource[T], keys store.Keys[T], prefix string, rest []string) error {
	s := store.New[T](res, keys)

	switch verb {
	case "list":
		items, err := s.List(ctx)
		if err != nil {
			return err
		}
		return c.print(items)
	case "next-number":
		if prefix == "" {
			return fmt.Errorf("%s have no document numbers", res.Path())
		}
		n, err := s.NextNumber(ctx, prefix, c.now())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.out, n)
		return err
	}

	if len(rest) != 1 {
		return errUsage
	}
	id, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid id %q", rest[0])
	}

	switch verb {
	case "get":
		v, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		return c.print(v)
	case "delete":
		if err := s.Delete(ctx, id); err != nil {
			return err
		}
		_, err := fmt.Fprintf(c.out, "deleted %s/%d\n", res.Path(), id)
		return err
	case "pdf":
		if prefix == "" {
			return fmt.Errorf("%s have no printable documents", res.Path())
		}
		body, err := c.client.Download(ctx, fmt.Sprintf("%s/%d/pdf", res.Path(), id))
		if err != nil {
			return err
		}
		_, err = c.out.Write(body)
		return err
	default:
		return fmt.Errorf("unknown command %q", verb)
	}
}

func (c *cli) dashboard(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	months := fs.Int("months", 6, "length of the monthly series")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	summary, err := c.client.Dashboard(ctx, *months)
	if err != nil {
		return err
	}
	return c.print(summary)
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
