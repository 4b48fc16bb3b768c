// Package cli implements the read-only operator commands of cmd/app.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/Drasasse/gestion-commerce-sub001/internal/app"
	"github.com/Drasasse/gestion-commerce-sub001/internal/core"
)

// ErrViolations is returned by the check command when the boutique is inconsistent.
var ErrViolations = errors.New("invariants violated")

// operator is the identity CLI commands run under. Shell access to the
// database host already implies full access, so it is an administrator.
var operator = core.Principal{Role: core.RoleAdmin}

const usage = `Usage: app <command> --boutique <id> [options]

Commands:
  stock    [--low]                       stock levels
  sales    [--status S] [--from D] [--to D]  sales list with outstanding amount
  report   monthly [--year Y]            monthly revenue / expenses / capital
  report   balance [--from D] [--to D]   capital ledger statement
  report   dashboard                     today and month-to-date figures
  check                                  audit stored totals and statuses`

// Run executes a one-shot command. args is os.Args[1:]; the first element is the command.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	cmd, rest := args[0], args[1:]

	var sub string
	if cmd == "report" {
		if len(rest) == 0 {
			return errors.New("report: missing kind (monthly, balance, dashboard)")
		}
		sub, rest = rest[0], rest[1:]
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	boutique := fs.Int("boutique", 0, "boutique id")
	low := fs.Bool("low", false, "only products at or below their alert threshold")
	status := fs.String("status", "", "payment status filter")
	from := fs.String("from", "", "first day, YYYY-MM-DD")
	to := fs.String("to", "", "last day, YYYY-MM-DD")
	year := fs.Int("year", 0, "calendar year")
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	if *boutique <= 0 {
		return fmt.Errorf("%s: --boutique is required", cmd)
	}

	switch cmd {
	case "stock", "st":
		res, err := svc.GetStockLevels(ctx, operator, *boutique, core.StockFilter{LowStockOnly: *low})
		if err != nil {
			return err
		}
		printStock(out, res)

	case "sales":
		res, err := svc.ListSales(ctx, operator, *boutique, app.SaleQuery{Status: *status, From: *from, To: *to})
		if err != nil {
			return err
		}
		printSales(out, res)

	case "report", "rep":
		switch sub {
		case "monthly":
			res, err := svc.MonthlySummary(ctx, operator, *boutique, *year)
			if err != nil {
				return err
			}
			printMonthly(out, res)
		case "balance", "bal":
			res, err := svc.BalanceStatement(ctx, operator, *boutique, *from, *to)
			if err != nil {
				return err
			}
			printBalance(out, res)
		case "dashboard":
			res, err := svc.Dashboard(ctx, operator, *boutique)
			if err != nil {
				return err
			}
			printDashboard(out, res)
		default:
			return fmt.Errorf("unknown report: %s", sub)
		}

	case "check":
		res, err := svc.CheckInvariants(ctx, operator, *boutique)
		if err != nil {
			return err
		}
		if res.OK() {
			fmt.Fprintf(out, "Boutique %d : aucune incohérence.\n", res.BoutiqueID)
			return nil
		}
		for _, v := range res.Violations {
			fmt.Fprintln(out, "  "+v.String())
		}
		return fmt.Errorf("%w: %d", ErrViolations, len(res.Violations))

	default:
		return fmt.Errorf("unknown command: %s\n%s", cmd, usage)
	}
	return nil
}

func rule(out io.Writer, n int) { fmt.Fprintln(out, strings.Repeat("-", n)) }

func printStock(out io.Writer, res *app.StockResult) {
	fmt.Fprintf(out, "\nSTOCK  boutique %d  (%d en alerte)\n", res.BoutiqueID, res.LowCount)
	rule(out, 64)
	fmt.Fprintf(out, "%-30s %-16s %8s %6s\n", "PRODUIT", "CATEGORIE", "QTE", "SEUIL")
	rule(out, 64)
	for _, s := range res.Levels {
		mark := ""
		if s.IsLow {
			mark = " !"
		}
		fmt.Fprintf(out, "%-30s %-16s %8d %6d%s\n", s.ProductName, s.CategoryName, s.Quantity, s.AlertThreshold, mark)
	}
	rule(out, 64)
}

func printSales(out io.Writer, res *app.SaleListResult) {
	fmt.Fprintf(out, "\nVENTES  boutique %d\n", res.BoutiqueID)
	rule(out, 72)
	fmt.Fprintf(out, "%-10s %-12s %14s %14s %-8s\n", "NUMERO", "DATE", "TOTAL", "RESTE", "STATUT")
	rule(out, 72)
	for _, s := range res.Sales {
		fmt.Fprintf(out, "%-10s %-12s %14s %14s %-8s\n", s.Number, s.CreatedAt.Format("2006-01-02"),
			s.AmountTotal.StringFixed(2), s.AmountRemaining.StringFixed(2), s.Status)
	}
	rule(out, 72)
	fmt.Fprintf(out, "%-23s %29s\n", "Reste à encaisser", res.Outstanding.StringFixed(2))
}

func printMonthly(out io.Writer, res *core.MonthlySummary) {
	fmt.Fprintf(out, "\nSYNTHESE %d\n", res.Year)
	rule(out, 66)
	fmt.Fprintf(out, "%-6s %14s %14s %14s %14s\n", "MOIS", "RECETTES", "DEPENSES", "CAPITAL", "NET")
	rule(out, 66)
	for _, m := range res.Months {
		fmt.Fprintf(out, "%-6d %14s %14s %14s %14s\n", m.Month, m.Revenue.StringFixed(2),
			m.Expenses.StringFixed(2), m.Capital.StringFixed(2), m.Net.StringFixed(2))
	}
	rule(out, 66)
	t := res.Totals
	fmt.Fprintf(out, "%-6s %14s %14s %14s %14s\n", "TOTAL", t.Revenue.StringFixed(2),
		t.Expenses.StringFixed(2), t.Capital.StringFixed(2), t.Net.StringFixed(2))
}

func printBalance(out io.Writer, res *core.BalanceStatement) {
	fmt.Fprintln(out, "\nRELEVE DE CAPITAL")
	rule(out, 80)
	fmt.Fprintf(out, "%-50s %14s\n", "Solde d'ouverture", res.OpeningBalance.StringFixed(2))
	for _, l := range res.Lines {
		fmt.Fprintf(out, "%-12s %-20s %-16.16s %14s %14s\n", l.OccurredAt.Format("2006-01-02"), l.Type,
			l.Description, l.Effect.StringFixed(2), l.Balance.StringFixed(2))
	}
	fmt.Fprintf(out, "%-50s %14s\n", "Solde de clôture", res.ClosingBalance.StringFixed(2))
	rule(out, 80)
}

func printDashboard(out io.Writer, d *core.Dashboard) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Ventes du jour       : %d (%s)\n", d.TodaySalesCount, d.TodaySalesAmount.StringFixed(2))
	fmt.Fprintf(out, "Recettes du mois     : %s\n", d.MonthRevenue.StringFixed(2))
	fmt.Fprintf(out, "Dépenses du mois     : %s\n", d.MonthExpenses.StringFixed(2))
	fmt.Fprintf(out, "Solde                : %s\n", d.Balance.StringFixed(2))
	fmt.Fprintf(out, "Créances             : %s\n", d.Receivables.StringFixed(2))
	fmt.Fprintf(out, "Produits en alerte   : %d\n", d.LowStockCount)
}
