package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/moneyxfer/internal/client/api"
	"github.com/dmitrijs2005/moneyxfer/internal/client/services"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var transactionHeader = []string{"Timestamp", "Sender", "Recipient", "Amount", "Status", "Broadcasted", "Block Hash", "Eth Hash"}

func (a *App) Home(ctx context.Context) error {
	a.printer.Header("Welcome to MyFinanceApp")
	a.printer.Println("Manage your money easily!")
	a.printer.Println("  send          Send Money")
	a.printer.Println("  balance       Check Balance")
	a.printer.Println("  transactions  Transaction History")
	return nil
}

// SendMoney is the transfer form. The sender is always the logged-in
// user; the form is unavailable without a session.
func (a *App) SendMoney(ctx context.Context) error {
	u, ok := a.session.Current().User()
	if !ok {
		a.printer.Warn("Please log in to send money")
		return services.ErrNotAuthenticated
	}

	a.printer.Header("Send Funds")
	a.printer.Println("From:", u.Email)

	recipient, err := getSimpleText(a.reader, "Recipient email", a.printer.Writer())
	if err != nil {
		return err
	}
	rawAmount, err := getSimpleText(a.reader, "Amount (e.g., 50.00)", a.printer.Writer())
	if err != nil {
		return err
	}
	broadcast, err := getConfirmation(a.reader, "Broadcast to Ethereum?", a.printer.Writer())
	if err != nil {
		return err
	}

	amount, ok := parseAmount(rawAmount)
	if recipient == "" || !ok {
		a.printer.Warn("Please fill all fields correctly")
		return nil
	}

	res, err := a.api.SendMoney(ctx, api.Transfer{
		Sender:              u.Email,
		Recipient:           recipient,
		Amount:              amount,
		BroadcastToEthereum: broadcast,
	})
	if err != nil {
		return a.reportAPIError(ctx, err, "Transaction failed")
	}

	a.printer.Success("Transaction successful!")
	if res.EthereumTxHash != "" {
		a.printer.Println("Ethereum Tx Hash:", res.EthereumTxHash)
	}
	return nil
}

// parseAmount keeps digits and dots, like the amount field of the form.
func parseAmount(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// Balance is the full ledger.
func (a *App) Balance(ctx context.Context) error {
	txs, err := a.api.Transactions(ctx)
	if err != nil {
		return a.reportAPIError(ctx, err, "Error fetching transactions.")
	}

	a.printer.Header("Transaction History")
	if len(txs) == 0 {
		a.printer.Println("No transactions found.")
		return nil
	}
	return renderTransactions(a.printer.Writer(), txs)
}

// Transactions shows everything to admins and only the user's own sent
// and received transfers to everyone else.
func (a *App) Transactions(ctx context.Context) error {
	u, ok := a.session.Current().User()
	if !ok {
		return services.ErrNotAuthenticated
	}

	txs, err := a.api.Transactions(ctx)
	if err != nil {
		return a.reportAPIError(ctx, err, "Error fetching transactions.")
	}

	if u.Role.IsAdmin() {
		a.printer.Header("All Transactions (Admin View)")
		return a.renderOrEmpty(txs)
	}

	var sent, received []api.Transaction
	for _, tx := range txs {
		if tx.Sender == u.Email {
			sent = append(sent, tx)
		}
		if tx.Recipient == u.Email {
			received = append(received, tx)
		}
	}

	a.printer.Header("Sent Transactions")
	if err := a.renderOrEmpty(sent); err != nil {
		return err
	}
	a.printer.Header("Received Transactions")
	return a.renderOrEmpty(received)
}

func (a *App) renderOrEmpty(txs []api.Transaction) error {
	if len(txs) == 0 {
		a.printer.Println("No transactions found.")
		return nil
	}
	return renderTransactions(a.printer.Writer(), txs)
}

// reportAPIError prints err for the user. A rejected credential makes the
// auth service re-read the stored session.
func (a *App) reportAPIError(ctx context.Context, err error, fallback string) error {
	var re *api.RequestError
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		a.printer.Warn("Session expired. Please log in again.")
		if rerr := a.auth.Resync(ctx); rerr != nil {
			a.log.Warn(ctx, "resync after rejected credentials failed", "error", rerr)
		}
	case errors.Is(err, api.ErrUnavailable):
		a.printer.Error(services.MsgNetworkFailure)
	case errors.As(err, &re) && re.Message != "":
		a.printer.Error(re.Message)
	default:
		a.printer.Error(fallback)
	}
	a.log.Debug(ctx, "backend call failed", "error", err)
	return err
}

func renderTransactions(w io.Writer, txs []api.Transaction) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)
	table.Header(transactionHeader)

	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		eth := tx.EthereumTxHash
		if eth == "" {
			eth = "N/A"
		}
		broadcasted := "No"
		if tx.Broadcasted {
			broadcasted = "Yes"
		}
		rows = append(rows, []string{
			tx.Timestamp.Local().Format("2006-01-02 15:04:05"),
			tx.Sender,
			tx.Recipient,
			fmt.Sprintf("%.2f", tx.Amount),
			tx.Status,
			broadcasted,
			tx.BlockHash,
			eth,
		})
	}

	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("render transactions: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render transactions: %w", err)
	}
	return nil
}
