package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/whisper-money/whisper-money-sub001/internal/client/services"
)

// AddAccount prompts for the account fields and creates it. The write lands
// locally right away; the server copy follows with the next sync.
func (a *App) AddAccount(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Account name", os.Stdout)
	if err != nil {
		return err
	}
	bank, err := GetSimpleText(a.reader, "Bank name", os.Stdout)
	if err != nil {
		return err
	}
	currency, err := GetSimpleText(a.reader, "Currency (e.g. EUR)", os.Stdout)
	if err != nil {
		return err
	}

	view, err := a.svc.Accounts.Create(ctx, services.AccountInput{
		Name: name, BankName: bank, Currency: currency,
	})
	if err != nil {
		a.logger.Error(ctx, "add account failed", "error", err)
		fmt.Println("Could not add the account:", err)
		return err
	}

	fmt.Printf("Added account %s (%s)\n", view.Name, view.Id)
	return nil
}

// ListAccounts prints all accounts with decrypted names.
func (a *App) ListAccounts(ctx context.Context) error {
	all, err := a.svc.Accounts.GetAll(ctx)
	if err != nil {
		a.logger.Error(ctx, "list accounts failed", "error", err)
		return err
	}
	if len(all) == 0 {
		fmt.Println("No accounts yet.")
		return nil
	}

	for _, acc := range all {
		fmt.Printf("%-36s  %-20s  %-20s  %s\n", acc.Id, acc.Name, acc.BankName, acc.Currency)
	}
	return nil
}
