package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/whisper-money/whisper-money-sub001/internal/client/services"
	"github.com/whisper-money/whisper-money-sub001/internal/rules"
)

// AddTransaction prompts for a transaction and creates it.
func (a *App) AddTransaction(ctx context.Context) error {
	accountID, err := GetSimpleText(a.reader, "Account id", os.Stdout)
	if err != nil {
		return err
	}
	amountRaw, err := GetSimpleText(a.reader, "Amount (negative for spending)", os.Stdout)
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(amountRaw)
	if err != nil {
		fmt.Println("Not a valid amount:", amountRaw)
		return err
	}
	dateRaw, err := GetSimpleText(a.reader, "Date (YYYY-MM-DD, empty for today)", os.Stdout)
	if err != nil {
		return err
	}
	date := time.Now().UTC()
	if dateRaw != "" {
		date, err = time.Parse(rules.DateLayout, dateRaw)
		if err != nil {
			fmt.Println("Not a valid date:", dateRaw)
			return err
		}
	}
	description, err := GetSimpleText(a.reader, "Description", os.Stdout)
	if err != nil {
		return err
	}
	note, err := GetSimpleText(a.reader, "Note (optional)", os.Stdout)
	if err != nil {
		return err
	}

	view, err := a.svc.Transactions.Create(ctx, services.TransactionInput{
		AccountId:   accountID,
		Amount:      amount,
		Date:        date,
		Description: description,
		Note:        note,
	})
	if err != nil {
		a.logger.Error(ctx, "add transaction failed", "error", err)
		fmt.Println("Could not add the transaction:", err)
		return err
	}

	fmt.Printf("Added %s %s (%s)\n", view.Amount, view.Description, view.Id)
	return nil
}

// ListTransactions prints all transactions, newest first.
func (a *App) ListTransactions(ctx context.Context) error {
	all, err := a.svc.Transactions.GetAll(ctx)
	if err != nil {
		a.logger.Error(ctx, "list transactions failed", "error", err)
		return err
	}
	if len(all) == 0 {
		fmt.Println("No transactions yet.")
		return nil
	}

	for _, tx := range all {
		category := "-"
		if tx.CategoryId != nil {
			category = *tx.CategoryId
		}
		fmt.Printf("%s  %10s  %-30s  %s\n", tx.Date.Format(rules.DateLayout), tx.Amount, tx.Description, category)
	}
	return nil
}

// ListCategories prints all categories with decrypted names.
func (a *App) ListCategories(ctx context.Context) error {
	all, err := a.svc.Categories.GetAll(ctx)
	if err != nil {
		a.logger.Error(ctx, "list categories failed", "error", err)
		return err
	}
	if len(all) == 0 {
		fmt.Println("No categories yet.")
		return nil
	}

	for _, c := range all {
		fmt.Printf("%-36s  %-20s  %s\n", c.Id, c.Name, c.Color)
	}
	return nil
}
