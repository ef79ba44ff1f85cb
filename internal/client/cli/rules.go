package cli

import (
	"context"
	"fmt"
)

// ListRules prints the automation rules in evaluation order.
func (a *App) ListRules(ctx context.Context) error {
	all, err := a.svc.Automations.GetAll(ctx)
	if err != nil {
		a.logger.Error(ctx, "list rules failed", "error", err)
		return err
	}
	if len(all) == 0 {
		fmt.Println("No rules yet.")
		return nil
	}

	for _, r := range all {
		name := "(locked)"
		if r.Definition != nil {
			name = r.Definition.Name
		}
		fmt.Printf("%4d  %-36s  %s\n", r.Priority, r.Id, name)
	}
	return nil
}

// RunRules applies the automation rules to all local transactions.
func (a *App) RunRules(ctx context.Context) error {
	n, err := a.svc.Rules.Run(ctx)
	if err != nil {
		a.logger.Error(ctx, "rule run failed", "error", err)
		fmt.Println("Rule run failed:", err)
		return err
	}
	fmt.Printf("Rules applied, %d transaction(s) changed.\n", n)
	return nil
}
