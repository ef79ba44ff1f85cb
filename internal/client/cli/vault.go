package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/whisper-money/whisper-money-sub001/internal/client/services"
	"github.com/whisper-money/whisper-money-sub001/internal/common"
)

// Setup initializes encryption on a fresh device: password prompt, new salt,
// sealed probe. Asks whether to keep the key across restarts.
func (a *App) Setup(ctx context.Context) error {
	pw, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	persistent, err := GetYesNo(a.reader, "Keep unlocked across restarts?", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.svc.Keys.Setup(ctx, string(pw), persistent); err != nil {
		if errors.Is(err, services.ErrAlreadySetUp) {
			fmt.Println("This device is already set up; use 'unlock'.")
			return err
		}
		a.logger.Error(ctx, "setup failed", "error", err)
		return err
	}

	fmt.Println("Encryption set up. Your data is sealed with this password; there is no recovery without it.")
	return nil
}

// Unlock derives the key from the password and validates it against the
// stored probe.
func (a *App) Unlock(ctx context.Context) error {
	pw, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	persistent, err := GetYesNo(a.reader, "Keep unlocked across restarts?", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.svc.Keys.Unlock(ctx, string(pw), persistent); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			fmt.Println("Wrong password.")
			return err
		}
		a.logger.Error(ctx, "unlock failed", "error", err)
		return err
	}

	fmt.Println("Unlocked.")
	return nil
}

// Lock wipes the key; encrypted fields show placeholders until unlock.
func (a *App) Lock(ctx context.Context) error {
	if err := a.svc.Keys.Lock(ctx); err != nil {
		a.logger.Error(ctx, "lock failed", "error", err)
		return err
	}
	fmt.Println("Locked.")
	return nil
}

// Status prints the sync and key state.
func (a *App) Status(ctx context.Context) error {
	st := a.hub.State()

	fmt.Printf("key:      %s\n", map[bool]string{true: "unlocked", false: "locked"}[a.svc.Keys.IsUnlocked()])
	fmt.Printf("network:  %s\n", map[bool]string{true: "online", false: "offline"}[st.Online])
	fmt.Printf("sync:     %s\n", st.Status)
	if !st.LastSyncTime.IsZero() {
		fmt.Printf("last:     %s\n", st.LastSyncTime.Local().Format("2006-01-02 15:04:05"))
	}
	if st.Err != nil {
		fmt.Printf("error:    %v\n", st.Err)
	}

	n, err := a.repos.Pending.Count(ctx, a.repos.DB)
	if err != nil {
		return err
	}
	fmt.Printf("pending:  %d\n", n)
	return nil
}
