package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/whisper-money/whisper-money-sub001/internal/common"
)

// Sync triggers a sync cycle and reports the outcome. While offline the
// request is remembered and replayed when connectivity returns.
func (a *App) Sync(ctx context.Context) error {
	if err := a.orch.Sync(ctx); err != nil {
		if errors.Is(err, common.ErrOffline) {
			fmt.Println("Offline; the sync will run when the server is reachable again.")
			return err
		}
		fmt.Println("Sync finished with errors:", err)
		return err
	}

	st := a.hub.State()
	fmt.Printf("Synced at %s.\n", st.LastSyncTime.Local().Format("15:04:05"))
	return nil
}
