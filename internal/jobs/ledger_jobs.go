package jobs

import (
	"context"

	"siterent-backend/internal/logger"
)

// ReconcileBalances recomputes the due amount of every site from its orders
// and payments and repairs any drift.
func (jr *JobRunner) ReconcileBalances() {
	jr.runWithRecovery("ReconcileBalances", func() {
		results, err := jr.services.Sites.ReconcileAll(context.Background())
		repaired := 0
		for _, r := range results {
			if r.Repaired {
				repaired++
			}
		}
		if err != nil {
			logger.Error("Balance reconciliation finished with errors", "checked", len(results), "repaired", repaired, "error", err)
			return
		}
		logger.Info("Balance reconciliation finished", "checked", len(results), "repaired", repaired)
	})
}

// RepairHistories rebuilds the journal of every order whose entries no
// longer match its line items.
func (jr *JobRunner) RepairHistories() {
	jr.runWithRecovery("RepairHistories", func() {
		ctx := context.Background()
		sites, err := jr.services.Sites.ListSites(ctx)
		if err != nil {
			logger.Error("Failed to list sites for history repair", "error", err)
			return
		}

		total, failed := 0, 0
		for _, s := range sites {
			n, err := jr.services.History.RebuildSiteHistory(ctx, s.SiteID)
			total += n
			if err != nil {
				failed++
				logger.Error("History repair failed for site", "site_id", s.SiteID, "error", err)
			}
		}
		logger.Info("History repair finished", "sites", len(sites), "repaired_entries", total, "failed_sites", failed)
	})
}
