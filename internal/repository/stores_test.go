package repository

import (
	"github.com/bowenaidan/fantasy-hoops/internal/ledger"
	"github.com/bowenaidan/fantasy-hoops/internal/pipeline"
)

var (
	_ pipeline.StandingsStore  = (*StandingsRepository)(nil)
	_ pipeline.AdjustmentStore = (*AdjustmentRepository)(nil)
	_ pipeline.RunLog          = (*RunRepository)(nil)
	_ ledger.Store             = (*LedgerRepository)(nil)
)
