package sqlxrepos

import (
	"github.com/jmoiron/sqlx"

	"github.com/talimhq/talim/core"
)

// Both the pooled handle and a transaction satisfy the executor seam the
// repositories run on.
var (
	_ core.DBExecutor = (*sqlx.DB)(nil)
	_ core.DBExecutor = (*sqlx.Tx)(nil)
)
