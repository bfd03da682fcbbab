package repoargs

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateTransaction struct {
	TransactionID string
	UserID        string
	Amount        decimal.Decimal
	Timestamp     time.Time
}

// ListTransactions фильтр выборки журнала. Нулевые From/To означают отсутствие границы,
// интервал полуоткрытый: [From, To).
type ListTransactions struct {
	UserID string
	From   time.Time
	To     time.Time
}
