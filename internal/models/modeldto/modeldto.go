package modeldto

type (
	Balance struct {
		Amount float64 `json:"amount"`
	}
	HistoryEntry struct {
		Kind      string  `json:"kind"`
		Amount    float64 `json:"amount"`
		CreatedAt string  `json:"created_at"`
	}
	PendingWithdrawal struct {
		RequestID string  `json:"request_id"`
		UserID    int64   `json:"user_id"`
		Username  string  `json:"username"`
		Amount    float64 `json:"amount"`
		CreatedAt string  `json:"created_at"`
	}
	Resolution struct {
		Outcome   string  `json:"outcome"`
		RequestID string  `json:"request_id"`
		UserID    int64   `json:"user_id"`
		Username  string  `json:"username"`
		Amount    float64 `json:"amount"`
	}
)
