package topics

const (
	// Resultados
	DrawResultPublished = "draw_result_published"

	// Liquidação
	BetSettled               = "bet_settled"
	SettlementReconciliation = "settlement_reconciliation"

	// DLQs
	DrawResultPublishedDLQ = "draw_result_published_dlq"
)

// Canal Redis Pub/Sub consumido pelo WebSocket do bet-service
const ChannelBetSettled = "bet_settled_broadcast"
