package store

// QuoteStatus is the lifecycle state of a quote.
type QuoteStatus string

const (
	QuoteDraft    QuoteStatus = "draft"
	QuoteSent     QuoteStatus = "sent"
	QuoteApproved QuoteStatus = "approved"
	QuoteRejected QuoteStatus = "rejected"
	QuoteExpired  QuoteStatus = "expired"
)

var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteDraft: {QuoteSent, QuoteExpired},
	QuoteSent:  {QuoteApproved, QuoteRejected, QuoteExpired},
}

// CanTransitionTo reports whether a quote may move from s to next.
func (s QuoteStatus) CanTransitionTo(next QuoteStatus) bool {
	for _, allowed := range quoteTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SaleStatus is the payment state of a sale.
type SaleStatus string

const (
	SalePending   SaleStatus = "pending"
	SalePaid      SaleStatus = "paid"
	SaleCancelled SaleStatus = "cancelled"
)

// CanTransitionTo reports whether a sale may move from s to next.
func (s SaleStatus) CanTransitionTo(next SaleStatus) bool {
	return s == SalePending && (next == SalePaid || next == SaleCancelled)
}

// ProductionStage is where a job sits on the shop floor.
type ProductionStage string

const (
	StageQueued    ProductionStage = "queued"
	StagePrinting  ProductionStage = "printing"
	StageFinishing ProductionStage = "finishing"
	StageReady     ProductionStage = "ready"
	StageDelivered ProductionStage = "delivered"
)

// ProductionStages lists the stages in floor order.
var ProductionStages = []ProductionStage{StageQueued, StagePrinting, StageFinishing, StageReady, StageDelivered}

// Next returns the stage after s; ok is false once delivered.
func (s ProductionStage) Next() (ProductionStage, bool) {
	for i, stage := range ProductionStages {
		if stage == s && i+1 < len(ProductionStages) {
			return ProductionStages[i+1], true
		}
	}
	return s, false
}

// MovementKind is the direction of a stock movement.
type MovementKind string

const (
	MovementIn     MovementKind = "in"
	MovementOut    MovementKind = "out"
	MovementAdjust MovementKind = "adjust"
)
