/*
Package ledger moves simulated money between accounts.

Every settlement runs in one database transaction that row-locks the touched accounts in
ascending id order, checks the sender's idempotency key, applies the balance changes and
then lets the caller write its record through a RecordFunc. Lock conflicts surfaced by the
store are retried with exponential backoff; when the attempts run out the caller gets
CONCURRENCY_CONFLICT and may retry the same request with the same idempotency key.

Usage:

	svc := ledger.NewService(store.Ledger(), resolver, ledger.DefaultConfig(), metrics)

	settlement, err := svc.Settle(ctx, ledger.SettlementRequest{
	    SenderID:       1,
	    Kind:           models.TransferKindP2PTransfer,
	    Amount:         decimal.RequireFromString("25.00"),
	    RecipientEmail: "bob@example.com",
	    IdempotencyKey: key,
	}, record)

A replayed key returns the stored transaction with Replayed set and changes nothing.
*/
package ledger
