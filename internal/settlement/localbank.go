package settlement

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// LocalBank settles transfers in-process: every submission is accepted and
// given a bank reference. It is the default adapter when no external
// provider is configured; the ledger itself is the source of truth then.
type LocalBank struct{}

func NewLocalBank() *LocalBank {
	return &LocalBank{}
}

func (l *LocalBank) AcquireCredential(ctx context.Context) (string, error) {
	// No credential needed for in-process settlement.
	return "local", nil
}

func (l *LocalBank) SubmitTransfer(ctx context.Context, credential string, req SubmitRequest) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Success:           true,
		Reference:         "MB-" + strings.ToUpper(uuid.NewString()[:10]),
		StatusCode:        "200",
		StatusDescription: "Transfer completed",
	}, nil
}

func (l *LocalBank) FetchTransactions(ctx context.Context, credential, accountNumber, startDate, endDate string) ([]ExternalTransaction, error) {
	// The local bank has no external history to report.
	return nil, nil
}

var _ Adapter = (*LocalBank)(nil)
