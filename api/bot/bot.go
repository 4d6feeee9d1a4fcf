// Package bot runs the vault's keeper duties on a cron schedule: moving
// funds between the vault and its strategy, sweeping performance fees to the
// treasury and settling asynchronous strategy withdrawals.
package bot

import (
	"fmt"

	"cosmossdk.io/errors"
	"cosmossdk.io/log"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/robfig/cron/v3"

	"github.com/openalpha/yield-vault/api/engine"
	"github.com/openalpha/yield-vault/metrics"
	"github.com/openalpha/yield-vault/x/vault/types"
)

// Run results recorded in metrics
const (
	ResultOK      = "ok"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Schedule holds one cron spec per keeper action. An empty spec disables
// the action. Specs include a seconds field.
type Schedule struct {
	UpdateInvested          string `yaml:"update_invested"`
	WithdrawPerformanceFees string `yaml:"withdraw_performance_fees"`
	SettleStrategy          string `yaml:"settle_strategy"`
}

// DefaultSchedule rebalances every minute and sweeps fees hourly
func DefaultSchedule() Schedule {
	return Schedule{
		UpdateInvested:          "0 * * * * *",
		WithdrawPerformanceFees: "0 0 * * * *",
		SettleStrategy:          "30 * * * * *",
	}
}

// Bot signs keeper actions as a single account
type Bot struct {
	cron    *cron.Cron
	engine  *engine.Engine
	account string
	metrics *metrics.Collector
	logger  log.Logger
}

// New creates a bot acting as account. collector may be nil.
func New(e *engine.Engine, account string, collector *metrics.Collector, logger log.Logger) *Bot {
	return &Bot{
		cron:    cron.New(cron.WithSeconds()),
		engine:  e,
		account: account,
		metrics: collector,
		logger:  logger.With("module", "keeper-bot"),
	}
}

// Register adds a cron task for each action with a spec
func (b *Bot) Register(s Schedule) error {
	for _, task := range []struct {
		spec   string
		action string
	}{
		{s.UpdateInvested, types.KeeperActionUpdateInvested},
		{s.WithdrawPerformanceFees, types.KeeperActionWithdrawPerformanceFees},
		{s.SettleStrategy, types.KeeperActionSettleStrategy},
	} {
		if task.spec == "" {
			continue
		}
		action := task.action
		if _, err := b.cron.AddFunc(task.spec, func() { _ = b.RunAction(action) }); err != nil {
			return fmt.Errorf("register %s: %w", action, err)
		}
	}
	return nil
}

// Start starts the cron scheduler
func (b *Bot) Start() {
	b.cron.Start()
	b.logger.Info("keeper bot started", "account", b.account, "tasks", len(b.cron.Entries()))
}

// Stop stops the scheduler and waits for a running task
func (b *Bot) Stop() {
	<-b.cron.Stop().Done()
	b.logger.Info("keeper bot stopped")
}

// RunAction executes one keeper action now. Having nothing to move is not
// an error.
func (b *Bot) RunAction(action string) error {
	var amount string
	err := b.engine.Exec(func(ctx sdk.Context) error {
		resp, err := b.engine.MsgServer().KeeperAction(ctx, &types.MsgKeeperAction{
			Keeper: b.account,
			Action: action,
		})
		if err != nil {
			return err
		}
		amount = resp.Amount
		return nil
	})

	switch {
	case err == nil:
		b.record(action, ResultOK)
		b.logger.Info("keeper action", "action", action, "amount", amount)
		return nil
	case errors.IsOf(err, types.ErrNothingToDo, types.ErrNotEnoughToRebalance):
		b.record(action, ResultSkipped)
		b.logger.Debug("keeper action skipped", "action", action, "reason", err)
		return nil
	default:
		b.record(action, ResultFailed)
		b.logger.Error("keeper action failed", "action", action, "error", err)
		return err
	}
}

func (b *Bot) record(action, result string) {
	if b.metrics != nil {
		b.metrics.RecordKeeperRun(action, result)
	}
}
