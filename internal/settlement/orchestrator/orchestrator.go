// Package orchestrator conduz a liquidação de um lote de apostas pendentes:
// busca apostas, resultados e regras, chama o motor e persiste cada aposta.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/lottery-settlement-platform/internal/lottery"
	"github.com/radieske/lottery-settlement-platform/internal/settlement/engine"
)

const (
	DefaultBatchSize       = 500
	DefaultWorkers         = 8
	DefaultMaxErrorDetails = 100
)

// Orchestrator liquida apostas pendentes. Lock, Notifier, Reporter e os callbacks são opcionais.
type Orchestrator struct {
	Log     *zap.Logger
	Bets    BetStore
	Results ResultRepository
	Rules   RuleRepository
	Ledger  Ledger

	Lock     RunLock
	Notifier Notifier
	Reporter Reporter

	BatchSize       int
	Workers         int
	MaxErrorDetails int

	OnBet           func(outcome string) // won | lost | skipped | error
	OnError         func(reason string)
	OnWin           func(amount int64)
	OnInconsistency func(step string)
	OnRun           func(d time.Duration)

	now   func() time.Time
	users userLocks
}

func New(log *zap.Logger, bets BetStore, results ResultRepository, rules RuleRepository, ledger Ledger) *Orchestrator {
	return &Orchestrator{
		Log:             log,
		Bets:            bets,
		Results:         results,
		Rules:           rules,
		Ledger:          ledger,
		BatchSize:       DefaultBatchSize,
		Workers:         DefaultWorkers,
		MaxErrorDetails: DefaultMaxErrorDetails,
		now:             time.Now,
	}
}

// Run executa uma passada sobre as apostas pendentes do filtro.
// Erros de uma aposta vão para o Summary; só falhas do lote inteiro voltam como error.
// Se ctx expirar, nenhuma aposta nova é iniciada e o Summary sai com Partial=true.
func (o *Orchestrator) Run(ctx context.Context, f Filter) (Summary, error) {
	start := o.clock()
	if err := f.Validate(); err != nil {
		return Summary{}, err
	}
	t := newTally(uuid.NewString(), positive(o.MaxErrorDetails, DefaultMaxErrorDetails))
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("run_id", t.sum.RunID))

	if o.Lock != nil {
		unlock, ok, err := o.Lock.TryLock(ctx, f.LockKey())
		if err != nil {
			return Summary{}, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return Summary{}, ErrRunInProgress
		}
		defer unlock()
	}

	limit := f.Limit
	if limit == 0 {
		limit = positive(o.BatchSize, DefaultBatchSize)
	}
	bets, err := o.Bets.ListPending(ctx, f, limit)
	if err != nil {
		return Summary{}, fmt.Errorf("list pending bets: %w", err)
	}
	if len(bets) == 0 {
		return o.finish(log, t, start), nil
	}

	keys, types := references(bets)
	results, err := o.Results.GetResults(ctx, keys)
	if err != nil {
		return Summary{}, fmt.Errorf("load results: %w", err)
	}
	rules, err := o.Rules.GetRules(ctx, types)
	if err != nil {
		return Summary{}, fmt.Errorf("load rules: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(positive(o.Workers, DefaultWorkers))
	for _, bet := range bets {
		if ctx.Err() != nil {
			t.partial()
			break
		}
		g.Go(func() error {
			o.settleOne(ctx, log, t, bet, results, rules)
			return nil
		})
	}
	_ = g.Wait()
	if len(bets) == limit {
		t.next(bets[len(bets)-1])
	}

	return o.finish(log, t, start), nil
}

func (o *Orchestrator) settleOne(ctx context.Context, log *zap.Logger, t *tally, bet lottery.Bet,
	results lottery.ResultSet, rules RuleSet) {
	if ctx.Err() != nil {
		t.partial()
		return
	}
	t.processed()

	log = log.With(
		zap.String("bet_id", bet.ID),
		zap.String("user_id", bet.UserID),
		zap.String("bet_type", string(bet.BetType)),
		zap.String("province_id", bet.ProvinceID),
		zap.String("draw_date", bet.DrawDate),
	)

	key := lottery.ResultKey{ProvinceID: bet.ProvinceID, Date: bet.DrawDate}
	if rerr := results.Errors[key]; rerr != nil {
		o.reject(log, t, bet, &engine.Error{Kind: engine.KindMalformedResult, BetType: bet.BetType, Field: "prizes", Msg: rerr.Error()})
		return
	}
	out, err := engine.Settle(bet, results.Results[key], rules.Rules[bet.BetType])
	if err != nil {
		if kind, _ := engine.KindOf(err); kind == engine.KindUnknownBetType && rules.Errors[bet.BetType] != nil {
			err = ruleDataError(bet.BetType, rules.Errors[bet.BetType])
		}
		o.reject(log, t, bet, err)
		return
	}

	// etapa de gravação: uma vez iniciada, vai até o fim mesmo com ctx cancelado
	pctx := context.WithoutCancel(ctx)
	unlock := o.users.lock(bet.UserID)
	defer unlock()

	status := out.Status()
	if err := o.Bets.UpdateBetOutcome(pctx, bet.ID, status, out.WinAmount, out.Details); err != nil {
		if errors.Is(err, ErrNotPending) {
			log.Info("bet already settled by another run")
			t.skip(bet.ID, SkipAlreadySettled)
			o.count(o.OnBet, "skipped")
			return
		}
		perr := &PersistenceError{Step: StepUpdateBet, Err: err}
		log.Error("update bet outcome", zap.Error(err))
		t.fail(bet.ID, reason(perr), perr.Error())
		o.count(o.OnBet, "error")
		o.count(o.OnError, reason(perr))
		return
	}

	settledAt := o.clock()
	bet.Status, bet.WinAmount, bet.WinningDetails, bet.SettledAt = status, out.WinAmount, out.Details, &settledAt
	t.settled(status, out.WinAmount)
	o.count(o.OnBet, string(status))

	if out.IsWinning {
		if o.OnWin != nil {
			o.OnWin(out.WinAmount)
		}
		if err := o.Ledger.RecordWinTransaction(pctx, bet.UserID, bet.ID, out.WinAmount); err != nil {
			o.inconsistent(pctx, log, t, bet, &PersistenceError{Step: StepRecordTransaction, Err: err})
			return
		}
		if err := o.Ledger.CreditBalance(pctx, bet.UserID, out.WinAmount); err != nil {
			o.inconsistent(pctx, log, t, bet, &PersistenceError{Step: StepCreditBalance, Err: err})
			return
		}
	}

	log.Debug("bet settled", zap.String("status", string(status)), zap.Int64("win_amount", out.WinAmount), zap.Int("matches", out.Matches))
	if o.Notifier != nil {
		if err := o.Notifier.BetSettled(pctx, bet); err != nil {
			log.Warn("publish bet_settled", zap.Error(err))
		}
	}
}

// reject classifica um erro do motor: sem resultado é skip, o resto é erro da aposta
func (o *Orchestrator) reject(log *zap.Logger, t *tally, bet lottery.Bet, err error) {
	kind, _ := engine.KindOf(err)
	if kind == engine.KindNoResultYet {
		log.Debug("no result yet, bet stays pending")
		t.skip(bet.ID, SkipNoResult)
		o.count(o.OnBet, "skipped")
		return
	}
	log.Warn("bet not settled", zap.String("reason", string(kind)), zap.Error(err))
	t.fail(bet.ID, string(kind), err.Error())
	o.count(o.OnBet, "error")
	o.count(o.OnError, string(kind))
}

// inconsistent registra aposta won sem crédito. Não há retentativa automática.
func (o *Orchestrator) inconsistent(ctx context.Context, log *zap.Logger, t *tally, bet lottery.Bet, perr *PersistenceError) {
	inc := Inconsistency{
		RunID:     t.sum.RunID,
		BetID:     bet.ID,
		UserID:    bet.UserID,
		WinAmount: bet.WinAmount,
		Step:      perr.Step,
		Error:     perr.Err.Error(),
		At:        o.clock(),
	}
	log.Error("settlement inconsistency: bet won without credit", zap.String("step", string(perr.Step)), zap.Error(perr.Err))
	t.fail(bet.ID, reason(perr), perr.Error())
	t.inconsistent(inc)
	o.count(o.OnError, reason(perr))
	o.count(o.OnInconsistency, string(perr.Step))
	if o.Reporter != nil {
		if err := o.Reporter.ReportInconsistency(ctx, inc); err != nil {
			log.Error("report inconsistency", zap.Error(err))
		}
	}
}

func (o *Orchestrator) finish(log *zap.Logger, t *tally, start time.Time) Summary {
	d := o.clock().Sub(start)
	sum := t.finish(d)
	if o.OnRun != nil {
		o.OnRun(d)
	}
	log.Info("settlement run finished",
		zap.Int("processed", sum.Processed),
		zap.Int("won", sum.Won),
		zap.Int("lost", sum.Lost),
		zap.Int("skipped", sum.Skipped),
		zap.Int("errors", sum.ErrorCount),
		zap.Int("inconsistencies", len(sum.Inconsistencies)),
		zap.Int64("total_win_amount", sum.TotalWinAmount),
		zap.Bool("partial", sum.Partial),
		zap.Duration("duration", d),
	)
	return sum
}

func (o *Orchestrator) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}

func (o *Orchestrator) count(fn func(string), label string) {
	if fn != nil {
		fn(label)
	}
}

// references lista os pares (província, data) e os tipos usados pelo lote
func references(bets []lottery.Bet) ([]lottery.ResultKey, []lottery.BetType) {
	seenKey := make(map[lottery.ResultKey]bool)
	seenType := make(map[lottery.BetType]bool)
	var keys []lottery.ResultKey
	var types []lottery.BetType
	for _, b := range bets {
		k := lottery.ResultKey{ProvinceID: b.ProvinceID, Date: b.DrawDate}
		if !seenKey[k] {
			seenKey[k] = true
			keys = append(keys, k)
		}
		if !seenType[b.BetType] {
			seenType[b.BetType] = true
			types = append(types, b.BetType)
		}
	}
	return keys, types
}

func ruleDataError(bt lottery.BetType, err error) error {
	field := ""
	var derr *lottery.RuleDecodeError
	if errors.As(err, &derr) {
		field = derr.Field
	}
	return &engine.Error{Kind: engine.KindMalformedRuleData, BetType: bt, Field: field, Msg: err.Error()}
}

func reason(perr *PersistenceError) string {
	return string(engine.KindPersistenceFailure) + ":" + string(perr.Step)
}

func positive(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
