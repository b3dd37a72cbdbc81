// Package selfcheck exercises every valuation operation and every failure
// condition against known inputs and reports pass/fail per check.
//
// It runs on a fresh engine with a manual clock, so the second trading window
// is reached by advancing the clock instead of sleeping.
package selfcheck

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
	"github.com/alexboumb/SuperSimpleStocks2/internal/stock"
	"github.com/alexboumb/SuperSimpleStocks2/internal/valuation"
	"github.com/alexboumb/SuperSimpleStocks2/pkg/logger"
)

const tolerance = 1e-9

// Check is the outcome of one named assertion
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Report collects every check of a run
type Report struct {
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Checks   []Check       `json:"checks"`
}

// Passed reports whether every check passed
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed returns the failed checks
func (r *Report) Failed() []Check {
	failed := make([]Check, 0)
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// manualClock is advanced explicitly by the scenario
type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type runner struct {
	report *Report
	log    *logger.Logger
}

// Run executes the business scenario and the failure checks
func Run(log *logger.Logger) *Report {
	if log == nil {
		log = logger.Nop()
	}

	start := time.Now()
	r := &runner{
		report: &Report{Started: start},
		log:    log,
	}

	r.businessLogic()
	r.failures()

	r.report.Duration = time.Since(start)
	log.WithFields(map[string]interface{}{
		"checks": len(r.report.Checks),
		"failed": len(r.report.Failed()),
	}).Info("Self-check finished")

	return r.report
}

func (r *runner) businessLogic() {
	clock := &manualClock{t: time.Date(2026, 1, 8, 9, 0, 0, 0, time.UTC)}
	e := valuation.New(stock.DefaultCatalogue(), valuation.WithClock(clock.Now))

	r.expectValue("TEA dividend yield at 50", 0, func() (float64, error) { return e.DividendYield("TEA", 50) })
	r.expectValue("POP dividend yield at 64", 0.125, func() (float64, error) { return e.DividendYield("POP", 64) })
	r.expectValue("GIN dividend yield at 50", 0.04, func() (float64, error) { return e.DividendYield("GIN", 50) })
	r.expectValue("ALE P/E ratio at 69", 3, func() (float64, error) { return e.PERatio("ALE", 69) })
	r.expectValue("POP P/E ratio at 64", 8, func() (float64, error) { return e.PERatio("POP", 64) })

	r.trade(e, "TEA", 20, 60, contracts.DirectionSell)
	r.trade(e, "TEA", 30, 120, contracts.DirectionBuy)
	r.trade(e, "GIN", 10, 60, contracts.DirectionBuy)
	r.trade(e, "GIN", 20, 150, contracts.DirectionSell)

	r.expectValue("TEA volume weighted price", 96, func() (float64, error) { return e.VolumeWeightedPrice("TEA") })
	r.expectValue("GIN volume weighted price", 120, func() (float64, error) { return e.VolumeWeightedPrice("GIN") })
	r.expectValue("all share index", math.Sqrt(11520), e.AllShareIndex)

	// move past the window so the first trades no longer count
	clock.Advance(6 * time.Minute)

	r.expectValue("TEA volume weighted price outside window", valuation.NoTradesInWindowPrice, func() (float64, error) { return e.VolumeWeightedPrice("TEA") })

	r.trade(e, "TEA", 10, 80, contracts.DirectionSell)
	r.trade(e, "TEA", 10, 60, contracts.DirectionBuy)
	r.trade(e, "GIN", 10, 60, contracts.DirectionBuy)
	r.trade(e, "GIN", 20, 120, contracts.DirectionSell)

	r.expectValue("TEA volume weighted price second window", 70, func() (float64, error) { return e.VolumeWeightedPrice("TEA") })
	r.expectValue("GIN volume weighted price second window", 100, func() (float64, error) { return e.VolumeWeightedPrice("GIN") })
	r.expectValue("all share index second window", math.Sqrt(7000), e.AllShareIndex)

	r.expect("TEA ledger keeps every trade", e.TradeCount("TEA") == 4, fmt.Sprintf("count=%d", e.TradeCount("TEA")))
}

func (r *runner) failures() {
	for _, symbol := range []string{"", "  "} {
		_, err := stock.NewCommon(symbol, 0, 100)
		r.expectErr(fmt.Sprintf("construct common stock with symbol %q", symbol), err, contracts.ErrInvalidSymbol)
	}

	_, err := stock.NewCommon("TEA", -1, 100)
	r.expectErr("construct common stock with last dividend -1", err, contracts.ErrInvalidDividend)

	for _, parValue := range []int{0, -1} {
		_, err := stock.NewCommon("TEA", 0, parValue)
		r.expectErr(fmt.Sprintf("construct common stock with par value %d", parValue), err, contracts.ErrInvalidParValue)
	}

	_, err = stock.NewPreferred("GIN", 8, -1.0, 100)
	r.expectErr("construct preferred stock with fixed dividend -1", err, contracts.ErrInvalidFixedDividend)

	e := valuation.New(stock.DefaultCatalogue())

	symbols := []struct {
		symbol string
		want   error
	}{
		{"", contracts.ErrInvalidSymbol},
		{"NAN", contracts.ErrNoSuchStock},
	}

	for _, s := range symbols {
		_, err := e.DividendYield(s.symbol, 100)
		r.expectErr(fmt.Sprintf("dividend yield for %q", s.symbol), err, s.want)

		_, err = e.PERatio(s.symbol, 100)
		r.expectErr(fmt.Sprintf("P/E ratio for %q", s.symbol), err, s.want)

		_, err = e.Trade(s.symbol, 20, 60, contracts.DirectionSell)
		r.expectErr(fmt.Sprintf("trade %q", s.symbol), err, s.want)

		_, err = e.VolumeWeightedPrice(s.symbol)
		r.expectErr(fmt.Sprintf("volume weighted price for %q", s.symbol), err, s.want)
	}

	for _, price := range []int{0, -1} {
		_, err := e.DividendYield("TEA", price)
		r.expectErr(fmt.Sprintf("dividend yield at price %d", price), err, contracts.ErrInvalidPrice)

		_, err = e.PERatio("TEA", price)
		r.expectErr(fmt.Sprintf("P/E ratio at price %d", price), err, contracts.ErrInvalidPrice)

		_, err = e.Trade("TEA", 20, price, contracts.DirectionSell)
		r.expectErr(fmt.Sprintf("trade at price %d", price), err, contracts.ErrInvalidPrice)
	}

	for _, quantity := range []int{0, -1} {
		_, err := e.Trade("TEA", quantity, 60, contracts.DirectionSell)
		r.expectErr(fmt.Sprintf("trade quantity %d", quantity), err, contracts.ErrInvalidQuantity)
	}

	_, err = e.PERatio("TEA", 100)
	r.expectErr("P/E ratio with zero dividend", err, contracts.ErrDividendZero)

	_, err = e.VolumeWeightedPrice("TEA")
	r.expectErr("volume weighted price for never traded stock", err, contracts.ErrNoDataForStock)

	index, err := e.AllShareIndex()
	r.expect("all share index with no trades", err == nil && index == 0, fmt.Sprintf("index=%v err=%v", index, err))
}

func (r *runner) trade(e *valuation.Engine, symbol string, quantity, price int, direction contracts.Direction) {
	name := fmt.Sprintf("%s %d %s at %d", direction, quantity, symbol, price)
	_, err := e.Trade(symbol, quantity, price, direction)
	r.expect(name, err == nil, errDetail(err))
}

func (r *runner) expectValue(name string, want float64, fn func() (float64, error)) {
	got, err := fn()
	if err != nil {
		r.expect(name, false, err.Error())
		return
	}
	r.expect(name, math.Abs(got-want) <= tolerance, fmt.Sprintf("got %v, want %v", got, want))
}

func (r *runner) expectErr(name string, err, want error) {
	switch {
	case err == nil:
		r.expect(name, false, fmt.Sprintf("no error, want %q", want))
	case !errors.Is(err, want):
		r.expect(name, false, fmt.Sprintf("got %q, want %q", err, want))
	default:
		r.expect(name, true, err.Error())
	}
}

func (r *runner) expect(name string, passed bool, detail string) {
	r.report.Checks = append(r.report.Checks, Check{
		Name:   name,
		Passed: passed,
		Detail: detail,
	})

	if !passed {
		r.log.WithFields(map[string]interface{}{
			"check":  name,
			"detail": detail,
		}).Warn("Self-check failed")
	}
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
