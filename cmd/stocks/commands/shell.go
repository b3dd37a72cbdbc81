package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
	"github.com/alexboumb/SuperSimpleStocks2/internal/selfcheck"
	"github.com/alexboumb/SuperSimpleStocks2/internal/valuation"
	"github.com/alexboumb/SuperSimpleStocks2/pkg/logger"
)

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive trading console",
	Long: `Starts the interactive console.

Menu:
  d - dividend yield
  p - price/earnings ratio
  b - buy
  s - sell
  v - volume weighted stock price
  a - all share index
  t - run the self-check
  h - print the menu
  q - quit

Example:
  go run ./cmd/stocks shell`,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	session := NewSession(a.newEngine(), os.Stdin, cmd.OutOrStdout(), a.log)
	return session.Run()
}

const menu = `d - calculate dividend yield
p - calculate price/earnings ratio
b - buy stocks
s - sell stocks
v - calculate the volume weighted stock price of recent trades
a - calculate the All Share Index
t - run the self-check
h - print the menu
q - quit the application
`

// errInputClosed ends the session when the input runs out
var errInputClosed = errors.New("input closed")

// Session is one interactive console over an input and an output stream
type Session struct {
	engine  *valuation.Engine
	scanner *bufio.Scanner
	out     io.Writer
	logger  *logger.Logger
}

// NewSession creates a console session
func NewSession(engine *valuation.Engine, in io.Reader, out io.Writer, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}

	return &Session{
		engine:  engine,
		scanner: bufio.NewScanner(in),
		out:     out,
		logger:  log,
	}
}

// Run reads menu selections until the user quits or the input ends
func (s *Session) Run() error {
	fmt.Fprintln(s.out, "Welcome to the Super Simple Stock Market.")
	fmt.Fprint(s.out, menu)

	for {
		selection, err := s.readSelection()
		if err != nil {
			return s.finish(err)
		}

		var opErr error
		switch selection {
		case "d":
			opErr = s.dividendYield()
		case "p":
			opErr = s.peRatio()
		case "b":
			opErr = s.trade(contracts.DirectionBuy)
		case "s":
			opErr = s.trade(contracts.DirectionSell)
		case "v":
			opErr = s.volumeWeightedPrice()
		case "a":
			opErr = s.allShareIndex()
		case "t":
			s.selfCheck()
		case "h":
			fmt.Fprint(s.out, menu)
		case "q":
			quit, err := s.confirmQuit()
			if err != nil {
				return s.finish(err)
			}
			if quit {
				fmt.Fprintln(s.out, "Goodbye.")
				return nil
			}
		}

		if errors.Is(opErr, errInputClosed) {
			return nil
		}
		if opErr != nil {
			PrintError(s.out, opErr.Error())
		}
		fmt.Fprintln(s.out)
	}
}

func (s *Session) finish(err error) error {
	if errors.Is(err, errInputClosed) {
		return nil
	}
	return err
}

func (s *Session) dividendYield() error {
	symbol, price, err := s.readSymbolAndPrice()
	if err != nil {
		return err
	}

	value, err := s.engine.DividendYield(symbol, price)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "The dividend yield for stock %s is %s given price %d\n", symbol, formatFloat(value), price)
	return nil
}

func (s *Session) peRatio() error {
	symbol, price, err := s.readSymbolAndPrice()
	if err != nil {
		return err
	}

	value, err := s.engine.PERatio(symbol, price)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "The P/E ratio for stock %s is %s given price %d\n", symbol, formatFloat(value), price)
	return nil
}

func (s *Session) trade(direction contracts.Direction) error {
	symbol, price, err := s.readSymbolAndPrice()
	if err != nil {
		return err
	}

	quantity, err := s.readPositiveInt("Enter quantity: ", "Quantity must be a positive integer. Please try again: ")
	if err != nil {
		return err
	}

	if _, err := s.engine.Trade(symbol, quantity, price, direction); err != nil {
		return err
	}

	verb := "Sold"
	if direction.IsBuy() {
		verb = "Bought"
	}
	fmt.Fprintf(s.out, "%s %d shares of %s at price %d\n", verb, quantity, symbol, price)
	return nil
}

func (s *Session) volumeWeightedPrice() error {
	symbol, err := s.readSymbol()
	if err != nil {
		return err
	}

	value, err := s.engine.VolumeWeightedPrice(symbol)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "The volume weighted stock price for %s over the last %s is %s\n", symbol, s.engine.Window(), formatFloat(value))
	return nil
}

func (s *Session) allShareIndex() error {
	value, err := s.engine.AllShareIndex()
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "The All Share Index is %s\n", formatFloat(value))
	return nil
}

// selfCheck runs on its own engine so the session ledger is untouched
func (s *Session) selfCheck() {
	fmt.Fprintln(s.out, "Starting self-check")
	report := selfcheck.Run(s.logger)
	printReport(s.out, report)
}

func (s *Session) readSymbolAndPrice() (string, int, error) {
	symbol, err := s.readSymbol()
	if err != nil {
		return "", 0, err
	}

	price, err := s.readPositiveInt("Enter price: ", "Price must be a positive integer. Please try again: ")
	if err != nil {
		return "", 0, err
	}

	return symbol, price, nil
}

// readSymbol prompts until a catalogue symbol is entered
func (s *Session) readSymbol() (string, error) {
	fmt.Fprint(s.out, "Enter stock symbol: ")

	for {
		line, err := s.readLine()
		if err != nil {
			return "", err
		}

		if _, err := s.engine.Stock(line); err == nil {
			return line, nil
		}

		fmt.Fprintf(s.out, "Stock symbol not recognized. Please enter one of %v: ", s.symbols())
	}
}

// readPositiveInt prompts until a positive integer is entered
func (s *Session) readPositiveInt(prompt, retry string) (int, error) {
	fmt.Fprint(s.out, prompt)

	for {
		line, err := s.readLine()
		if err != nil {
			return 0, err
		}

		if n, err := strconv.Atoi(line); err == nil && n > 0 {
			return n, nil
		}

		fmt.Fprint(s.out, retry)
	}
}

func (s *Session) readSelection() (string, error) {
	fmt.Fprint(s.out, "Please enter your selection: ")

	for {
		line, err := s.readLine()
		if err != nil {
			return "", err
		}

		if len(line) == 1 && strings.Contains("dpbsvathq", line) {
			return line, nil
		}

		fmt.Fprintln(s.out, "Unknown selection. Enter one of the following:")
		fmt.Fprint(s.out, menu)
	}
}

func (s *Session) confirmQuit() (bool, error) {
	fmt.Fprint(s.out, "Are you sure you want to quit (y/n)? ")

	for {
		line, err := s.readLine()
		if err != nil {
			return false, err
		}

		switch line {
		case "y":
			return true, nil
		case "n":
			return false, nil
		}

		fmt.Fprint(s.out, "Please enter y or n: ")
	}
}

func (s *Session) readLine() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(s.scanner.Text()), nil
}

func (s *Session) symbols() []string {
	stocks := s.engine.Stocks()
	symbols := make([]string, len(stocks))
	for i, st := range stocks {
		symbols[i] = st.Symbol()
	}
	return symbols
}
