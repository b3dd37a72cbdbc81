package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
	"github.com/alexboumb/SuperSimpleStocks2/internal/stock"
)

// catalogueCmd represents the catalogue command
var catalogueCmd = &cobra.Command{
	Use:   "catalogue",
	Short: "Print the stock catalogue",
	Long: `Prints the catalogue the other commands use: the built-in sample
data, or the YAML file named by STOCKS_CATALOGUE_FILE.

Example:
  go run ./cmd/stocks catalogue
  STOCKS_CATALOGUE_FILE=stocks.yaml go run ./cmd/stocks catalogue`,
	RunE: runCatalogue,
}

func init() {
	rootCmd.AddCommand(catalogueCmd)
}

func runCatalogue(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	printCatalogue(cmd.OutOrStdout(), a.catalogue)
	return nil
}

var catalogueWidths = []int{8, 10, 14, 15, 10}

func printCatalogue(w io.Writer, catalogue *stock.Catalogue) {
	PrintHeader(w, fmt.Sprintf("Stock catalogue (%d)", catalogue.Len()))
	PrintTableHeader(w, []string{"Symbol", "Type", "Last Dividend", "Fixed Dividend", "Par Value"}, catalogueWidths)

	for _, s := range catalogue.Stocks() {
		fixed := ""
		if s.Kind() == contracts.StockKindPreferred {
			fixed = formatFloat(s.FixedDividend()*100) + "%"
		}

		PrintTableRow(w, []string{
			s.Symbol(),
			string(s.Kind()),
			strconv.Itoa(s.LastDividend()),
			fixed,
			strconv.Itoa(s.ParValue()),
		}, catalogueWidths)
	}
	PrintDoubleSeparator(w)
}
