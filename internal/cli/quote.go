package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository/memory"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// QuoteOptions holds flags for the quote command.
type QuoteOptions struct {
	CartPath    string
	CatalogPath string
	Threshold   string
	Fee         string
	TaxRate     string
	Currency    string
}

// cartFile is the YAML cart description read by quote.
type cartFile struct {
	Lines []cartLine `yaml:"lines"`
}

type cartLine struct {
	ProductID string `yaml:"product_id"`
	Size      string `yaml:"size"`
	Color     string `yaml:"color"`
	Quantity  *int   `yaml:"quantity"`
}

// NewQuoteCommand creates the quote command.
func NewQuoteCommand(rootOpts *RootOptions) *cobra.Command {
	def := domain.DefaultPricing()
	opts := &QuoteOptions{}

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Print the order totals for a cart file",
		Long: `Replay a YAML cart file against the catalog and print subtotal, shipping,
tax and total exactly as checkout would compute them.

The catalog defaults to the built-in seed catalog; --catalog reads another
file in the same format.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(rootOpts, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.CartPath, "cart", "", "path to the cart YAML file (required)")
	cmd.Flags().StringVar(&opts.CatalogPath, "catalog", "", "path to a catalog YAML file (default: built-in seed catalog)")
	cmd.Flags().StringVar(&opts.Threshold, "threshold", def.FreeShippingThreshold.StringFixed(2), "free shipping threshold")
	cmd.Flags().StringVar(&opts.Fee, "fee", def.FlatShippingFee.StringFixed(2), "flat shipping fee below the threshold")
	cmd.Flags().StringVar(&opts.TaxRate, "tax-rate", def.TaxRate.String(), "tax rate as a fraction")
	cmd.Flags().StringVar(&opts.Currency, "currency", def.Currency, "ISO currency code")
	_ = cmd.MarkFlagRequired("cart")

	return cmd
}

func runQuote(rootOpts *RootOptions, opts *QuoteOptions, w io.Writer) error {
	pricing, err := config.ParsePricing(opts.Threshold, opts.Fee, opts.TaxRate, opts.Currency)
	if err != nil {
		return wrapExitError(ExitCommandError, "invalid pricing flags", err)
	}

	catalog, err := loadCatalog(opts.CatalogPath)
	if err != nil {
		return err
	}

	lines, err := readCart(opts.CartPath)
	if err != nil {
		return err
	}

	cart := domain.NewCart("pricecheck", "pricecheck", pricing.Currency)
	if err := domain.Replay(cart, lines, catalog.lookup); err != nil {
		return wrapExitError(ExitFailure, "price cart", err)
	}
	totals := domain.ComputeOrderTotals(cart, pricing)

	if rootOpts.Format == "json" {
		return writeQuoteJSON(w, cart, totals)
	}
	return writeQuoteText(w, cart, totals, pricing)
}

type catalogIndex map[string]*domain.Product

func (c catalogIndex) lookup(productID string) (*domain.Product, error) {
	if p, ok := c[productID]; ok {
		return p, nil
	}
	return nil, apperrors.NotFound("product", productID)
}

func loadCatalog(path string) (catalogIndex, error) {
	var (
		products []domain.Product
		err      error
	)
	if path == "" {
		products, err = memory.SeedCatalog()
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, wrapExitError(ExitCommandError, "read catalog", err)
		}
		products, err = memory.ParseCatalog(data)
	}
	if err != nil {
		return nil, wrapExitError(ExitCommandError, "load catalog", err)
	}

	idx := make(catalogIndex, len(products))
	for i := range products {
		idx[products[i].ID] = &products[i]
	}
	return idx, nil
}

// readCart parses the cart file into line items. Lines naming the same
// product, size and color are merged. A missing quantity means one and an
// explicit zero drops the line.
func readCart(path string) ([]domain.LineItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapExitError(ExitCommandError, "read cart", err)
	}

	var cf cartFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, wrapExitError(ExitCommandError, "parse cart", err)
	}

	var lines []domain.LineItem
	index := make(map[domain.LineKey]int)
	for i, l := range cf.Lines {
		if l.ProductID == "" || l.Size == "" || l.Color == "" {
			return nil, wrapExitError(ExitCommandError,
				fmt.Sprintf("cart line %d: product_id, size and color are required", i+1), nil)
		}
		qty := 1
		if l.Quantity != nil {
			qty = *l.Quantity
		}
		if qty < 0 {
			return nil, wrapExitError(ExitCommandError,
				fmt.Sprintf("cart line %d: quantity must not be negative, got %d", i+1, qty), nil)
		}
		if qty == 0 {
			continue
		}

		li := domain.LineItem{ProductID: l.ProductID, Size: l.Size, Color: l.Color, Quantity: qty}
		if j, ok := index[li.Key()]; ok {
			lines[j].Quantity += qty
			continue
		}
		index[li.Key()] = len(lines)
		lines = append(lines, li)
	}
	return lines, nil
}

const rule = "----------------------------------------------------------------"

func writeQuoteText(w io.Writer, cart *domain.Cart, t domain.OrderTotals, pc domain.PricingConfig) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%-26s %-4s %-8s %3s %9s %9s\n", "ITEM", "SIZE", "COLOR", "QTY", "UNIT", "TOTAL")
	b.WriteString(rule + "\n")
	for _, li := range cart.Items {
		fmt.Fprintf(&b, "%-26s %-4s %-8s %3d %9s %9s\n",
			li.Name, li.Size, li.Color, li.Quantity,
			li.UnitPrice.StringFixed(2), li.LineTotal().StringFixed(2))
	}
	b.WriteString(rule + "\n")

	shipping := t.Shipping.StringFixed(2)
	if t.Shipping.IsZero() {
		shipping = "FREE"
	}
	taxLabel := "Tax (" + pc.TaxRate.Shift(2).String() + "%)"

	fmt.Fprintf(&b, "%-54s %9s\n", "Subtotal", t.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "%-54s %9s\n", "Shipping", shipping)
	fmt.Fprintf(&b, "%-54s %9s\n", taxLabel, t.Tax.StringFixed(2))
	fmt.Fprintf(&b, "%-54s %9s\n", "Total ("+t.Currency+")", t.Total.StringFixed(2))
	fmt.Fprintf(&b, "%-54s %9d\n", "Minor units", t.TotalMinorUnits())
	if !t.Shipping.IsZero() {
		fmt.Fprintf(&b, "\nSpend %s more for free shipping.\n", t.FreeShippingRemaining.StringFixed(2))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

type quoteLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type quoteResult struct {
	Lines                 []quoteLine `json:"lines"`
	Subtotal              string      `json:"subtotal"`
	Shipping              string      `json:"shipping"`
	Tax                   string      `json:"tax"`
	Total                 string      `json:"total"`
	TotalMinorUnits       int64       `json:"total_minor_units"`
	FreeShipping          bool        `json:"free_shipping"`
	FreeShippingRemaining string      `json:"free_shipping_remaining"`
	Currency              string      `json:"currency"`
}

type cliResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

func writeQuoteJSON(w io.Writer, cart *domain.Cart, t domain.OrderTotals) error {
	lines := make([]quoteLine, len(cart.Items))
	for i, li := range cart.Items {
		lines[i] = quoteLine{
			ProductID: li.ProductID,
			Name:      li.Name,
			Size:      li.Size,
			Color:     li.Color,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice.StringFixed(2),
			LineTotal: li.LineTotal().StringFixed(2),
		}
	}

	out, err := json.MarshalIndent(cliResponse{
		Status: "ok",
		Data: quoteResult{
			Lines:                 lines,
			Subtotal:              t.Subtotal.StringFixed(2),
			Shipping:              t.Shipping.StringFixed(2),
			Tax:                   t.Tax.StringFixed(2),
			Total:                 t.Total.StringFixed(2),
			TotalMinorUnits:       t.TotalMinorUnits(),
			FreeShipping:          t.Shipping.IsZero(),
			FreeShippingRemaining: t.FreeShippingRemaining.StringFixed(2),
			Currency:              t.Currency,
		},
	}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}
