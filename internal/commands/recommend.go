package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"card-rewards-api/internal/catalog"
	"card-rewards-api/internal/logger"
	"card-rewards-api/internal/models"
	"card-rewards-api/internal/ranking"
	"card-rewards-api/internal/validation"
)

type recommendFlags struct {
	catalogPath     string
	amount          string
	currency        string
	category        string
	merchant        string
	payment         string
	location        string
	date            string
	monthlySpending string
	maxAnnualFee    string
	preferUnits     []string
	preferIssuers   []string
	exclude         []string
	asJSON          bool
}

func newRecommendCommand(verbose *bool) *cobra.Command {
	var f recommendFlags

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank the cards in a catalog for one purchase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewConsole(*verbose)
			defer log.Sync()
			return runRecommend(cmd.Context(), cmd.OutOrStdout(), f, log)
		},
	}

	cmd.Flags().StringVar(&f.catalogPath, "catalog", "", "catalog file, YAML or JSON (required)")
	_ = cmd.MarkFlagRequired("catalog")
	cmd.Flags().StringVar(&f.amount, "amount", "", "purchase amount (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&f.currency, "currency", models.HomeCurrency, "ISO currency code")
	cmd.Flags().StringVar(&f.category, "category", "", "spending category, e.g. dining")
	cmd.Flags().StringVar(&f.merchant, "merchant", "", "merchant id, e.g. mcdonalds")
	cmd.Flags().StringVar(&f.payment, "payment", "", "online, offline, contactless or recurring")
	cmd.Flags().StringVar(&f.location, "location", "", "country or region of the purchase")
	cmd.Flags().StringVar(&f.date, "date", "", "purchase date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.monthlySpending, "monthly-spending", "", "spend so far this month")
	cmd.Flags().StringVar(&f.maxAnnualFee, "max-annual-fee", "", "skip cards with a higher annual fee")
	cmd.Flags().StringSliceVar(&f.preferUnits, "prefer-unit", nil, "only keep cards rewarding in these units")
	cmd.Flags().StringSliceVar(&f.preferIssuers, "prefer-issuer", nil, "break ties in favour of these issuers")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "card ids to leave out")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print JSON instead of a table")

	return cmd
}

func runRecommend(ctx context.Context, out io.Writer, f recommendFlags, log *zap.Logger) error {
	amount, err := decimal.NewFromString(f.amount)
	if err != nil {
		return fmt.Errorf("parsing --amount: %w", err)
	}

	txn, err := validation.ParseTransaction(models.TransactionRequest{
		Amount:      amount,
		Currency:    f.currency,
		Category:    f.category,
		MerchantID:  f.merchant,
		PaymentType: f.payment,
		Location:    f.location,
		Date:        f.date,
	})
	if err != nil {
		return err
	}

	prefsReq := &models.PreferencesRequest{
		ExcludedCardIDs:      f.exclude,
		PreferredRewardUnits: f.preferUnits,
		PreferredIssuers:     f.preferIssuers,
	}
	if prefsReq.MonthlySpending, err = optionalDecimal(f.monthlySpending, "--monthly-spending"); err != nil {
		return err
	}
	if prefsReq.MaxAnnualFee, err = optionalDecimal(f.maxAnnualFee, "--max-annual-fee"); err != nil {
		return err
	}
	prefs, err := validation.ParsePreferences(prefsReq)
	if err != nil {
		return err
	}

	docs, err := loadValidCatalog(f.catalogPath, log)
	if err != nil {
		return err
	}

	cards, err := catalog.NewStaticRepository(docs).LoadCards(ctx)
	if err != nil {
		return err
	}

	result := ranking.Rank(cards, txn, prefs)
	log.Debug("ranked catalog",
		zap.Int("catalog_size", len(docs)),
		zap.Int("ranked", len(result.Recommendations)),
	)

	views := make([]models.RecommendationView, 0, len(result.Recommendations))
	for _, rec := range result.Recommendations {
		views = append(views, models.NewRecommendationView(rec))
	}

	if f.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(models.RecommendResponse{
			HasRecommendation: result.HasRecommendation,
			Recommendations:   views,
		})
	}

	if !result.HasRecommendation {
		fmt.Fprintln(out, "No eligible cards.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tCARD\tISSUER\tREWARD\tUNIT\tFEES\tNET\tRULES")
	for _, v := range views {
		marker := ""
		if v.IsRecommended {
			marker = " *"
		}
		fmt.Fprintf(w, "%d%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.Rank, marker,
			v.CardName,
			v.Issuer,
			v.Calculation.RewardAmount.StringFixed(2),
			v.Calculation.RewardUnit,
			v.Calculation.Fees.StringFixed(2),
			v.NetValue.StringFixed(2),
			strings.Join(v.Calculation.AppliedRules, ","),
		)
	}
	return w.Flush()
}

// loadValidCatalog reads a catalog file and drops cards that fail validation.
func loadValidCatalog(path string, log *zap.Logger) ([]catalog.CardDocument, error) {
	docs, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}

	valid := docs[:0:0]
	for _, doc := range docs {
		if err := validation.ValidateCard(doc); err != nil {
			log.Warn("skipping invalid card", zap.String("card_id", doc.ID), zap.Error(err))
			continue
		}
		valid = append(valid, doc)
	}
	return valid, nil
}

func optionalDecimal(s, flag string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", flag, err)
	}
	return &d, nil
}
