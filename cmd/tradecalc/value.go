package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dynastycalc/trade-engine/internal/importer"
	"github.com/dynastycalc/trade-engine/internal/market"
	"github.com/dynastycalc/trade-engine/internal/model"
	"github.com/dynastycalc/trade-engine/internal/valuation"
)

// marketFlags are the CSV inputs shared by value and report.
type marketFlags struct {
	players   string
	picks     string
	picksYear int
}

func (f *marketFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.players, "players", "", "player market CSV")
	cmd.Flags().StringVar(&f.picks, "picks", "", "pick market CSV")
	cmd.Flags().IntVar(&f.picksYear, "picks-year", 0, "draft year of --picks (default next year)")
}

func (f *marketFlags) year() int {
	if f.picksYear > 0 {
		return f.picksYear
	}
	return now().Year() + 1
}

func newValueCmd() *cobra.Command {
	var (
		player, position, slot, source string
		pickYear                       int
		superflex, tePremium           bool
		blendWeight                    float64
		mf                             marketFlags
	)

	cmd := &cobra.Command{
		Use:   "value",
		Short: "Value one player or draft pick",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (player == "") == (pickYear == 0) {
				return errors.New("give exactly one of --player or --pick-year")
			}
			src, err := model.ParseValueSource(source)
			if err != nil {
				return err
			}

			catalog := market.NewDefaultCatalog()
			if err := loadMarket(catalog, &mf); err != nil {
				return err
			}

			var asset model.Asset
			if player != "" {
				pos, ok := model.ParsePosition(position)
				if !ok {
					return fmt.Errorf("unknown position %q", position)
				}
				asset = &model.Player{Name: player, Position: pos}
			} else {
				asset = &model.Pick{Year: pickYear, Slot: slot}
			}

			settings := model.DefaultSettings()
			settings.Superflex = superflex
			settings.TEPremium = tePremium

			v := valuation.NewResolver(catalog).WithClock(now).Resolve(asset, settings,
				model.SourceConfig{Source: src, BlendWeight: blendWeight})
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", asset.Label(), v)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&player, "player", "", "player name")
	f.StringVar(&position, "position", "WR", "player position")
	f.IntVar(&pickYear, "pick-year", 0, "pick draft year")
	f.StringVar(&slot, "slot", "1.01", "pick slot, e.g. 1.07")
	f.BoolVar(&superflex, "superflex", true, "superflex league")
	f.BoolVar(&tePremium, "te-premium", false, "tight end premium league")
	f.StringVar(&source, "source", string(model.SourceDemo), "value source (Demo|External|Blend)")
	f.Float64Var(&blendWeight, "blend-weight", model.DefaultBlendWeight, "External share when --source=Blend")
	mf.register(cmd)
	return cmd
}

// loadMarket imports the CSVs named by mf into catalog.
func loadMarket(catalog *market.Catalog, mf *marketFlags) error {
	if mf.players != "" {
		f, err := os.Open(mf.players)
		if err != nil {
			return err
		}
		defer f.Close()
		rows, err := importer.ParsePlayers(f)
		if err != nil {
			return fmt.Errorf("%s: %w", mf.players, err)
		}
		catalog.ReplacePlayers(rows)
	}
	if mf.picks != "" {
		f, err := os.Open(mf.picks)
		if err != nil {
			return err
		}
		defer f.Close()
		table, err := importer.ParsePicks(f)
		if err != nil {
			return fmt.Errorf("%s: %w", mf.picks, err)
		}
		catalog.MergePicks(mf.year(), table)
	}
	return nil
}
