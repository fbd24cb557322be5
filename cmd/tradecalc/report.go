package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dynastycalc/trade-engine/internal/league"
	"github.com/dynastycalc/trade-engine/internal/market"
	"github.com/dynastycalc/trade-engine/internal/model"
)

// leagueFile is the YAML description of a league for the report command.
//
//	settings: {superflex: true, ktc_decay: 0.9}
//	source: Blend
//	blend_weight: 0.3
//	suggestions: {preference: picks, tolerance: 0.15}
//	teams:
//	  - name: Contenders
//	    players: [{name: Josh Allen, position: QB, age: 29}]
//	    picks: [{year: 2027, slot: "1.03"}]
type leagueFile struct {
	Settings    model.LeagueSettings `yaml:"settings"`
	Source      string               `yaml:"source"`
	BlendWeight *float64             `yaml:"blend_weight"`
	Suggestions struct {
		Preference string  `yaml:"preference"`
		Tolerance  float64 `yaml:"tolerance"`
	} `yaml:"suggestions"`
	Teams []teamFile `yaml:"teams"`
}

type teamFile struct {
	Name    string `yaml:"name"`
	Players []struct {
		Name     string `yaml:"name"`
		Position string `yaml:"position"`
		Age      int    `yaml:"age"`
	} `yaml:"players"`
	Picks []struct {
		Year int    `yaml:"year"`
		Slot string `yaml:"slot"`
	} `yaml:"picks"`
}

// loadLeague decodes a league file. Omitted settings keep their defaults and
// unknown keys are rejected.
func loadLeague(r io.Reader) (*leagueFile, error) {
	lf := &leagueFile{Settings: model.DefaultSettings()}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(lf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("league file is empty")
		}
		return nil, fmt.Errorf("parse league file: %w", err)
	}
	return lf, nil
}

// buildSession applies a league file to a fresh session whose teams are
// exactly the file's teams, in file order.
func buildSession(ctx context.Context, lf *leagueFile, opts ...league.Option) (*league.Session, error) {
	names := make([]string, len(lf.Teams))
	for i, tf := range lf.Teams {
		names[i] = tf.Name
	}
	opts = append(opts, league.WithTeams(names...))
	sess := league.NewSession(market.NewDefaultCatalog(), opts...)

	sess.UpdateSettings(ctx, lf.Settings)
	if lf.Source != "" {
		src, err := model.ParseValueSource(lf.Source)
		if err != nil {
			return nil, err
		}
		sess.SetSource(ctx, src)
	}
	if lf.BlendWeight != nil {
		sess.SetBlendWeight(ctx, *lf.BlendWeight)
	}
	sess.SetSuggestionPrefs(model.SuggestionPrefs{
		Preference: model.Preference(lf.Suggestions.Preference),
		Tolerance:  lf.Suggestions.Tolerance,
	})

	teams := sess.Report().Teams
	for i, tf := range lf.Teams {
		id := teams[i].ID
		for _, p := range tf.Players {
			age := p.Age
			if _, _, err := sess.AddPlayer(id, p.Name, model.Position(p.Position), &age); err != nil {
				return nil, fmt.Errorf("team %d player %q: %w", i+1, p.Name, err)
			}
		}
		for _, p := range tf.Picks {
			if _, _, err := sess.AddPick(id, p.Year, p.Slot); err != nil {
				return nil, fmt.Errorf("team %d pick %d %s: %w", i+1, p.Year, p.Slot, err)
			}
		}
	}
	return sess, nil
}

func newReportCmd() *cobra.Command {
	var (
		leaguePath, format string
		mf                 marketFlags
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Value every team in a league file and suggest balancing adds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unknown format %q", format)
			}
			f, err := os.Open(leaguePath)
			if err != nil {
				return err
			}
			defer f.Close()
			lf, err := loadLeague(f)
			if err != nil {
				return err
			}

			sess, err := buildSession(cmd.Context(), lf, league.WithClock(now))
			if err != nil {
				return err
			}
			if err := importMarket(sess, &mf); err != nil {
				return err
			}

			rep := sess.Report()
			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			return writeReportTable(cmd.OutOrStdout(), rep)
		},
	}

	cmd.Flags().StringVar(&leaguePath, "league", "", "league YAML file")
	cmd.Flags().StringVar(&format, "format", "table", "output format (table|json)")
	cmd.MarkFlagRequired("league")
	mf.register(cmd)
	return cmd
}

// importMarket feeds the CSVs named by mf through the session's importers.
func importMarket(sess *league.Session, mf *marketFlags) error {
	if mf.players != "" {
		f, err := os.Open(mf.players)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, _, err := sess.ImportPlayers(f); err != nil {
			return fmt.Errorf("%s: %w", mf.players, err)
		}
	}
	if mf.picks != "" {
		f, err := os.Open(mf.picks)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, _, err := sess.ImportPicks(mf.year(), f); err != nil {
			return fmt.Errorf("%s: %w", mf.picks, err)
		}
	}
	return nil
}

func writeReportTable(w io.Writer, rep model.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TEAM\tRAW\tADJUSTED\tDELTA\tSTATUS\tSUGGESTION")
	for _, t := range rep.Teams {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%+d\t%s\t%s\n",
			t.Name, t.RawTotal, t.Adjusted, t.Delta, t.Status, suggestionText(t.Suggestions))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nLeague average %d (decay %.2f, source %s)\n",
		rep.AverageAdjusted, rep.Decay, rep.Source.Source)
	return err
}

func suggestionText(entries []model.PoolEntry) string {
	if len(entries) == 0 {
		return "-"
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s (%d)", e.Name, e.Value)
	}
	return strings.Join(parts, " + ")
}
