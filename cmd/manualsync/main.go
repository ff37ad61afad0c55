// Command manualsync runs one pipeline operation by hand: a sync, a replay of a
// date range, the nightly settle, and the buy-game-loss corrections.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog/log"

	"github.com/bowenaidan/fantasy-hoops/internal/app"
	"github.com/bowenaidan/fantasy-hoops/internal/config"
	"github.com/bowenaidan/fantasy-hoops/internal/logging"
	"github.com/bowenaidan/fantasy-hoops/internal/models"
	"github.com/bowenaidan/fantasy-hoops/internal/pipeline"
)

const usage = `Usage: manualsync <command> [flags]

Commands:
  sync-today                     sync and merge the league's current day
  sync-date <yyyy/mm/dd>         sync and merge one date
  replay [-reset|-keep] <start> [end]
                                 recompute a date range from a clean ledger (end defaults to today);
                                 scored standings need -reset to recompute or -keep to add on top
  settle                         fold staged points into the totals
  preview [yyyy/mm/dd]           write opponent previews (defaults to today)
  ranks                          copy the AP poll onto the standings
  buy-game-losses add -team T -points P [-note N]
  buy-game-losses list
  buy-game-losses apply
  reset-standings                zero every team's points
  standings                      print standings and manager totals
  runs [-n N]                    print recent runs
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.MustLoad()
	logging.Setup(cfg.AppEnv, cfg.LogLevel)
	league := config.MustLoadLeague(cfg.LeagueConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, league)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize pipeline")
	}
	defer a.Close()

	if err := run(ctx, a, os.Args[1], os.Args[2:]); err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("Command failed")
		a.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, command string, args []string) error {
	svc := a.Service

	switch command {
	case "sync-today":
		day, err := svc.SyncToday(ctx)
		if err != nil {
			return err
		}
		printDay(day)
		return nil

	case "sync-date":
		if len(args) != 1 {
			return fmt.Errorf("sync-date takes exactly one yyyy/mm/dd date")
		}
		day, err := svc.SyncDate(ctx, args[0])
		if err != nil {
			return err
		}
		printDay(day)
		return nil

	case "replay":
		fs := flag.NewFlagSet("replay", flag.ContinueOnError)
		reset := fs.Bool("reset", false, "zero the standings before the first day")
		keep := fs.Bool("keep", false, "add the replayed points on top of the current standings")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() < 1 || fs.NArg() > 2 {
			return fmt.Errorf("replay takes a start date and an optional end date")
		}
		if *reset && *keep {
			return fmt.Errorf("replay takes -reset or -keep, not both")
		}
		end := svc.Clock().TodayISO()
		if fs.NArg() == 2 {
			end = fs.Arg(1)
		}
		result, err := svc.Replay(ctx, fs.Arg(0), end, pipeline.ReplayOptions{ResetStandings: *reset, KeepStandings: *keep})
		if result != nil {
			fmt.Printf("replayed %d days from %s to %s, %d games scored\n",
				result.Days, result.Start, result.End, result.GamesScored)
		}
		return err

	case "settle":
		n, err := svc.Settle(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("settled %d rows\n", n)
		return nil

	case "preview":
		isoDate := svc.Clock().TodayISO()
		if len(args) > 0 {
			isoDate = args[0]
		}
		n, err := svc.Preview(ctx, isoDate)
		if err != nil {
			return err
		}
		fmt.Printf("%d previews written for %s\n", n, isoDate)
		return nil

	case "ranks":
		n, err := svc.UpdateRanks(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d ranked rows\n", n)
		return nil

	case "buy-game-losses":
		return buyGameLosses(ctx, a, args)

	case "reset-standings":
		if err := svc.ResetStandings(ctx); err != nil {
			return err
		}
		fmt.Println("standings reset")
		return nil

	case "standings":
		rows, totals, err := svc.Standings(ctx)
		if err != nil {
			return err
		}
		printStandings(rows, totals)
		return nil

	case "runs":
		fs := flag.NewFlagSet("runs", flag.ContinueOnError)
		limit := fs.Int("n", 20, "number of runs")
		if err := fs.Parse(args); err != nil {
			return err
		}
		runs, err := a.Runs.RecentRuns(ctx, *limit)
		if err != nil {
			return err
		}
		printRuns(runs)
		return nil
	}

	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", command)
}

func buyGameLosses(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("buy-game-losses needs add, list or apply")
	}

	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("buy-game-losses add", flag.ContinueOnError)
		team := fs.String("team", "", "roster team name")
		points := fs.Float64("points", 0, "points to add (negative for a penalty)")
		note := fs.String("note", "", "reason")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *team == "" || *points == 0 {
			return fmt.Errorf("add requires -team and a non-zero -points")
		}
		adj := &models.Adjustment{Team: *team, Points: *points, Note: *note}
		if err := a.Adjustments.AddAdjustment(ctx, adj); err != nil {
			return err
		}
		fmt.Printf("adjustment %d queued for %s (%+g)\n", adj.ID, adj.Team, adj.Points)
		return nil

	case "list":
		pending, err := a.Adjustments.PendingAdjustments(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTEAM\tPOINTS\tNOTE\tCREATED")
		for _, adj := range pending {
			fmt.Fprintf(w, "%d\t%s\t%+g\t%s\t%s\n", adj.ID, adj.Team, adj.Points, adj.Note, adj.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()

	case "apply":
		n, err := a.Service.ApplyAdjustments(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("applied %d adjustments\n", n)
		return nil
	}
	return fmt.Errorf("unknown buy-game-losses command %q", args[0])
}

func printDay(day *pipeline.DayResult) {
	if day.FeedError != nil {
		fmt.Printf("%s: scoreboard unavailable (%v), day skipped\n", day.ISODate, day.FeedError)
		return
	}
	fmt.Printf("%s: %d games, %d final, %d scored\n", day.ISODate, day.GamesSeen, day.GamesFinal, day.GamesScored)
	for _, ev := range day.Events {
		fmt.Printf("  %-24s %+6.1f  %s\n", ev.RosterName, ev.Delta, ev.Reason)
	}
}

func printStandings(rows []*models.StandingsRow, totals []models.ManagerTotal) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TEAM\tMANAGER\tPOINTS\tTODAY\tAP\tOPPONENT\tPOTENTIAL")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%s\t%s\t%g\n",
			row.Team, row.Manager, row.Points, row.PointsToday, rank(row.APRank), row.Opponent, row.PotentialPoints)
	}
	w.Flush()

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MANAGER\tPOINTS\tTODAY\tTEAMS")
	for _, total := range totals {
		fmt.Fprintf(w, "%s\t%g\t%g\t%d\n", total.Manager, total.Points, total.PointsToday, total.Teams)
	}
	w.Flush()
}

func printRuns(runs []*models.SyncRun) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tKIND\tDATE\tSTATUS\tSCORED\tERROR")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"), run.Kind, run.ISODate, run.Status, run.GamesScored, run.Error)
	}
	w.Flush()
}

func rank(r *int) string {
	if r == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *r)
}
