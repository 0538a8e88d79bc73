package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/orbitview/core"
	"github.com/signalsfoundry/orbitview/internal/logging"
	"github.com/signalsfoundry/orbitview/kb"
	"github.com/signalsfoundry/orbitview/model"
	"github.com/signalsfoundry/orbitview/timectrl"
)

func newCatalogCmd(a *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List one page of the satellite catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.source.FetchPage(cmd.Context(), page)
			if err != nil {
				return errors.Wrapf(err, "fetch page %d", page)
			}
			a.catalog.StorePage(p)
			a.log.Info(cmd.Context(), "catalog page loaded",
				logging.Int("page", p.Number),
				logging.Int("satellites", len(p.Satellites)),
			)
			return printPage(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number (1-based)")
	return cmd
}

func printPage(w io.Writer, p model.Page) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEPOCH")
	for _, sat := range p.Satellites {
		epoch := "-"
		if !sat.Date.IsZero() {
			epoch = sat.Date.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", sat.ID, sat.Name, epoch)
	}
	fmt.Fprintf(tw, "page %d of %d (%d satellites)\n", p.Number, p.LastPage(), p.TotalItems)
	return tw.Flush()
}

func newElementsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "elements ID",
		Short: "Print the orbital elements of a catalog satellite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sat, err := a.satelliteArg(cmd, args[0])
			if err != nil {
				return err
			}
			el, err := core.ParseTLEStrict(sat.Line1, sat.Line2)
			if err != nil {
				return errors.Wrapf(err, "satellite %d", sat.ID)
			}
			sma := core.SemiMajorAxisKm(el.MeanMotion)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%d)\n", sat.Name, sat.ID)
			fmt.Fprintf(out, "  inclination      %10.4f deg\n", el.Inclination)
			fmt.Fprintf(out, "  right ascension  %10.4f deg\n", el.RightAscension)
			fmt.Fprintf(out, "  eccentricity     %10.7f\n", el.Eccentricity)
			fmt.Fprintf(out, "  arg of perigee   %10.4f deg\n", el.ArgumentOfPerigee)
			fmt.Fprintf(out, "  mean anomaly     %10.4f deg\n", el.MeanAnomaly)
			fmt.Fprintf(out, "  mean motion      %10.8f rev/day\n", el.MeanMotion)
			fmt.Fprintf(out, "  semi-major axis  %10.1f km\n", sma)
			fmt.Fprintf(out, "  period           %10.2f min\n", core.SecondsPerDay/60/el.MeanMotion)
			if !el.Epoch.IsZero() {
				fmt.Fprintf(out, "  epoch            %s\n", el.Epoch.Format(time.RFC3339))
			}
			return nil
		},
	}
}

type trajectoryOutput struct {
	ID         string       `json:"id"`
	Propagator string       `json:"propagator"`
	Rotation   string       `json:"rotation"`
	Frame      string       `json:"frame"`
	Start      time.Time    `json:"start"`
	Degenerate bool         `json:"degenerate"`
	Reason     string       `json:"reason,omitempty"`
	Points     [][3]float64 `json:"points"`
}

func newTrajectoryCmd(a *app) *cobra.Command {
	var (
		page int
		at   string
	)
	cmd := &cobra.Command{
		Use:   "trajectory [ID...]",
		Short: "Sample trajectories as JSON lines, for IDs or a whole catalog page",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 0 && page == 0 {
				return errors.New("give satellite IDs or --page")
			}
			start, err := a.startTime(at)
			if err != nil {
				return err
			}

			var sats []model.Satellite
			if page > 0 {
				p, err := a.source.FetchPage(ctx, page)
				if err != nil {
					return errors.Wrapf(err, "fetch page %d", page)
				}
				a.catalog.StorePage(p)
				sats = append(sats, p.Satellites...)
			}
			for _, arg := range args {
				sat, err := a.satelliteArg(cmd, arg)
				if err != nil {
					return err
				}
				sats = append(sats, sat)
			}

			reqs := make([]core.BatchRequest, 0, len(sats))
			for _, sat := range sats {
				if !sat.HasTLE() {
					continue
				}
				reqs = append(reqs, core.BatchRequest{ID: strconv.Itoa(sat.ID), Line1: sat.Line1, Line2: sat.Line2})
			}

			opts := a.cfg.SampleDefaults()
			opts.Start = start
			results, err := core.NewBatchSampler(a.cfg.Workers).SampleAll(ctx, reqs, opts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, res := range results {
				out := trajectoryOutput{
					ID:         res.ID,
					Propagator: res.Trajectory.Propagator.String(),
					Rotation:   res.Trajectory.Rotation.String(),
					Frame:      res.Trajectory.Frame.String(),
					Start:      res.Trajectory.Start,
					Degenerate: res.Trajectory.Degenerate,
					Points:     res.Trajectory.Arrays(),
				}
				if res.Err != nil {
					out.Reason = res.Err.Error()
					a.log.Warn(ctx, "degenerate trajectory", logging.String("satellite_id", res.ID), logging.Err(res.Err))
				}
				if err := enc.Encode(out); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "sample every satellite on this catalog page")
	cmd.Flags().StringVar(&at, "at", "", "start time (RFC3339); defaults to now")
	return cmd
}

func newPositionCmd(a *app) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "position ID",
		Short: "Print a satellite's position at one instant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sat, err := a.satelliteArg(cmd, args[0])
			if err != nil {
				return err
			}
			t, err := a.startTime(at)
			if err != nil {
				return err
			}
			prop, err := a.propagator(sat, t)
			if err != nil {
				return err
			}
			printPosition(cmd.OutOrStdout(), sat, prop, a.frame(), t)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "instant (RFC3339); defaults to now")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		tick  time.Duration
		step  time.Duration
		count int
		at    string
	)
	cmd := &cobra.Command{
		Use:   "watch ID",
		Short: "Select a satellite and print its position on every clock tick",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sat, err := a.satelliteArg(cmd, args[0])
			if err != nil {
				return err
			}
			start, err := a.startTime(at)
			if err != nil {
				return err
			}

			unsubscribe := a.catalog.Subscribe(func(ev kb.Event) {
				if ev.Type == kb.EventSelectionChanged {
					a.log.Info(ctx, "satellite selected",
						logging.Int("satellite_id", ev.Satellite.ID),
						logging.String("name", ev.Satellite.Name),
					)
				}
			})
			defer unsubscribe()
			if _, err := a.catalog.Select(sat.ID); err != nil {
				return err
			}

			prop, err := a.propagator(sat, start)
			if err != nil {
				return err
			}

			// The controller falls back to the tick when step is unset, and
			// --count is measured in that effective step.
			if step <= 0 {
				step = tick
			}
			if step <= 0 {
				return errors.New("watch needs a positive --step or --tick")
			}
			mode := timectrl.RealTime
			if tick <= 0 {
				mode = timectrl.Accelerated
			}
			tc := timectrl.NewTimeController(start, tick, mode)
			tc.Step = step

			out := cmd.OutOrStdout()
			frame := a.frame()
			printPosition(out, sat, prop, frame, tc.Now())
			tc.AddListener(func(t time.Time) {
				printPosition(out, sat, prop, frame, t)
			})

			stop := make(chan struct{})
			var duration time.Duration
			if count > 0 {
				duration = time.Duration(count) * step
			}
			done := tc.Start(duration, stop)
			select {
			case <-done:
			case <-ctx.Done():
				close(stop)
				<-done
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&tick, "tick", time.Second, "wall-clock interval between updates (0 runs as fast as possible)")
	cmd.Flags().DurationVar(&step, "step", time.Minute, "simulated time per tick")
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many ticks (0 runs until interrupted)")
	cmd.Flags().StringVar(&at, "at", "", "start time (RFC3339); defaults to now")
	return cmd
}

func printPosition(w io.Writer, sat model.Satellite, prop core.Propagator, frame core.Frame, t time.Time) {
	pos, ok := prop.PositionKm(t)
	if !ok {
		fmt.Fprintf(w, "%s  %d  no position\n", t.Format(time.RFC3339), sat.ID)
		return
	}
	if frame == core.FrameEarthFixed {
		pos = core.EarthFixedKm(pos, t)
	}
	n := pos.Normalized()
	fmt.Fprintf(w, "%s  %d  x=%.4f y=%.4f z=%.4f  r=%.1f km\n",
		t.Format(time.RFC3339), sat.ID, n.X, n.Y, n.Z, pos.Norm())
}

func (a *app) satelliteArg(cmd *cobra.Command, arg string) (model.Satellite, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return model.Satellite{}, errors.Errorf("invalid satellite id %q", arg)
	}
	return a.satellite(cmd.Context(), id)
}

func (a *app) startTime(at string) (time.Time, error) {
	if at == "" {
		return a.clock.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "parse --at")
	}
	return t.UTC(), nil
}

// frame resolves the configured output frame for the configured propagator.
func (a *app) frame() core.Frame {
	opts := a.cfg.SampleDefaults()
	return opts.Frame.Resolve(opts.Propagator)
}

func (a *app) propagator(sat model.Satellite, ref time.Time) (core.Propagator, error) {
	opts := a.cfg.SampleDefaults()
	return core.NewPropagator(opts.Propagator, sat.Line1, sat.Line2, opts.Rotation, ref)
}
