// Command orbitview browses a TLE catalog and samples orbits locally.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/orbitview/internal/catalog"
	"github.com/signalsfoundry/orbitview/internal/config"
	"github.com/signalsfoundry/orbitview/internal/logging"
	"github.com/signalsfoundry/orbitview/kb"
	"github.com/signalsfoundry/orbitview/model"
	"github.com/signalsfoundry/orbitview/timectrl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// app holds what every subcommand shares once flags and config are resolved.
type app struct {
	cfg     config.Config
	log     logging.Logger
	source  catalog.Source
	catalog *kb.Catalog
	clock   timectrl.Clock
	search  string
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	v := viper.New()
	a := &app{}
	var cfgPath string

	root := &cobra.Command{
		Use:          "orbitview",
		Short:        "Browse TLE catalogs and sample satellite orbits",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, cfgPath)
			if err != nil {
				return err
			}
			lc := cfg.Logging()
			lc.Output = logOut
			a.cfg = cfg
			a.log = logging.New(lc)
			a.catalog = kb.NewCatalog()
			if a.clock == nil {
				a.clock = timectrl.SystemClock{}
			}
			a.source, err = a.newSource()
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "optional YAML/JSON/TOML config file")
	pf.Bool("offline", false, "use the embedded sample catalog instead of the TLE API")
	pf.String("tle-file", "", "serve a local three-line TLE file instead of the TLE API")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("propagator", "kepler", "propagator: kepler or sgp4")
	pf.String("rotation", "standard", "perifocal rotation: standard or compat")
	pf.String("frame", "auto", "output frame: auto, inertial or earth_fixed")
	pf.Int("num-points", 100, "samples per trajectory")
	pf.Float64("orbit-fraction", 1.0, "fraction of a day the trajectory spans")
	pf.Int("workers", 0, "parallel samplers for batch trajectories (0 = GOMAXPROCS)")
	pf.StringVar(&a.search, "search", "", "catalog search term (remote catalog only)")
	for key, flag := range map[string]string{
		"catalog.offline":           "offline",
		"catalog.tle_file":          "tle-file",
		"log.level":                 "log-level",
		"trajectory.propagator":     "propagator",
		"trajectory.rotation":       "rotation",
		"trajectory.frame":          "frame",
		"trajectory.num_points":     "num-points",
		"trajectory.orbit_fraction": "orbit-fraction",
		"workers":                   "workers",
	} {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newCatalogCmd(a),
		newElementsCmd(a),
		newTrajectoryCmd(a),
		newPositionCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) newSource() (catalog.Source, error) {
	if a.source != nil {
		return a.source, nil
	}
	if path := a.cfg.Catalog.TLEFile; path != "" {
		return catalog.LoadTLEFile(path, a.cfg.Catalog.PageSize)
	}
	if a.cfg.Catalog.Offline {
		src, err := catalog.NewSampleSource()
		if err != nil {
			return nil, fmt.Errorf("load sample catalog: %w", err)
		}
		return src, nil
	}
	opts := []catalog.Option{
		catalog.WithTimeout(a.cfg.Catalog.Timeout),
		catalog.WithPageSize(a.cfg.Catalog.PageSize),
		catalog.WithLogger(a.log),
	}
	if a.search != "" {
		opts = append(opts, catalog.WithSearch(a.search))
	}
	return catalog.NewClient(a.cfg.Catalog.BaseURL, opts...), nil
}

// satellite returns id from the local catalog, fetching it on a miss.
func (a *app) satellite(ctx context.Context, id int) (model.Satellite, error) {
	if sat, err := a.catalog.Get(id); err == nil {
		return sat, nil
	}
	sat, err := a.source.FetchSatellite(ctx, id)
	if err != nil {
		return model.Satellite{}, fmt.Errorf("satellite %d: %w", id, err)
	}
	if !sat.HasTLE() {
		return model.Satellite{}, fmt.Errorf("satellite %d has no TLE", id)
	}
	a.catalog.Put(sat)
	return sat, nil
}
