package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/galsynth/internal/analysis"
	"github.com/san-kum/galsynth/internal/catalog"
	"github.com/san-kum/galsynth/internal/config"
	"github.com/san-kum/galsynth/internal/errormodel"
	"github.com/san-kum/galsynth/internal/extinction"
	"github.com/san-kum/galsynth/internal/isochrone"
	"github.com/san-kum/galsynth/internal/phasespace"
	"github.com/san-kum/galsynth/internal/photometry"
	"github.com/san-kum/galsynth/internal/pipeline"
	"github.com/san-kum/galsynth/internal/storage"
	"github.com/san-kum/galsynth/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	seed       int64
	workers    int
	name       string
	plain      bool
	noPlot     bool
	// demo parameters
	demoCount int
	demoMass  float64
)

var (
	header = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	label  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	value  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	warn   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "galsynth",
		Short: "synthetic star catalog generator",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".galsynth", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [particles.csv]",
		Short: "generate a catalog from a particle file",
		Args:  cobra.ExactArgs(1),
		RunE:  runCatalog,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	runCmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (0 = all cpus)")
	runCmd.Flags().StringVar(&name, "name", "", "run name")
	runCmd.Flags().BoolVar(&plain, "plain", false, "disable the progress ui")
	runCmd.Flags().BoolVar(&noPlot, "no-plot", false, "skip terminal plots")

	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "run the built-in uniform-cube scenario",
		RunE:  runDemo,
	}
	demoCmd.Flags().IntVar(&demoCount, "count", 100, "number of particles")
	demoCmd.Flags().Float64Var(&demoMass, "mass", 200.0, "stellar mass per particle (Msun)")
	demoCmd.Flags().StringVar(&preset, "preset", "gaia-observed", "use preset configuration")
	demoCmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	demoCmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (0 = all cpus)")
	demoCmd.Flags().BoolVar(&plain, "plain", false, "disable the progress ui")
	demoCmd.Flags().BoolVar(&noPlot, "no-plot", false, "skip terminal plots")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Println(p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, demoCmd, listCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		copied := *p
		cfg = &copied
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	// CLI flags override whatever the file or preset says.
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if name != "" {
		cfg.Name = name
	}
	return cfg, nil
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	particles, err := storage.LoadParticles(args[0])
	if err != nil {
		return err
	}
	return generate(cfg, particles)
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Name = "demo"
	return generate(cfg, demoParticles(demoCount, demoMass, cfg.Seed))
}

// demoParticles fills a 1 kpc cube with a mild velocity dispersion and
// a spread of ages and metallicities, so every pipeline stage has work
// to do.
func demoParticles(n int, mass float64, seed int64) []phasespace.Particle {
	rng := rand.New(rand.NewSource(seed))
	particles := make([]phasespace.Particle, n)
	for i := range particles {
		particles[i] = phasespace.Particle{
			Pos:     phasespace.Vec3{rng.Float64(), rng.Float64(), rng.Float64()},
			Vel:     phasespace.Vec3{10 * rng.NormFloat64(), 10 * rng.NormFloat64(), 10 * rng.NormFloat64()},
			Mass:    mass,
			Age:     9.0 + rng.Float64(), // log10 yr, 1 to 10 Gyr
			FeH:     -1.5 + 1.7*rng.Float64(),
			Log10NH: 20.0 + 1.5*rng.Float64(),
		}
	}
	return particles
}

func generate(cfg *config.Config, particles []phasespace.Particle) error {
	pcfg, sys, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	cat, err := execute(pcfg, cfg.Name, particles)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(cfg.Name, cfg.Seed, len(particles), cat)
	if err != nil {
		return err
	}

	printSummary(cat, runID, len(particles), elapsed)
	if !noPlot {
		printPlots(cat, sys)
	}
	return nil
}

func buildPipeline(cfg *config.Config) (pipeline.Config, photometry.System, error) {
	var pcfg pipeline.Config
	var sys photometry.System

	mf, err := cfg.IMF.BuildIMF()
	if err != nil {
		return pcfg, sys, err
	}
	dp, combiner, err := cfg.Density.BuildParams()
	if err != nil {
		return pcfg, sys, err
	}
	sp, err := cfg.Sampling.BuildParams()
	if err != nil {
		return pcfg, sys, err
	}
	sys, err = photometry.Lookup(cfg.Photometry.System)
	if err != nil {
		return pcfg, sys, err
	}

	bands := cfg.Photometry.Bands
	if len(bands) == 0 {
		bands = sys.Bands
	}

	var procs []catalog.Processor
	if cfg.Extinction.Enabled {
		procs = append(procs, extinction.New(sys, extinction.Params{
			QDust: cfg.Extinction.QDust,
			RV:    cfg.Extinction.RV,
		}))
	}
	if cfg.ErrorModel.Enabled {
		procs = append(procs, errormodel.New(sys, cfg.Seed))
	}

	pcfg = pipeline.Config{
		Seed:       cfg.Seed,
		Workers:    cfg.Workers,
		IMF:        mf,
		Track:      isochrone.DemoGAIA(),
		Bands:      bands,
		Density:    dp,
		Combiner:   combiner,
		Sampling:   sp,
		Processors: procs,
	}
	return pcfg, sys, nil
}

// execute runs the pipeline, with a live progress view unless --plain.
func execute(pcfg pipeline.Config, runName string, particles []phasespace.Particle) (*catalog.Catalog, error) {
	if plain {
		fmt.Printf("sampling %d particles...\n", len(particles))
		return pipeline.Run(context.Background(), particles, pcfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan tea.Msg, 64)
	pcfg.OnProgress = func(done, total int) {
		select {
		case updates <- tui.ProgressMsg{Done: done, Total: total}:
		default: // the view will catch up on the next message
		}
	}

	type runResult struct {
		cat *catalog.Catalog
		err error
	}
	resCh := make(chan runResult, 1)
	go func() {
		cat, err := pipeline.Run(ctx, particles, pcfg)
		resCh <- runResult{cat, err}
		done := tui.DoneMsg{Err: err}
		if cat != nil {
			done.Stars = cat.Len()
			done.Excluded = cat.Excluded
		}
		select {
		case updates <- done:
		default:
		}
	}()

	model, err := tea.NewProgram(tui.NewRunModel(runName, updates)).Run()
	if err != nil {
		cancel()
		<-resCh
		return nil, err
	}
	if rm, ok := model.(tui.RunModel); ok && rm.Aborted() {
		cancel()
		<-resCh
		return nil, fmt.Errorf("run aborted")
	}

	res := <-resCh
	return res.cat, res.err
}

func printSummary(cat *catalog.Catalog, runID string, particles int, elapsed time.Duration) {
	fmt.Println(header.Render("catalog complete"))
	row := func(k, v string) {
		fmt.Printf("  %s %s\n", label.Render(k+":"), value.Render(v))
	}
	row("run id", runID)
	row("particles", fmt.Sprintf("%d", particles))
	row("stars", fmt.Sprintf("%d", cat.Len()))
	if cat.Excluded > 0 {
		fmt.Printf("  %s %s\n", label.Render("excluded:"),
			warn.Render(fmt.Sprintf("%d outside isochrone coverage", cat.Excluded)))
	}
	if cols := cat.ColumnNames(); len(cols) > 0 {
		row("columns", fmt.Sprintf("%v", cols))
	}
	row("elapsed", elapsed.Round(time.Millisecond).String())
}

func printPlots(cat *catalog.Catalog, sys photometry.System) {
	if cat.Len() == 0 {
		return
	}

	lf, err := analysis.LuminosityFunction(cat, sys.RefBand, 30)
	if err == nil {
		fmt.Println()
		fmt.Println(asciigraph.Plot(lf.Counts,
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption(fmt.Sprintf("luminosity function (%s)", sys.RefBand)),
		))
	}

	fmt.Println()
	fmt.Println(label.Render("  x-y projection"))
	fmt.Print(analysis.ProjectionASCII(cat, 0, 1, 70, 18))
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tPARTICLES\tSTARS\tEXCLUDED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Particles,
			run.Stars,
			run.Excluded,
		)
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
