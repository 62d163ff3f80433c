package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/mapframe/internal/engine"
	"github.com/kiesman99/mapframe/internal/output"
	"github.com/kiesman99/mapframe/pkg/frame"
	"github.com/kiesman99/mapframe/pkg/projection"
)

const version = "1.0.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mapframe [flags] STYLE OUTPUT",
	Short: "Render a Mapnik style for print at a given scale, size and resolution",
	Long: `mapframe computes the pixel size, scale factor, bounding box and layer
selection of a printed map and hands them to a rendering engine.

The map is described by its center, its paper size in millimeters, the print
resolution and the scale denominator. OUTPUT "-" writes the image to stdout;
the format follows the OUTPUT extension unless --format is given.

Examples:
  # A4 portrait at 1:10000 and 300 ppi around Muenster
  mapframe --ppi 300 --scale 10000 --size 210,297 --center 7.6261,51.9607 style.xml map.png

  # Print the derived values without rendering
  mapframe --ppi 300 --scale 25000 --size 420,297 --center 13.4,52.52 --info style.xml map.png

  # Hide a layer and show another, render with an external renderer
  mapframe --ppi 600 --scale 5000 --size 100,100 --center 0,0 --hide-layers labels --add-layers grid --engine exec style.xml map.svg

  # Start HTTP server
  mapframe serve --port 8080 --style style.xml`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no args, show help
		if len(args) == 0 {
			return cmd.Help()
		}
		if len(args) != 2 {
			return fmt.Errorf("expected STYLE and OUTPUT arguments, got %d", len(args))
		}
		return runRender(cmd, args[0], args[1])
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetArgs(joinPairArgs(os.Args[1:]))
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mapframe.yaml)")
	rootCmd.PersistentFlags().String("engine", engine.NamePreview, "rendering engine (preview|exec)")

	// Frame options
	rootCmd.Flags().Float64("ppi", 0, "print resolution in pixels per inch (required)")
	rootCmd.Flags().Float64("scale", 0, "scale denominator, 10000 for 1:10000 (required)")
	rootCmd.Flags().String("size", "", "paper size in millimeters as 'width,height' or 'width height' (required)")
	rootCmd.Flags().String("center", "", "map center as 'lon,lat' or 'lon lat' in degrees (required)")

	// Layer options
	rootCmd.Flags().String("add-layers", "", "comma-separated layers to enable")
	rootCmd.Flags().String("hide-layers", "", "comma-separated layers to disable")

	// Output options
	rootCmd.Flags().StringP("format", "f", "", "output format (default: from OUTPUT extension)")
	rootCmd.Flags().BoolP("worldfile", "w", false, "write world file")
	rootCmd.Flags().Bool("debug", false, "print derived values and diagnostics before rendering")
	rootCmd.Flags().Bool("info", false, "print derived values and exit without rendering")

	// Bind flags to viper
	viper.BindPFlag("engine", rootCmd.PersistentFlags().Lookup("engine"))
	viper.BindPFlag("ppi", rootCmd.Flags().Lookup("ppi"))
	viper.BindPFlag("scale", rootCmd.Flags().Lookup("scale"))
	viper.BindPFlag("size", rootCmd.Flags().Lookup("size"))
	viper.BindPFlag("center", rootCmd.Flags().Lookup("center"))
	viper.BindPFlag("add-layers", rootCmd.Flags().Lookup("add-layers"))
	viper.BindPFlag("hide-layers", rootCmd.Flags().Lookup("hide-layers"))
	viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
	viper.BindPFlag("worldfile", rootCmd.Flags().Lookup("worldfile"))
	viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))
	viper.BindPFlag("info", rootCmd.Flags().Lookup("info"))

	// Renderer and limits are configured through the config file or environment
	viper.SetDefault("renderer.command", engine.DefaultCommand)
	viper.SetDefault("renderer.vector_surface", false)
	viper.SetDefault("renderer.timeout", 5*time.Minute)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".mapframe" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mapframe")
	}

	// MAPFRAME_RENDERER_COMMAND sets renderer.command, MAPFRAME_ADD_LAYERS sets add-layers
	viper.SetEnvPrefix("mapframe")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func runRender(cmd *cobra.Command, stylePath, outputName string) error {
	stderr := cmd.ErrOrStderr()
	debug := viper.GetBool("debug")
	logger := newLogger(stderr, debug)

	req, err := renderRequestFromConfig(outputName)
	if err != nil {
		return err
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("renderer.timeout"))
	defer cancel()

	m, err := eng.Load(ctx, stylePath)
	if err != nil {
		return fmt.Errorf("failed to load style: %w", err)
	}

	calc := newCalculator(eng, logger)
	f, err := calc.Compute(req, m.Layers())
	if err != nil {
		return err
	}

	// The report goes to stdout unless the image does
	report := cmd.OutOrStdout()
	if outputName == output.Stdout {
		report = stderr
	}

	if debug {
		printDiagnostics(stderr, req, f, stylePath)
	}
	if debug || viper.GetBool("info") {
		if err := frame.WriteReport(report, f); err != nil {
			return err
		}
	}
	if viper.GetBool("info") {
		return nil
	}

	if err := engine.Prepare(m, f, calc.Transform().Target().Params); err != nil {
		return err
	}

	sink, err := output.Open(outputName, req.Format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if err := eng.Render(ctx, m, engine.JobFor(f, req.Format, sink.Path())); err != nil {
		sink.Discard()
		return err
	}
	if err := sink.Close(); err != nil {
		return err
	}

	if viper.GetBool("worldfile") {
		name, err := output.WriteWorldFile(outputName, req.Format, f)
		if err != nil {
			fmt.Fprintf(stderr, "Warning: %v\n", err)
		} else if debug {
			fmt.Fprintf(stderr, "==World File: %s\n", name)
		}
	}

	return nil
}

// renderRequestFromConfig collects the frame parameters from flags, config and environment
func renderRequestFromConfig(outputName string) (frame.RenderRequest, error) {
	for _, name := range []string{"ppi", "scale", "size", "center"} {
		if !viper.IsSet(name) {
			return frame.RenderRequest{}, fmt.Errorf("%s is required (use --%s)", name, name)
		}
	}

	width, height, err := parsePair("size", viper.GetString("size"))
	if err != nil {
		return frame.RenderRequest{}, err
	}

	lon, lat, err := parsePair("center", viper.GetString("center"))
	if err != nil {
		return frame.RenderRequest{}, err
	}

	format := frame.InferFormat(outputName)
	if name := viper.GetString("format"); name != "" {
		f, ok := frame.ParseFormat(name)
		if !ok {
			return frame.RenderRequest{}, fmt.Errorf("unknown format: %s", name)
		}
		format = f
	}

	return frame.RenderRequest{
		Center:           projection.Point{X: lon, Y: lat},
		WidthMM:          width,
		HeightMM:         height,
		PPI:              viper.GetFloat64("ppi"),
		ScaleDenominator: viper.GetFloat64("scale"),
		Enable:           frame.ParseLayerList(viper.GetString("add-layers")),
		Disable:          frame.ParseLayerList(viper.GetString("hide-layers")),
		Format:           format,
	}, nil
}

// pairFlags take two numbers, either as "a,b" or as two arguments
var pairFlags = map[string]bool{"--size": true, "--center": true}

// joinPairArgs rewrites "--size 297 420" into "--size=297,420" so the two
// argument form parses like the comma form. Negative numbers are kept as
// values rather than read as shorthand flags.
func joinPairArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			return append(out, args[i:]...)
		}
		if pairFlags[a] && i+2 < len(args) && !strings.Contains(args[i+1], ",") &&
			isNumber(args[i+1]) && isNumber(args[i+2]) {
			out = append(out, a+"="+args[i+1]+","+args[i+2])
			i += 2
			continue
		}
		out = append(out, a)
	}
	return out
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// parsePair parses "a,b" into two numbers
func parsePair(name, s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%s must be two comma-separated numbers, got %q", name, s)
	}

	a, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid %s: %v", name, err)
	}

	b, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid %s: %v", name, err)
	}

	return a, b, nil
}

func newEngine() (engine.Engine, error) {
	return engine.New(engine.Config{
		Name:          viper.GetString("engine"),
		Command:       viper.GetString("renderer.command"),
		VectorSurface: viper.GetBool("renderer.vector_surface"),
	})
}

func newCalculator(eng engine.Engine, logger *slog.Logger) *frame.Calculator {
	return frame.NewCalculator(projection.NewTransform(),
		frame.Capabilities{VectorSurface: eng.VectorSurface()},
		frame.WithLimits(frame.Limits{
			MinScale:    viper.GetFloat64("limits.min_scale"),
			MaxScale:    viper.GetFloat64("limits.max_scale"),
			MinWidthMM:  viper.GetFloat64("limits.min_width"),
			MaxWidthMM:  viper.GetFloat64("limits.max_width"),
			MinHeightMM: viper.GetFloat64("limits.min_height"),
			MaxHeightMM: viper.GetFloat64("limits.max_height"),
		}),
		frame.WithLogger(logger))
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func printDiagnostics(w io.Writer, req frame.RenderRequest, f *frame.DerivedFrame, stylePath string) {
	fmt.Fprintf(w, "==Style: %s\n", stylePath)
	fmt.Fprintf(w, "==Format: %s\n", req.Format.Name)
	fmt.Fprintf(w, "==Center (EPSG:4326): %.17g,%.17g\n", req.Center.X, req.Center.Y)
	fmt.Fprintf(w, "==Center (EPSG:3857): %.17g,%.17g\n", f.Center.X, f.Center.Y)
	fmt.Fprintf(w, "==Paper Size: %gx%g mm at %g ppi\n", req.WidthMM, req.HeightMM, req.PPI)
	fmt.Fprintf(w, "==Raster Size: %dx%d\n", f.Width, f.Height)
	fmt.Fprintf(w, "==Pixels per mm: %.17g\n", f.PixelsPerMM)
	fmt.Fprintf(w, "==Scale: 1:%g, %.17g units per pixel\n", req.ScaleDenominator, f.Scale)
	if f.Degraded {
		fmt.Fprintf(w, "==Degraded: scale factor forced to 1\n")
	}
}
