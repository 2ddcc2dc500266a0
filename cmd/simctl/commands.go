package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcapi "measurement-simulator/internal/api/grpc"
	"measurement-simulator/internal/application/streaming"
	"measurement-simulator/internal/domain"
	"measurement-simulator/internal/infra"
	"measurement-simulator/internal/shared/constants"
)

var version = "dev"

type streamOptions struct {
	rate      float64
	signal    string
	frequency float64
	variation float64
	count     int
	duration  time.Duration
	addr      string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "simctl",
		Short:        "Console client for the measurement simulator",
		SilenceUsage: true,
	}
	root.AddCommand(newStreamCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the simctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "simctl %s\n", version)
		},
	}
}

func newStreamCmd() *cobra.Command {
	defaults := infra.DefaultConfig().Defaults
	opts := streamOptions{}

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Print simulated samples until interrupted",
		Long: `Streams samples from a local generator, or from a running simulator when
--addr points at its gRPC port. Stops after --count samples, after --duration,
or on Ctrl-C, whichever comes first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&opts.rate, "rate", defaults.MeasurementFrequencyHz, "samples per second (1..100)")
	flags.StringVar(&opts.signal, "signal", defaults.Signal, "waveform: sine or cosine")
	flags.Float64Var(&opts.frequency, "frequency", defaults.SignalFrequencyHz, "signal frequency in Hz (0.1..10)")
	flags.Float64Var(&opts.variation, "variation", defaults.VariationPercent, "maximum random variation in percent (0..100)")
	flags.IntVar(&opts.count, "count", 0, "stop after this many samples (0 = unlimited)")
	flags.DurationVar(&opts.duration, "duration", 0, "stop after this long (0 = unlimited)")
	flags.StringVar(&opts.addr, "addr", "", "gRPC address of a running simulator, e.g. localhost:50051")

	return cmd
}

func (o streamOptions) lookup() streaming.Lookup {
	values := map[string]string{
		streaming.ParamMeasurementFrequencyHz: strconv.FormatFloat(o.rate, 'g', -1, 64),
		streaming.ParamSignal:                 o.signal,
		streaming.ParamSignalFrequencyHz:      strconv.FormatFloat(o.frequency, 'g', -1, 64),
		streaming.ParamVariationPercent:       strconv.FormatFloat(o.variation, 'g', -1, 64),
	}
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}

func runStream(ctx context.Context, out io.Writer, opts streamOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	factory := streaming.NewFactory(infra.DefaultConfig().Defaults)
	params, errs := factory.Resolve(opts.lookup())
	if len(errs) > 0 {
		return errs
	}

	if opts.addr != "" {
		return streamRemote(ctx, out, opts, params)
	}

	source, err := factory.Source(params)
	if err != nil {
		return err
	}

	printed := 0
	for sample := range source.Samples(ctx) {
		printSample(out, sample)
		printed++
		if opts.count > 0 && printed >= opts.count {
			break
		}
	}
	return nil
}

func streamRemote(ctx context.Context, out io.Writer, opts streamOptions, params streaming.Params) error {
	conn, err := grpc.NewClient(opts.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connect %s: %w", opts.addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := grpcapi.NewClient(conn).StreamMeasurements(ctx, grpcapi.ParamsToStruct(params))
	if err != nil {
		return err
	}

	for printed := 0; opts.count <= 0 || printed < opts.count; printed++ {
		msg, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		sample, err := grpcapi.SampleFromStruct(msg)
		if err != nil {
			return err
		}
		printSample(out, sample)
	}
	return nil
}

func printSample(out io.Writer, sample domain.Sample) {
	ts := sample.Timestamp.Format(constants.TimeFormat)
	if !sample.HasValue {
		fmt.Fprintf(out, "%s\tno value\n", ts)
		return
	}
	fmt.Fprintf(out, "%s\t%.6f\n", ts, sample.Value)
}
