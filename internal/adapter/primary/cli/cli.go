package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"loudstalker/internal/adapter/secondary/repository"
	"loudstalker/internal/adapter/secondary/volume"
	"loudstalker/internal/adapter/secondary/webhook"
	"loudstalker/internal/domain"
	"loudstalker/internal/logging"
	"loudstalker/internal/metrics"
	"loudstalker/internal/usecase"
)

var (
	cfgPath          string
	verbosity        int
	debug            bool
	muteTrigger      string
	volchangeTrigger string
	timeout          time.Duration
)

// NewRootCmd creates the root CLI command.
// This is the primary adapter that translates CLI inputs to use case calls.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loudstalker [endpoint]",
		Short: "Fire webhook triggers when the default audio output is muted or its volume changes",
		Long: `Watches the default audio render endpoint and POSTs to
http://<endpoint>/interact/trigger/<name> whenever the mute state or the
volume percentage changes. Failed calls are logged and dropped.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}
			endpoint, err := volume.NewDefaultEndpoint()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runBridge(ctx, cfg, endpoint, webhook.NewHTTPTrigger(cfg.Timeout))
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", repository.DefaultPath(), "config file path")
	cmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "more logging (-v debug, -vv trace)")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "debug logging, same as -v")
	cmd.PersistentFlags().StringVarP(&muteTrigger, "mute-trigger", "m", string(domain.TriggerMute), "trigger name fired on mute toggle")
	cmd.PersistentFlags().StringVar(&volchangeTrigger, "volchange-trigger", string(domain.TriggerVolume), "trigger name fired on volume change (no short form, -v is verbosity)")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "trigger HTTP timeout (0 keeps transport defaults)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		applyVerbosity()
	}

	cmd.AddCommand(
		newConfigCmd(),
		newTriggerCmd(),
		newShellCmd(),
	)

	return cmd
}

func applyVerbosity() {
	count := verbosity
	if debug && count == 0 {
		count = 1
	}
	logging.SetVerbosity(count)
}

// runBridge registers the bridge with endpoint and blocks until ctx is done.
func runBridge(ctx context.Context, cfg domain.Config, endpoint domain.EndpointVolume, trigger domain.TriggerClient) error {
	targets, err := cfg.Targets()
	if err != nil {
		return err
	}
	logging.Debugf("mute trigger %s", targets.Mute)
	logging.Debugf("volchange trigger %s", targets.Volume)

	m := metrics.NewMetrics(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job)
	bridge, err := usecase.NewBridgeUseCase(targets, trigger, usecase.WithMetrics(m))
	if err != nil {
		return err
	}

	logging.Debugf("using %s endpoint", endpoint.Name())
	if err := endpoint.RegisterControlChangeNotify(ctx, bridge); err != nil {
		return err
	}
	flushed := usecase.NewMetricsPusher(m, cfg.Metrics.PushInterval).Start(ctx)

	logging.Infof("volume stalking started")
	<-ctx.Done()
	<-flushed
	return nil
}

// loadConfig reads the config file and applies positional and flag overrides.
func loadConfig(cmd *cobra.Command, args []string) (domain.Config, error) {
	cfg, err := readConfig(cmd, args)
	if err != nil {
		return domain.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, domain.ErrEmptyEndpoint) {
			return domain.Config{}, fmt.Errorf("%w: pass it as an argument or set it with 'config set --endpoint'", err)
		}
		return domain.Config{}, err
	}
	return cfg, nil
}

// readConfig is loadConfig without validation.
func readConfig(cmd *cobra.Command, args []string) (domain.Config, error) {
	repo, err := repository.NewFileRepository(cfgPath)
	if err != nil {
		return domain.Config{}, err
	}
	cfg, err := repo.Load()
	if err != nil {
		return domain.Config{}, err
	}

	if len(args) > 0 {
		cfg.Endpoint = args[0]
	}
	flags := cmd.Flags()
	if flags.Changed("mute-trigger") {
		cfg.MuteTrigger = muteTrigger
	}
	if flags.Changed("volchange-trigger") {
		cfg.VolchangeTrigger = volchangeTrigger
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}

	// Command line verbosity wins over the configured level.
	if verbosity == 0 && !debug {
		level, _, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return domain.Config{}, fmt.Errorf("logging level: %w", err)
		}
		logging.SetLevel(level)
	}
	return cfg, nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the config file",
	}
	cmd.AddCommand(newConfigGetCmd(), newConfigSetCmd())
	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the resolved configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig(cmd, nil)
			if err != nil {
				return err
			}
			out, err := repository.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var (
		endpointFlag     string
		levelFlag        string
		pushgatewayFlag  string
		jobFlag          string
		pushIntervalFlag time.Duration
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig(cmd, nil)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("endpoint") {
				cfg.Endpoint = endpointFlag
			}
			if flags.Changed("log-level") {
				if _, _, err := logging.ParseLevel(levelFlag); err != nil {
					return err
				}
				cfg.LogLevel = levelFlag
			}
			if flags.Changed("pushgateway") {
				cfg.Metrics.PushgatewayURL = pushgatewayFlag
			}
			if flags.Changed("job") {
				cfg.Metrics.Job = jobFlag
			}
			if flags.Changed("push-interval") {
				cfg.Metrics.PushInterval = pushIntervalFlag
			}

			if err := cfg.Validate(); err != nil && !errors.Is(err, domain.ErrEmptyEndpoint) {
				return err
			}

			repo, err := repository.NewFileRepository(cfgPath)
			if err != nil {
				return err
			}
			if err := repo.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s: endpoint=%q mute=%s volchange=%s\n",
				repo.Path(), cfg.Endpoint, cfg.MuteTrigger, cfg.VolchangeTrigger)
			return nil
		},
	}
	cmd.Flags().StringVar(&endpointFlag, "endpoint", "", "trigger host[:port]")
	cmd.Flags().StringVar(&levelFlag, "log-level", "info", "error|warn|info|debug|trace")
	cmd.Flags().StringVar(&pushgatewayFlag, "pushgateway", "", "Prometheus Pushgateway URL (empty disables)")
	cmd.Flags().StringVar(&jobFlag, "job", "loudstalker", "Pushgateway job name")
	cmd.Flags().DurationVar(&pushIntervalFlag, "push-interval", 30*time.Second, "metrics push interval")
	return cmd
}

func newTriggerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Fire a trigger once without watching the device",
	}

	mute := &cobra.Command{
		Use:   "mute [endpoint]",
		Short: "POST the mute trigger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bridge, err := newManualBridge(cmd, args)
			if err != nil {
				return err
			}
			return bridge.FireMute(cmd.Context())
		},
	}

	var volumeFlag int
	volchange := &cobra.Command{
		Use:   "volchange [endpoint]",
		Short: "POST the volume trigger with --volume",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if volumeFlag < 0 || volumeFlag > 100 {
				return domain.ErrInvalidVolume
			}
			bridge, err := newManualBridge(cmd, args)
			if err != nil {
				return err
			}
			return bridge.FireVolume(cmd.Context(), int32(volumeFlag))
		},
	}
	volchange.Flags().IntVar(&volumeFlag, "volume", 50, "volume percentage (0-100)")

	cmd.AddCommand(mute, volchange)
	return cmd
}

func newManualBridge(cmd *cobra.Command, args []string) (usecase.BridgeUseCase, error) {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return nil, err
	}
	targets, err := cfg.Targets()
	if err != nil {
		return nil, err
	}
	return usecase.NewBridgeUseCase(targets, webhook.NewHTTPTrigger(cfg.Timeout))
}
