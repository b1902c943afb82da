package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"loudstalker/internal/adapter/secondary/volume"
	"loudstalker/internal/adapter/secondary/webhook"
	"loudstalker/internal/domain"
	"loudstalker/internal/logging"
	"loudstalker/internal/usecase"
)

func newShellCmd() *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "shell [endpoint]",
		Short: "Interactive shell that feeds simulated notifications through the bridge",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}
			sh, err := newShellSession(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return sh.run(prompt)
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "loudstalker> ", "shell prompt")
	return cmd
}

// shellSession owns a bridge fed by a manual endpoint instead of the device.
type shellSession struct {
	cfg      domain.Config
	bridge   usecase.BridgeUseCase
	endpoint *volume.ManualEndpoint
	out      io.Writer
}

func newShellSession(cfg domain.Config, out io.Writer) (*shellSession, error) {
	targets, err := cfg.Targets()
	if err != nil {
		return nil, err
	}
	bridge, err := usecase.NewBridgeUseCase(targets, webhook.NewHTTPTrigger(cfg.Timeout))
	if err != nil {
		return nil, err
	}
	endpoint := volume.NewManualEndpoint()
	if err := endpoint.RegisterControlChangeNotify(context.Background(), bridge); err != nil {
		return nil, err
	}
	return &shellSession{cfg: cfg, bridge: bridge, endpoint: endpoint, out: out}, nil
}

func (s *shellSession) run(prompt string) error {
	historyFile := filepath.Join(os.TempDir(), "loudstalker-shell.history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintln(s.out, "Interactive shell. 'help' for usage, 'exit' to quit.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			fmt.Fprintln(s.out)
			continue
		}
		if err == io.EOF {
			fmt.Fprintln(s.out)
			return nil
		}
		if done := s.handleLine(line); done {
			return nil
		}
	}
}

// handleLine executes one shell line and reports whether the shell should exit.
func (s *shellSession) handleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	switch line {
	case "exit", "quit":
		fmt.Fprintln(s.out, "Bye!")
		return true
	case "help":
		printShellHelp(s.out)
		return false
	}
	tokens, err := shlex.Split(line)
	if err != nil {
		fmt.Fprintf(s.out, "parse error: %v\n", err)
		return false
	}
	if len(tokens) == 0 {
		return false
	}

	switch tokens[0] {
	case "notify":
		if err := s.handleNotify(tokens[1:]); err != nil {
			fmt.Fprintf(s.out, "notify: %v\n", err)
		}
	case "state":
		snap := s.bridge.Snapshot()
		fmt.Fprintf(s.out, "muted=%t volume=%d\n", snap.Muted, snap.Volume)
	case "targets":
		t := s.bridge.Targets()
		fmt.Fprintf(s.out, "mute:      %s\nvolchange: %s\n", t.Mute, t.Volume)
	case "log":
		if err := s.handleLog(tokens[1:]); err != nil {
			fmt.Fprintf(s.out, "log: %v\n", err)
		}
	case "trigger":
		if err := s.handleTrigger(tokens[1:]); err != nil {
			fmt.Fprintf(s.out, "trigger: %v\n", err)
		}
	case "config":
		if err := executeArgs(tokens); err != nil {
			fmt.Fprintf(s.out, "command error: %v\n", err)
		}
	default:
		fmt.Fprintf(s.out, "unknown command %q, try 'help'\n", tokens[0])
	}
	return false
}

func (s *shellSession) handleNotify(args []string) error {
	fs := pflag.NewFlagSet("notify", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	muted := fs.Bool("muted", false, "mute flag of the simulated event")
	level := fs.Float32("level", 0, "volume scalar 0.0-1.0")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *level < 0 || *level > 1 {
		return fmt.Errorf("--level must be between 0 and 1, got %v", *level)
	}
	if err := s.endpoint.Notify(domain.Notification{Muted: *muted, Level: *level}); err != nil {
		return err
	}
	snap := s.bridge.Snapshot()
	fmt.Fprintf(s.out, "state: muted=%t volume=%d\n", snap.Muted, snap.Volume)
	return nil
}

// handleTrigger fires a trigger on the session bridge, so the endpoint and
// trigger names the shell started with apply.
func (s *shellSession) handleTrigger(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: trigger mute | trigger volchange --volume N")
	}
	fs := pflag.NewFlagSet("trigger "+args[0], pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	vol := fs.Int("volume", 50, "volume percentage (0-100)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments %v", fs.Args())
	}

	ctx := context.Background()
	switch args[0] {
	case "mute":
		return s.bridge.FireMute(ctx)
	case "volchange":
		if *vol < 0 || *vol > 100 {
			return domain.ErrInvalidVolume
		}
		return s.bridge.FireVolume(ctx, int32(*vol))
	default:
		return fmt.Errorf("unknown trigger %q", args[0])
	}
}

func (s *shellSession) handleLog(args []string) error {
	fs := pflag.NewFlagSet("log", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var vcount int
	var level string
	var show bool
	fs.CountVarP(&vcount, "verbose", "v", "Increase verbosity (-v, -vv)")
	fs.StringVar(&level, "level", "", "error|warn|info|debug|trace")
	fs.BoolVarP(&show, "show", "s", false, "show current level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case level != "":
		l, _, err := logging.ParseLevel(level)
		if err != nil {
			return err
		}
		logging.SetLevel(l)
	case vcount > 0:
		logging.SetVerbosity(vcount)
	default:
		fmt.Fprintf(s.out, "log level: %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
		return nil
	}

	// Keep the level when subcommands rebuild the root command.
	verbosity = logging.Verbosity()
	fmt.Fprintf(s.out, "log level set to %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
	return nil
}

// executeArgs runs a config subcommand on a fresh root, keeping the session's
// config file.
func executeArgs(args []string) error {
	if len(args) == 0 {
		return nil
	}
	session := []string{"--config", cfgPath}
	if n := logging.Verbosity(); n > 0 {
		session = append(session, "-"+strings.Repeat("v", n))
	}
	root := NewRootCmd()
	root.SetArgs(append(args, session...))
	return root.Execute()
}

func printShellHelp(w io.Writer) {
	fmt.Fprintln(w, `Examples:
  notify --level 0.5              # simulate a notification (volume 50%)
  notify --muted --level 0.5      # simulate muting
  state                           # last dispatched mute/volume
  targets                         # resolved trigger URLs
  trigger mute                    # fire the mute trigger without changing state
  trigger volchange --volume 30   # fire the volume trigger without changing state
  config get                      # show configuration
  log -v | log --level trace      # change log level
  log --show                      # show log level
  exit / quit                     # leave the shell`)
}
