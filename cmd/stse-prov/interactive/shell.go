// Package interactive provides the interactive provisioning shell of
// stse-prov. Each step of a provisioning run can be issued on its own
// against an initialized device.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/stse-tools/stse-go/pkg/changeright"
	"github.com/stse-tools/stse-go/pkg/policy"
	"github.com/stse-tools/stse-go/pkg/profile"
	"github.com/stse-tools/stse-go/pkg/provision"
	"github.com/stse-tools/stse-go/pkg/report"
	"github.com/stse-tools/stse-go/pkg/service"
	"github.com/stse-tools/stse-go/pkg/stse"
)

// Config holds what the shell operates on.
type Config struct {
	// Device is the initialized device. Required.
	Device stse.Device

	// HandlerConfig is the configuration the device was initialized
	// with. The perso command prints its personalization.
	HandlerConfig stse.HandlerConfig

	// Profile supplies the target tables and key slot fields. Required.
	Profile *profile.Profile

	// Provisioner runs the full sequence for the run command. Required.
	Provisioner *service.Provisioner

	// Reporter renders tables and slot outcomes. Required.
	Reporter report.Reporter

	// Slot is the key slot provisioning controller used by slot and
	// slots. Defaults to a controller over Device with the profile slot
	// count.
	Slot *provision.Controller
}

// Shell is the interactive command loop.
type Shell struct {
	cfg Config
	ac  policy.ACTable
	enc policy.EncryptionTable
	out io.Writer
	rl  *readline.Instance
}

// New creates a shell reading commands from the terminal.
func New(cfg Config) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "stse> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s, err := newShell(cfg, rl.Stdout())
	if err != nil {
		rl.Close()
		return nil, err
	}
	s.rl = rl
	return s, nil
}

// NewWithWriter creates a shell without a terminal. Commands are passed
// to Execute and their output goes to w.
func NewWithWriter(cfg Config, w io.Writer) (*Shell, error) {
	return newShell(cfg, w)
}

func newShell(cfg Config, w io.Writer) (*Shell, error) {
	if cfg.Device == nil || cfg.Profile == nil || cfg.Provisioner == nil || cfg.Reporter == nil {
		return nil, errors.New("interactive: device, profile, provisioner and reporter are required")
	}
	ac, enc, err := cfg.Profile.Tables()
	if err != nil {
		return nil, err
	}
	if cfg.Slot == nil {
		cfg.Slot = provision.NewController(cfg.Device, provision.Config{SlotCount: cfg.Profile.KeySlots.Count})
	}
	return &Shell{cfg: cfg, ac: ac, enc: enc, out: w}, nil
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("count"),
		readline.PcItem("query"),
		readline.PcItem("apply-ac"),
		readline.PcItem("apply-enc"),
		readline.PcItem("slot"),
		readline.PcItem("slots"),
		readline.PcItem("perso"),
		readline.PcItem("run"),
		readline.PcItem("quit"),
	)
}

// Stdout returns a writer that coordinates with the prompt.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run reads commands until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	if s.rl == nil {
		return
	}
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if !s.Execute(ctx, line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns false when the shell should
// exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "count", "c":
		s.cmdCount(ctx)
	case "query", "q":
		s.cmdQuery(ctx)
	case "apply-ac":
		s.cmdApplyAC(ctx)
	case "apply-enc":
		s.cmdApplyEncryption(ctx)
	case "slot":
		s.cmdSlot(ctx, args)
	case "slots":
		s.cmdSlots(ctx)
	case "perso":
		s.cmdPerso()
	case "run":
		s.cmdRun(ctx)
	case "quit", "exit":
		fmt.Fprintln(s.out, "Exiting...")
		return false
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) printHelp() {
	fmt.Fprintf(s.out, `
Provisioning Commands (profile %s):
  Device:
    count          - Read the number of commands in the device tables
    query          - Read and print the current command policy
    perso          - Show the personalization passed at initialization

  Tables:
    apply-ac       - Write the profile access-condition table
    apply-enc      - Write the profile encryption table

  Key Slots:
    slot <n>       - Write the profile provisioning fields to slot n
    slots          - Write the profile provisioning fields to every slot

  General:
    run            - Run the full provisioning sequence
    help           - Show this help
    quit           - Exit
`, s.cfg.Profile.Name)
}

func (s *Shell) printError(op string, err error) {
	if status, ok := stse.StatusOf(err); ok {
		fmt.Fprintf(s.out, "%s failed: %s (0x%02X)\n", op, status, uint16(status))
		return
	}
	fmt.Fprintf(s.out, "%s failed: %v\n", op, err)
}

func (s *Shell) cmdCount(ctx context.Context) {
	count, err := s.cfg.Device.GetCommandCount(ctx)
	if err != nil {
		s.printError("count", err)
		return
	}
	fmt.Fprintf(s.out, "Device tables hold %d commands (profile: %d)\n", count, s.ac.Len())
}

func (s *Shell) cmdQuery(ctx context.Context) {
	count, err := s.cfg.Device.GetCommandCount(ctx)
	if err != nil {
		s.printError("count", err)
		return
	}
	snap, err := s.cfg.Device.GetCommandACTable(ctx, count)
	if err != nil {
		s.printError("query", err)
		return
	}
	records, err := snap.Records()
	if err != nil {
		s.printError("query", err)
		return
	}
	s.cfg.Reporter.ReportTable("Current command policy", snap.ChangeRights, records)
}

func (s *Shell) cmdApplyAC(ctx context.Context) {
	if err := s.cfg.Device.PutCommandACTable(ctx, s.ac); err != nil {
		s.printError("apply-ac", err)
		return
	}
	fmt.Fprintf(s.out, "Access-condition table written (%d commands)\n", s.ac.Len())
}

func (s *Shell) cmdApplyEncryption(ctx context.Context) {
	if err := s.cfg.Device.PutCommandEncryptionTable(ctx, s.enc); err != nil {
		s.printError("apply-enc", err)
		return
	}
	fmt.Fprintf(s.out, "Encryption table written (%d commands)\n", s.enc.Len())
}

func (s *Shell) cmdSlot(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: slot <n>")
		return
	}
	n, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid slot: %s\n", args[0])
		return
	}
	result := s.cfg.Slot.ProvisionSlot(ctx, uint8(n), s.cfg.Profile.KeySlots.Fields)
	s.cfg.Reporter.ReportSlots([]provision.SlotResult{result})
}

func (s *Shell) cmdSlots(ctx context.Context) {
	results := s.cfg.Slot.Run(ctx, s.cfg.Profile.KeySlots.Fields)
	s.cfg.Reporter.ReportSlots(results)

	var summary report.Summary
	summary.AddSlots(provision.Tally(results))
	s.cfg.Reporter.ReportSummary(summary)
}

func (s *Shell) cmdPerso() {
	perso := s.cfg.HandlerConfig.Personalization
	fmt.Fprintf(s.out, "Device 0x%02X on bus %d\n", s.cfg.HandlerConfig.DeviceAddress, s.cfg.HandlerConfig.BusID)
	fmt.Fprintf(s.out, "Personalization: %s\n", perso.String())

	cmd, _ := changeright.Unpack(perso.CmdACStatus, changeright.MaxGroups)
	ext, _ := changeright.Unpack(perso.ExtCmdACStatus, changeright.MaxGroups)
	fmt.Fprintf(s.out, "  command levels:          %v\n", cmd)
	fmt.Fprintf(s.out, "  extended command levels: %v\n", ext)
}

func (s *Shell) cmdRun(ctx context.Context) {
	result, err := s.cfg.Provisioner.Provision(ctx, s.cfg.Device)
	if err != nil {
		s.printError("run", err)
		return
	}
	fmt.Fprintf(s.out, "Run %s finished in state %s\n", result.RunID, result.State)
}
