// Command homegraph is a small CLI over the client library: it prints an
// account overview, adjusts thermostats and occupancy, and watches the
// event stream.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rivenhall/homegraph"
	"github.com/rivenhall/homegraph/internal/infrastructure/logging"
)

const usage = `usage: homegraph [flags] <command> [args]

commands:
  show                          print the account overview
  authorize                     print the browser authorization URL
  token <pin>                   exchange an authorization pin for a token
  temp <serial> <degrees>       set a thermostat's target temperature
  mode <serial> <mode>          set a thermostat's hvac mode
  fan <serial> <on|auto>        set a thermostat's fan state
  away <structure-id> <state>   set a structure's home/away state
  watch                         block and report pushed state changes

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "homegraph: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("homegraph", flag.ExitOnError)
	configPath := flags.String("config", "", "path to the YAML configuration file")
	verbose := flags.Bool("verbose", false, "enable debug logging")
	flags.Usage = func() {
		fmt.Fprint(flags.Output(), usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return errors.New("missing command")
	}

	cfg := homegraph.DefaultConfig()
	if *configPath != "" {
		loaded, err := homegraph.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	cfg.Logging.Output = "stderr"

	client, err := homegraph.New(cfg, logging.New(cfg.Logging, homegraph.Version))
	if err != nil {
		return err
	}
	defer client.Close()

	command, rest := flags.Arg(0), flags.Args()[1:]
	err = dispatch(ctx, client, command, rest)

	var authErr *homegraph.AuthorizationError
	if errors.As(err, &authErr) {
		fmt.Fprintf(os.Stderr, "authorization required: open\n\n  %s\n\nthen run: homegraph token <pin>\n", client.AuthorizeURL())
	}
	return err
}

func dispatch(ctx context.Context, client *homegraph.Client, command string, args []string) error {
	switch command {
	case "show":
		return show(ctx, client)
	case "authorize":
		fmt.Println(client.AuthorizeURL())
		return nil
	case "token":
		if len(args) != 1 {
			return errors.New("token requires a pin")
		}
		if err := client.RequestToken(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("token stored")
		return nil
	case "temp":
		if len(args) != 2 {
			return errors.New("temp requires a serial and a temperature")
		}
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("bad temperature %q", args[1])
		}
		return client.Thermostat(args[0]).SetTarget(ctx, value)
	case "mode":
		if len(args) != 2 {
			return errors.New("mode requires a serial and a mode")
		}
		return client.Thermostat(args[0]).SetMode(ctx, args[1])
	case "fan":
		if len(args) != 2 {
			return errors.New("fan requires a serial and a state")
		}
		return client.Thermostat(args[0]).SetFan(ctx, args[1])
	case "away":
		if len(args) != 2 {
			return errors.New("away requires a structure id and a state")
		}
		return client.Structure(args[0]).SetAway(ctx, args[1])
	case "watch":
		return watch(ctx, client)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func show(ctx context.Context, client *homegraph.Client) error {
	structures, err := client.Structures(ctx)
	if err != nil {
		return err
	}

	for _, s := range structures {
		name, err := s.Name(ctx)
		if err != nil {
			return err
		}
		away, err := s.Away(ctx)
		if err != nil {
			away = "unknown"
		}
		fmt.Printf("%s (%s) [%s]\n", name, s.ID(), away)

		if err := showThermostats(ctx, client, s); err != nil {
			return err
		}
		if err := showCameras(ctx, client, s); err != nil {
			return err
		}
		if err := showAlarms(ctx, client, s); err != nil {
			return err
		}
	}
	return nil
}

func showThermostats(ctx context.Context, client *homegraph.Client, s *homegraph.Structure) error {
	ids, err := s.ThermostatIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		t := client.Thermostat(id)
		name, err := t.Name(ctx)
		if err != nil {
			return err
		}
		scale, _ := t.Scale(ctx)
		temp, _ := t.Temperature(ctx)
		mode, _ := t.Mode(ctx)

		line := fmt.Sprintf("  thermostat %-20s %5.1f°%s  mode=%s", name, temp, scale, mode)
		if target, err := t.Target(ctx); err == nil {
			line += fmt.Sprintf("  target=%.1f", target)
		} else if pair, err := t.TargetRange(ctx); err == nil {
			line += fmt.Sprintf("  target=%.1f-%.1f", pair.Low, pair.High)
		}
		fmt.Println(line)
	}
	return nil
}

func showCameras(ctx context.Context, client *homegraph.Client, s *homegraph.Structure) error {
	ids, err := s.CameraIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		c := client.Camera(id)
		name, err := c.Name(ctx)
		if err != nil {
			return err
		}
		streaming, _ := c.IsStreaming(ctx)
		motion, _ := c.MotionDetected(ctx)
		fmt.Printf("  camera     %-20s streaming=%t motion=%t\n", name, streaming, motion)
	}
	return nil
}

func showAlarms(ctx context.Context, client *homegraph.Client, s *homegraph.Structure) error {
	ids, err := s.SmokeCoAlarmIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		a := client.SmokeCoAlarm(id)
		name, err := a.Name(ctx)
		if err != nil {
			return err
		}
		color, _ := a.UIColorState(ctx)
		fmt.Printf("  alarm      %-20s status=%s\n", name, color)
	}
	return nil
}

func watch(ctx context.Context, client *homegraph.Client) error {
	// Prime the cache so the stream is open before waiting.
	if _, err := client.State(ctx); err != nil {
		return err
	}

	// WaitForChange blocks on the stream, not the context; closing the
	// client wakes it when the signal arrives.
	go func() {
		<-ctx.Done()
		client.Close()
	}()

	version := client.Version()
	for {
		next, err := client.WaitForChange(version)
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if next == version {
			// The stream closed cleanly; reopen via a fresh read.
			if _, err := client.State(ctx); err != nil {
				return err
			}
			continue
		}
		version = next
		fmt.Printf("state changed (version %d)\n", version)
	}
}
