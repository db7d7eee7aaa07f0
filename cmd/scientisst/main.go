// Command scientisst is a CLI client for a ScientISST Sense device,
// standing in for the GUI SPEC_FULL.md names out of this core's scope.
// It exercises the same Session API an embedding application would.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	sense "github.com/scientisst/sense-go"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfgPath, err := ConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfgManager := NewConfigManager(cfgPath)
	if err := cfgManager.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var runErr error

	switch cmd {
	case "devices":
		runErr = runDevices(args)
	case "version":
		runErr = runVersion(args, cfgManager)
	case "stream":
		runErr = runStream(args, cfgManager)
	case "trigger":
		runErr = runTrigger(args, cfgManager)
	case "dac":
		runErr = runDAC(args, cfgManager)
	case "battery":
		runErr = runBattery(args, cfgManager)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		if kind, ok := sense.KindOf(runErr); ok {
			fmt.Fprintf(os.Stderr, "  kind: %s\n", kind)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "CLI client for ScientISST Sense devices\n\n")
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  devices              list paired ScientISST devices\n")
	fmt.Fprintf(os.Stderr, "  version -a ADDR       query the device's firmware version string\n")
	fmt.Fprintf(os.Stderr, "  stream  -a ADDR ...   start an acquisition and print decoded frames\n")
	fmt.Fprintf(os.Stderr, "  trigger -a ADDR O1 O2 set the two digital outputs (0 or 1)\n")
	fmt.Fprintf(os.Stderr, "  dac     -a ADDR LEVEL set the DAC PWM level, 0-255\n")
	fmt.Fprintf(os.Stderr, "  battery -a ADDR VALUE set the low-battery LED threshold, 0-63\n\n")
	fmt.Fprintf(os.Stderr, "Examples:\n")
	fmt.Fprintf(os.Stderr, "  %s stream -a 00:11:22:33:44:55 -rate 1000 -channels 1,2,3\n", os.Args[0])
}

// dialAddress resolves nameOrAddress against the saved address book
// and opens a serial transport wired to session's disconnect hook.
func dialAddress(session *sense.Session, cfgManager *ConfigManager, nameOrAddress string) error {
	address := cfgManager.ResolveDevice(nameOrAddress)
	transport, err := sense.OpenSerial(address, session.OnDisconnect)
	if err != nil {
		return err
	}
	return session.Connect(transport)
}

func runDevices(args []string) error {
	fs := flag.NewFlagSet("devices", flag.ExitOnError)
	fs.Parse(args)

	addrs, err := sense.Find(sense.BluetoothctlDiscoverer{})
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		fmt.Println("no paired ScientISST devices found")
		return nil
	}
	for _, a := range addrs {
		fmt.Println(a)
	}
	return nil
}

func runVersion(args []string, cfgManager *ConfigManager) error {
	fs := flag.NewFlagSet("version", flag.ExitOnError)
	address := fs.String("a", "", "device address (MAC) or saved name")
	fs.Parse(args)
	if *address == "" {
		return fmt.Errorf("-a is required")
	}

	session, err := sense.New(cfgManager.ResolveDevice(*address))
	if err != nil {
		return err
	}
	if err := dialAddress(session, cfgManager, *address); err != nil {
		return err
	}
	defer session.Disconnect()

	version, err := session.Version()
	if err != nil {
		return err
	}
	fmt.Println(version)
	return nil
}

func runStream(args []string, cfgManager *ConfigManager) error {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	address := fs.String("a", "", "device address (MAC) or saved name")
	rate := fs.Int("rate", 1000, "sample rate in Hz")
	channelsFlag := fs.String("channels", "1,2,3,4,5,6", "comma-separated channel list, 1-8")
	simulated := fs.Bool("simulated", false, "request simulated samples instead of live analog input")
	count := fs.Int("n", 100, "number of frames to print before stopping")
	statusPort := fs.Int("status-port", 0, "serve /status diagnostics on this port, 0 disables it")
	fs.Parse(args)

	if *address == "" {
		return fmt.Errorf("-a is required")
	}

	channels, err := parseChannels(*channelsFlag)
	if err != nil {
		return err
	}

	session, err := sense.New(cfgManager.ResolveDevice(*address))
	if err != nil {
		return err
	}
	if err := dialAddress(session, cfgManager, *address); err != nil {
		return err
	}
	defer session.Disconnect()

	if err := session.Start(*rate, channels, *simulated, sense.SCIENTISST); err != nil {
		return err
	}
	defer session.Stop()

	var status *StatusServer
	if *statusPort != 0 {
		status = NewStatusServer(session, *statusPort)
		status.Start()
	}

	for printed := 0; printed < *count; {
		frames, err := session.Read(*count - printed)
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			log.Printf("scientisst: short read, acquisition stream may have stalled")
			break
		}
		for _, f := range frames {
			printFrame(f, channels)
			if status != nil {
				status.RecordFrame()
			}
		}
		printed += len(frames)
	}

	return nil
}

func printFrame(f sense.Frame, channels []sense.Channel) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "seq=%d", f.Seq)
	for _, ch := range channels {
		if v := f.Analog[ch-1]; v != nil {
			fmt.Fprintf(&sb, " ch%d=%d", ch, *v)
		}
	}
	fmt.Fprintf(&sb, " i1=%t i2=%t o1=%t o2=%t",
		f.Digital[sense.DigitalI1], f.Digital[sense.DigitalI2],
		f.Digital[sense.DigitalO1], f.Digital[sense.DigitalO2])
	fmt.Println(sb.String())
}

func parseChannels(csv string) ([]sense.Channel, error) {
	parts := strings.Split(csv, ",")
	channels := make([]sense.Channel, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid channel %q: %w", p, err)
		}
		channels = append(channels, sense.Channel(n))
	}
	return channels, nil
}

func runTrigger(args []string, cfgManager *ConfigManager) error {
	fs := flag.NewFlagSet("trigger", flag.ExitOnError)
	address := fs.String("a", "", "device address (MAC) or saved name")
	fs.Parse(args)
	rest := fs.Args()
	if *address == "" || len(rest) != 2 {
		return fmt.Errorf("usage: trigger -a ADDR O1 O2")
	}

	o1, err := strconv.Atoi(rest[0])
	if err != nil {
		return err
	}
	o2, err := strconv.Atoi(rest[1])
	if err != nil {
		return err
	}

	session, err := sense.New(cfgManager.ResolveDevice(*address))
	if err != nil {
		return err
	}
	if err := dialAddress(session, cfgManager, *address); err != nil {
		return err
	}
	defer session.Disconnect()

	return session.Trigger([]int{o1, o2})
}

func runDAC(args []string, cfgManager *ConfigManager) error {
	fs := flag.NewFlagSet("dac", flag.ExitOnError)
	address := fs.String("a", "", "device address (MAC) or saved name")
	fs.Parse(args)
	rest := fs.Args()
	if *address == "" || len(rest) != 1 {
		return fmt.Errorf("usage: dac -a ADDR LEVEL")
	}
	level, err := strconv.Atoi(rest[0])
	if err != nil {
		return err
	}

	session, err := sense.New(cfgManager.ResolveDevice(*address))
	if err != nil {
		return err
	}
	if err := dialAddress(session, cfgManager, *address); err != nil {
		return err
	}
	defer session.Disconnect()

	return session.DAC(level)
}

func runBattery(args []string, cfgManager *ConfigManager) error {
	fs := flag.NewFlagSet("battery", flag.ExitOnError)
	address := fs.String("a", "", "device address (MAC) or saved name")
	fs.Parse(args)
	rest := fs.Args()
	if *address == "" || len(rest) != 1 {
		return fmt.Errorf("usage: battery -a ADDR VALUE")
	}
	value, err := strconv.Atoi(rest[0])
	if err != nil {
		return err
	}

	session, err := sense.New(cfgManager.ResolveDevice(*address))
	if err != nil {
		return err
	}
	if err := dialAddress(session, cfgManager, *address); err != nil {
		return err
	}
	defer session.Disconnect()

	return session.Battery(value)
}
