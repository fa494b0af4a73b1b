package yahb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	Commands = map[string]bool{
		"calibrate": true,
		"run":       true,
		"shell":     true,
	}
	OptionPrefixes = []string{"--", "-"}
	OptionList     = []*Option{
		&Option{
			Name:        "P",
			HasArgument: true,
			Doc:         "specify workload file",
		},
		&Option{
			Name:        "p",
			HasArgument: true,
			Doc:         "specify a property value",
		},
		&Option{
			Name:        "s",
			HasArgument: false,
			Doc:         "print properties and periodic status to stderr",
		},
		&Option{
			Name:        "db",
			HasArgument: true,
			Doc:         "use a specified DB binding (can also set the \"db\" property)",
		},
		&Option{
			Name:        "h",
			HasArgument: false,
			Doc:         "show this help message and exit",
		},
		&Option{
			Name:        "help",
			HasArgument: false,
			Doc:         "show this help message and exit",
		},
	}
	Options = make(map[string]*Option)

	ProgramName = ""

	errShowHelp = errors.New("show help")
)

type Option struct {
	Name        string
	HasArgument bool
	Doc         string
}

type Arguments struct {
	Command  string
	Database string
	Status   bool
	Properties
}

func Usage() {
	usageFormat := `usage: %s command database [options]

Commands:
  calibrate          Run OLTP terminals only and record the density file
  run                Run the hybrid workload against the recorded density
  shell              Inspect the density clock interactively

Databases:
%s
Options:
  -P filename      : specify workload file
  -p name=value    : specify a property value
  -s               : print properties and periodic status to stderr
  -db binding      : use a specified DB binding (can also set the "db" property)

Workload Files:
  There are predefined workloads under workloads/ directory.

positional arguments:
  {calibrate,run,shell}   Command to run.

optional arguments:
  -h, --help         show this help message and exit`
	names := make([]string, 0, len(Databases))
	for name := range Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	databases := ""
	for _, name := range names {
		databases += fmt.Sprintf("  %s\n", name)
	}
	Println(usageFormat, ProgramName, databases)
}

func init() {
	ProgramName = filepath.Base(os.Args[0])

	// init options
	for i := 0; i < len(OptionList); i++ {
		o := OptionList[i]
		Options[o.Name] = o
	}
}

func ExitOnError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
	os.Exit(1)
}

// parseArgs parses the arguments following the program name.
func parseArgs(argv []string) (*Arguments, error) {
	if len(argv) == 0 {
		return nil, NewConfigError("no enough argument")
	}
	command := argv[0]
	if command == "-h" || command == "--help" {
		return nil, errShowHelp
	}
	if _, ok := Commands[command]; !ok {
		return nil, NewConfigError("unsupported command: %s", command)
	}
	if len(argv) < 2 {
		return nil, NewConfigError("no enough argument")
	}
	database := argv[1]
	if _, ok := Databases[database]; !ok {
		return nil, errors.Wrap(ErrUnsupportedDatabase, database)
	}

	args := &Arguments{
		Command:    command,
		Database:   database,
		Properties: NewProperties(),
	}
	args.Properties.Add(PropertyDB, database)
	for i := 2; i < len(argv); i++ {
		a := argv[i]
		for _, p := range OptionPrefixes {
			if strings.HasPrefix(a, p) {
				a = strings.TrimPrefix(a, p)
				break
			}
		}
		option, ok := Options[a]
		if !ok {
			return nil, NewConfigError("unknown option: %s", argv[i])
		}
		if !option.HasArgument {
			switch option.Name {
			case "s":
				args.Status = true
			case "h", "help":
				return nil, errShowHelp
			}
			continue
		}
		i++
		if !(i < len(argv)) {
			return nil, NewConfigError("missing argument for option: %s", option.Name)
		}
		arg := argv[i]
		switch option.Name {
		case "db":
			if _, ok := Databases[arg]; !ok {
				return nil, errors.Wrap(ErrUnsupportedDatabase, arg)
			}
			args.Database = arg
			args.Properties.Add(PropertyDB, arg)
		case "p":
			// it's a property, should be in `k=v` form
			parts := strings.SplitN(arg, "=", 2)
			if len(parts) != 2 {
				return nil, NewConfigError("invalid property: %s", arg)
			}
			args.Properties.Add(parts[0], parts[1])
		case "P":
			propsFromFile, err := LoadProperties(arg)
			if err != nil {
				return nil, errors.Wrapf(err, "load workload file %s", arg)
			}
			args.Properties.Merge(propsFromFile)
		}
	}
	return args, nil
}

func ParseArgs() *Arguments {
	args, err := parseArgs(os.Args[1:])
	if err == errShowHelp {
		Usage()
		os.Exit(0)
	}
	if err != nil {
		ExitOnError("%s", err)
	}
	return args
}

// Main is the entry of the command line tool. Bindings and procedures must
// be registered before it is called.
func Main() {
	args := ParseArgs()
	var client Client
	switch args.Command {
	case "shell":
		client = NewShell(args)
	case "calibrate":
		client = NewCalibrator(args)
	case "run":
		client = NewRunner(args)
	default:
		ExitOnError("invalid command: %s", args.Command)
	}
	client.Main()
}
