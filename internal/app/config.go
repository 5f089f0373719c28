package app

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/michalovjan/depalign/internal/config"
)

func configCmd(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "missing subcommand: validate | keys")
		return 2
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], os.Stdout, os.Stderr)
	case "keys":
		return runConfigKeys(args[1:], os.Stdout, os.Stderr)
	default:
		fmt.Fprintf(os.Stderr, "unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	propsPath := fs.String("properties", defaultPropertiesPath, "path to the alignment properties file")
	var defs propertyDefs
	fs.Var(&defs, "D", "set a property as key=value (repeatable, wins over the file)")
	format := fs.String("format", "json", "output format: json|text")
	watch := fs.Bool("watch", false, "revalidate whenever the properties file changes")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *format != "json" && *format != "text" {
		fmt.Fprintf(stderr, "config validate: invalid --format %q (use: json|text)\n", *format)
		return 2
	}

	validate := func() int {
		p, err := loadProperties(*propsPath, false, defs)
		if err != nil {
			return emitValidation(*format, config.ValidationResult{
				OK:     false,
				Errors: []string{err.Error()},
			}, stdout, stderr)
		}
		_, res := config.ValidateWithResult(p)
		return emitValidation(*format, res, stdout, stderr)
	}

	if !*watch {
		return validate()
	}

	logger, err := newLogger("info")
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validate()
	watchFile(ctx, *propsPath, logger, func() { validate() })
	return 0
}

// emitValidation prints the result in the requested format: stdout when the
// properties are valid, stderr with exit 1 when they are not.
func emitValidation(format string, res config.ValidationResult, stdout, stderr io.Writer) int {
	if format == "text" {
		msg := config.FormatValidationText(res)
		if res.OK {
			fmt.Fprintln(stdout, msg)
			return 0
		}
		fmt.Fprintln(stderr, msg)
		return 1
	}

	out, err := config.FormatValidationJSON(res)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	if res.OK {
		fmt.Fprintln(stdout, out)
		return 0
	}
	fmt.Fprintln(stderr, out)
	return 1
}

func runConfigKeys(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("config keys", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "text", "output format: json|text")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "config keys: unexpected positional arguments")
		return 2
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(config.Schema); err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 1
		}
	case "text":
		tw := tabwriter.NewWriter(stdout, 2, 0, 3, ' ', 0)
		fmt.Fprintf(tw, "KEY\tKIND\tDEFAULT\tDESCRIPTION\n")
		for _, k := range config.Schema {
			name := k.Name
			if k.Kind == config.KindScoped {
				name += "<scope>"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, k.Kind, k.Default, k.Description)
		}
		if err := tw.Flush(); err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 1
		}
	default:
		fmt.Fprintf(stderr, "config keys: invalid --format %q (use: json|text)\n", *format)
		return 2
	}
	return 0
}
