package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	sclerrors "thoreinstein.com/scl/pkg/errors"
	"thoreinstein.com/scl/pkg/replay"
	"thoreinstein.com/scl/pkg/search"
)

// anyError as an error filter value matches every error message.
const anyError = "*"

// Output formats of the search command.
const (
	formatPath     = "path"
	formatYAML     = "yaml"
	formatTimeline = "timeline"
)

// searchCmd searches recorded commands
var searchCmd = &cobra.Command{
	Use:     "search",
	Aliases: []string{"s"},
	Short:   "Search recorded commands",
	Long: `Search the recorded commands by their metadata and output.

Each filter has an "only" and an "exclude" form; both forms of one filter
can not be used together. Values can be repeated or separated by commas.
Days are interpreted in UTC and match every command that was running on
that day. Without a value, --errors and --exclude-errors match any command
that failed with an error message (same as --errors='*'); to give values
use --errors=TEXT.

Examples:
  scl search                              # List all recorded commands
  scl search -s 0 -p ssh                  # Successful ssh sessions
  scl search -S 0 -d 2023-06-07           # Failures running on a day
  scl search --errors                     # Commands that could not run
  scl search -g "-i 'permission denied'"  # grep the captured output
  scl search -u alice --format timeline
  scl search -c make -r                   # Pick a result and replay it`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearchCommand(cmd)
	},
}

// searchOptions holds the values of the search flags.
type searchOptions struct {
	statusCodes        []int
	excludeStatusCodes []int
	users              []string
	excludeUsers       []string
	hosts              []string
	excludeHosts       []string
	errors             []string
	excludeErrors      []string
	programs           []string
	excludePrograms    []string
	arguments          []string
	excludeArguments   []string
	commands           []string
	excludeCommands    []string
	days               []string
	excludeDays        []string
	grep               string
	replay             bool
	format             string
}

var searchOpts searchOptions

func init() {
	rootCmd.AddCommand(searchCmd)

	searchOpts.register(searchCmd.Flags())
	searchCmd.MarkFlagsMutuallyExclusive("replay", "format")
}

func (o *searchOptions) register(f *pflag.FlagSet) {
	f.IntSliceVarP(&o.statusCodes, "status-codes", "s", nil, "only show commands with one of the given status codes (-1 for internal errors)")
	f.IntSliceVarP(&o.excludeStatusCodes, "exclude-status-codes", "S", nil, "exclude commands with one of the given status codes")
	f.StringSliceVarP(&o.users, "users", "u", nil, "only show commands run by one of the given users")
	f.StringSliceVarP(&o.excludeUsers, "exclude-users", "U", nil, "exclude commands run by one of the given users")
	f.StringSliceVar(&o.hosts, "hosts", nil, "only show commands run on one of the given hosts")
	f.StringSliceVarP(&o.excludeHosts, "exclude-hosts", "H", nil, "exclude commands run on one of the given hosts")
	f.StringSliceVarP(&o.errors, "errors", "e", nil, "only show commands whose error message contains one of the given texts; bare -e matches any error, values need --errors=TEXT or -e=TEXT")
	f.StringSliceVarP(&o.excludeErrors, "exclude-errors", "E", nil, "exclude commands whose error message contains one of the given texts; bare -E matches any error, values need --exclude-errors=TEXT or -E=TEXT")
	f.StringSliceVarP(&o.programs, "programs", "p", nil, "only show commands of the given programs (file name)")
	f.StringSliceVarP(&o.excludePrograms, "exclude-programs", "P", nil, "exclude commands of the given programs")
	f.StringSliceVarP(&o.arguments, "arguments", "a", nil, "only show commands with an argument containing one of the given texts")
	f.StringSliceVarP(&o.excludeArguments, "exclude-arguments", "A", nil, "exclude commands with an argument containing one of the given texts")
	f.StringSliceVarP(&o.commands, "commands", "c", nil, "only show commands with any part containing one of the given texts")
	f.StringSliceVar(&o.excludeCommands, "exclude-commands", nil, "exclude commands with any part containing one of the given texts")
	f.StringSliceVarP(&o.days, "days", "d", nil, "only show commands running on one of the given days (UTC)")
	f.StringSliceVarP(&o.excludeDays, "exclude-days", "D", nil, "exclude commands running on one of the given days (UTC)")
	f.StringVarP(&o.grep, "grep-output", "g", "", "only show commands whose output matches 'grep PATTERN_AND_FLAGS'")
	f.BoolVarP(&o.replay, "replay", "r", false, "interactively select one of the results to replay")
	f.StringVar(&o.format, "format", formatPath, "output format: path, yaml or timeline")

	// A bare -e / -E matches any error message.
	f.Lookup("errors").NoOptDefVal = anyError
	f.Lookup("exclude-errors").NoOptDefVal = anyError
}

// dimension builds a search dimension from an only/exclude flag pair.
func dimension[V any](flags *pflag.FlagSet, onlyFlag, excludeFlag string, only, exclude []V) search.Dimension[V] {
	return search.Dimension[V]{
		Only:       only,
		Exclude:    exclude,
		OnlySet:    flags.Changed(onlyFlag),
		ExcludeSet: flags.Changed(excludeFlag),
	}
}

// errorValues maps a list containing anyError to the empty list, which
// matches any error message.
func errorValues(values []string) []string {
	if slices.Contains(values, anyError) {
		return []string{}
	}
	return values
}

// query turns the parsed flags into a search query.
func (o *searchOptions) query(flags *pflag.FlagSet) (search.Query, error) {
	switch o.format {
	case formatPath, formatYAML, formatTimeline:
	default:
		return search.Query{}, sclerrors.NewUsageError(fmt.Sprintf("unknown format %q, must be one of: path, yaml, timeline", o.format))
	}

	q := search.Query{
		StatusCodes: dimension(flags, "status-codes", "exclude-status-codes", o.statusCodes, o.excludeStatusCodes),
		Users:       dimension(flags, "users", "exclude-users", o.users, o.excludeUsers),
		Hosts:       dimension(flags, "hosts", "exclude-hosts", o.hosts, o.excludeHosts),
		Errors:      dimension(flags, "errors", "exclude-errors", errorValues(o.errors), errorValues(o.excludeErrors)),
		Programs:    dimension(flags, "programs", "exclude-programs", o.programs, o.excludePrograms),
		Arguments:   dimension(flags, "arguments", "exclude-arguments", o.arguments, o.excludeArguments),
		Commands:    dimension(flags, "commands", "exclude-commands", o.commands, o.excludeCommands),
	}

	days, err := search.ParseDays(o.days)
	if err != nil {
		return q, err
	}
	excludeDays, err := search.ParseDays(o.excludeDays)
	if err != nil {
		return q, err
	}
	q.Days = dimension(flags, "days", "exclude-days", days, excludeDays)

	if flags.Changed("grep-output") {
		m, err := search.NewContentMatcher(o.grep)
		if err != nil {
			return q, err
		}
		m.Logger = logger
		q.Content = m
	}

	return q, nil
}

func runSearchCommand(cmd *cobra.Command) error {
	q, err := searchOpts.query(cmd.Flags())
	if err != nil {
		return err
	}

	s, err := sanitizedConfig()
	if err != nil {
		return err
	}

	engine := search.NewEngine(s.OutputDir, s.Backend, logger)
	result, err := engine.Search(cmd.Context(), q)
	if err != nil {
		return err
	}

	if searchOpts.replay {
		path, err := selectCommand(cmd.Context(), s, result.Commands)
		if err != nil {
			return err
		}
		return replaySession(cmd.Context(), s, path, replay.Options{Speed: s.ReplaySpeed})
	}

	return searchOpts.print(os.Stdout, result.Commands)
}

func (o *searchOptions) print(w io.Writer, commands []search.SearchableCommand) error {
	switch o.format {
	case formatYAML:
		data, err := search.FormatYAML(commands)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return errors.Wrap(err, "failed to write results")
	case formatTimeline:
		_, err := io.WriteString(w, search.FormatTimeline(commands, o.title()))
		return errors.Wrap(err, "failed to write results")
	default:
		for _, c := range commands {
			if _, err := fmt.Fprintln(w, c.FilePath); err != nil {
				return errors.Wrap(err, "failed to write results")
			}
		}
		return nil
	}
}

// title describes the active filters for the timeline heading.
func (o *searchOptions) title() string {
	var parts []string
	add := func(label string, values []string) {
		if len(values) > 0 {
			parts = append(parts, label+" "+strings.Join(values, ", "))
		}
	}
	add("programs", o.programs)
	add("users", o.users)
	add("hosts", o.hosts)
	add("days", o.days)
	add("commands", o.commands)
	if len(parts) == 0 {
		return "all commands"
	}
	return strings.Join(parts, "; ")
}
