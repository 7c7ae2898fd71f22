package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value %q", s)
	}
	*v.p = b
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type intValue struct{ p *int }

func (v *intValue) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer value %q", s)
	}
	*v.p = n
	return nil
}
func (v *intValue) String() string { return strconv.Itoa(*v.p) }
func (v *intValue) Get() any       { return *v.p }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }
func (v *listValue) Get() any           { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

type FlagGroup struct {
	Name        string
	Description string
	Prefix      string
	Flags       []FlagGroupEntry
}

// FlagGroupEntry is one toggle of a group such as -Wname / -Wno-name.
type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	order      []string
	args       []string
	groups     []FlagGroup
	grouped    map[string]bool
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
		grouped:    make(map[string]bool),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) Int(p *int, name, shorthand string, value int, usage, expectedType string) {
	*p = value
	f.Var(&intValue{p}, name, shorthand, usage, strconv.Itoa(value), expectedType)
}

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(&listValue{p}, name, shorthand, usage, strings.Join(value, ","), expectedType)
}

// AddFlagGroup registers an enable and a disable flag for every entry,
// named <prefix><name> and <prefix>no-<name>.
func (f *FlagSet) AddFlagGroup(name, description, prefix string, entries []FlagGroupEntry) {
	for i := range entries {
		e := &entries[i]
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.Prefix+e.Name, "", false, e.Usage)
			f.grouped[e.Prefix+e.Name] = true
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", false, "Disable '"+e.Name+"'")
			f.grouped[e.Prefix+"no-"+e.Name] = true
		}
	}
	f.groups = append(f.groups, FlagGroup{Name: name, Description: description, Prefix: prefix, Flags: entries})
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	f.order = append(f.order, name)
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

// Visit calls fn for every flag in definition order.
func (f *FlagSet) Visit(fn func(*Flag)) {
	for _, name := range f.order {
		fn(f.flags[name])
	}
}

func (f *FlagSet) Parse(arguments []string) error {
	f.args = f.args[:0]
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			break
		}

		// Both -name and --name address long flags, so -Wall and --Wall agree.
		body := strings.TrimLeft(arg, "-")
		if body == "" {
			return fmt.Errorf("empty flag name: %s", arg)
		}
		name, value, hasValue := strings.Cut(body, "=")
		flag, ok := f.flags[name]
		if !ok && !strings.HasPrefix(arg, "--") {
			flag, ok = f.shorthands[body[:1]]
			name, value, hasValue = body[:1], body[1:], len(body) > 1
		}
		if !ok {
			return fmt.Errorf("unknown flag: %s", arg)
		}
		if _, isBool := flag.Value.(*boolValue); isBool {
			if !hasValue {
				value = ""
			}
			if err := flag.Value.Set(value); err != nil {
				return fmt.Errorf("flag -%s: %w", name, err)
			}
			continue
		}
		if !hasValue {
			if i+1 >= len(arguments) {
				return fmt.Errorf("flag needs an argument: -%s", name)
			}
			i++
			value = arguments[i]
		}
		if err := flag.Value.Set(value); err != nil {
			return fmt.Errorf("flag -%s: %w", name, err)
		}
	}
	return nil
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	Since       int
	FlagSet     *FlagSet
	Action      func(args []string) error
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name)}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		a.WriteUsage(os.Stderr)
		return err
	}
	if help {
		a.WriteHelp(os.Stdout, terminalWidth())
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

func (a *App) WriteUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s %s\n", a.Name, a.Synopsis)
	fmt.Fprintf(w, "Try '%s --help' for more information.\n", a.Name)
}

func (a *App) WriteHelp(w io.Writer, width int) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s - %s\n\n", a.Name, a.Description)
	fmt.Fprintf(&sb, "Usage:\n  %s %s\n\n", a.Name, a.Synopsis)

	var options []*Flag
	a.FlagSet.Visit(func(fl *Flag) {
		if !a.FlagSet.grouped[fl.Name] {
			options = append(options, fl)
		}
	})
	left := 0
	for _, fl := range options {
		left = max(left, len(flagString(fl)))
	}

	sb.WriteString("Options:\n")
	for _, fl := range options {
		usage := fl.Usage
		if fl.DefValue != "" && fl.DefValue != "false" {
			usage += fmt.Sprintf(" (default: %s)", fl.DefValue)
		}
		writeEntry(&sb, flagString(fl), usage, left, width)
	}

	for _, g := range a.FlagSet.groups {
		fmt.Fprintf(&sb, "\n%s:\n", g.Name)
		for _, line := range wrapText(g.Description, width-4) {
			fmt.Fprintf(&sb, "  %s\n", line)
		}
		entries := append([]FlagGroupEntry(nil), g.Flags...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		groupLeft := 0
		for _, e := range entries {
			groupLeft = max(groupLeft, len(g.Prefix)+len(e.Name))
		}
		for _, e := range entries {
			writeEntry(&sb, g.Prefix+e.Name, e.Usage, groupLeft, width)
		}
	}

	if len(a.Authors) > 0 {
		fmt.Fprintf(&sb, "\nAuthors: %s\n", strings.Join(a.Authors, ", "))
	}
	if a.Repository != "" {
		fmt.Fprintf(&sb, "Repository: %s\n", a.Repository)
	}
	io.WriteString(w, sb.String())
}

func flagString(fl *Flag) string {
	s := "--" + fl.Name
	if fl.Shorthand != "" {
		s = "-" + fl.Shorthand + ", " + s
	}
	if fl.ExpectedType != "" {
		s += " <" + fl.ExpectedType + ">"
	}
	return s
}

func writeEntry(sb *strings.Builder, left, usage string, leftWidth, width int) {
	const indent = "  "
	pad := leftWidth + 2
	lines := wrapText(usage, width-len(indent)-pad)
	if len(lines) == 0 {
		lines = []string{""}
	}
	fmt.Fprintf(sb, "%s%-*s%s\n", indent, pad, left, lines[0])
	for _, line := range lines[1:] {
		fmt.Fprintf(sb, "%s%s%s\n", indent, strings.Repeat(" ", pad), line)
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	if width < 20 {
		return 20
	}
	return width
}

func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+len(word)+1 > maxWidth {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
