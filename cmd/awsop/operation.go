package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/gurre/awsop/binder"
	"github.com/gurre/awsop/output"
	"github.com/gurre/awsop/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// paramPrefix disambiguates parameters whose flag name is taken by a global
// flag: UpdateDomainConfig's DryRun is --param-dry-run.
const paramPrefix = "param-"

var serviceNames = map[string]string{
	"es":         "Amazon Elasticsearch Service",
	"opensearch": "Amazon OpenSearch Service",
	"translate":  "Amazon Translate",
}

func (a *app) newServiceCommand(service string, root *cobra.Command) *cobra.Command {
	title := serviceNames[service]
	if title == "" {
		title = service
	}
	cmd := &cobra.Command{
		Use:   service,
		Short: title + " operations",
		Args:  cobra.NoArgs,
	}
	for _, op := range a.catalog.Registry().Operations(service) {
		cmd.AddCommand(a.newOperationCommand(op, root))
	}
	return cmd
}

func (a *app) newOperationCommand(op *schema.Operation, root *cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   op.CommandName(),
		Short: op.Description,
		Args:  cobra.NoArgs,
	}
	if op.Mutating {
		cmd.Long = op.Description + "\n\nThis operation changes resources and asks for confirmation unless --force is set."
	}

	fs := cmd.Flags()
	fs.String("select", "", "response path to return, '*' for the whole response or '^Param' to echo a parameter")
	fs.Bool("pass-thru", false, "return the operation's pass-thru parameter instead of the response")

	taken := func(name string) bool {
		return name == "help" || fs.Lookup(name) != nil || root.PersistentFlags().Lookup(name) != nil
	}
	params := newParamSet(fs, op, taken)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		raw := params.inputs()
		if fs.Changed("select") {
			v, _ := fs.GetString("select")
			raw[binder.KeySelect] = v
		}
		if fs.Changed("pass-thru") {
			v, _ := fs.GetBool("pass-thru")
			raw[binder.KeyPassThru] = v
		}
		return a.invoke(cmd.Context(), op, raw)
	}
	return cmd
}

// invoke runs op once and writes the result to stdout.
func (a *app) invoke(ctx context.Context, op *schema.Operation, raw map[string]any) error {
	format, err := output.ParseFormat(a.cfg.Output)
	if err != nil {
		return err
	}
	ad, err := a.newAdapter(false)
	if err != nil {
		return err
	}

	res, err := ad.Run(ctx, op, raw)
	if err != nil {
		return err
	}
	if res.DryRun {
		return output.Write(a.stdout, res.Request, output.JSON)
	}
	if err := output.Write(a.stdout, res.Output(), format); err != nil {
		return err
	}
	if res.NextToken != "" {
		fmt.Fprintf(a.stderr, "More results available: --next-token %s\n", res.NextToken)
	}
	return nil
}

// paramFlag maps one command-line flag to an input name.
type paramFlag struct {
	flag  string
	input string // Canonical field name or the alias the flag stands for
	value func() any
}

// paramSet holds the flags generated for an operation's fields.
type paramSet struct {
	fs    *pflag.FlagSet
	flags []paramFlag
}

// newParamSet defines a flag for every field and alias of op. Names that
// taken reports as in use get paramPrefix; aliases that still collide are
// dropped.
func newParamSet(fs *pflag.FlagSet, op *schema.Operation, taken func(string) bool) *paramSet {
	p := &paramSet{fs: fs}
	for _, f := range op.Fields {
		name := schema.FlagName(f.Name)
		if taken(name) {
			name = paramPrefix + name
		}
		p.add(name, f.Name, f, usage(f))

		for _, alias := range f.Aliases {
			name := schema.FlagName(alias)
			if taken(name) {
				continue
			}
			p.add(name, alias, f, fmt.Sprintf("alias of --%s", schema.FlagName(f.Name)))
		}
	}
	return p
}

func (p *paramSet) add(name, input string, f schema.Field, usage string) {
	pf := paramFlag{flag: name, input: input}
	switch f.Type {
	case schema.TypeInteger:
		v := p.fs.Int64(name, 0, usage)
		pf.value = func() any { return *v }
	case schema.TypeBoolean:
		v := p.fs.Bool(name, false, usage)
		pf.value = func() any { return *v }
	case schema.TypeStringList:
		v := p.fs.StringSlice(name, nil, usage)
		pf.value = func() any { return append([]string(nil), (*v)...) }
	default:
		v := p.fs.String(name, "", usage)
		pf.value = func() any { return *v }
	}
	p.flags = append(p.flags, pf)
}

// inputs returns the raw inputs of the flags set on the command line.
func (p *paramSet) inputs() map[string]any {
	raw := make(map[string]any)
	for _, pf := range p.flags {
		if p.fs.Changed(pf.flag) {
			raw[pf.input] = pf.value()
		}
	}
	return raw
}

func usage(f schema.Field) string {
	var b strings.Builder
	b.WriteString(f.Description)
	switch f.Type {
	case schema.TypeEnum:
		fmt.Fprintf(&b, " (one of: %s)", strings.Join(f.Enum, ", "))
	case schema.TypeBytes:
		b.WriteString(" (file path, - for stdin, or s3://bucket/key)")
	case schema.TypeObject, schema.TypeObjectList:
		b.WriteString(" (JSON)")
	case schema.TypeTimestamp:
		b.WriteString(" (RFC 3339)")
	}
	if f.Required {
		b.WriteString(" [required]")
	}
	return strings.TrimSpace(b.String())
}
