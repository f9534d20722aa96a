package cli

import (
	"encoding/json"

	"github.com/alecthomas/kingpin/v2"
)

// jsonOutput adds the --json flag to a command and serializes its results.
type jsonOutput struct {
	jsonOutput bool
	jsonIndent bool

	out textOutput
}

func (c *jsonOutput) setup(svc appServices, cmd *kingpin.CmdClause) {
	cmd.Flag("json", "Output result in JSON format to stdout").BoolVar(&c.jsonOutput)
	cmd.Flag("json-indent", "Output result in indented JSON format to stdout").Hidden().BoolVar(&c.jsonIndent)

	c.out.setup(svc)
}

func (c *jsonOutput) jsonBytes(v interface{}) []byte {
	var (
		b   []byte
		err error
	)

	if c.jsonIndent {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}

	if err != nil {
		panic("unexpected JSON serialization error: " + err.Error())
	}

	return b
}

// jsonList emits a JSON array incrementally, so listings do not buffer all
// entries in memory before printing.
type jsonList struct {
	o     *jsonOutput
	first bool
}

func (l *jsonList) begin(o *jsonOutput) {
	l.o = o
	l.first = true

	if o.jsonOutput {
		l.o.out.printStdout("[")
	}
}

func (l *jsonList) emit(v interface{}) {
	if l.first {
		l.first = false
	} else {
		l.o.out.printStdout(",")
	}

	l.o.out.printStdout("\n %s", l.o.jsonBytes(v))
}

func (l *jsonList) end() {
	if !l.o.jsonOutput {
		return
	}

	if !l.first {
		l.o.out.printStdout("\n")
	}

	l.o.out.printStdout("]")
}
