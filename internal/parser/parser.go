// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package parser translates a textual command line into a resolved tree
// path plus verb plus operand, shared by the TCP and HTTP servers. Two
// grammars are recognized and yield identical behavior: the URI form
// `<verb> <path> [<name>] [<operand...>]` and the shorthand form
// `<domain>_<action> <arg...>`, expanded through a fixed dispatch table.
// The parser never executes side effects itself; it calls into the
// resolved Node.
package parser

import (
	"context"
	"strings"
	"time"

	"github.com/ManuGH/pipelined/internal/history"
	"github.com/ManuGH/pipelined/internal/log"
	"github.com/ManuGH/pipelined/internal/metrics"
	"github.com/ManuGH/pipelined/internal/rcode"
	"github.com/ManuGH/pipelined/internal/tree"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Verb is one of the four CRUD verbs.
type Verb string

const (
	VerbCreate Verb = "create"
	VerbRead   Verb = "read"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

// Command is the normalized intent produced by Parse: a verb, an absolute
// tree path, and the verb's operands (name/description for create, the
// child name for delete, the value for update).
type Command struct {
	Verb    Verb
	Path    string
	Name    string
	Operand string
}

// value returns the update-verb value: the name token and any remaining
// operand tokens, joined by single spaces.
func (c Command) value() string {
	if c.Operand == "" {
		return c.Name
	}
	if c.Name == "" {
		return c.Operand
	}
	return c.Name + " " + c.Operand
}

var verbs = map[string]Verb{
	"create": VerbCreate,
	"read":   VerbRead,
	"update": VerbUpdate,
	"delete": VerbDelete,
}

// shorthand expands one `<domain>_<action>` command into the URI form.
// Returning BadValue signals a missing required argument.
type shorthand func(args []string) (Command, rcode.Code)

func need(args []string, n int) bool { return len(args) >= n }

var shorthands = map[string]shorthand{
	"pipeline_create": func(a []string) (Command, rcode.Code) {
		if !need(a, 2) {
			return Command{}, rcode.BadValue
		}
		return Command{Verb: VerbCreate, Path: "/pipelines", Name: a[0], Operand: strings.Join(a[1:], " ")}, rcode.EOK
	},
	"pipeline_delete": func(a []string) (Command, rcode.Code) {
		if !need(a, 1) {
			return Command{}, rcode.BadValue
		}
		return Command{Verb: VerbDelete, Path: "/pipelines", Name: a[0]}, rcode.EOK
	},
	"pipeline_play":  stateShorthand("playing"),
	"pipeline_pause": stateShorthand("paused"),
	"pipeline_stop":  stateShorthand("null"),
	"element_set": func(a []string) (Command, rcode.Code) {
		if !need(a, 4) {
			return Command{}, rcode.BadValue
		}
		return Command{Verb: VerbUpdate, Path: "/pipelines/" + a[0] + "/elements/" + a[1] + "/properties/" + a[2], Name: strings.Join(a[3:], " ")}, rcode.EOK
	},
	"element_get": func(a []string) (Command, rcode.Code) {
		if !need(a, 3) {
			return Command{}, rcode.BadValue
		}
		return Command{Verb: VerbRead, Path: "/pipelines/" + a[0] + "/elements/" + a[1] + "/properties/" + a[2]}, rcode.EOK
	},
	"list_pipelines": func(a []string) (Command, rcode.Code) {
		return Command{Verb: VerbRead, Path: "/pipelines"}, rcode.EOK
	},
	"list_elements": func(a []string) (Command, rcode.Code) {
		if !need(a, 1) {
			return Command{}, rcode.BadValue
		}
		return Command{Verb: VerbRead, Path: "/pipelines/" + a[0] + "/elements"}, rcode.EOK
	},
	"bus_read": func(a []string) (Command, rcode.Code) {
		if !need(a, 1) {
			return Command{}, rcode.BadValue
		}
		return Command{Verb: VerbRead, Path: "/pipelines/" + a[0] + "/bus"}, rcode.EOK
	},
	"bus_filter": func(a []string) (Command, rcode.Code) {
		if !need(a, 2) {
			return Command{}, rcode.BadValue
		}
		return Command{Verb: VerbUpdate, Path: "/pipelines/" + a[0] + "/bus/filter", Name: strings.Join(a[1:], " ")}, rcode.EOK
	},
	"bus_timeout": func(a []string) (Command, rcode.Code) {
		if !need(a, 2) {
			return Command{}, rcode.BadValue
		}
		return Command{Verb: VerbUpdate, Path: "/pipelines/" + a[0] + "/bus/timeout", Name: a[1]}, rcode.EOK
	},
	"event_eos":         eventShorthand("eos"),
	"event_flush_start": eventShorthand("flush_start"),
	"event_flush_stop":  eventShorthand("flush_stop"),
	"signal_connect": func(a []string) (Command, rcode.Code) {
		if !need(a, 3) {
			return Command{}, rcode.BadValue
		}
		return Command{Verb: VerbCreate, Path: "/pipelines/" + a[0] + "/elements/" + a[1] + "/signals", Name: a[2], Operand: "connected signal"}, rcode.EOK
	},
	"signal_timeout": func(a []string) (Command, rcode.Code) {
		if !need(a, 4) {
			return Command{}, rcode.BadValue
		}
		return Command{Verb: VerbUpdate, Path: "/pipelines/" + a[0] + "/elements/" + a[1] + "/signals/" + a[2], Name: a[3]}, rcode.EOK
	},
	"signal_disconnect": func(a []string) (Command, rcode.Code) {
		if !need(a, 3) {
			return Command{}, rcode.BadValue
		}
		return Command{Verb: VerbDelete, Path: "/pipelines/" + a[0] + "/elements/" + a[1] + "/signals", Name: a[2]}, rcode.EOK
	},
	"action_emit": func(a []string) (Command, rcode.Code) {
		if !need(a, 3) {
			return Command{}, rcode.BadValue
		}
		return Command{Verb: VerbUpdate, Path: "/pipelines/" + a[0] + "/elements/" + a[1] + "/actions/" + a[2], Name: strings.Join(a[3:], " ")}, rcode.EOK
	},
	"debug_enable":    debugShorthand("enable"),
	"debug_color":     debugShorthand("color"),
	"debug_threshold": debugShorthand("threshold"),
	"debug_reset": func(a []string) (Command, rcode.Code) {
		return Command{Verb: VerbUpdate, Path: "/debug", Name: "reset"}, rcode.EOK
	},
}

func stateShorthand(state string) shorthand {
	return func(a []string) (Command, rcode.Code) {
		if !need(a, 1) {
			return Command{}, rcode.BadValue
		}
		return Command{Verb: VerbUpdate, Path: "/pipelines/" + a[0] + "/state", Name: state}, rcode.EOK
	}
}

func eventShorthand(kind string) shorthand {
	return func(a []string) (Command, rcode.Code) {
		if !need(a, 1) {
			return Command{}, rcode.BadValue
		}
		return Command{Verb: VerbCreate, Path: "/pipelines/" + a[0] + "/event", Name: kind, Operand: "injected event"}, rcode.EOK
	}
}

func debugShorthand(setting string) shorthand {
	return func(a []string) (Command, rcode.Code) {
		if !need(a, 1) {
			return Command{}, rcode.BadValue
		}
		return Command{Verb: VerbUpdate, Path: "/debug/" + setting, Name: a[0]}, rcode.EOK
	}
}

// ParseBytes handles raw transport input: nil yields NullArgument, then
// the buffer is trimmed of the trailing newline/NUL framing and parsed.
func ParseBytes(b []byte) (Command, rcode.Code) {
	if b == nil {
		return Command{}, rcode.NullArgument
	}
	return Parse(string(b))
}

// Parse translates one command line into a Command. Empty input returns
// BadCommand; unknown verbs and shorthands return BadCommand; shorthands
// with missing required arguments return BadValue.
func Parse(line string) (Command, rcode.Code) {
	line = strings.TrimRight(line, "\x00\n")
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return Command{}, rcode.BadCommand
	}

	if verb, ok := verbs[tokens[0]]; ok {
		if len(tokens) < 2 || !strings.HasPrefix(tokens[1], "/") {
			return Command{}, rcode.BadCommand
		}
		cmd := Command{Verb: verb, Path: tokens[1]}
		if len(tokens) > 2 {
			cmd.Name = tokens[2]
		}
		if len(tokens) > 3 {
			cmd.Operand = strings.Join(tokens[3:], " ")
		}
		return cmd, rcode.EOK
	}

	if expand, ok := shorthands[tokens[0]]; ok {
		return expand(tokens[1:])
	}
	return Command{}, rcode.BadCommand
}

// Dispatcher resolves parsed commands against the object tree and records
// each dispatch in the command history.
type Dispatcher struct {
	root     tree.Node
	history  *history.Store
	commands metric.Int64Counter
}

// NewDispatcher builds a Dispatcher rooted at root. hist may be nil.
func NewDispatcher(root tree.Node, hist *history.Store) *Dispatcher {
	commands, _ := otel.Meter("pipelined/parser").Int64Counter("pipelined.commands",
		metric.WithDescription("Commands dispatched through the parser."))
	return &Dispatcher{root: root, history: hist, commands: commands}
}

// Execute parses and dispatches one raw command buffer, returning the
// outcome code and the resolved Node's rendered output (empty for verbs
// that produce none).
func (d *Dispatcher) Execute(ctx context.Context, raw []byte) (rcode.Code, string) {
	cmd, code := ParseBytes(raw)
	if code != rcode.EOK {
		return code, ""
	}
	return d.Dispatch(ctx, cmd)
}

// Dispatch resolves cmd.Path and invokes the verb on the resolved Node.
// The resolved reference is released on every exit path.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (rcode.Code, string) {
	commandID := uuid.NewString()
	ctx = log.ContextWithCommandID(ctx, commandID)

	tracer := otel.Tracer("pipelined/parser")
	ctx, span := tracer.Start(ctx, "dispatch")
	span.SetAttributes(
		attribute.String("command.verb", string(cmd.Verb)),
		attribute.String("command.path", cmd.Path),
		attribute.String("command.id", commandID),
	)
	defer span.End()

	start := time.Now()
	code, output := d.dispatch(ctx, cmd)
	elapsed := time.Since(start)

	metrics.CommandsTotal.WithLabelValues(string(cmd.Verb), code.String()).Inc()
	metrics.CommandDuration.WithLabelValues(string(cmd.Verb)).Observe(elapsed.Seconds())
	d.commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("verb", string(cmd.Verb)),
		attribute.String("code", code.String()),
	))
	if d.history != nil {
		_ = d.history.Record(ctx, string(cmd.Verb), cmd.Path, code.String(), elapsed)
	}

	logger := log.WithContext(ctx, log.WithComponent("parser"))
	logger.Debug().
		Str("verb", string(cmd.Verb)).
		Str("path", cmd.Path).
		Str("code", code.String()).
		Dur("elapsed", elapsed).
		Msg("command dispatched")
	return code, output
}

func (d *Dispatcher) dispatch(ctx context.Context, cmd Command) (rcode.Code, string) {
	node, code := tree.Resolve(ctx, d.root, cmd.Path)
	if code != rcode.EOK {
		return code, ""
	}
	defer node.Release()

	switch cmd.Verb {
	case VerbCreate:
		if cmd.Name == "" {
			return rcode.BadValue, ""
		}
		_, code := node.Create(ctx, cmd.Name, cmd.Operand)
		return code, ""
	case VerbRead:
		out, code := node.Read(ctx)
		return code, out
	case VerbUpdate:
		// An empty value is the target leaf's call to reject, not the
		// parser's: some leaves (action emission) accept zero operands.
		return node.Update(ctx, cmd.value()), ""
	case VerbDelete:
		if cmd.Name == "" {
			return rcode.BadValue, ""
		}
		return node.Delete(ctx, cmd.Name), ""
	default:
		return rcode.BadCommand, ""
	}
}
