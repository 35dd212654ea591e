package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"codesmith/internal/broker"
)

// terminalPrompter answers broker requests on the terminal. Each
// notification is handled on its own goroutine so the broker's notify
// hook never blocks; the broker guarantees there is only one
// outstanding request at a time.
type terminalPrompter struct {
	b   *broker.Broker
	in  *bufio.Reader
	out io.Writer

	// autoAccept answers every confirmation with accept-all without
	// prompting (--yes). Questions still prompt.
	autoAccept bool
}

func newTerminalPrompter(in io.Reader, out io.Writer, autoAccept bool) *terminalPrompter {
	return &terminalPrompter{
		in:         bufio.NewReader(in),
		out:        out,
		autoAccept: autoAccept,
	}
}

// bind attaches the broker this prompter resolves against.
func (p *terminalPrompter) bind(b *broker.Broker) {
	p.b = b
}

func (p *terminalPrompter) notify(req broker.Request) {
	go p.handle(req)
}

func (p *terminalPrompter) handle(req broker.Request) {
	var res broker.Resolution

	switch req.Kind {
	case broker.KindConfirmation:
		if p.autoAccept {
			res = broker.Resolution{Decision: broker.DecisionAcceptAll}
			break
		}
		fmt.Fprintf(p.out, "\n%s\n", req.Message)
		if req.Diff != "" {
			fmt.Fprintf(p.out, "%s\n", req.Diff)
		}
		fmt.Fprint(p.out, "[y]es / [n]o / [a]ll: ")
		res = broker.Resolution{Decision: p.readDecision()}

	case broker.KindQuestion:
		fmt.Fprintf(p.out, "\n%s\n> ", req.Message)
		line, err := p.in.ReadString('\n')
		if err != nil {
			res = broker.Resolution{Sentinel: broker.SentinelDisconnected}
			break
		}
		res = broker.Resolution{Answer: strings.TrimSpace(line)}
	}

	// A lost race with termination leaves nothing to resolve; that is
	// fine, the sentinel already unblocked the handler.
	_ = p.b.Resolve(req.ID, res)
}

func (p *terminalPrompter) readDecision() broker.Decision {
	for {
		line, err := p.in.ReadString('\n')
		if err != nil {
			return broker.DecisionReject
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return broker.DecisionAcceptOnce
		case "n", "no":
			return broker.DecisionReject
		case "a", "all":
			return broker.DecisionAcceptAll
		default:
			fmt.Fprint(p.out, "Please answer y, n, or a: ")
		}
	}
}

// display prints informational messages from the model.
func (p *terminalPrompter) display(msg string) {
	fmt.Fprintf(p.out, "\n%s\n", msg)
}
