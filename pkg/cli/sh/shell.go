// Package sh provides the interactive shell driving a TWI bus and the AES
// engine, either in process on a simulated bus or through a bridge.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/lillib.go/pkg/aes"
	"github.com/robotalks/lillib.go/pkg/bridge"
	"github.com/robotalks/lillib.go/pkg/env"
	"github.com/robotalks/lillib.go/pkg/twi"
	"github.com/robotalks/lillib.go/pkg/twi/sim"
	"github.com/robotalks/lillib.go/pkg/wire"
)

// Target is where commands run.
type Target struct {
	Name string
	Bus  twi.Bus
	Exec bridge.Executor

	cancel func()
}

// Close stops the target.
func (t *Target) Close() {
	if t.cancel != nil {
		t.cancel()
	}
}

// NewLocalTarget starts a simulated bus in process. The bus stops when
// the target is closed.
func NewLocalTarget(simConf *sim.Config, twiConf *twi.Config, sb aes.SBox) (*Target, error) {
	bus, _, err := simConf.NewBus()
	if err != nil {
		return nil, err
	}
	engine, err := twiConf.NewEngine(bus)
	if err != nil {
		return nil, err
	}
	bus.Handler = engine.HandleInterrupt
	ctx, cancel := context.WithCancel(context.Background())
	go bus.Run(ctx)
	return &Target{
		Name:   "local",
		Bus:    engine,
		Exec:   bridge.NewServer(engine, aes.New(sb)),
		cancel: cancel,
	}, nil
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Config *env.Config
	Local  *Target
	Remote *Target
}

const shellKey = "$shell"

var (
	// flags

	evalOnly   bool
	outputJSON bool
	sboxName   = "table"

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&sboxName, "sbox", sboxName, "S-box strategy of the local engine: table or computed.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell on a local target.
func New(conf *env.Config, local *Target) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     2 * time.Second,

		Shell:  ishell.New(),
		Config: conf,
		Local:  local,
	}
	s.Shell.Set(shellKey, s)
	s.updatePrompt()
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Target returns the remote target when connected, otherwise the local one.
func (s *Shell) Target() *Target {
	if s.Remote != nil {
		return s.Remote
	}
	return s.Local
}

// Context creates the context for a single command.
func (s *Shell) Context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.Timeout)
}

func (s *Shell) updatePrompt() {
	s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", s.Target().Name))
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect connects a bridge. An empty url uses the configured one.
func (s *Shell) Connect(url string) error {
	conf := *s.Config
	if url != "" {
		conf.BridgeURL = url
	}
	ctx, cancel := context.WithCancel(context.Background())
	client, err := conf.Connect(ctx)
	if err != nil {
		cancel()
		return err
	}
	client.Expiration = s.Timeout
	s.Disconnect()
	s.Remote = &Target{Name: conf.BridgeURL, Bus: client, Exec: client, cancel: cancel}
	s.updatePrompt()
	return nil
}

// Disconnect returns to the local target.
func (s *Shell) Disconnect() {
	if s.Remote != nil {
		s.Remote.Close()
		s.Remote = nil
		s.updatePrompt()
	}
}

// Output prints a reply.
func Output(c *ishell.Context, reply wire.Message) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(ReplyFields(reply))
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(FormatReply(reply))
}

// DoCommand runs a command on the current target and prints the reply.
func DoCommand(c *ishell.Context, cmd wire.Message) (wire.Message, error) {
	s := ShellFrom(c)
	ctx, cancel := s.Context()
	defer cancel()
	reply, err := s.Target().Exec.Do(ctx, cmd)
	if err != nil {
		c.Err(err)
		return nil, err
	}
	Output(c, reply)
	return reply, nil
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.BridgeURL != "" {
		if err := s.Connect(""); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.BridgeURL, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd connects a bridge.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[URL]",
		Func: func(c *ishell.Context) {
			var url string
			if len(c.Args) > 0 {
				url = c.Args[0]
			}
			if err := ShellFrom(c).Connect(url); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd returns to the local simulated bus.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main. With -bridge given
// on the command line the shell connects at start.
func Main() {
	flag.Parse()
	sb, ok := aes.SBoxByName(sboxName)
	if !ok {
		log.Fatalf("unknown sbox %q", sboxName)
	}
	local, err := NewLocalTarget(sim.Default(), twi.Default(), sb)
	if err != nil {
		log.Fatalln(err)
	}
	defer local.Close()
	var autoConnect bool
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "bridge" {
			autoConnect = true
		}
	})
	New(env.Default(), local).WithAutoConnect(autoConnect).Run(flag.Args()...)
}
