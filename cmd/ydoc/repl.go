package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"

	"github.com/drpcorg/ydoc"
	"github.com/drpcorg/ydoc/store"
	"github.com/drpcorg/ydoc/utils"
)

// Root names a session edits.
const (
	textRoot     = "body"
	mapRoot      = "meta"
	fragmentRoot = "prosemirror"
)

// REPL edits one stored document; every commit is appended to the store.
type REPL struct {
	name  string
	store *store.Store
	doc   *ydoc.Doc
	sub   utils.SubscriptionID
	log   utils.Logger
	out   io.Writer
	rl    *readline.Instance

	text *ydoc.Text
	meta *ydoc.Map
	pm   *ydoc.XmlFragment
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("cat"),
	readline.PcItem("insert"),
	readline.PcItem("append"),
	readline.PcItem("remove"),
	readline.PcItem("format"),
	readline.PcItem("delta"),

	readline.PcItem("set"),
	readline.PcItem("get"),
	readline.PcItem("del"),
	readline.PcItem("keys"),

	readline.PcItem("pm"),

	readline.PcItem("sv"),
	readline.PcItem("snapshot"),
	readline.PcItem("snapshots"),
	readline.PcItem("restore"),
	readline.PcItem("compact"),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// OpenSession loads the named document from s and binds it so that
// every later commit is persisted.
func OpenSession(s *store.Store, name string, conf Config, log utils.Logger, out io.Writer) (*REPL, error) {
	doc := ydoc.New(conf.DocOptions(log)...)
	n, err := s.Load(name, doc)
	if err != nil {
		return nil, err
	}
	repl := &REPL{name: name, store: s, doc: doc, log: log, out: out}
	if repl.text, err = doc.GetOrInsertText(textRoot); err != nil {
		return nil, err
	}
	if repl.meta, err = doc.GetOrInsertMap(mapRoot); err != nil {
		return nil, err
	}
	if repl.pm, err = doc.GetOrInsertXmlFragment(fragmentRoot); err != nil {
		return nil, err
	}
	repl.sub = s.Bind(name, doc)
	log.Info("session open", "doc", name, "updates", n, "client", doc.ClientID())
	return repl, nil
}

func (repl *REPL) Open() (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          repl.name + "> ",
		HistoryFile:     ".ydoc_history",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()
	return
}

func (repl *REPL) Close() error {
	repl.doc.Unobserve(repl.sub)
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	return nil
}

// Execute runs one command line. io.EOF means the session is over.
func (repl *REPL) Execute(line string) (err error) {
	line = strings.TrimRight(strings.TrimLeft(line, " \t"), "\r\n")
	if len(line) == 0 {
		return nil
	}
	// one separator; the rest of the line may be text with spaces
	ws := strings.IndexAny(line, " \t")
	cmd := ""
	if ws > 0 {
		cmd = line[:ws]
		line = line[ws+1:]
	} else {
		cmd = line
		line = ""
	}
	switch cmd {
	case "help":
		err = repl.CommandHelp(line)
	// ----- text -----
	case "cat":
		err = repl.CommandCat(line)
	case "insert":
		err = repl.CommandInsert(line)
	case "append":
		err = repl.CommandAppend(line)
	case "remove":
		err = repl.CommandRemove(line)
	case "format":
		err = repl.CommandFormat(line)
	case "delta":
		err = repl.CommandDelta(line)
	// ----- map -----
	case "set":
		err = repl.CommandSet(line)
	case "get":
		err = repl.CommandGet(line)
	case "del":
		err = repl.CommandDel(line)
	case "keys":
		err = repl.CommandKeys(line)
	// ----- rich text -----
	case "pm":
		err = repl.CommandProseMirror(line)
	// ----- state -----
	case "sv":
		err = repl.CommandStateVector(line)
	case "snapshot":
		err = repl.CommandSnapshot(line)
	case "snapshots":
		err = repl.CommandSnapshots(line)
	case "restore":
		err = repl.CommandRestore(line)
	case "compact":
		err = repl.CommandCompact(line)
	case "exit", "quit":
		err = io.EOF
	default:
		err = fmt.Errorf("command unknown: %s", cmd)
	}
	return
}

func (repl *REPL) REPL() error {
	line, err := repl.rl.Readline()
	if err == readline.ErrInterrupt {
		if len(line) == 0 {
			return io.EOF
		}
		return nil
	}
	if err != nil {
		return err
	}
	return repl.Execute(line)
}

// Loop reads commands until exit or EOF.
func (repl *REPL) Loop() {
	var err error
	for err != io.EOF {
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		}
		err = repl.REPL()
	}
}
