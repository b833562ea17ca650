package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/drpcorg/ydoc"
	"github.com/drpcorg/ydoc/prosemirror"
	"github.com/drpcorg/ydoc/store"
	"github.com/drpcorg/ydoc/utils"
)

// --- Global Command Variables ---
var (
	configPath string
	dirFlag    string
	clientFlag uint64
	gcFlag     bool
	levelFlag  string

	conf Config
	log  utils.Logger

	rootCmd = &cobra.Command{
		Use:           "ydoc",
		Short:         "Edit and inspect collaborative documents kept in a local store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			conf, err = LoadConfig(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("dir") {
				conf.Dir = dirFlag
			}
			if flags.Changed("client") {
				conf.ClientID = clientFlag
			}
			if flags.Changed("gc") {
				conf.GC = gcFlag
			}
			if flags.Changed("log-level") {
				conf.LogLevel = levelFlag
			}
			log, err = conf.Logger()
			return err
		},
	}

	replCmd = &cobra.Command{
		Use:   "repl [doc]",
		Short: "Open an interactive session on a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runRepl,
	}
	exportCmd = &cobra.Command{
		Use:   "export [doc]",
		Short: "Print the rich text of a document as ProseMirror JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	compactCmd = &cobra.Command{
		Use:   "compact [doc]",
		Short: "Replace the update log of a document with a single update",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompact,
	}
	svCmd = &cobra.Command{
		Use:   "sv [doc]",
		Short: "Print the stored state vector of a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runStateVector,
	}
	namesCmd = &cobra.Command{
		Use:   "names",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE:  runNames,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (default ./"+defaultConfigFile+" if present)")
	flags.StringVar(&dirFlag, "dir", "", "store directory")
	flags.Uint64Var(&clientFlag, "client", 0, "client id, random if zero")
	flags.BoolVar(&gcFlag, "gc", true, "drop the content of deleted items")
	flags.StringVar(&levelFlag, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(replCmd, exportCmd, compactCmd, svCmd, namesCmd)
}

func withStore(fn func(s *store.Store) error) (err error) {
	s, err := store.Open(conf.Dir, conf.StoreOptions(log))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

func loadDoc(s *store.Store, name string) (*ydoc.Doc, error) {
	doc := ydoc.New(conf.DocOptions(log)...)
	if _, err := s.Load(name, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func runRepl(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.Store) error {
		repl, err := OpenSession(s, args[0], conf, log, os.Stdout)
		if err != nil {
			return err
		}
		defer repl.Close()
		if err := repl.Open(); err != nil {
			return err
		}
		repl.Loop()
		return nil
	})
}

func export(s *store.Store, name string, out io.Writer) error {
	doc, err := loadDoc(s, name)
	if err != nil {
		return err
	}
	frag, err := doc.GetOrInsertXmlFragment(fragmentRoot)
	if err != nil {
		return err
	}
	return doc.WithReadTransaction(func(txn *ydoc.Transaction) error {
		pm, err := prosemirror.FragmentToJSON(txn, frag)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(pm)
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.Store) error {
		return export(s, args[0], cmd.OutOrStdout())
	})
}

func runCompact(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.Store) error {
		doc, err := loadDoc(s, args[0])
		if err != nil {
			return err
		}
		return s.Compact(args[0], doc)
	})
}

func runStateVector(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.Store) error {
		sv, err := s.StateVector(args[0])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), sv.String())
		return nil
	})
}

func runNames(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.Store) error {
		names, err := s.Names()
		if err != nil {
			return err
		}
		for _, name := range names {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
