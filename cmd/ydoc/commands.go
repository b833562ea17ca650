package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/drpcorg/ydoc"
	"github.com/drpcorg/ydoc/prosemirror"
	"github.com/drpcorg/ydoc/rdx"
)

var (
	HelpInsert   = errors.New("insert 0 some text")
	HelpAppend   = errors.New("append some text")
	HelpRemove   = errors.New("remove 0 4")
	HelpFormat   = errors.New("format 0 4 {\"bold\":true}")
	HelpSet      = errors.New("set key {\"any\":[\"json\",1]}")
	HelpGet      = errors.New("get key")
	HelpDel      = errors.New("del key")
	HelpRestore  = errors.New("restore 0190f1c2-...")
	ErrNoSuchKey = errors.New("no such key")
)

const help = `text:      cat | insert <index> <text> | append <text> | remove <index> <length>
           format <index> <length> <json attrs> | delta
map:       set <key> <json> | get <key> | del <key> | keys
rich text: pm [<prosemirror json>]
state:     sv | snapshot | snapshots | restore <id> | compact
           exit`

func (repl *REPL) CommandHelp(arg string) error {
	_, _ = fmt.Fprintln(repl.out, help)
	return nil
}

// args splits off n leading unsigned integers, each followed by a single
// space; the rest is returned as is.
func args(line string, n int) (nums []uint32, rest string, err error) {
	for i := 0; i < n; i++ {
		var word string
		word, line, _ = strings.Cut(line, " ")
		num, err := strconv.ParseUint(word, 10, 32)
		if err != nil {
			return nil, "", err
		}
		nums = append(nums, uint32(num))
	}
	return nums, line, nil
}

func (repl *REPL) write(fn func(txn *ydoc.Transaction) error) error {
	return repl.doc.WithTransaction(fn)
}

func (repl *REPL) read(fn func(txn *ydoc.Transaction) error) error {
	return repl.doc.WithReadTransaction(fn)
}

func (repl *REPL) CommandCat(arg string) error {
	return repl.read(func(txn *ydoc.Transaction) error {
		_, _ = fmt.Fprintln(repl.out, repl.text.String(txn))
		return nil
	})
}

func (repl *REPL) CommandInsert(arg string) error {
	nums, text, err := args(arg, 1)
	if err != nil || text == "" {
		return HelpInsert
	}
	return repl.write(func(txn *ydoc.Transaction) error {
		return repl.text.Insert(txn, nums[0], text)
	})
}

func (repl *REPL) CommandAppend(arg string) error {
	if arg == "" {
		return HelpAppend
	}
	return repl.write(func(txn *ydoc.Transaction) error {
		return repl.text.Push(txn, arg)
	})
}

func (repl *REPL) CommandRemove(arg string) error {
	nums, _, err := args(arg, 2)
	if err != nil {
		return HelpRemove
	}
	return repl.write(func(txn *ydoc.Transaction) error {
		return repl.text.RemoveRange(txn, nums[0], nums[1])
	})
}

func (repl *REPL) CommandFormat(arg string) error {
	nums, rest, err := args(arg, 2)
	if err != nil {
		return HelpFormat
	}
	var attrs ydoc.Attrs
	if err := json.Unmarshal([]byte(rest), &attrs); err != nil {
		return HelpFormat
	}
	return repl.write(func(txn *ydoc.Transaction) error {
		return repl.text.Format(txn, nums[0], nums[1], attrs)
	})
}

func (repl *REPL) CommandDelta(arg string) error {
	return repl.read(func(txn *ydoc.Transaction) error {
		for _, d := range repl.text.Diff(txn) {
			_, _ = fmt.Fprintln(repl.out, d.String())
		}
		return nil
	})
}

func (repl *REPL) CommandSet(arg string) error {
	key, rest, _ := strings.Cut(arg, " ")
	if key == "" {
		return HelpSet
	}
	var value any
	if err := json.Unmarshal([]byte(rest), &value); err != nil {
		return HelpSet
	}
	return repl.write(func(txn *ydoc.Transaction) error {
		return repl.meta.Set(txn, key, value)
	})
}

func (repl *REPL) CommandGet(arg string) error {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return HelpGet
	}
	return repl.read(func(txn *ydoc.Transaction) error {
		value, ok := repl.meta.Get(txn, arg)
		if !ok {
			return ErrNoSuchKey
		}
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(repl.out, string(data))
		return nil
	})
}

func (repl *REPL) CommandDel(arg string) error {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return HelpDel
	}
	return repl.write(func(txn *ydoc.Transaction) error {
		if !repl.meta.Delete(txn, arg) {
			return ErrNoSuchKey
		}
		return nil
	})
}

func (repl *REPL) CommandKeys(arg string) error {
	return repl.read(func(txn *ydoc.Transaction) error {
		for _, key := range repl.meta.Keys(txn) {
			_, _ = fmt.Fprintln(repl.out, key)
		}
		return nil
	})
}

// CommandProseMirror prints the rich text as ProseMirror JSON, or
// replaces it when given a document.
func (repl *REPL) CommandProseMirror(arg string) error {
	if arg != "" {
		pm, err := prosemirror.ParseDoc([]byte(arg))
		if err != nil {
			return err
		}
		return repl.write(func(txn *ydoc.Transaction) error {
			return prosemirror.UpdateFragment(txn, repl.pm, pm)
		})
	}
	return repl.read(func(txn *ydoc.Transaction) error {
		pm, err := prosemirror.FragmentToJSON(txn, repl.pm)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(pm, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(repl.out, string(data))
		return nil
	})
}

func (repl *REPL) CommandStateVector(arg string) error {
	local, err := repl.doc.StateVector()
	if err != nil {
		return err
	}
	stored, err := repl.store.StateVector(repl.name)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(repl.out, "doc\t%s\nstore\t%s\n", local, stored)
	return nil
}

func (repl *REPL) CommandSnapshot(arg string) error {
	snap, err := repl.doc.Snapshot()
	if err != nil {
		return err
	}
	id, err := repl.store.SaveSnapshot(repl.name, snap)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(repl.out, id.String())
	return nil
}

func (repl *REPL) CommandSnapshots(arg string) error {
	ids, err := repl.store.Snapshots(repl.name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		_, _ = fmt.Fprintln(repl.out, id.String())
	}
	return nil
}

// CommandRestore prints the text as of a saved snapshot. The live
// document is left as it is.
func (repl *REPL) CommandRestore(arg string) error {
	id, err := uuid.Parse(strings.TrimSpace(arg))
	if err != nil {
		return HelpRestore
	}
	snap, err := repl.store.LoadSnapshot(repl.name, id)
	if err != nil {
		return err
	}
	data, err := repl.doc.EncodeStateFromSnapshot(snap, rdx.EncodingV1)
	if err != nil {
		return err
	}
	past := ydoc.New(ydoc.WithLogger(repl.log))
	if err := past.ApplyUpdate(data, rdx.EncodingV1); err != nil {
		return err
	}
	text, err := past.GetOrInsertText(textRoot)
	if err != nil {
		return err
	}
	return past.WithReadTransaction(func(txn *ydoc.Transaction) error {
		_, _ = fmt.Fprintln(repl.out, text.String(txn))
		return nil
	})
}

func (repl *REPL) CommandCompact(arg string) error {
	if err := repl.store.Compact(repl.name, repl.doc); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(repl.out, "compacted")
	return nil
}
