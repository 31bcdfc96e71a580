package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"xdao.co/arena/address"
	"xdao.co/arena/cidutil"
	"xdao.co/arena/metadata"
)

func cmdRoster(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("roster", errOut)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	roster := metadata.Roster()
	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(roster); err != nil {
			fmt.Fprintf(errOut, "encode: %v\n", err)
			return 1
		}
		return 0
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tHP\tATK\tDEF\tHUE\tDESCRIPTION")
	for i, t := range roster {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%s\n", i, t.Name, t.HP, t.ATK, t.DEF, metadata.Hue(i), t.Description)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(errOut, "write: %v\n", err)
		return 1
	}
	return 0
}

func cmdRender(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("render", errOut)
	character := fs.String("character", "", "roster character name")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	t, i, ok := metadata.Lookup(*character)
	if !ok {
		fmt.Fprintf(errOut, "unknown character %q\n", *character)
		return 2
	}
	_, _ = io.WriteString(out, metadata.CharacterSVG(metadata.Art{Hue: metadata.Hue(i), Name: t.Name, HP: t.HP, ATK: t.ATK, DEF: t.DEF}))
	return 0
}

func cmdFallbackURI(args []string, out io.Writer, errOut io.Writer) int {
	usage := func() int {
		fmt.Fprintln(errOut, "usage: arena fallback-uri (character <name> | collection [<name>] | profile <name>)")
		return 2
	}
	if len(args) == 0 {
		return usage()
	}
	switch args[0] {
	case "character":
		if len(args) != 2 {
			return usage()
		}
		_, i, ok := metadata.Lookup(args[1])
		if !ok {
			fmt.Fprintf(errOut, "unknown character %q\n", args[1])
			return 2
		}
		_, _ = fmt.Fprintln(out, metadata.CharacterDataURI(i, args[1]))
	case "collection":
		name := metadata.CollectionName
		if len(args) == 2 {
			name = args[1]
		} else if len(args) > 2 {
			return usage()
		}
		_, _ = fmt.Fprintln(out, metadata.CollectionDataURI(name))
	case "profile":
		if len(args) != 2 {
			return usage()
		}
		_, _ = fmt.Fprintln(out, metadata.ProfileDataURI(args[1]))
	default:
		return usage()
	}
	return 0
}

func cmdDecodePubkey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "usage: arena decode-pubkey <base58>")
		return 2
	}
	k, err := address.Decode(args[0])
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	_, _ = fmt.Fprintln(out, hex.EncodeToString(k[:]))
	return 0
}

func cmdCID(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "usage: arena cid <file>")
		return 2
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(errOut, "read: %v\n", err)
		return 1
	}
	id, err := cidutil.Sum(b)
	if err != nil {
		fmt.Fprintf(errOut, "cid: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id)
	return 0
}
